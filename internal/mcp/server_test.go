package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claude/kcalplanner/internal/models"
	"github.com/claude/kcalplanner/internal/planner"
	"github.com/claude/kcalplanner/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

func newTestHandlers(t *testing.T) (*handlers, string) {
	t.Helper()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := storage.Open(storage.Options{Dir: dir, UsersFile: "users.csv", WorkoutsFile: "workouts.csv"}, log)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	return &handlers{ds: NewLocal(planner.New(st, nil, log)), log: log}, dir
}

func call(t *testing.T, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), ctx context.Context, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(ctx, req)
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func decodeResult[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var v T
	if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return v
}

func register(t *testing.T, h *handlers, name string, weight float64) models.User {
	t.Helper()
	return decodeResult[models.User](t, call(t, h.registerUser, context.Background(), map[string]any{
		"name": name, "gender": "F", "age": 30, "height_cm": 170, "weight_kg": weight,
	}))
}

// TestUserIDFromContextDefault verifies there is no default user when none
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	if id := UserIDFromContext(context.Background()); id != "" {
		t.Errorf("UserIDFromContext(empty) = %q, want empty", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), "abc")
	if id := UserIDFromContext(ctx); id != "abc" {
		t.Errorf("UserIDFromContext = %q, want abc", id)
	}
}

// TestNewRegistersTools verifies the server builds with every tool.
func TestNewRegistersTools(t *testing.T) {
	h, _ := newTestHandlers(t)
	if s := New(h.ds, "test", h.log); s == nil {
		t.Fatal("New returned nil")
	}
}

// TestRegisterAndFind verifies users registered through the tool can be
// found by name and listed.
func TestRegisterAndFind(t *testing.T) {
	h, _ := newTestHandlers(t)
	u := register(t, h, "Maria", 62)

	got := decodeResult[models.User](t, call(t, h.findUser, context.Background(), map[string]any{"query": "maria"}))
	if got.ID != u.ID {
		t.Errorf("find_user id = %s, want %s", got.ID, u.ID)
	}
	users := decodeResult[[]models.User](t, call(t, h.listUsers, context.Background(), nil))
	if len(users) != 1 {
		t.Errorf("list_users = %d, want 1", len(users))
	}

	res := call(t, h.findUser, context.Background(), map[string]any{"query": "ghost"})
	if !res.IsError {
		t.Error("expected error for unknown user")
	}
	res = call(t, h.registerUser, context.Background(), map[string]any{"name": "Bad", "age": -1, "height_cm": 170, "weight_kg": 60})
	if !res.IsError {
		t.Error("expected error for negative age")
	}
}

// TestRecordWorkoutSessionUser verifies record_workout falls back to the
// session user and stores the record.
func TestRecordWorkoutSessionUser(t *testing.T) {
	h, _ := newTestHandlers(t)
	u := register(t, h, "Ann", 70)
	ctx := WithUserID(context.Background(), u.ID)

	out := decodeResult[planner.SessionOutcome](t, call(t, h.recordWorkout, ctx, map[string]any{
		"preset":  "Cardio / Mixed",
		"efforts": []any{map[string]any{"minutes": 30}, map[string]any{"minutes": 20}},
	}))
	if out.SessionResult == nil || out.Record.TotalCalories != 518 {
		t.Fatalf("outcome = %+v", out)
	}

	hist := decodeResult[[]models.WorkoutRecord](t, call(t, h.getHistory, ctx, map[string]any{"sort": "latest"}))
	if len(hist) != 1 || hist[0].ID != out.Record.ID {
		t.Errorf("history = %+v", hist)
	}

	res := call(t, h.recordWorkout, context.Background(), map[string]any{"preset": "Cardio / Mixed"})
	if !res.IsError || !strings.Contains(resultText(t, res), "user_id") {
		t.Errorf("missing user should be reported, got %+v", res)
	}
}

// TestRecordWorkoutCustomDay verifies a custom day with an explicit load and
// a post-workout weight.
func TestRecordWorkoutCustomDay(t *testing.T) {
	h, _ := newTestHandlers(t)
	u := register(t, h, "Ann", 80)

	out := decodeResult[planner.SessionOutcome](t, call(t, h.recordWorkout, context.Background(), map[string]any{
		"user_id": u.ID,
		"day": map[string]any{
			"name":      "Garage",
			"exercises": []any{map[string]any{"name": "Deadlift", "group": "back", "cardio": false}},
		},
		"efforts":         []any{map[string]any{"sets": 5, "reps": 5, "load_kg": 100}},
		"weight_after_kg": 79.5,
	}))
	if out.Record.WorkoutDay != "Garage" {
		t.Errorf("day = %q, want Garage", out.Record.WorkoutDay)
	}
	if len(out.Results) != 1 || out.Results[0].LoadKg != 100 {
		t.Errorf("results = %+v", out.Results)
	}
	if out.User == nil || out.User.WeightKg != 79.5 {
		t.Errorf("user = %+v", out.User)
	}
}

// TestUpdateProfileTool verifies omitted fields are left alone.
func TestUpdateProfileTool(t *testing.T) {
	h, _ := newTestHandlers(t)
	u := register(t, h, "Ann", 70)

	got := decodeResult[models.User](t, call(t, h.updateProfile, context.Background(), map[string]any{
		"user_id": u.ID, "age": 41,
	}))
	if got.Age != 41 || got.WeightKg != 70 || got.HeightCm != 170 {
		t.Errorf("updated = %+v", got)
	}

	res := call(t, h.updateProfile, context.Background(), map[string]any{"user_id": u.ID, "weight_kg": -1})
	if !res.IsError {
		t.Error("expected error for negative weight")
	}
}

// TestRecommendationsAndLoad verifies the recommendation and load tools
// work for a 70 kg 30 year old.
func TestRecommendationsAndLoad(t *testing.T) {
	h, _ := newTestHandlers(t)
	u := register(t, h, "Ann", 70)
	ctx := WithUserID(context.Background(), u.ID)

	recs := decodeResult[planner.Recommendations](t, call(t, h.getRecommendations, ctx, nil))
	if len(recs.Days) != 5 {
		t.Fatalf("days = %d, want 5", len(recs.Days))
	}
	if recs.Advice == "" {
		t.Error("empty advice")
	}

	load := decodeResult[map[string]any](t, call(t, h.suggestLoad, ctx, map[string]any{"group": "legs"}))
	// 70 × 0.5 × 1.0 × 0.95 = 33.25, nearest 2.5
	if load["load_kg"] != 32.5 {
		t.Errorf("load_kg = %v, want 32.5", load["load_kg"])
	}

	res := call(t, h.getHistory, ctx, map[string]any{"sort": "sideways"})
	if !res.IsError {
		t.Error("expected error for unknown sort")
	}
}

// TestNotPersistedWarning verifies a failed disk write still returns the
// value with a warning block.
func TestNotPersistedWarning(t *testing.T) {
	h, dir := newTestHandlers(t)
	p := filepath.Join(dir, "users.csv")
	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(p, 0o755); err != nil {
		t.Fatal(err)
	}

	res := call(t, h.registerUser, context.Background(), map[string]any{
		"name": "Ann", "age": 30, "height_cm": 170, "weight_kg": 70,
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, res))
	}
	last, ok := res.Content[len(res.Content)-1].(mcp.TextContent)
	if !ok || !strings.HasPrefix(last.Text, "warning:") {
		t.Errorf("last content = %+v, want warning", res.Content[len(res.Content)-1])
	}
}

// TestResources verifies the presets and recent records resources.
func TestResources(t *testing.T) {
	h, _ := newTestHandlers(t)
	var req mcp.ReadResourceRequest
	req.Params.URI = "kcalplanner://presets"

	contents, err := h.presets(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	var days []models.WorkoutDay
	if err := json.Unmarshal([]byte(text), &days); err != nil {
		t.Fatal(err)
	}
	if len(days) != 5 {
		t.Errorf("presets = %d, want 5", len(days))
	}

	req.Params.URI = "kcalplanner://recent_records"
	contents, err = h.recentRecords(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if got := contents[0].(mcp.TextResourceContents).Text; got != "[]" {
		t.Errorf("recent records = %s, want []", got)
	}
}

// TestRegisterAgeRange verifies the age the tool advertises matches what
// registration accepts: zero and large ages pass, negative ages fail.
func TestRegisterAgeRange(t *testing.T) {
	h, _ := newTestHandlers(t)
	for _, age := range []int{0, 130} {
		u := decodeResult[models.User](t, call(t, h.registerUser, context.Background(), map[string]any{
			"name": "Ann", "age": age, "height_cm": 170, "weight_kg": 60,
		}))
		if u.Age != age {
			t.Errorf("age = %d, want %d", u.Age, age)
		}
	}
	res := call(t, h.registerUser, context.Background(), map[string]any{
		"name": "Ann", "age": -1, "height_cm": 170, "weight_kg": 60,
	})
	if !res.IsError {
		t.Error("negative age accepted")
	}

	prop, _ := toolRegisterUser.InputSchema.Properties["age"].(map[string]any)
	if desc, _ := prop["description"].(string); desc != "Age in years (0 or more)" {
		t.Errorf("age description = %q", desc)
	}
}
