package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claude/kcalplanner/internal/models"
	"github.com/claude/kcalplanner/internal/planner"
	"github.com/claude/kcalplanner/internal/storage"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := storage.Open(storage.Options{Dir: dir, UsersFile: "users.csv", WorkoutsFile: "workouts.csv"}, log)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	return New(planner.New(st, nil, log), log), dir
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

func registerUser(t *testing.T, s *Server, body string) models.User {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/v1/users", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body)
	}
	return decode[models.User](t, rec)
}

// TestRegisterAndLookup verifies a registered user can be found by ID and
// by name.
func TestRegisterAndLookup(t *testing.T) {
	s, _ := newTestServer(t)
	u := registerUser(t, s, `{"name":"Maria","gender":"F","age":31,"height_cm":165,"weight_kg":62}`)
	if u.ID == "" || u.Name != "Maria" {
		t.Fatalf("user = %+v", u)
	}

	rec := do(t, s, http.MethodGet, "/api/v1/users/"+u.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/users/lookup?q=MARIA", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", rec.Code)
	}
	if got := decode[models.User](t, rec); got.ID != u.ID {
		t.Errorf("lookup id = %s, want %s", got.ID, u.ID)
	}

	users := decode[[]models.User](t, do(t, s, http.MethodGet, "/api/v1/users", ""))
	if len(users) != 1 {
		t.Errorf("users = %d, want 1", len(users))
	}
}

// TestErrorStatuses verifies validation maps to 400 and unknown IDs to 404.
func TestErrorStatuses(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/api/v1/users", `{"name":"","age":20,"height_cm":170,"weight_kg":70}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/users", `{not json`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/users/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/users/lookup?q=ghost", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/users/lookup", "", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/users/missing/history", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/users/missing/history?sort=sideways", "", http.StatusBadRequest},
		{http.MethodPatch, "/api/v1/users/missing", `{"age":40}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := do(t, s, tt.method, tt.path, tt.body)
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body)
		}
	}
}

// TestRecordSessionPreset verifies a preset session is stored, then shows
// in history and in the admin listing.
func TestRecordSessionPreset(t *testing.T) {
	s, _ := newTestServer(t)
	u := registerUser(t, s, `{"name":"Ann","gender":"F","age":25,"height_cm":170,"weight_kg":70}`)

	body := `{"preset":"cardio / mixed","efforts":[{"minutes":30},{"minutes":20}],"weight_after_kg":69.5}`
	rec := do(t, s, http.MethodPost, "/api/v1/users/"+u.ID+"/sessions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[struct {
		Record models.WorkoutRecord `json:"record"`
		User   *models.User         `json:"user"`
	}](t, rec)
	// 9.8×70×0.5 + 7.5×70×(20/60)
	if resp.Record.TotalCalories != 518 {
		t.Errorf("total = %v, want 518", resp.Record.TotalCalories)
	}
	if resp.Record.WorkoutDay != "Cardio / Mixed" || resp.Record.UserWeightKg != 70 {
		t.Errorf("record = %+v", resp.Record)
	}
	if resp.User == nil || resp.User.WeightKg != 69.5 {
		t.Errorf("user after session = %+v", resp.User)
	}

	hist := decode[[]models.WorkoutRecord](t, do(t, s, http.MethodGet, "/api/v1/users/"+u.ID+"/history?sort=latest", ""))
	if len(hist) != 1 || hist[0].ID != resp.Record.ID {
		t.Errorf("history = %+v", hist)
	}
	all := decode[[]models.WorkoutRecord](t, do(t, s, http.MethodGet, "/api/v1/records", ""))
	if len(all) != 1 {
		t.Errorf("records = %d, want 1", len(all))
	}
}

// TestRecordSessionCustomDay verifies custom exercises get the default MET
// when none is given.
func TestRecordSessionCustomDay(t *testing.T) {
	s, _ := newTestServer(t)
	u := registerUser(t, s, `{"name":"Ann","gender":"F","age":25,"height_cm":170,"weight_kg":60}`)

	body := `{"day":{"name":"","exercises":[{"name":"Rower","group":"back","cardio":true}]},"efforts":[{"minutes":60}]}`
	rec := do(t, s, http.MethodPost, "/api/v1/users/"+u.ID+"/sessions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[planner.SessionResult](t, rec)
	if resp.Record.WorkoutDay != "Custom" {
		t.Errorf("day = %q, want Custom", resp.Record.WorkoutDay)
	}
	// default cardio MET 7.0 × 60kg × 1h
	if resp.Record.TotalCalories != 420 {
		t.Errorf("total = %v, want 420", resp.Record.TotalCalories)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/users/"+u.ID+"/sessions", `{"efforts":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty session status = %d, want 400", rec.Code)
	}
}

// TestUpdateProfileAndRecommendations verifies PATCH changes only the given
// fields and recommendations reflect the new state.
func TestUpdateProfileAndRecommendations(t *testing.T) {
	s, _ := newTestServer(t)
	u := registerUser(t, s, `{"name":"Ann","gender":"F","age":25,"height_cm":170,"weight_kg":70}`)

	rec := do(t, s, http.MethodPatch, "/api/v1/users/"+u.ID, `{"age":65}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}
	if got := decode[models.User](t, rec); got.Age != 65 || got.WeightKg != 70 {
		t.Errorf("patched = %+v", got)
	}

	recs := decode[planner.Recommendations](t, do(t, s, http.MethodGet, "/api/v1/users/"+u.ID+"/recommendations", ""))
	// core at 65: 35 × 0.15 × 0.75 → 5.0
	plank := recs.Days[3].Loads[0]
	if plank.LoadKg != 5 {
		t.Errorf("plank load = %v, want 5", plank.LoadKg)
	}

	load := decode[map[string]any](t, do(t, s, http.MethodGet, "/api/v1/users/"+u.ID+"/suggested-load?group=legs", ""))
	if load["load_kg"] != 27.5 {
		t.Errorf("suggested legs load = %v, want 27.5", load["load_kg"])
	}
}

// TestNotPersistedWarning verifies a failed disk write still succeeds with a
// warning header.
func TestNotPersistedWarning(t *testing.T) {
	s, dir := newTestServer(t)
	p := filepath.Join(dir, "users.csv")
	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(p, 0o755); err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodPost, "/api/v1/users", `{"name":"Ann","age":25,"height_cm":170,"weight_kg":70}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(warningHeader) == "" {
		t.Error("missing warning header")
	}
}

// TestPresetsAndMetrics verifies the presets listing and that requests are
// counted by route pattern.
func TestPresetsAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	presets := decode[[]models.WorkoutDay](t, do(t, s, http.MethodGet, "/api/v1/presets", ""))
	if len(presets) != 5 {
		t.Errorf("presets = %d, want 5", len(presets))
	}
	do(t, s, http.MethodGet, "/api/v1/users/abc", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	body, _ := io.ReadAll(rec.Body)
	if !bytes.Contains(body, []byte(`route="/api/v1/presets"`)) {
		t.Errorf("metrics missing presets route:\n%s", body)
	}
	if !bytes.Contains(body, []byte(`route="/api/v1/users/{id}/"`)) && !bytes.Contains(body, []byte(`route="/api/v1/users/{id}"`)) {
		t.Errorf("metrics missing templated user route:\n%s", body)
	}
	if bytes.Contains(body, []byte("/users/abc")) {
		t.Error("raw user id leaked into metric labels")
	}
}
