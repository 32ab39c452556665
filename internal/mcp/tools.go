package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/kcalplanner/internal/models"
	"github.com/claude/kcalplanner/internal/planner"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolRegisterUser = mcp.NewTool("register_user",
	mcp.WithDescription("Register a new user. Returns the user with its generated ID."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
	mcp.WithString("gender", mcp.Description("Free-form gender label")),
	mcp.WithNumber("age", mcp.Required(), mcp.Description("Age in years (0 or more)")),
	mcp.WithNumber("height_cm", mcp.Required(), mcp.Description("Height in centimetres")),
	mcp.WithNumber("weight_kg", mcp.Required(), mcp.Description("Body weight in kilograms")),
)

var toolFindUser = mcp.NewTool("find_user",
	mcp.WithDescription("Find a user by exact ID or by case-insensitive name. The first registered match wins."),
	mcp.WithString("query", mcp.Required(), mcp.Description("User ID or name")),
)

var toolListUsers = mcp.NewTool("list_users",
	mcp.WithDescription("List all registered users in registration order."),
)

var toolUpdateProfile = mcp.NewTool("update_profile",
	mcp.WithDescription("Change a user's weight, height or age. Omitted fields keep their value. Nothing changes if any given value is invalid."),
	mcp.WithString("user_id", mcp.Description("User ID. Defaults to the session user.")),
	mcp.WithNumber("weight_kg", mcp.Description("New weight in kilograms")),
	mcp.WithNumber("height_cm", mcp.Description("New height in centimetres")),
	mcp.WithNumber("age", mcp.Description("New age in years")),
)

var toolRecordWorkout = mcp.NewTool("record_workout",
	mcp.WithDescription("Record a workout session and return the estimated calories. Give either a preset name or a custom day, "+
		"and one effort per exercise in order: minutes for cardio, sets and reps (and optionally load_kg) for strength."),
	mcp.WithString("user_id", mcp.Description("User ID. Defaults to the session user.")),
	mcp.WithString("preset", mcp.Description("Preset day name (see list_presets), case-insensitive")),
	mcp.WithObject("day", mcp.Description("Custom day: {name, exercises: [{name, group, cardio, met}]}. A missing MET uses the default."),
		mcp.Properties(map[string]any{
			"name": map[string]any{"type": "string"},
			"exercises": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":   map[string]any{"type": "string"},
						"group":  map[string]any{"type": "string"},
						"cardio": map[string]any{"type": "boolean"},
						"met":    map[string]any{"type": "number"},
					},
				},
			},
		}),
	),
	mcp.WithArray("efforts", mcp.Required(), mcp.Description("One entry per exercise, in order"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"minutes": map[string]any{"type": "integer"},
				"sets":    map[string]any{"type": "integer"},
				"reps":    map[string]any{"type": "integer"},
				"load_kg": map[string]any{"type": "number"},
			},
		}),
	),
	mcp.WithNumber("weight_after_kg", mcp.Description("Body weight to record after the session")),
)

var toolGetHistory = mcp.NewTool("get_history",
	mcp.WithDescription("Return a user's workout records."),
	mcp.WithString("user_id", mcp.Description("User ID. Defaults to the session user.")),
	mcp.WithString("sort", mcp.Description("Ordering. Defaults to earliest."), mcp.Enum("earliest", "latest", "calories")),
)

var toolGetRecommendations = mcp.NewTool("get_recommendations",
	mcp.WithDescription("Suggested starting loads for every preset exercise plus progression advice from the user's history."),
	mcp.WithString("user_id", mcp.Description("User ID. Defaults to the session user.")),
)

var toolSuggestLoad = mcp.NewTool("suggest_load",
	mcp.WithDescription("Heuristic starting load in kg for one exercise, from body weight, muscle group and age."),
	mcp.WithString("user_id", mcp.Description("User ID. Defaults to the session user.")),
	mcp.WithString("group", mcp.Required(), mcp.Description("Muscle group (legs, back, chest, shoulders, arms, core, ...)")),
	mcp.WithString("exercise", mcp.Description("Exercise name, for the response only")),
)

var toolListPresets = mcp.NewTool("list_presets",
	mcp.WithDescription("List the built-in workout days."),
)

// --- Tool handlers ---

func (h *handlers) registerUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in planner.RegisterInput
	if err := req.BindArguments(&in); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	u, err := h.ds.Register(ctx, in)
	return h.result("register_user", u, err)
}

func (h *handlers) findUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	u, err := h.ds.FindUser(ctx, query)
	return h.result("find_user", u, err)
}

func (h *handlers) listUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	users, err := h.ds.Users(ctx)
	if users == nil {
		users = []models.User{}
	}
	return h.result("list_users", users, err)
}

func (h *handlers) updateProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, res := sessionUser(ctx, req)
	if res != nil {
		return res, nil
	}
	var upd planner.ProfileUpdate
	if err := req.BindArguments(&upd); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	u, err := h.ds.UpdateProfile(ctx, uid, upd)
	return h.result("update_profile", u, err)
}

func (h *handlers) recordWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, res := sessionUser(ctx, req)
	if res != nil {
		return res, nil
	}
	var sr planner.SessionRequest
	if err := req.BindArguments(&sr); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	out, err := h.ds.RecordSession(ctx, uid, sr)
	return h.result("record_workout", out, err)
}

func (h *handlers) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, res := sessionUser(ctx, req)
	if res != nil {
		return res, nil
	}
	order, err := planner.ParseHistorySort(req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recs, err := h.ds.History(ctx, uid, order)
	if recs == nil {
		recs = []models.WorkoutRecord{}
	}
	return h.result("get_history", recs, err)
}

func (h *handlers) getRecommendations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, res := sessionUser(ctx, req)
	if res != nil {
		return res, nil
	}
	recs, err := h.ds.Recommendations(ctx, uid)
	return h.result("get_recommendations", recs, err)
}

func (h *handlers) suggestLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, res := sessionUser(ctx, req)
	if res != nil {
		return res, nil
	}
	group, err := req.RequireString("group")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ex := models.Exercise{Name: req.GetString("exercise", ""), Group: group}
	load, err := h.ds.SuggestLoad(ctx, uid, ex)
	return h.result("suggest_load", map[string]any{
		"exercise": ex.Name,
		"group":    ex.Group,
		"load_kg":  load,
	}, err)
}

func (h *handlers) listPresets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days, err := h.ds.Presets(ctx)
	return h.result("list_presets", days, err)
}

// sessionUser returns the user_id argument, falling back to the session
// user. A non-nil result is the error to hand back to the client.
func sessionUser(ctx context.Context, req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	uid := req.GetString("user_id", UserIDFromContext(ctx))
	if uid == "" {
		return "", mcp.NewToolResultError("user_id is required: no session user is set")
	}
	return uid, nil
}

// result turns a data source reply into a tool result. A change that only
// failed to reach disk is returned with an extra warning block.
func (h *handlers) result(tool string, v any, err error) (*mcp.CallToolResult, error) {
	var warning string
	switch {
	case err == nil:
	case errors.Is(err, planner.ErrNotPersisted):
		h.log.Warn("mcp "+tool+": change not persisted", "error", err)
		warning = "warning: the change was applied but could not be saved to disk"
	case errors.Is(err, models.ErrValidation), errors.Is(err, planner.ErrNotFound):
		return mcp.NewToolResultError(err.Error()), nil
	default:
		h.log.Error("mcp "+tool, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err)), nil
	}

	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	if warning != "" {
		result.Content = append(result.Content, mcp.NewTextContent(warning))
	}
	return result, nil
}
