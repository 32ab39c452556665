package mcp

import (
	"context"

	"github.com/claude/kcalplanner/internal/models"
	"github.com/claude/kcalplanner/internal/planner"
)

// DataSource is what the MCP tools need from the planner. Local (in-process)
// and HTTPClient (remote via REST API) satisfy this interface.
//
// Methods that change state may return a complete value together with an
// error wrapping planner.ErrNotPersisted.
type DataSource interface {
	Register(ctx context.Context, in planner.RegisterInput) (models.User, error)
	FindUser(ctx context.Context, query string) (models.User, error)
	Users(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID string, upd planner.ProfileUpdate) (models.User, error)
	RecordSession(ctx context.Context, userID string, req planner.SessionRequest) (*planner.SessionOutcome, error)
	History(ctx context.Context, userID string, order planner.HistorySort) ([]models.WorkoutRecord, error)
	Recommendations(ctx context.Context, userID string) (*planner.Recommendations, error)
	SuggestLoad(ctx context.Context, userID string, e models.Exercise) (float64, error)
	Presets(ctx context.Context) ([]models.WorkoutDay, error)
	AllRecords(ctx context.Context) ([]models.WorkoutRecord, error)
}

// Local serves tools straight from an in-process planner.
type Local struct {
	svc *planner.Service
}

// Compile-time check: *Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

// NewLocal wraps svc as a DataSource.
func NewLocal(svc *planner.Service) *Local {
	return &Local{svc: svc}
}

func (l *Local) Register(_ context.Context, in planner.RegisterInput) (models.User, error) {
	return l.svc.Register(in)
}

func (l *Local) FindUser(_ context.Context, query string) (models.User, error) {
	return l.svc.Login(query)
}

func (l *Local) Users(context.Context) ([]models.User, error) {
	return l.svc.Users(), nil
}

func (l *Local) UpdateProfile(_ context.Context, userID string, upd planner.ProfileUpdate) (models.User, error) {
	return l.svc.UpdateProfile(userID, upd)
}

func (l *Local) RecordSession(_ context.Context, userID string, req planner.SessionRequest) (*planner.SessionOutcome, error) {
	return l.svc.Submit(userID, req)
}

func (l *Local) History(_ context.Context, userID string, order planner.HistorySort) ([]models.WorkoutRecord, error) {
	return l.svc.History(userID, order)
}

func (l *Local) Recommendations(_ context.Context, userID string) (*planner.Recommendations, error) {
	return l.svc.Recommendations(userID)
}

func (l *Local) SuggestLoad(_ context.Context, userID string, e models.Exercise) (float64, error) {
	return l.svc.SuggestLoad(userID, e)
}

func (l *Local) Presets(context.Context) ([]models.WorkoutDay, error) {
	return l.svc.Presets(), nil
}

func (l *Local) AllRecords(context.Context) ([]models.WorkoutRecord, error) {
	return l.svc.AllRecords(), nil
}
