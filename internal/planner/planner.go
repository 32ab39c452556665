// Package planner is the request/response surface every front end drives:
// registration, login, profile updates, recording sessions, history and
// recommendations. It holds no state of its own beyond the repository it is
// given.
package planner

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/claude/kcalplanner/internal/catalog"
	"github.com/claude/kcalplanner/internal/estimate"
	"github.com/claude/kcalplanner/internal/models"
	"github.com/claude/kcalplanner/internal/storage"
)

// Re-exported so front ends can classify errors without importing storage.
var (
	ErrNotFound     = storage.ErrNotFound
	ErrNotPersisted = storage.ErrNotPersisted
)

// Repository is what the service needs from storage.
type Repository interface {
	SaveUser(u models.User) error
	UpdateUser(id string, fn func(u *models.User) error) (models.User, error)
	AppendRecord(r models.WorkoutRecord) error
	FindUserByID(id string) (models.User, error)
	FindUserByName(name string) (models.User, error)
	AllUsers() []models.User
	RecordsForUser(userID string) []models.WorkoutRecord
	AllRecords() []models.WorkoutRecord
}

var _ Repository = (*storage.Store)(nil)

// Service implements the planner operations over a Repository.
type Service struct {
	repo    Repository
	presets []models.WorkoutDay
	log     *slog.Logger
}

// New creates a service. A nil presets slice means the built-in catalog.
func New(repo Repository, presets []models.WorkoutDay, log *slog.Logger) *Service {
	if presets == nil {
		presets = catalog.Presets()
	}
	return &Service{repo: repo, presets: presets, log: log}
}

// RegisterInput is a new user's profile.
type RegisterInput struct {
	Name     string  `json:"name"`
	Gender   string  `json:"gender"`
	Age      int     `json:"age"`
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`
}

// Register creates and stores a user. On ErrNotPersisted the user is still
// returned and usable for this process.
func (s *Service) Register(in RegisterInput) (models.User, error) {
	u, err := models.NewUser(in.Name, in.Gender, in.Age, in.HeightCm, in.WeightKg)
	if err != nil {
		return models.User{}, err
	}
	if err := s.repo.SaveUser(u); err != nil {
		if errors.Is(err, ErrNotPersisted) {
			return u, err
		}
		return models.User{}, fmt.Errorf("saving user: %w", err)
	}
	s.log.Info("user registered", "user_id", u.ID, "name", u.Name)
	return u, nil
}

// Login finds a user by ID, then by case-insensitive name. There is no
// secret to check.
func (s *Service) Login(query string) (models.User, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return models.User{}, &models.ValidationError{Field: "query", Reason: "is required"}
	}
	if u, err := s.repo.FindUserByID(q); err == nil {
		return u, nil
	}
	return s.repo.FindUserByName(q)
}

// User returns the current state of a user by ID.
func (s *Service) User(id string) (models.User, error) {
	return s.repo.FindUserByID(id)
}

// Users lists every user in registration order.
func (s *Service) Users() []models.User {
	return s.repo.AllUsers()
}

// Presets returns the workout day templates.
func (s *Service) Presets() []models.WorkoutDay {
	out := make([]models.WorkoutDay, len(s.presets))
	for i, d := range s.presets {
		out[i] = models.WorkoutDay{Name: d.Name, Exercises: append([]models.Exercise(nil), d.Exercises...)}
	}
	return out
}

// Preset looks up a template by case-insensitive name.
func (s *Service) Preset(name string) (models.WorkoutDay, error) {
	d, ok := catalog.Find(s.Presets(), name)
	if !ok {
		return models.WorkoutDay{}, fmt.Errorf("preset %q: %w", name, ErrNotFound)
	}
	return d, nil
}

// AllRecords lists every user's records, latest first.
func (s *Service) AllRecords() []models.WorkoutRecord {
	recs := s.repo.AllRecords()
	sortRecords(recs, SortLatestFirst)
	return recs
}

// ProfileUpdate carries the fields to change; nil fields are left alone.
type ProfileUpdate struct {
	WeightKg *float64 `json:"weight_kg,omitempty"`
	HeightCm *float64 `json:"height_cm,omitempty"`
	Age      *int     `json:"age,omitempty"`
}

// UpdateProfile applies the update and appends the new state. Nothing is
// saved if any field is invalid. The read and the write happen as one step
// in the repository, so concurrent updates to different fields all land.
func (s *Service) UpdateProfile(id string, upd ProfileUpdate) (models.User, error) {
	u, err := s.repo.UpdateUser(id, func(u *models.User) error {
		if upd.WeightKg != nil {
			if err := u.SetWeightKg(*upd.WeightKg); err != nil {
				return err
			}
		}
		if upd.HeightCm != nil {
			if err := u.SetHeightCm(*upd.HeightCm); err != nil {
				return err
			}
		}
		if upd.Age != nil {
			if err := u.SetAge(*upd.Age); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrNotPersisted):
		return u, err
	case errors.Is(err, ErrNotFound), errors.Is(err, models.ErrValidation):
		return models.User{}, err
	default:
		return models.User{}, fmt.Errorf("saving user: %w", err)
	}
	s.log.Info("profile updated", "user_id", u.ID)
	return u, nil
}

// UpdateWeight is the post-workout weight update.
func (s *Service) UpdateWeight(id string, kg float64) (models.User, error) {
	return s.UpdateProfile(id, ProfileUpdate{WeightKg: &kg})
}

// SuggestLoad returns the suggested starting load for the user.
func (s *Service) SuggestLoad(id string, e models.Exercise) (float64, error) {
	u, err := s.repo.FindUserByID(id)
	if err != nil {
		return 0, err
	}
	return estimate.SuggestLoadKg(u, e), nil
}
