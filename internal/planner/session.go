package planner

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/claude/kcalplanner/internal/catalog"
	"github.com/claude/kcalplanner/internal/estimate"
	"github.com/claude/kcalplanner/internal/models"
)

// SessionResult is a recorded session with its per-exercise breakdown.
type SessionResult struct {
	Record  models.WorkoutRecord    `json:"record"`
	Results []models.ExerciseResult `json:"results"`
}

// RecordSession estimates each exercise of day from the matching effort and
// appends the resulting record. Calories use the user's current weight,
// which is also snapshotted into the record. A strength effort without a
// load is recorded at the suggested load.
func (s *Service) RecordSession(userID string, day models.WorkoutDay, efforts []models.Effort) (*SessionResult, error) {
	u, err := s.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if len(efforts) != len(day.Exercises) {
		return nil, &models.ValidationError{
			Field:  "efforts",
			Reason: fmt.Sprintf("got %d for %d exercises", len(efforts), len(day.Exercises)),
		}
	}
	name := strings.TrimSpace(day.Name)
	if name == "" {
		name = "Custom"
	}

	results := make([]models.ExerciseResult, 0, len(efforts))
	summaries := make([]string, 0, len(efforts))
	var total float64
	for i, e := range day.Exercises {
		res, err := Measure(u, e, efforts[i])
		if err != nil {
			return nil, fmt.Errorf("exercise %d (%s): %w", i+1, e.Name, err)
		}
		total += res.Calories
		results = append(results, res)
		summaries = append(summaries, res.Summary())
	}

	rec := models.NewWorkoutRecord(u.ID, u.Name, name, summaries, models.RoundKcal(total), u.WeightKg)
	result := &SessionResult{Record: rec, Results: results}
	if err := s.repo.AppendRecord(rec); err != nil {
		if errors.Is(err, ErrNotPersisted) {
			return result, err
		}
		return nil, fmt.Errorf("saving workout: %w", err)
	}
	s.log.Info("workout recorded",
		"user_id", u.ID,
		"record_id", rec.ID,
		"day", name,
		"exercises", len(results),
		"kcal", rec.TotalCalories,
	)
	return result, nil
}

// Measure estimates one exercise for u. Calories are rounded to two
// decimals; a strength effort without a load gets the suggested load.
func Measure(u models.User, e models.Exercise, eff models.Effort) (models.ExerciseResult, error) {
	if err := eff.Validate(); err != nil {
		return models.ExerciseResult{}, err
	}
	res := models.ExerciseResult{Exercise: e}
	if e.Cardio {
		res.Minutes = eff.Minutes
		res.Calories = models.RoundKcal(estimate.CardioCalories(e.MET, u.WeightKg, eff.Minutes))
		return res, nil
	}
	res.Sets, res.Reps = eff.Sets, eff.Reps
	res.LoadKg = estimate.SuggestLoadKg(u, e)
	if eff.LoadKg != nil {
		res.LoadKg = *eff.LoadKg
	}
	res.Calories = models.RoundKcal(estimate.StrengthCalories(u.WeightKg, eff.Sets, eff.Reps))
	return res, nil
}

// HistorySort orders a user's history.
type HistorySort int

const (
	SortEarliestFirst HistorySort = iota
	SortLatestFirst
	SortCaloriesDesc
)

// ParseHistorySort accepts "earliest", "latest" and "calories". Empty means
// earliest first.
func ParseHistorySort(s string) (HistorySort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "earliest":
		return SortEarliestFirst, nil
	case "latest":
		return SortLatestFirst, nil
	case "calories":
		return SortCaloriesDesc, nil
	}
	return 0, &models.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown order %q", s)}
}

func (o HistorySort) String() string {
	switch o {
	case SortLatestFirst:
		return "latest"
	case SortCaloriesDesc:
		return "calories"
	default:
		return "earliest"
	}
}

// History returns the user's records in the requested order.
func (s *Service) History(userID string, order HistorySort) ([]models.WorkoutRecord, error) {
	if _, err := s.repo.FindUserByID(userID); err != nil {
		return nil, err
	}
	recs := s.repo.RecordsForUser(userID)
	sortRecords(recs, order)
	return recs, nil
}

// sortRecords orders by timestamp, or by calories with ties broken by time.
// Records with equal keys keep their load order.
func sortRecords(recs []models.WorkoutRecord, order HistorySort) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	switch order {
	case SortLatestFirst:
		for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
			recs[i], recs[j] = recs[j], recs[i]
		}
	case SortCaloriesDesc:
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].TotalCalories > recs[j].TotalCalories
		})
	}
}

// LoadSuggestion is the suggested starting load for one exercise.
type LoadSuggestion struct {
	Exercise string  `json:"exercise"`
	Group    string  `json:"group"`
	LoadKg   float64 `json:"load_kg"`
}

// DayLoads groups suggestions by preset day.
type DayLoads struct {
	Day   string           `json:"day"`
	Loads []LoadSuggestion `json:"loads"`
}

// Recommendations is the recommendation view for one user.
type Recommendations struct {
	User   models.User `json:"user"`
	Days   []DayLoads  `json:"days"`
	Advice string      `json:"advice"`
}

// Recommendations suggests a starting load for every preset exercise and
// gives progression advice from the user's history.
func (s *Service) Recommendations(userID string) (*Recommendations, error) {
	u, err := s.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	out := &Recommendations{User: u}
	for _, d := range s.presets {
		dl := DayLoads{Day: d.Name}
		for _, e := range d.Exercises {
			dl.Loads = append(dl.Loads, LoadSuggestion{
				Exercise: e.Name,
				Group:    e.Group,
				LoadKg:   estimate.SuggestLoadKg(u, e),
			})
		}
		out.Days = append(out.Days, dl)
	}
	out.Advice = estimate.ProgressionAdvice(u, s.repo.RecordsForUser(u.ID))
	return out, nil
}

// SessionRequest is a session as front ends submit it: a preset name or a
// custom day, one effort per exercise in order, and optionally the weight
// to record once the session is stored.
type SessionRequest struct {
	Preset        string             `json:"preset,omitempty"`
	Day           *models.WorkoutDay `json:"day,omitempty"`
	Efforts       []models.Effort    `json:"efforts"`
	WeightAfterKg *float64           `json:"weight_after_kg,omitempty"`
}

// SessionOutcome is a stored session plus the updated user when a
// post-workout weight was given.
type SessionOutcome struct {
	*SessionResult
	User *models.User `json:"user,omitempty"`
}

// ResolveDay returns the named preset, or the custom day with its exercises
// validated and default METs filled in.
func (s *Service) ResolveDay(preset string, day *models.WorkoutDay) (models.WorkoutDay, error) {
	switch {
	case preset != "" && day != nil:
		return models.WorkoutDay{}, &models.ValidationError{Field: "session", Reason: "takes a preset or a day, not both"}
	case preset != "":
		return s.Preset(preset)
	case day != nil:
		if len(day.Exercises) == 0 {
			return models.WorkoutDay{}, &models.ValidationError{Field: "day", Reason: "has no exercises"}
		}
		custom := models.NewWorkoutDay(day.Name)
		for _, e := range day.Exercises {
			ex, err := catalog.Custom(e.Name, e.Group, e.Cardio, e.MET)
			if err != nil {
				return models.WorkoutDay{}, err
			}
			custom.Add(ex)
		}
		return *custom, nil
	}
	return models.WorkoutDay{}, &models.ValidationError{Field: "session", Reason: "needs a preset or a day"}
}

// Submit resolves the day, records the session and applies the
// post-workout weight. ErrNotPersisted comes back with a complete outcome.
func (s *Service) Submit(userID string, req SessionRequest) (*SessionOutcome, error) {
	if w := req.WeightAfterKg; w != nil && (!(*w > 0) || math.IsInf(*w, 1)) {
		return nil, &models.ValidationError{Field: "weight", Reason: "must be a positive number"}
	}
	day, err := s.ResolveDay(req.Preset, req.Day)
	if err != nil {
		return nil, err
	}

	res, err := s.RecordSession(userID, day, req.Efforts)
	if res == nil {
		return nil, err
	}
	out := &SessionOutcome{SessionResult: res}
	persistErr := err

	if req.WeightAfterKg != nil {
		u, err := s.UpdateWeight(userID, *req.WeightAfterKg)
		if err != nil && !errors.Is(err, ErrNotPersisted) {
			return out, err
		}
		if err != nil {
			persistErr = err
		}
		out.User = &u
	}
	return out, persistErr
}
