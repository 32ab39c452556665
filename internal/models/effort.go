package models

import (
	"fmt"
	"math"
)

// Effort is what the user reports for one exercise of a session: sets and
// reps for strength work, minutes for cardio. A nil LoadKg means the
// suggested load was used.
type Effort struct {
	Sets    int      `json:"sets,omitempty"`
	Reps    int      `json:"reps,omitempty"`
	LoadKg  *float64 `json:"load_kg,omitempty"`
	Minutes int      `json:"minutes,omitempty"`
}

// Validate rejects negative counts and loads.
func (e Effort) Validate() error {
	switch {
	case e.Sets < 0:
		return &ValidationError{Field: "sets", Reason: "must not be negative"}
	case e.Reps < 0:
		return &ValidationError{Field: "reps", Reason: "must not be negative"}
	case e.Minutes < 0:
		return &ValidationError{Field: "minutes", Reason: "must not be negative"}
	case e.LoadKg != nil && (*e.LoadKg < 0 || math.IsNaN(*e.LoadKg)):
		return &ValidationError{Field: "load", Reason: "must not be negative"}
	}
	return nil
}

// ExerciseResult is one exercise of a finished session with its estimate.
type ExerciseResult struct {
	Exercise Exercise `json:"exercise"`
	Sets     int      `json:"sets,omitempty"`
	Reps     int      `json:"reps,omitempty"`
	LoadKg   float64  `json:"load_kg,omitempty"`
	Minutes  int      `json:"minutes,omitempty"`
	Calories float64  `json:"calories"`
}

// Summary renders the line stored in WorkoutRecord.Exercises.
func (r ExerciseResult) Summary() string {
	if r.Exercise.Cardio {
		return fmt.Sprintf("%s: %d min => %.2f kcal", r.Exercise.Name, r.Minutes, r.Calories)
	}
	return fmt.Sprintf("%s: %dx%d @ %.1fkg => %.2f kcal", r.Exercise.Name, r.Sets, r.Reps, r.LoadKg, r.Calories)
}

// RoundKcal rounds to the two decimals shown in summaries, so totals built
// from rounded components equal the sum of what the summaries display.
func RoundKcal(v float64) float64 {
	return math.Round(v*100) / 100
}
