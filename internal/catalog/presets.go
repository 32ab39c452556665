// Package catalog ships the preset workout days and parses user-authored
// exercises.
package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/claude/kcalplanner/internal/models"
)

// Fallback MET values when a custom exercise's intensity does not parse.
const (
	DefaultCardioMET   = 7.0
	DefaultStrengthMET = 5.0
)

// Presets returns a fresh copy of the built-in workout days.
func Presets() []models.WorkoutDay {
	return []models.WorkoutDay{
		{Name: "Chest & Triceps Day", Exercises: []models.Exercise{
			{Name: "Incline Bench Press (Barbell/Dumbbell)", Group: "chest", MET: 6.5},
			{Name: "Flat Bench Press", Group: "chest", MET: 6.3},
			{Name: "Dumbbell Fly (Flat/Incline)", Group: "chest", MET: 5.2},
			{Name: "Triceps Pushdown", Group: "triceps", MET: 4.8},
		}},
		{Name: "Back & Biceps Day", Exercises: []models.Exercise{
			{Name: "Pull-Ups / Assisted Pull-Ups", Group: "back", MET: 7.0},
			{Name: "Barbell Row", Group: "back", MET: 6.2},
			{Name: "Seated Cable Row", Group: "back", MET: 6.0},
			{Name: "Barbell Curl", Group: "biceps", MET: 4.3},
		}},
		{Name: "Legs & Shoulders Day", Exercises: []models.Exercise{
			{Name: "Squats (Back/Front)", Group: "legs", MET: 8.0},
			{Name: "Leg Press", Group: "legs", MET: 6.5},
			{Name: "Romanian Deadlift", Group: "legs", MET: 7.0},
			{Name: "Overhead Press", Group: "shoulders", MET: 6.0},
		}},
		{Name: "Abs & Core Day", Exercises: []models.Exercise{
			{Name: "Plank (seconds-based)", Group: "core", MET: 3.5},
			{Name: "Hanging Leg Raise", Group: "core", MET: 4.2},
			{Name: "Russian Twist", Group: "core", MET: 4.0},
			{Name: "Jump Rope (cardio)", Group: "cardio", Cardio: true, MET: 10.0},
		}},
		{Name: "Cardio / Mixed", Exercises: []models.Exercise{
			{Name: "Running (moderate)", Group: "cardio", Cardio: true, MET: 9.8},
			{Name: "Cycling (moderate)", Group: "cardio", Cardio: true, MET: 7.5},
		}},
	}
}

// Find returns the preset whose name matches case-insensitively.
func Find(presets []models.WorkoutDay, name string) (models.WorkoutDay, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return models.WorkoutDay{}, false
}

// ParseExercise parses "name|group|cardio|met", e.g.
// "Rowing machine|back|true|7.0". An unparsable MET falls back to 7.0 for
// cardio and 5.0 otherwise; anything other than "true" is not cardio.
func ParseExercise(line string) (models.Exercise, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 4 {
		return models.Exercise{}, fmt.Errorf("expected name|group|cardio|met, got %q", line)
	}
	cardio := strings.EqualFold(strings.TrimSpace(parts[2]), "true")
	met, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		met = 0
	}
	return Custom(parts[0], parts[1], cardio, met)
}

// Custom builds a user-authored exercise, substituting the default MET when
// met is not a positive number.
func Custom(name, group string, cardio bool, met float64) (models.Exercise, error) {
	if !(met > 0) || math.IsInf(met, 1) {
		met = DefaultStrengthMET
		if cardio {
			met = DefaultCardioMET
		}
	}
	return models.NewExercise(name, group, cardio, met)
}
