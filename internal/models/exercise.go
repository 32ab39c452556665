package models

import "strings"

// Exercise is a movement template. MET is the metabolic-equivalent intensity
// used by the cardio calorie formula; Group is matched loosely by the load
// heuristics ("legs", "chest", "triceps", ...).
type Exercise struct {
	Name   string  `json:"name"`
	Group  string  `json:"group"`
	Cardio bool    `json:"cardio"`
	MET    float64 `json:"met"`
}

// NewExercise validates and builds an exercise.
func NewExercise(name, group string, cardio bool, met float64) (Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Exercise{}, &ValidationError{Field: "exercise name", Reason: "is required"}
	}
	if err := validatePositive("met", met); err != nil {
		return Exercise{}, err
	}
	return Exercise{Name: name, Group: strings.TrimSpace(group), Cardio: cardio, MET: met}, nil
}

func (e Exercise) String() string {
	if e.Cardio {
		return e.Name + " (cardio)"
	}
	return e.Name
}

// WorkoutDay is a named, ordered list of exercises. It is never stored on
// its own; only the resulting WorkoutRecord is.
type WorkoutDay struct {
	Name      string     `json:"name"`
	Exercises []Exercise `json:"exercises"`
}

// NewWorkoutDay returns an empty day. A blank name becomes "Custom".
func NewWorkoutDay(name string) *WorkoutDay {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Custom"
	}
	return &WorkoutDay{Name: name}
}

// Add appends e. Duplicates are allowed.
func (d *WorkoutDay) Add(e Exercise) {
	d.Exercises = append(d.Exercises, e)
}
