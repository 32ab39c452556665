// Package estimate holds the calorie and load heuristics. The constants are
// business rules, not physiology; change them only on a product decision.
package estimate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/claude/kcalplanner/internal/models"
)

const (
	// StrengthMET is the intensity applied to all strength work.
	StrengthMET = 6.0
	// SecondsPerRep is the active-time proxy for one repetition.
	SecondsPerRep = 3.0
	// LoadIncrementKg is the plate increment suggestions are rounded to.
	LoadIncrementKg = 2.5

	// Bodyweight change, in kg, that triggers gain/loss advice.
	weightChangeThreshold = 2.0
)

// Advice texts returned by ProgressionAdvice.
const (
	AdviceNoHistory = "No history yet — start with conservative loads and track sets/reps."
	AdviceNoWeight  = "No previous weight recorded in history."
	AdviceStable    = "Bodyweight stable — aim to progressively overload (add 1–2.5 kg to compound lifts every 1–2 weeks if form is good)."

	adviceGained = "You gained %.1fkg since last workout — consider increasing loads gradually (~2.5-5%% per week)."
	adviceLost   = "You lost %.1fkg — reduce loads slightly and focus on technique and nutrition."
)

// groupFactors is checked in order; the first keyword contained in the
// lower-cased group wins.
var groupFactors = []struct {
	keywords []string
	factor   float64
}{
	{[]string{"legs"}, 1.0},
	{[]string{"chest", "back"}, 0.7},
	{[]string{"shoulder", "triceps", "biceps"}, 0.35},
	{[]string{"core"}, 0.15},
	{[]string{"cardio"}, 0.1},
}

const defaultGroupFactor = 0.5

// CardioCalories returns met × weight × hours, or 0 for non-positive minutes.
func CardioCalories(met, weightKg float64, minutes int) float64 {
	if minutes <= 0 {
		return 0
	}
	return met * weightKg * (float64(minutes) / 60.0)
}

// StrengthCalories estimates a strength block from sets × reps × 3s of
// active time, floored at one minute. The lifted load is not considered.
func StrengthCalories(weightKg float64, sets, reps int) float64 {
	seconds := float64(sets) * float64(reps) * SecondsPerRep
	minutes := math.Max(1.0, seconds/60.0)
	return StrengthMET * weightKg * (minutes / 60.0)
}

// GroupFactor returns the share of the bodyweight baseline for a muscle group.
func GroupFactor(group string) float64 {
	g := strings.ToLower(group)
	for _, rule := range groupFactors {
		for _, kw := range rule.keywords {
			if strings.Contains(g, kw) {
				return rule.factor
			}
		}
	}
	return defaultGroupFactor
}

// AgeFactor lowers starting loads for older lifters.
func AgeFactor(age int) float64 {
	switch {
	case age >= 60:
		return 0.75
	case age >= 45:
		return 0.85
	case age >= 30:
		return 0.95
	default:
		return 1.0
	}
}

// SuggestLoadKg suggests a starting load: half the bodyweight, scaled by
// muscle group and age, rounded to the nearest 2.5 kg (halves round up).
func SuggestLoadKg(u models.User, e models.Exercise) float64 {
	suggested := u.WeightKg * 0.5 * GroupFactor(e.Group) * AgeFactor(u.Age)
	return math.Floor(suggested/LoadIncrementKg+0.5) * LoadIncrementKg
}

// ProgressionAdvice compares the user's current weight with the
// weight-at-time of their most recent session. History is ordered by
// timestamp here, so callers may pass it in any order.
func ProgressionAdvice(u models.User, history []models.WorkoutRecord) string {
	if len(history) == 0 {
		return AdviceNoHistory
	}
	latest := Latest(history)
	if latest.UserWeightKg <= 0 {
		return AdviceNoWeight
	}
	diff := u.WeightKg - latest.UserWeightKg
	switch {
	case diff >= weightChangeThreshold:
		return fmt.Sprintf(adviceGained, diff)
	case diff <= -weightChangeThreshold:
		return fmt.Sprintf(adviceLost, -diff)
	default:
		return AdviceStable
	}
}

// Latest returns the record with the newest timestamp. Ties go to the one
// that appears later in history. history must not be empty.
func Latest(history []models.WorkoutRecord) models.WorkoutRecord {
	sorted := append([]models.WorkoutRecord(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted[len(sorted)-1]
}
