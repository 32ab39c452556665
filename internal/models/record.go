package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/claude/kcalplanner/internal/csvrow"
	"github.com/google/uuid"
)

// RecordHeader is the header row of workouts.csv.
var RecordHeader = []string{"recordId", "userId", "userName", "workoutDay", "exercises", "totalCalories", "userWeight", "timestamp"}

// SummarySeparator joins per-exercise summaries inside the exercises column.
const SummarySeparator = "||"

const displayTime = "2006-01-02 15:04"

// WorkoutRecord is one completed session. Records are append-only: once
// written they are never changed or removed.
type WorkoutRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	WorkoutDay    string    `json:"workout_day"`
	Exercises     []string  `json:"exercises"`
	TotalCalories float64   `json:"total_calories"`
	UserWeightKg  float64   `json:"user_weight_kg"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewWorkoutRecord assigns a fresh ID and timestamp. userName and
// weightAtTime are snapshots; later profile edits do not touch them.
func NewWorkoutRecord(userID, userName, dayName string, summaries []string, totalCalories, weightAtTime float64) WorkoutRecord {
	return WorkoutRecord{
		ID:            uuid.NewString(),
		UserID:        userID,
		UserName:      userName,
		WorkoutDay:    dayName,
		Exercises:     append([]string(nil), summaries...),
		TotalCalories: totalCalories,
		UserWeightKg:  weightAtTime,
		CreatedAt:     time.Now(),
	}
}

// Row renders the record as a workouts.csv row.
func (r WorkoutRecord) Row() []string {
	return []string{
		r.ID,
		r.UserID,
		r.UserName,
		r.WorkoutDay,
		strings.Join(r.Exercises, SummarySeparator),
		csvrow.FormatFixed2(r.TotalCalories),
		csvrow.FormatFixed2(r.UserWeightKg),
		csvrow.FormatTime(r.CreatedAt),
	}
}

// RecordFromRow rebuilds a record with its stored ID and timestamp.
func RecordFromRow(cols []string) (WorkoutRecord, error) {
	if err := csvrow.RequireColumns(cols, len(RecordHeader)); err != nil {
		return WorkoutRecord{}, err
	}
	if strings.TrimSpace(cols[0]) == "" {
		return WorkoutRecord{}, &csvrow.MalformedError{Reason: "empty record id"}
	}
	total, err := csvrow.ParseFloat("totalCalories", cols[5])
	if err != nil {
		return WorkoutRecord{}, err
	}
	weight, err := csvrow.ParseFloat("userWeight", cols[6])
	if err != nil {
		return WorkoutRecord{}, err
	}
	ts, err := csvrow.ParseTimeField("timestamp", cols[7])
	if err != nil {
		return WorkoutRecord{}, err
	}
	var summaries []string
	if cols[4] != "" {
		summaries = strings.Split(cols[4], SummarySeparator)
	}
	return WorkoutRecord{
		ID:            cols[0],
		UserID:        cols[1],
		UserName:      cols[2],
		WorkoutDay:    cols[3],
		Exercises:     summaries,
		TotalCalories: total,
		UserWeightKg:  weight,
		CreatedAt:     ts,
	}, nil
}

// Brief is a one-line listing.
func (r WorkoutRecord) Brief() string {
	return fmt.Sprintf("%s | %s | %.2f kcal | %s", r.UserName, r.WorkoutDay, r.TotalCalories, r.CreatedAt.Format(displayTime))
}

// Full is a multi-line detail view.
func (r WorkoutRecord) Full() string {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s (%s)\n", r.UserName, r.UserID)
	fmt.Fprintf(&b, "Workout Day: %s\n", r.WorkoutDay)
	fmt.Fprintf(&b, "When: %s\n", r.CreatedAt.Format(displayTime))
	fmt.Fprintf(&b, "Weight at time: %.2f kg\n", r.UserWeightKg)
	b.WriteString("Exercises:\n")
	for _, s := range r.Exercises {
		fmt.Fprintf(&b, " - %s\n", s)
	}
	fmt.Fprintf(&b, "Total calories: %.2f\n", r.TotalCalories)
	return b.String()
}
