package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/claude/kcalplanner/internal/csvrow"
	"github.com/google/uuid"
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports an input rejected before any entity was built.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UserHeader is the header row of users.csv.
var UserHeader = []string{"id", "name", "gender", "age", "heightCm", "weightKg", "createdAt"}

// User is a registered person. ID, Name, Gender and CreatedAt never change
// after construction; weight, height and age change through the setters.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Gender    string    `json:"gender"`
	Age       int       `json:"age"`
	HeightCm  float64   `json:"height_cm"`
	WeightKg  float64   `json:"weight_kg"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser validates the profile and assigns a fresh ID and creation time.
func NewUser(name, gender string, age int, heightCm, weightKg float64) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, &ValidationError{Field: "name", Reason: "is required"}
	}
	if err := validateAge(age); err != nil {
		return User{}, err
	}
	if err := validatePositive("height", heightCm); err != nil {
		return User{}, err
	}
	if err := validatePositive("weight", weightKg); err != nil {
		return User{}, err
	}
	return User{
		ID:        uuid.NewString(),
		Name:      name,
		Gender:    strings.TrimSpace(gender),
		Age:       age,
		HeightCm:  heightCm,
		WeightKg:  weightKg,
		CreatedAt: time.Now(),
	}, nil
}

// SetWeightKg updates the body weight.
func (u *User) SetWeightKg(kg float64) error {
	if err := validatePositive("weight", kg); err != nil {
		return err
	}
	u.WeightKg = kg
	return nil
}

// SetHeightCm updates the height.
func (u *User) SetHeightCm(cm float64) error {
	if err := validatePositive("height", cm); err != nil {
		return err
	}
	u.HeightCm = cm
	return nil
}

// SetAge updates the age in years.
func (u *User) SetAge(age int) error {
	if err := validateAge(age); err != nil {
		return err
	}
	u.Age = age
	return nil
}

// Row renders the user as a users.csv row.
func (u User) Row() []string {
	return []string{
		u.ID,
		u.Name,
		u.Gender,
		strconv.Itoa(u.Age),
		csvrow.FormatFloat(u.HeightCm),
		csvrow.FormatFloat(u.WeightKg),
		csvrow.FormatTime(u.CreatedAt),
	}
}

// UserFromRow rebuilds a user, keeping its stored ID and creation time.
func UserFromRow(cols []string) (User, error) {
	if err := csvrow.RequireColumns(cols, len(UserHeader)); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(cols[0]) == "" {
		return User{}, &csvrow.MalformedError{Reason: "empty id"}
	}
	age, err := csvrow.ParseInt("age", cols[3])
	if err != nil {
		return User{}, err
	}
	height, err := csvrow.ParseFloat("heightCm", cols[4])
	if err != nil {
		return User{}, err
	}
	weight, err := csvrow.ParseFloat("weightKg", cols[5])
	if err != nil {
		return User{}, err
	}
	createdAt, err := csvrow.ParseTimeField("createdAt", cols[6])
	if err != nil {
		return User{}, err
	}
	return User{
		ID:        cols[0],
		Name:      cols[1],
		Gender:    cols[2],
		Age:       age,
		HeightCm:  height,
		WeightKg:  weight,
		CreatedAt: createdAt,
	}, nil
}

// ShortID is the first eight characters of the ID, for display.
func (u User) ShortID() string {
	if len(u.ID) <= 8 {
		return u.ID
	}
	return u.ID[:8]
}

func (u User) String() string {
	return fmt.Sprintf("%s (%s) ID:%s Age:%d Height:%.1fcm Weight:%.1fkg",
		u.Name, u.Gender, u.ShortID(), u.Age, u.HeightCm, u.WeightKg)
}

func validateAge(age int) error {
	if age < 0 {
		return &ValidationError{Field: "age", Reason: "must not be negative"}
	}
	return nil
}

func validatePositive(field string, v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return &ValidationError{Field: field, Reason: "must be a positive number"}
	}
	return nil
}
