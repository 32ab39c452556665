// Package console is the interactive menu front end of the planner.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/claude/kcalplanner/internal/catalog"
	"github.com/claude/kcalplanner/internal/models"
	"github.com/claude/kcalplanner/internal/planner"
)

// errBadNumber cancels a flow when numeric input does not parse.
var errBadNumber = errors.New("invalid numeric input")

// Console reads menu choices line by line from in and writes prompts to out.
type Console struct {
	svc *planner.Service
	in  *bufio.Scanner
	out io.Writer
	log *slog.Logger
}

// New returns a Console driving svc.
func New(svc *planner.Service, in io.Reader, out io.Writer, log *slog.Logger) *Console {
	return &Console{svc: svc, in: bufio.NewScanner(in), out: out, log: log}
}

// Run shows the main menu until the user exits, input ends or ctx is
// cancelled. Only a read error from in is returned.
func (c *Console) Run(ctx context.Context) error {
	c.println("=== Calories Burned & Workout Planner ===")
	for ctx.Err() == nil {
		done, err := c.step(c.mainMenu)
		if errors.Is(err, io.EOF) || done {
			break
		}
		if err != nil {
			return err
		}
	}
	c.println("Goodbye!")
	return nil
}

// step runs one menu iteration. A panic is logged and reported, and the
// loop carries on.
func (c *Console) step(fn func() (bool, error)) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("menu action panicked", "panic", r, "stack", string(debug.Stack()))
			c.printf("Unhandled error: %v\n", r)
			done, err = false, nil
		}
	}()
	return fn()
}

func (c *Console) mainMenu() (bool, error) {
	c.println("\nMain Menu:")
	c.println("1) Register new user")
	c.println("2) Login as existing user (by ID or name)")
	c.println("3) List all users")
	c.println("4) View all workout records (admin)")
	c.println("5) Exit")
	opt, err := c.ask("Select option: ")
	if err != nil {
		return false, err
	}
	switch opt {
	case "1":
		return false, c.register()
	case "2":
		return false, c.login()
	case "3":
		c.listUsers()
	case "4":
		c.allRecords()
	case "5":
		return true, nil
	default:
		c.println("Invalid option.")
	}
	return false, nil
}

func (c *Console) register() error {
	name, err := c.ask("Enter name: ")
	if err != nil {
		return err
	}
	if name == "" {
		c.println("Name required.")
		return nil
	}
	gender, err := c.ask("Enter gender (M/F/Other): ")
	if err != nil {
		return err
	}
	age, err := c.askInt("Enter age (years): ")
	if err == nil {
		var height, weight float64
		if height, err = c.askFloat("Enter height (cm): "); err == nil {
			if weight, err = c.askFloat("Enter weight (kg): "); err == nil {
				return c.finishRegister(planner.RegisterInput{
					Name: name, Gender: gender, Age: age, HeightCm: height, WeightKg: weight,
				})
			}
		}
	}
	if errors.Is(err, errBadNumber) {
		c.println("Invalid numeric input. Registration cancelled.")
		return nil
	}
	return err
}

func (c *Console) finishRegister(in planner.RegisterInput) error {
	u, err := c.svc.Register(in)
	if err != nil && !errors.Is(err, planner.ErrNotPersisted) {
		c.printf("Error registering user: %v\n", err)
		return nil
	}
	c.warnIfNotPersisted(err)
	c.printf("User created: %s\n", u)
	c.printf("Your user ID (save this): %s\n", u.ID)
	return nil
}

func (c *Console) login() error {
	q, err := c.ask("Enter user ID or name: ")
	if err != nil {
		return err
	}
	u, err := c.svc.Login(q)
	if errors.Is(err, planner.ErrNotFound) || errors.Is(err, models.ErrValidation) {
		c.println("User not found.")
		return nil
	}
	if err != nil {
		c.printf("Login error: %v\n", err)
		return nil
	}
	c.printf("Welcome %s!\n", u.Name)
	return c.userMenu(u)
}

func (c *Console) listUsers() {
	users := c.svc.Users()
	if len(users) == 0 {
		c.println("No users registered.")
		return
	}
	c.println("Registered users:")
	for _, u := range users {
		c.printf(" - %s\n", u)
	}
}

func (c *Console) allRecords() {
	recs := c.svc.AllRecords()
	if len(recs) == 0 {
		c.println("No workout records.")
		return
	}
	c.println("All workout records (latest first):")
	for _, r := range recs {
		c.printf(" - %s\n", r.Brief())
	}
}

func (c *Console) userMenu(u models.User) error {
	for {
		done, err := c.step(func() (bool, error) {
			c.printf("\nUser Menu for %s (%s)\n", u.Name, u.ShortID())
			c.println("1) Start a workout (pick preset or custom)")
			c.println("2) View my workout history")
			c.println("3) Update my weight/height/age")
			c.println("4) Get recommendations & progression advice")
			c.println("5) Back to main menu")
			choice, err := c.ask("Choice: ")
			if err != nil {
				return false, err
			}
			switch choice {
			case "1":
				return false, c.workout(&u)
			case "2":
				return false, c.history(u)
			case "3":
				return false, c.updateProfile(&u)
			case "4":
				c.recommendations(u)
			case "5":
				return true, nil
			default:
				c.println("Invalid choice.")
			}
			return false, nil
		})
		if done || err != nil {
			return err
		}
	}
}

func (c *Console) workout(u *models.User) error {
	err := c.runWorkout(u)
	switch {
	case errors.Is(err, errBadNumber):
		c.println("Input must be numeric where requested. Workout cancelled.")
	case errors.Is(err, io.EOF):
		return err
	case err != nil:
		c.printf("Failed to start workout: %v\n", err)
	}
	return nil
}

func (c *Console) runWorkout(u *models.User) error {
	day, err := c.chooseDay()
	if err != nil {
		return err
	}

	c.printf("\nStarting workout: %s\n", day.Name)
	efforts := make([]models.Effort, 0, len(day.Exercises))
	for _, e := range day.Exercises {
		c.printf("\nExercise: %s\n", e.Name)
		eff, err := c.askEffort(*u, e)
		if err != nil {
			return err
		}
		res, err := planner.Measure(*u, e, eff)
		if err != nil {
			return err
		}
		c.printf("Calories estimated: %.2f\n", res.Calories)
		efforts = append(efforts, eff)
	}

	res, err := c.svc.RecordSession(u.ID, day, efforts)
	if err != nil && !errors.Is(err, planner.ErrNotPersisted) {
		return err
	}
	c.warnIfNotPersisted(err)
	c.printf("\nWorkout saved! Total estimated calories: %.2f\n", res.Record.TotalCalories)

	ans, err := c.ask("Update weight now? (y/n): ")
	if err != nil || !strings.EqualFold(ans, "y") {
		return err
	}
	// The session is already saved from here on; a bad weight only skips
	// the profile update.
	kg, err := c.askFloat("Enter new weight (kg): ")
	if errors.Is(err, errBadNumber) {
		c.println("Invalid numeric input. Weight not updated.")
		return nil
	}
	if err != nil {
		return err
	}
	updated, err := c.svc.UpdateWeight(u.ID, kg)
	if err != nil && !errors.Is(err, planner.ErrNotPersisted) {
		if errors.Is(err, models.ErrValidation) {
			c.printf("Weight not updated: %v\n", err)
			return nil
		}
		return err
	}
	c.warnIfNotPersisted(err)
	*u = updated
	c.println("Weight updated and saved.")
	return nil
}

// chooseDay lists the presets; any number outside the list starts a custom
// day.
func (c *Console) chooseDay() (models.WorkoutDay, error) {
	presets := c.svc.Presets()
	c.println("\nChoose workout day preset (or 0 for custom):")
	for i, p := range presets {
		c.printf("%d) %s\n", i+1, p.Name)
	}
	choice, err := c.askInt("Choice: ")
	if err != nil {
		return models.WorkoutDay{}, err
	}
	if choice >= 1 && choice <= len(presets) {
		return presets[choice-1], nil
	}

	name, err := c.ask("Enter custom workout day name: ")
	if err != nil {
		return models.WorkoutDay{}, err
	}
	day := models.NewWorkoutDay(name)
	c.println("Add exercises (type 'done' to finish). Format: name|group|cardio(true/false)|metValue")
	for {
		line, err := c.ask("Exercise: ")
		if err != nil {
			return models.WorkoutDay{}, err
		}
		if strings.EqualFold(line, "done") {
			return *day, nil
		}
		e, err := catalog.ParseExercise(line)
		if err != nil {
			c.println("Invalid format, try again.")
			continue
		}
		day.Add(e)
	}
}

func (c *Console) askEffort(u models.User, e models.Exercise) (models.Effort, error) {
	if e.Cardio {
		mins, err := c.askInt("Enter duration in minutes (int): ")
		return models.Effort{Minutes: mins}, err
	}
	sets, err := c.askInt("Enter sets : ")
	if err != nil {
		return models.Effort{}, err
	}
	reps, err := c.askInt("Enter reps per set : ")
	if err != nil {
		return models.Effort{}, err
	}
	suggested, err := c.svc.SuggestLoad(u.ID, e)
	if err != nil {
		return models.Effort{}, err
	}
	c.printf("Suggested starting load: %.1f kg (heuristic)\n", suggested)
	raw, err := c.ask("Enter load used (kg) or press Enter to use suggested: ")
	if err != nil {
		return models.Effort{}, err
	}
	eff := models.Effort{Sets: sets, Reps: reps}
	// Unparsable loads fall back to the suggestion.
	if kg, err := strconv.ParseFloat(raw, 64); err == nil {
		eff.LoadKg = &kg
	}
	return eff, nil
}

func (c *Console) history(u models.User) error {
	recs, err := c.svc.History(u.ID, planner.SortEarliestFirst)
	if err != nil {
		c.printf("Error: %v\n", err)
		return nil
	}
	if len(recs) == 0 {
		c.println("No workout history for this user.")
		return nil
	}
	c.println("History options:")
	c.println("1) Show latest first")
	c.println("2) Show earliest first")
	c.println("3) Sort by calories (desc)")
	choice, err := c.ask("Choice: ")
	if err != nil {
		return err
	}
	order := planner.SortEarliestFirst
	switch choice {
	case "1":
		order = planner.SortLatestFirst
	case "3":
		order = planner.SortCaloriesDesc
	}
	if order != planner.SortEarliestFirst {
		if recs, err = c.svc.History(u.ID, order); err != nil {
			c.printf("Error: %v\n", err)
			return nil
		}
	}

	c.println("\n--- Workout History ---")
	for i, r := range recs {
		c.printf("\n[%d] %s\n", i+1, r.Brief())
		c.printf("%s", r.Full())
	}
	return nil
}

func (c *Console) updateProfile(u *models.User) error {
	c.printf("Current profile: %s\n", *u)
	var upd planner.ProfileUpdate
	err := c.askOptional("New weight (kg) or press Enter to skip: ", func(s string) error {
		kg, err := parseFloat(s)
		upd.WeightKg = &kg
		return err
	})
	if err == nil {
		err = c.askOptional("New height (cm) or press Enter to skip: ", func(s string) error {
			cm, err := parseFloat(s)
			upd.HeightCm = &cm
			return err
		})
	}
	if err == nil {
		err = c.askOptional("New age or press Enter to skip: ", func(s string) error {
			age, err := parseInt(s)
			upd.Age = &age
			return err
		})
	}
	if errors.Is(err, errBadNumber) {
		c.println("Invalid numeric input. Update aborted.")
		return nil
	}
	if err != nil {
		return err
	}

	updated, err := c.svc.UpdateProfile(u.ID, upd)
	if err != nil && !errors.Is(err, planner.ErrNotPersisted) {
		c.printf("Error updating profile: %v\n", err)
		return nil
	}
	c.warnIfNotPersisted(err)
	*u = updated
	c.println("Profile updated and saved.")
	return nil
}

func (c *Console) recommendations(u models.User) {
	recs, err := c.svc.Recommendations(u.ID)
	if err != nil {
		c.printf("Error: %v\n", err)
		return
	}
	c.printf("\nRecommendations for %s\n", u.Name)
	c.println("Suggested loads for preset exercises:")
	for _, d := range recs.Days {
		c.printf("\n%s:\n", d.Day)
		for _, l := range d.Loads {
			c.printf(" - %s : suggested start load %.1f kg\n", l.Exercise, l.LoadKg)
		}
	}
	c.printf("\nProgression advice: %s\n", recs.Advice)
}

func (c *Console) warnIfNotPersisted(err error) {
	if errors.Is(err, planner.ErrNotPersisted) {
		c.println("Warning: the change is kept for this session but could not be saved to disk.")
	}
}

// --- input helpers ---

func (c *Console) ask(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) askInt(prompt string) (int, error) {
	s, err := c.ask(prompt)
	if err != nil {
		return 0, err
	}
	return parseInt(s)
}

func (c *Console) askFloat(prompt string) (float64, error) {
	s, err := c.ask(prompt)
	if err != nil {
		return 0, err
	}
	return parseFloat(s)
}

// askOptional calls set with the answer unless it is blank.
func (c *Console) askOptional(prompt string, set func(string) error) error {
	s, err := c.ask(prompt)
	if err != nil || s == "" {
		return err
	}
	return set(s)
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, errBadNumber)
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, errBadNumber)
	}
	return f, nil
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
