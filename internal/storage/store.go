package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/kcalplanner/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrNotPersisted is returned when an append to disk failed. The
	// in-memory collection was still updated and stays correct for the
	// life of the process.
	ErrNotPersisted = errors.New("change not persisted")
)

// Options locates the two data files.
type Options struct {
	Dir          string
	UsersFile    string
	WorkoutsFile string
}

// Store holds users and workout records in memory, backed by two
// append-only CSV files. Rows are only ever appended; a user's current state
// is the last row loaded for its ID.
type Store struct {
	log *slog.Logger

	users     *appendLog
	userIndex map[string]models.User // guarded by users.mu
	userOrder []string               // first-seen order, guarded by users.mu

	records    *appendLog
	recordList []models.WorkoutRecord // load/append order, guarded by records.mu
}

// Open loads both files, creating them with a header row when missing.
// Malformed rows are logged and skipped; read failures are logged and leave
// the collection empty. Only a data directory that cannot be created is an
// error.
func Open(opts Options, log *slog.Logger) (*Store, error) {
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", opts.Dir, err)
		}
	}

	s := &Store{
		log:       log,
		users:     newAppendLog(filepath.Join(opts.Dir, opts.UsersFile), models.UserHeader),
		userIndex: make(map[string]models.User),
		records:   newAppendLog(filepath.Join(opts.Dir, opts.WorkoutsFile), models.RecordHeader),
	}

	loaded, skipped := s.users.load(log, func(cols []string) error {
		u, err := models.UserFromRow(cols)
		if err != nil {
			return err
		}
		s.indexUser(u)
		return nil
	})
	log.Info("users loaded", "path", s.users.path, "rows", loaded, "skipped", skipped, "users", len(s.userOrder))

	loaded, skipped = s.records.load(log, func(cols []string) error {
		r, err := models.RecordFromRow(cols)
		if err != nil {
			return err
		}
		s.recordList = append(s.recordList, r)
		return nil
	})
	log.Info("workout records loaded", "path", s.records.path, "rows", loaded, "skipped", skipped)

	return s, nil
}

func (s *Store) indexUser(u models.User) {
	if _, ok := s.userIndex[u.ID]; !ok {
		s.userOrder = append(s.userOrder, u.ID)
	}
	s.userIndex[u.ID] = u
}

// SaveUser records the user's current state: the index is updated, then a
// row is appended. A failed append returns ErrNotPersisted but the index
// keeps the new state.
func (s *Store) SaveUser(u models.User) error {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	s.indexUser(u)
	if err := s.users.append(u.Row()); err != nil {
		s.log.Warn("failed to save user", "user_id", u.ID, "error", err)
		return err
	}
	return nil
}

// UpdateUser applies fn to a copy of the user's current state and saves the
// result, all under the users lock so concurrent updates cannot overwrite
// each other. If fn fails nothing is saved. On ErrNotPersisted the updated
// user is still returned.
func (s *Store) UpdateUser(id string, fn func(u *models.User) error) (models.User, error) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	u, ok := s.userIndex[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if err := fn(&u); err != nil {
		return models.User{}, err
	}
	s.indexUser(u)
	if err := s.users.append(u.Row()); err != nil {
		s.log.Warn("failed to save user", "user_id", u.ID, "error", err)
		return u, err
	}
	return u, nil
}

// FindUserByID returns the current state of a user.
func (s *Store) FindUserByID(id string) (models.User, error) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	u, ok := s.userIndex[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	return u, nil
}

// FindUserByName returns the first user, in registration order, whose name
// matches case-insensitively.
func (s *Store) FindUserByName(name string) (models.User, error) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	for _, id := range s.userOrder {
		if u := s.userIndex[id]; strings.EqualFold(u.Name, name) {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user named %q: %w", name, ErrNotFound)
}

// AllUsers returns every user in registration order.
func (s *Store) AllUsers() []models.User {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	out := make([]models.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.userIndex[id])
	}
	return out
}

// AppendRecord adds a record to the list, then to the file. A failed append
// returns ErrNotPersisted but the record stays in memory.
func (s *Store) AppendRecord(r models.WorkoutRecord) error {
	s.records.mu.Lock()
	defer s.records.mu.Unlock()

	s.recordList = append(s.recordList, r)
	if err := s.records.append(r.Row()); err != nil {
		s.log.Warn("failed to write workout record", "record_id", r.ID, "user_id", r.UserID, "error", err)
		return err
	}
	return nil
}

// RecordsForUser returns the user's records in load/append order.
func (s *Store) RecordsForUser(userID string) []models.WorkoutRecord {
	s.records.mu.Lock()
	defer s.records.mu.Unlock()

	var out []models.WorkoutRecord
	for _, r := range s.recordList {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// AllRecords returns every record in load/append order.
func (s *Store) AllRecords() []models.WorkoutRecord {
	s.records.mu.Lock()
	defer s.records.mu.Unlock()

	return append([]models.WorkoutRecord(nil), s.recordList...)
}
