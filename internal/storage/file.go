package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/claude/kcalplanner/internal/csvrow"
)

// appendLog is one CSV file that only ever grows. mu guards the file and the
// in-memory collection built from it, so an index update and its append
// happen as one step.
type appendLog struct {
	mu     sync.Mutex
	path   string
	header []string

	// set when the file's last byte is not a newline (a torn write)
	needsNewline bool
}

func newAppendLog(path string, header []string) *appendLog {
	return &appendLog{path: path, header: header}
}

// load creates the file with its header if it is missing or empty, otherwise
// decodes each row and hands it to fn. Rows fn rejects are logged and
// skipped one physical line at a time, so an unbalanced quote (such as a
// torn final write) cannot take later rows down with it. It returns how many
// rows were accepted and skipped.
func (l *appendLog) load(log *slog.Logger, fn func(cols []string) error) (loaded, skipped int) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		if err := os.WriteFile(l.path, []byte(csvrow.EncodeRow(l.header)+"\n"), 0o644); err != nil {
			log.Warn("failed to create data file", "path", l.path, "error", err)
		}
		return 0, 0
	}
	if err != nil {
		log.Error("failed to read data file", "path", l.path, "error", err)
		return 0, 0
	}

	l.needsNewline = data[len(data)-1] != '\n'
	header := csvrow.EncodeRow(l.header)

	r := csvrow.NewReader(bytes.NewReader(data))
	for r.Next() {
		row := r.Row()
		if r.Line() == 1 && row == header {
			continue
		}
		if row == "" {
			continue
		}
		if err := fn(csvrow.DecodeRow(row)); err != nil {
			log.Warn("skipping malformed row", "path", l.path, "line", r.Line(), "error", err)
			skipped++
			// A stray quote joined the following lines into this row;
			// drop only the line that opened it and reread the others.
			r.Resync()
			continue
		}
		loaded++
	}
	if err := r.Err(); err != nil {
		log.Error("failed reading data file", "path", l.path, "error", err)
	}
	return loaded, skipped
}

// append writes one encoded row. Callers hold mu.
func (l *appendLog) append(cols []string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrNotPersisted, l.path, err)
	}

	line := csvrow.EncodeRow(cols) + "\n"
	if l.needsNewline {
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing %s: %w", ErrNotPersisted, l.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrNotPersisted, l.path, err)
	}
	l.needsNewline = false
	return nil
}
