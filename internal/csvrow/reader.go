package csvrow

import (
	"bufio"
	"io"
	"strings"
)

// Reader yields logical rows from a line-oriented CSV stream. A row whose
// quoted region is still open at the end of a physical line continues on the
// next one, so quoted fields containing newlines survive a reload.
//
// A stray quote would otherwise glue every following line onto one row.
// Callers that reject a joined row call Resync to drop its first line and
// read the rest again one row at a time.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	start   int
	row     string

	lines   []string // physical lines of the current row
	pending []string // lines handed back by Resync, read before the scanner
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: s}
}

func (r *Reader) nextLine() (string, bool) {
	if len(r.pending) > 0 {
		text := r.pending[0]
		r.pending = r.pending[1:]
		r.line++
		return text, true
	}
	if !r.scanner.Scan() {
		return "", false
	}
	r.line++
	return strings.TrimSuffix(r.scanner.Text(), "\r"), true
}

// Next advances to the next logical row. It returns false at end of input or
// on a read error, which is then available from Err.
func (r *Reader) Next() bool {
	var b strings.Builder
	r.lines = r.lines[:0]
	open := false
	for {
		text, ok := r.nextLine()
		if !ok {
			break
		}
		if !open {
			r.start = r.line
		} else {
			b.WriteByte('\n')
		}
		b.WriteString(text)
		r.lines = append(r.lines, text)
		if strings.Count(text, `"`)%2 == 1 {
			open = !open
		}
		if !open {
			r.row = b.String()
			return true
		}
	}
	if open {
		// Unterminated quote at EOF: hand back what we have and let the
		// caller reject it.
		r.row = b.String()
		return true
	}
	return false
}

// Resync discards the first physical line of the current row and queues the
// remaining ones to be read again. It reports whether there was anything to
// requeue; a single-line row has nothing to split.
func (r *Reader) Resync() bool {
	if len(r.lines) < 2 {
		return false
	}
	rest := append([]string(nil), r.lines[1:]...)
	r.pending = append(rest, r.pending...)
	r.line = r.start
	r.lines = r.lines[:1]
	r.row = r.lines[0]
	return true
}

// Row returns the current logical row without its trailing newline.
func (r *Reader) Row() string { return r.row }

// Line returns the 1-based line number the current row started on.
func (r *Reader) Line() int { return r.start }

// Err returns the first read error, if any.
func (r *Reader) Err() error { return r.scanner.Err() }
