package csvrow

import (
	"strings"
	"testing"
)

// TestReaderJoinsQuotedNewlines verifies a quoted field spanning lines is
// returned as one logical row with the start line reported.
func TestReaderJoinsQuotedNewlines(t *testing.T) {
	input := "h1,h2\na,\"first\nsecond\"\nb,plain\n"
	r := NewReader(strings.NewReader(input))

	var rows []string
	var lines []int
	for r.Next() {
		rows = append(rows, r.Row())
		lines = append(lines, r.Line())
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3: %q", len(rows), rows)
	}
	if rows[1] != "a,\"first\nsecond\"" {
		t.Errorf("rows[1] = %q", rows[1])
	}
	if got := DecodeRow(rows[1]); got[1] != "first\nsecond" {
		t.Errorf("decoded field = %q", got[1])
	}
	if lines[0] != 1 || lines[1] != 2 || lines[2] != 4 {
		t.Errorf("lines = %v, want [1 2 4]", lines)
	}
}

// TestReaderUnterminatedQuote verifies a dangling quote at EOF still yields
// the partial row instead of swallowing it silently.
func TestReaderUnterminatedQuote(t *testing.T) {
	r := NewReader(strings.NewReader("ok,1\nbad,\"never closed\nmore"))
	var rows []string
	for r.Next() {
		rows = append(rows, r.Row())
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %q, want 2", rows)
	}
	if rows[1] != "bad,\"never closed\nmore" {
		t.Errorf("rows[1] = %q", rows[1])
	}
}

// TestReaderCRLF verifies Windows line endings are stripped.
func TestReaderCRLF(t *testing.T) {
	r := NewReader(strings.NewReader("a,b\r\nc,d\r\n"))
	if !r.Next() || r.Row() != "a,b" {
		t.Fatalf("first row = %q", r.Row())
	}
	if !r.Next() || r.Row() != "c,d" {
		t.Fatalf("second row = %q", r.Row())
	}
	if r.Next() {
		t.Errorf("unexpected extra row %q", r.Row())
	}
}

// TestReaderResync verifies a rejected joined row can be split so the lines
// after its stray quote are read again as rows of their own.
func TestReaderResync(t *testing.T) {
	input := "a,1\nb,\"stray\nc,2\nd,\"x\ny\",3\n"
	r := NewReader(strings.NewReader(input))

	var rows []string
	var lines []int
	for r.Next() {
		if strings.HasPrefix(r.Row(), "b,") {
			if !r.Resync() {
				t.Fatalf("Resync on %q = false", r.Row())
			}
			if r.Row() != "b,\"stray" {
				t.Errorf("row after Resync = %q", r.Row())
			}
			continue
		}
		rows = append(rows, r.Row())
		lines = append(lines, r.Line())
	}
	want := []string{"a,1", "c,2", "d,\"x\ny\",3"}
	if strings.Join(rows, "|") != strings.Join(want, "|") {
		t.Fatalf("rows = %q, want %q", rows, want)
	}
	if lines[1] != 3 || lines[2] != 4 {
		t.Errorf("lines = %v, want [1 3 4]", lines)
	}
}

// TestReaderResyncSingleLine verifies there is nothing to split on a row
// that fits on one line.
func TestReaderResyncSingleLine(t *testing.T) {
	r := NewReader(strings.NewReader("a,1\nb,2\n"))
	r.Next()
	if r.Resync() {
		t.Error("Resync on a single-line row = true")
	}
	if !r.Next() || r.Row() != "b,2" {
		t.Errorf("next row = %q, want b,2", r.Row())
	}
}
