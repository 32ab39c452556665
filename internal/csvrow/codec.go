package csvrow

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedRow is returned when a stored row has too few columns or a
// field that does not parse.
var ErrMalformedRow = errors.New("malformed row")

// TimeLayout is the ISO-8601 local date-time format used in both files.
// Fractional seconds are written only when non-zero, with trailing zeros trimmed.
const TimeLayout = "2006-01-02T15:04:05.999999999"

// EncodeRow joins fields into one CSV line (without the trailing newline).
func EncodeRow(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(f))
	}
	return b.String()
}

func quote(f string) string {
	if !strings.ContainsAny(f, ",\"\n") {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}

// DecodeRow splits a CSV line into fields. A double quote toggles the quoted
// region; inside it, a doubled quote yields one literal quote. Commas split
// fields only outside a quoted region.
func DecodeRow(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuote && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuote = !inQuote
		case ch == ',' && !inQuote:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	return append(fields, cur.String())
}

// FormatFixed2 formats calorie and weight values with exactly two fraction digits.
func FormatFixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatFloat formats v with the fewest digits that parse back to the same value.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTime renders t as a local date-time without zone offset.
func FormatTime(t time.Time) string {
	return t.Local().Format(TimeLayout)
}

// ParseTime parses a local date-time written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.Local)
}

// ParseFloat parses a decimal field, reporting the column name on failure.
func ParseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fieldError(name, s)
	}
	return v, nil
}

// ParseInt parses an integer field, reporting the column name on failure.
func ParseInt(name, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fieldError(name, s)
	}
	return v, nil
}

// ParseTimeField is ParseTime with the column name attached to the error.
func ParseTimeField(name, s string) (time.Time, error) {
	t, err := ParseTime(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fieldError(name, s)
	}
	return t, nil
}

// RequireColumns checks that a decoded row has at least n columns.
func RequireColumns(cols []string, n int) error {
	if len(cols) < n {
		return &MalformedError{Reason: "expected " + strconv.Itoa(n) + " columns, got " + strconv.Itoa(len(cols))}
	}
	return nil
}

// MalformedError describes why a row was rejected. It matches ErrMalformedRow.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed row: " + e.Reason
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedRow
}

func fieldError(name, value string) error {
	return &MalformedError{Reason: "invalid " + name + " " + strconv.Quote(value)}
}
