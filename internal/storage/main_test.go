package storage

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if a test leaves goroutines running, e.g. a
// concurrent save that never returned.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
