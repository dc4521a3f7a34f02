package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrDuplicateKeySurvivesWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: source not found by hash or URL", ErrDuplicateKey)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("wrapped error lost its sentinel: %v", err)
	}
	if !strings.Contains(err.Error(), "duplicate key") {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	wrapped := fmt.Errorf("create source: %w", err)
	if !errors.Is(wrapped, ErrDuplicateKey) {
		t.Fatalf("sentinel should survive a second wrap: %v", wrapped)
	}
}
