package planner

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGraphIntegrityErrorMessage(t *testing.T) {
	t.Parallel()

	t.Run("without unit IDs", func(t *testing.T) {
		t.Parallel()
		err := newGraphIntegrityError("dependency cycle detected", nil)

		want := "prerequisite graph integrity violation: dependency cycle detected"
		if err.Error() != want {
			t.Errorf("expected %q, got %q", want, err.Error())
		}
	})

	t.Run("with unit IDs", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		err := newGraphIntegrityError("duplicate unit IDs", []uuid.UUID{id})

		if !strings.Contains(err.Error(), "duplicate unit IDs") {
			t.Errorf("expected reason in message, got %q", err.Error())
		}
		if !strings.Contains(err.Error(), id.String()) {
			t.Errorf("expected unit ID in message, got %q", err.Error())
		}
	})
}

func TestGraphIntegrityErrorSortsUnitIDs(t *testing.T) {
	t.Parallel()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	forward := newGraphIntegrityError("dependency cycle detected", []uuid.UUID{ids[0], ids[1], ids[2]})
	reversed := newGraphIntegrityError("dependency cycle detected", []uuid.UUID{ids[2], ids[1], ids[0]})

	if forward.Error() != reversed.Error() {
		t.Errorf("expected identical messages regardless of input order:\n%q\n%q",
			forward.Error(), reversed.Error())
	}
}

func TestGraphIntegrityErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := newGraphIntegrityError("duplicate unit IDs", []uuid.UUID{uuid.New()})

	if !errors.Is(err, ErrGraphIntegrity) {
		t.Error("expected errors.Is to match ErrGraphIntegrity")
	}

	wrapped := fmt.Errorf("plan failed: %w", err)
	if !errors.Is(wrapped, ErrGraphIntegrity) {
		t.Error("expected match through an outer wrap")
	}

	var integrityErr *GraphIntegrityError
	if !errors.As(wrapped, &integrityErr) {
		t.Fatal("expected errors.As to recover the *GraphIntegrityError")
	}
	if integrityErr.Reason != "duplicate unit IDs" {
		t.Errorf("expected reason preserved, got %q", integrityErr.Reason)
	}
}
