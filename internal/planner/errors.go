package planner

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrGraphIntegrity is wrapped by every GraphIntegrityError, so callers can
// match the whole family with errors.Is without caring which check fired.
var ErrGraphIntegrity = errors.New("prerequisite graph integrity violation")

// GraphIntegrityError reports a structural defect in the prerequisite graph:
// duplicate unit IDs, prerequisites referencing units that do not exist, or a
// dependency cycle. The graph store rejects these at write time, so seeing
// one here means the stored graph and the planner disagree about the rules.
type GraphIntegrityError struct {
	// Reason is a short description of the violated rule.
	Reason string

	// UnitIDs names the offending units, sorted for stable messages.
	UnitIDs []uuid.UUID
}

// Error implements the error interface.
func (e *GraphIntegrityError) Error() string {
	if len(e.UnitIDs) == 0 {
		return fmt.Sprintf("prerequisite graph integrity violation: %s", e.Reason)
	}
	ids := make([]string, len(e.UnitIDs))
	for i, id := range e.UnitIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("prerequisite graph integrity violation: %s: %s",
		e.Reason, strings.Join(ids, ", "))
}

// Unwrap returns ErrGraphIntegrity for errors.Is matching.
func (e *GraphIntegrityError) Unwrap() error {
	return ErrGraphIntegrity
}

// newGraphIntegrityError creates a GraphIntegrityError with its unit IDs
// sorted.
func newGraphIntegrityError(reason string, unitIDs []uuid.UUID) *GraphIntegrityError {
	sortUnitIDs(unitIDs)
	return &GraphIntegrityError{
		Reason:  reason,
		UnitIDs: unitIDs,
	}
}

// sortUnitIDs orders UUIDs by their byte representation.
func sortUnitIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
