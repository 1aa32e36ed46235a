package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/domain/srs"
)

// SessionItem pairs a due review state with its scheduler classification.
type SessionItem struct {
	State          *domain.ReviewState `json:"state"`
	Classification srs.Classification  `json:"classification"`
}

// ReviewSession is a fixed batch of due items for one learner sitting. The
// batch is a value assembled at StartedAt; items becoming due afterwards do
// not join it, a fresh StartSession call is needed to pick them up.
type ReviewSession struct {
	LearnerID uuid.UUID     `json:"learner_id"`
	StartedAt time.Time     `json:"started_at"`
	Items     []SessionItem `json:"items"`
}

// ReviewService orchestrates review sessions: it assembles due-item batches,
// applies submitted grades through the scheduler, and records unit
// completions, keeping the recommendation cache and event consumers in step
// with every mutation.
type ReviewService interface {
	// StartSession assembles a review batch for the learner: up to maxItems
	// due states, most overdue first, each carrying its scheduler
	// classification. Mutates nothing.
	//
	// Returns:
	//   - (*ReviewSession, nil): the batch; Items is empty when nothing is due
	//   - (nil, ErrInvalidMaxItems): if maxItems < 1
	//   - (nil, error): any other error, typically from the store
	StartSession(ctx context.Context, learnerID uuid.UUID, maxItems int) (*ReviewSession, error)

	// SubmitGrade applies a 0-5 recall grade to the learner's item and
	// persists the recomputed review state. A missing prior state is first
	// exposure: a fresh default state is graded and created. Concurrent
	// submissions for the same item are resolved by optimistic concurrency;
	// lost races are retried against the reloaded state a bounded number of
	// times. On success the learner's cached plans are invalidated and a
	// grade_submitted event is emitted; an emit failure is logged, never
	// surfaced.
	//
	// Returns:
	//   - (*domain.ReviewState, nil): the persisted post-grade state
	//   - (nil, srs.ErrInvalidGrade): if the grade is outside 0-5
	//   - (nil, ErrConflictRetriesExhausted): if retries never won the race
	//   - (nil, error): any other error, typically from the store
	SubmitGrade(
		ctx context.Context,
		learnerID uuid.UUID,
		itemID uuid.UUID,
		grade domain.Grade,
		now time.Time,
	) (*domain.ReviewState, error)

	// PostponeItem pushes the item's next review forward by whole days,
	// using the same conflict-retry discipline as SubmitGrade. Postponing
	// changes scheduling only, so cached plans stay valid and no event is
	// emitted.
	//
	// Returns:
	//   - (*domain.ReviewState, nil): the persisted postponed state
	//   - (nil, srs.ErrInvalidDays): if days < 1
	//   - (nil, ErrItemNotFound): if the learner has no state for the item
	//   - (nil, ErrConflictRetriesExhausted): if retries never won the race
	PostponeItem(
		ctx context.Context,
		learnerID uuid.UUID,
		itemID uuid.UUID,
		days int,
		now time.Time,
	) (*domain.ReviewState, error)

	// CompleteUnit records that the learner completed the unit, invalidates
	// the learner's cached plans unconditionally, and emits a unit_completed
	// event. The completion write is idempotent.
	//
	// Returns:
	//   - (*domain.UnitCompletion, nil): the recorded completion
	//   - (nil, ErrUnitNotFound): if the unit does not exist
	//   - (nil, error): any other error, typically from the store
	CompleteUnit(
		ctx context.Context,
		learnerID uuid.UUID,
		unitID uuid.UUID,
	) (*domain.UnitCompletion, error)
}

// Common error types for ReviewService
var (
	// ErrInvalidMaxItems indicates a session was requested with a batch size
	// below 1.
	ErrInvalidMaxItems = errors.New("session batch size must be at least 1")

	// ErrItemNotFound indicates the learner has no review state for the item.
	ErrItemNotFound = errors.New("review item not found")

	// ErrUnitNotFound indicates the unit does not exist.
	ErrUnitNotFound = errors.New("learning unit not found")

	// ErrConflictRetriesExhausted indicates concurrent updates of the same
	// item kept winning over this submission. The operation is safe to retry.
	ErrConflictRetriesExhausted = errors.New("conflicting updates exhausted retries")
)

// ServiceError wraps errors from the review service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start_session", "submit_grade")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewStartSessionError returns a new ServiceError for the start_session operation.
func NewStartSessionError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "start_session",
		Message:   message,
		Err:       err,
	}
}

// NewSubmitGradeError returns a new ServiceError for the submit_grade operation.
func NewSubmitGradeError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "submit_grade",
		Message:   message,
		Err:       err,
	}
}

// NewPostponeItemError returns a new ServiceError for the postpone_item operation.
func NewPostponeItemError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "postpone_item",
		Message:   message,
		Err:       err,
	}
}

// NewCompleteUnitError returns a new ServiceError for the complete_unit operation.
func NewCompleteUnitError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "complete_unit",
		Message:   message,
		Err:       err,
	}
}
