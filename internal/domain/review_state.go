package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Grade is a learner's recall performance for a single review, on the
// classic 0-5 scale: 0-2 mean the item was not retained, 3-5 mean it was
// retained with increasing confidence.
type Grade int

// Bounds of the grading scale.
const (
	MinGrade Grade = 0
	MaxGrade Grade = 5
)

// IsValid reports whether the grade is on the 0-5 scale.
func (g Grade) IsValid() bool {
	return g >= MinGrade && g <= MaxGrade
}

// ReviewStatus represents where an item sits in a learner's progression.
type ReviewStatus string

// Possible review status values
const (
	// ReviewStatusNotStarted marks a state created on first exposure that has
	// never had a passing grade.
	ReviewStatusNotStarted ReviewStatus = "not_started"

	// ReviewStatusInProgress marks an item that regressed after a failed
	// review and has to be relearned.
	ReviewStatusInProgress ReviewStatus = "in_progress"

	// ReviewStatusCompleted marks an item with at least one passing grade on
	// its current streak.
	ReviewStatusCompleted ReviewStatus = "completed"

	// ReviewStatusMastered marks an item with sustained correct recall over a
	// long interval.
	ReviewStatusMastered ReviewStatus = "mastered"
)

// Defaults for freshly created review state.
const (
	// DefaultEaseFactor is the starting easiness factor for a new item.
	DefaultEaseFactor = 2.5

	// MinEaseFactor is the floor the easiness factor never drops below,
	// regardless of how poor the grades are.
	MinEaseFactor = 1.3

	// DefaultIntervalDays is the base spacing assigned before the first
	// review and restored whenever a review fails.
	DefaultIntervalDays = 1.0

	// ReviewHistoryLimit bounds the per-item review log. Oldest entries are
	// trimmed first; the most recent entries are always retained.
	ReviewHistoryLimit = 50
)

// Common validation errors for ReviewState
var (
	ErrEmptyReviewLearnerID = errors.New("review state learner ID cannot be empty")
	ErrEmptyReviewItemID    = errors.New("review state item ID cannot be empty")
	ErrInvalidRepetitions   = errors.New("repetitions must be greater than or equal to 0")
	ErrInvalidIntervalDays  = errors.New("interval days must be greater than 0")
	ErrInvalidEaseFactor    = errors.New("ease factor must be at least 1.3")
	ErrInvalidReviewStatus  = errors.New("invalid review status")
	ErrInvalidGrade         = errors.New("grade must be between 0 and 5")
)

// ReviewLog is one entry of an item's bounded review history: the grade the
// learner gave and the spacing that resulted from it.
type ReviewLog struct {
	ReviewedAt   time.Time `json:"reviewed_at"`
	Grade        Grade     `json:"grade"`
	IntervalDays float64   `json:"interval_days"`
	EaseFactor   float64   `json:"ease_factor"`
}

// ReviewState tracks a learner's spaced repetition state for a single
// learning item. There is exactly one state per (learner, item) pair. It is
// created on first exposure with defaults, is mutated only through the
// scheduler's apply path, and is never deleted, only superseded.
type ReviewState struct {
	LearnerID      uuid.UUID    `json:"learner_id"`
	ItemID         uuid.UUID    `json:"item_id"`
	EaseFactor     float64      `json:"ease_factor"`
	Repetitions    int          `json:"repetitions"`
	IntervalDays   float64      `json:"interval_days"`
	LastReviewedAt time.Time    `json:"last_reviewed_at"` // zero until the first grade
	NextReviewAt   time.Time    `json:"next_review_at"`
	Status         ReviewStatus `json:"status"`
	History        []ReviewLog  `json:"history"`

	// Version is the optimistic-concurrency token. The store rejects an
	// update whose version does not match the stored row, so concurrent
	// grade submissions for the same (learner, item) cannot interleave.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReviewState creates review state for a learner's first exposure to an
// item. The item is due immediately so it can enter the next session.
func NewReviewState(learnerID, itemID uuid.UUID) (*ReviewState, error) {
	now := time.Now().UTC()
	state := &ReviewState{
		LearnerID:      learnerID,
		ItemID:         itemID,
		EaseFactor:     DefaultEaseFactor,
		Repetitions:    0,
		IntervalDays:   DefaultIntervalDays,
		LastReviewedAt: time.Time{},
		NextReviewAt:   now,
		Status:         ReviewStatusNotStarted,
		History:        nil,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

// Validate checks if the ReviewState has valid data.
// Returns an error if any field fails validation.
func (s *ReviewState) Validate() error {
	if s.LearnerID == uuid.Nil {
		return ErrEmptyReviewLearnerID
	}

	if s.ItemID == uuid.Nil {
		return ErrEmptyReviewItemID
	}

	if s.Repetitions < 0 {
		return ErrInvalidRepetitions
	}

	if s.IntervalDays <= 0 {
		return ErrInvalidIntervalDays
	}

	if s.EaseFactor < MinEaseFactor {
		return ErrInvalidEaseFactor
	}

	if !isValidReviewStatus(s.Status) {
		return ErrInvalidReviewStatus
	}

	if !s.LastReviewedAt.IsZero() && s.NextReviewAt.Before(s.LastReviewedAt) {
		return errors.New("next review date cannot precede the last review date")
	}

	for _, entry := range s.History {
		if !entry.Grade.IsValid() {
			return ErrInvalidGrade
		}
	}

	return nil
}

// Clone returns a deep copy of the state. The scheduler computes new state
// as a pure function of the prior state, so callers hand it a value that can
// never alias the original's history slice.
func (s *ReviewState) Clone() *ReviewState {
	clone := *s
	if s.History != nil {
		clone.History = make([]ReviewLog, len(s.History))
		copy(clone.History, s.History)
	}
	return &clone
}

// isValidReviewStatus checks if the given status is a valid ReviewStatus.
func isValidReviewStatus(status ReviewStatus) bool {
	switch status {
	case ReviewStatusNotStarted, ReviewStatusInProgress,
		ReviewStatusCompleted, ReviewStatusMastered:
		return true
	default:
		return false
	}
}

// Note: there are no mutating methods here. Use srs.Service.ComputeNext and
// srs.Service.Postpone, which return new instances rather than modifying
// existing ones.
