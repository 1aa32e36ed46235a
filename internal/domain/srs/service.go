package srs

import (
	"errors"
	"math"
	"time"

	"github.com/lumolearn/lumo-core/internal/domain"
)

// Common errors
var (
	ErrNilState     = errors.New("review state cannot be nil")
	ErrInvalidGrade = errors.New("grade must be between 0 and 5")
	ErrInvalidDays  = errors.New("postpone days must be at least 1")
)

// Classification buckets a review state relative to a point in time.
type Classification string

// Possible classification values
const (
	// ClassificationUnseen marks state that has never been graded.
	ClassificationUnseen Classification = "unseen"

	// ClassificationDue marks an item whose next review date has arrived.
	ClassificationDue Classification = "due"

	// ClassificationLapsed marks an item overdue by more than the configured
	// lapse window; it has likely been forgotten and needs relearning.
	ClassificationLapsed Classification = "lapsed"

	// ClassificationUpcoming marks an item not yet due.
	ClassificationUpcoming Classification = "upcoming"
)

// Service defines the interface for SRS algorithm operations
type Service interface {
	// ComputeNext computes new review state from a performance grade.
	// It is a pure function of (prior, grade, now): the prior state is
	// never mutated and no side effects occur, so callers can safely retry
	// on a persistence conflict.
	ComputeNext(
		prior *domain.ReviewState,
		grade domain.Grade,
		now time.Time,
	) (*domain.ReviewState, error)

	// Classify buckets a state into unseen/due/lapsed/upcoming as of the
	// given time. Read-only.
	Classify(state *domain.ReviewState, asOf time.Time) Classification

	// MasteryScore derives a 0-100 retention score from a state, 100 only
	// for fully mastered items.
	MasteryScore(state *domain.ReviewState) int

	// Postpone pushes the next review time forward by a specified number of days
	Postpone(
		prior *domain.ReviewState,
		days int,
		now time.Time,
	) (*domain.ReviewState, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	return &defaultService{
		params: params,
	}
}

// ComputeNext implements the Service interface for applying a grade.
func (s *defaultService) ComputeNext(
	prior *domain.ReviewState,
	grade domain.Grade,
	now time.Time,
) (*domain.ReviewState, error) {
	if prior == nil {
		return nil, ErrNilState
	}

	if !grade.IsValid() {
		return nil, ErrInvalidGrade
	}

	return computeNextState(prior, grade, now, s.params), nil
}

// Classify implements the Service interface classification query.
func (s *defaultService) Classify(state *domain.ReviewState, asOf time.Time) Classification {
	if state == nil {
		return ClassificationUnseen
	}

	if state.LastReviewedAt.IsZero() {
		return ClassificationUnseen
	}

	overdue := asOf.Sub(state.NextReviewAt)
	switch {
	case overdue < 0:
		return ClassificationUpcoming
	case overdue > durationFromDays(s.params.LapsedAfterDays):
		return ClassificationLapsed
	default:
		return ClassificationDue
	}
}

// MasteryScore implements the Service interface mastery derivation.
func (s *defaultService) MasteryScore(state *domain.ReviewState) int {
	if state == nil {
		return 0
	}

	if state.Status == domain.ReviewStatusMastered {
		return 100
	}

	repProgress := float64(state.Repetitions) / float64(s.params.MasteryRepetitions)
	if repProgress > 1 {
		repProgress = 1
	}
	intervalProgress := state.IntervalDays / s.params.MasteryIntervalDays
	if intervalProgress > 1 {
		intervalProgress = 1
	}

	score := int(math.Round(50 * (repProgress + intervalProgress)))
	if score > 99 {
		// Only true mastery reaches 100.
		score = 99
	}
	if score < 0 {
		score = 0
	}

	return score
}

// Postpone implements the Service interface for postponing reviews
func (s *defaultService) Postpone(
	prior *domain.ReviewState,
	days int,
	now time.Time,
) (*domain.ReviewState, error) {
	if prior == nil {
		return nil, ErrNilState
	}

	if days < 1 {
		return nil, ErrInvalidDays
	}

	next := prior.Clone()
	next.NextReviewAt = prior.NextReviewAt.AddDate(0, 0, days)
	next.UpdatedAt = now

	return next, nil
}
