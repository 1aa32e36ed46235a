package srs

import (
	"math"
	"time"

	"github.com/lumolearn/lumo-core/internal/domain"
)

// calculateNewEaseFactor determines the new ease factor from a performance grade.
//
// The ease factor represents how well-retained the item is - higher values
// mean recall is easy and intervals will grow faster. Every graded review
// adjusts it, pass or fail, using the classic SM-2 formula:
//
//	EF' = EF + (0.1 - (5-grade) * (0.08 + (5-grade) * 0.02))
//
// Parameters:
//   - currentEF: The item's current ease factor
//   - grade: The learner's performance grade, 0-5
//   - params: Configuration parameters for the SRS algorithm
//
// Returns:
//   - The new ease factor, floored at params.MinEaseFactor
//
// Algorithm behavior:
//   - Grade 5 raises the ease factor slightly (+0.10)
//   - Grade 4 leaves it unchanged
//   - Lower grades penalize it nonlinearly; a grade of 0 costs 0.80
//   - The result never drops below the floor regardless of how poor the grade
func calculateNewEaseFactor(currentEF float64, grade domain.Grade, params *Params) float64 {
	missed := float64(5 - grade)
	newEF := currentEF + (0.1 - missed*(0.08+missed*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the new interval in days after a passing grade.
//
// Parameters:
//   - repetitions: The new consecutive-pass count, including this review
//   - priorIntervalDays: The interval before this review
//   - easeFactor: The already-updated ease factor for this review
//   - params: Configuration parameters for the SRS algorithm
//
// Returns:
//   - The new interval in days
//
// Algorithm behavior:
//   - First pass: the base interval (1 day by default)
//   - Second pass: the graduation interval (6 days by default)
//   - Later passes: the prior interval multiplied by the updated ease factor,
//     rounded to whole days. With the ease floor at 1.3 the sequence never
//     shrinks while the learner keeps passing.
func calculateNewInterval(
	repetitions int,
	priorIntervalDays float64,
	easeFactor float64,
	params *Params,
) float64 {
	switch {
	case repetitions <= 1:
		return params.InitialIntervalDays
	case repetitions == 2:
		return params.SecondIntervalDays
	default:
		return math.Round(priorIntervalDays * easeFactor)
	}
}

// calculateNextStatus derives the item's lifecycle status after a review.
//
// A fail regresses the item to in_progress, except that an item which has
// never passed stays not_started. A pass yields completed, or mastered once
// both mastery thresholds are exceeded.
func calculateNextStatus(
	prior domain.ReviewStatus,
	pass bool,
	repetitions int,
	intervalDays float64,
	params *Params,
) domain.ReviewStatus {
	if !pass {
		if prior == domain.ReviewStatusNotStarted {
			return domain.ReviewStatusNotStarted
		}
		return domain.ReviewStatusInProgress
	}

	if repetitions > params.MasteryRepetitions && intervalDays > params.MasteryIntervalDays {
		return domain.ReviewStatusMastered
	}

	return domain.ReviewStatusCompleted
}

// appendReviewLog appends one history entry, trimming the oldest entries once
// the bound is exceeded. The most recent entries are always retained.
func appendReviewLog(history []domain.ReviewLog, entry domain.ReviewLog, limit int) []domain.ReviewLog {
	history = append(history, entry)
	if limit > 0 && len(history) > limit {
		trimmed := make([]domain.ReviewLog, limit)
		copy(trimmed, history[len(history)-limit:])
		return trimmed
	}
	return history
}

// durationFromDays converts a possibly fractional day count into a Duration.
func durationFromDays(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}

// computeNextState calculates the complete next review state from the prior
// state and a performance grade. Pure: the prior state is never modified.
//
// This is the scheduler's apply operation. It updates the ease factor on
// every grade, resets the repetition streak and interval on a fail, walks
// the interval ladder on a pass, derives the lifecycle status, stamps the
// review dates, and appends one bounded history entry. The concurrency
// version is carried over untouched; the store increments it on write.
func computeNextState(
	prior *domain.ReviewState,
	grade domain.Grade,
	now time.Time,
	params *Params,
) *domain.ReviewState {
	pass := grade >= params.PassThreshold

	newEF := calculateNewEaseFactor(prior.EaseFactor, grade, params)

	var repetitions int
	var intervalDays float64
	if pass {
		repetitions = prior.Repetitions + 1
		intervalDays = calculateNewInterval(repetitions, prior.IntervalDays, newEF, params)
	} else {
		repetitions = 0
		intervalDays = params.InitialIntervalDays
	}

	next := prior.Clone()
	next.EaseFactor = newEF
	next.Repetitions = repetitions
	next.IntervalDays = intervalDays
	next.LastReviewedAt = now
	next.NextReviewAt = now.Add(durationFromDays(intervalDays))
	next.Status = calculateNextStatus(prior.Status, pass, repetitions, intervalDays, params)
	next.History = appendReviewLog(next.History, domain.ReviewLog{
		ReviewedAt:   now,
		Grade:        grade,
		IntervalDays: intervalDays,
		EaseFactor:   newEF,
	}, params.HistoryLimit)
	next.UpdatedAt = now

	return next
}
