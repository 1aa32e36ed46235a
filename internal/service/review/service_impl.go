package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/domain/srs"
	"github.com/lumolearn/lumo-core/internal/events"
	"github.com/lumolearn/lumo-core/internal/plancache"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/service/progress"
	"github.com/lumolearn/lumo-core/internal/store"
)

// Verify interface compliance at compile time
var _ ReviewService = (*reviewServiceImpl)(nil)

// maxConflictRetries bounds how many times a lost optimistic-concurrency
// race is retried against the reloaded state before the conflict is
// surfaced to the caller.
const maxConflictRetries = 2

// reviewServiceImpl implements the ReviewService interface.
type reviewServiceImpl struct {
	reviewStore     store.ReviewStateStore
	unitStore       store.UnitStore
	progressService progress.Service
	srsService      srs.Service
	cache           plancache.Cache
	emitter         events.EventEmitter
	logger          *slog.Logger
}

// NewReviewService creates a new ReviewService implementation.
func NewReviewService(
	reviewStore store.ReviewStateStore,
	unitStore store.UnitStore,
	progressService progress.Service,
	srsService srs.Service,
	cache plancache.Cache,
	emitter events.EventEmitter,
	logger *slog.Logger,
) ReviewService {
	// Validate inputs
	if reviewStore == nil {
		panic("reviewStore cannot be nil")
	}
	if unitStore == nil {
		panic("unitStore cannot be nil")
	}
	if progressService == nil {
		panic("progressService cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if cache == nil {
		panic("cache cannot be nil")
	}
	if emitter == nil {
		panic("emitter cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &reviewServiceImpl{
		reviewStore:     reviewStore,
		unitStore:       unitStore,
		progressService: progressService,
		srsService:      srsService,
		cache:           cache,
		emitter:         emitter,
		logger:          logger.With(slog.String("component", "review_service")),
	}
}

// StartSession implements ReviewService.StartSession.
// It assembles a fixed batch of due items for the learner.
func (s *reviewServiceImpl) StartSession(
	ctx context.Context,
	learnerID uuid.UUID,
	maxItems int,
) (*ReviewSession, error) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("starting review session",
		slog.String("learner_id", learnerID.String()),
		slog.Int("max_items", maxItems))

	// Validate the batch size before touching the store
	if maxItems < 1 {
		log.Warn("invalid session batch size",
			slog.String("learner_id", learnerID.String()),
			slog.Int("max_items", maxItems))
		return nil, ErrInvalidMaxItems
	}

	startedAt := time.Now().UTC()

	states, err := s.reviewStore.ListDue(ctx, learnerID, startedAt, maxItems)
	if err != nil {
		log.Error("failed to list due items",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to list due items: %w", err)
	}

	items := make([]SessionItem, len(states))
	for i, state := range states {
		items[i] = SessionItem{
			State:          state,
			Classification: s.srsService.Classify(state, startedAt),
		}
	}

	log.Debug("assembled review session",
		slog.String("learner_id", learnerID.String()),
		slog.Int("item_count", len(items)))

	return &ReviewSession{
		LearnerID: learnerID,
		StartedAt: startedAt,
		Items:     items,
	}, nil
}

// SubmitGrade implements ReviewService.SubmitGrade.
// It applies a recall grade and persists the recomputed schedule.
func (s *reviewServiceImpl) SubmitGrade(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID uuid.UUID,
	grade domain.Grade,
	now time.Time,
) (*domain.ReviewState, error) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("processing grade submission",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int("grade", int(grade)))

	// Validate the grade before touching the store
	if !grade.IsValid() {
		log.Warn("invalid grade submitted",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()),
			slog.Int("grade", int(grade)))
		return nil, srs.ErrInvalidGrade
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	var updated *domain.ReviewState
	var lastConflict error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		state, err := s.applyGrade(ctx, learnerID, itemID, grade, now)
		if err == nil {
			updated = state
			break
		}
		if !isRetryableConflict(err) {
			log.Error("failed to submit grade",
				slog.String("error", err.Error()),
				slog.String("learner_id", learnerID.String()),
				slog.String("item_id", itemID.String()))
			return nil, fmt.Errorf("failed to submit grade: %w", err)
		}

		lastConflict = err
		log.Debug("grade submission lost a concurrent update, retrying",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()),
			slog.Int("attempt", attempt+1))
	}

	if updated == nil {
		log.Warn("grade submission exhausted conflict retries",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()),
			slog.Int("attempts", maxConflictRetries+1))
		return nil, fmt.Errorf("%w: %w", ErrConflictRetriesExhausted, lastConflict)
	}

	removed := s.cache.Invalidate(learnerID)

	s.emitGradeSubmitted(ctx, log, learnerID, grade, updated)

	log.Debug("successfully processed grade submission",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int("grade", int(grade)),
		slog.String("status", string(updated.Status)),
		slog.Float64("ease_factor", updated.EaseFactor),
		slog.Float64("interval_days", updated.IntervalDays),
		slog.Time("next_review_at", updated.NextReviewAt),
		slog.Int("plans_invalidated", removed))

	return updated, nil
}

// applyGrade performs one attempt at the load/compute/persist cycle.
// A missing prior state is treated as first exposure and graded from a
// fresh default state. Conflict sentinels from the store pass through
// for the caller's retry loop.
func (s *reviewServiceImpl) applyGrade(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID uuid.UUID,
	grade domain.Grade,
	now time.Time,
) (*domain.ReviewState, error) {
	firstExposure := false

	prior, err := s.reviewStore.Get(ctx, learnerID, itemID)
	if err != nil {
		if !errors.Is(err, store.ErrReviewStateNotFound) {
			return nil, fmt.Errorf("failed to get review state: %w", err)
		}
		// First exposure: grade a fresh default state
		prior, err = domain.NewReviewState(learnerID, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to create review state: %w", err)
		}
		firstExposure = true
	}

	next, err := s.srsService.ComputeNext(prior, grade, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute next review: %w", err)
	}

	if firstExposure {
		// A duplicate here means another writer won the first-exposure
		// race; the retry loop reloads and takes the update path.
		if err := s.reviewStore.Create(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	}

	if err := s.reviewStore.Update(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// PostponeItem implements ReviewService.PostponeItem.
// It pushes the item's next review forward without touching memory strength.
func (s *reviewServiceImpl) PostponeItem(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID uuid.UUID,
	days int,
	now time.Time,
) (*domain.ReviewState, error) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("postponing review item",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int("days", days))

	// Validate the day count before touching the store
	if days < 1 {
		log.Warn("invalid postpone days",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()),
			slog.Int("days", days))
		return nil, srs.ErrInvalidDays
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	var updated *domain.ReviewState
	var lastConflict error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		prior, err := s.reviewStore.Get(ctx, learnerID, itemID)
		if err != nil {
			// Map store.ErrReviewStateNotFound to service.ErrItemNotFound
			if errors.Is(err, store.ErrReviewStateNotFound) {
				log.Warn("review item not found for postpone",
					slog.String("learner_id", learnerID.String()),
					slog.String("item_id", itemID.String()))
				return nil, ErrItemNotFound
			}
			log.Error("failed to get review state",
				slog.String("error", err.Error()),
				slog.String("learner_id", learnerID.String()),
				slog.String("item_id", itemID.String()))
			return nil, fmt.Errorf("failed to get review state: %w", err)
		}

		next, err := s.srsService.Postpone(prior, days, now)
		if err != nil {
			return nil, fmt.Errorf("failed to postpone review: %w", err)
		}

		err = s.reviewStore.Update(ctx, next)
		if err == nil {
			updated = next
			break
		}
		if !store.IsConflictError(err) {
			log.Error("failed to update review state",
				slog.String("error", err.Error()),
				slog.String("learner_id", learnerID.String()),
				slog.String("item_id", itemID.String()))
			return nil, fmt.Errorf("failed to update review state: %w", err)
		}

		lastConflict = err
		log.Debug("postpone lost a concurrent update, retrying",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()),
			slog.Int("attempt", attempt+1))
	}

	if updated == nil {
		log.Warn("postpone exhausted conflict retries",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()),
			slog.Int("attempts", maxConflictRetries+1))
		return nil, fmt.Errorf("%w: %w", ErrConflictRetriesExhausted, lastConflict)
	}

	log.Debug("successfully postponed review item",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID.String()),
		slog.Time("next_review_at", updated.NextReviewAt))

	return updated, nil
}

// CompleteUnit implements ReviewService.CompleteUnit.
// It records the completion, invalidates cached plans, and emits an event.
func (s *reviewServiceImpl) CompleteUnit(
	ctx context.Context,
	learnerID uuid.UUID,
	unitID uuid.UUID,
) (*domain.UnitCompletion, error) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("completing learning unit",
		slog.String("learner_id", learnerID.String()),
		slog.String("unit_id", unitID.String()))

	// Verify that the unit exists
	if _, err := s.unitStore.GetByID(ctx, unitID); err != nil {
		// Map store.ErrUnitNotFound to service.ErrUnitNotFound
		if store.IsNotFoundError(err) {
			log.Warn("unit not found for completion",
				slog.String("learner_id", learnerID.String()),
				slog.String("unit_id", unitID.String()))
			return nil, ErrUnitNotFound
		}
		log.Error("failed to get learning unit",
			slog.String("error", err.Error()),
			slog.String("unit_id", unitID.String()))
		return nil, fmt.Errorf("failed to get learning unit: %w", err)
	}

	completion, err := s.progressService.CompleteUnit(ctx, learnerID, unitID)
	if err != nil {
		// The unit existed a moment ago; a not-found here means it was
		// deleted concurrently and maps to the same sentinel.
		if store.IsNotFoundError(err) {
			log.Warn("unit disappeared before completion was recorded",
				slog.String("learner_id", learnerID.String()),
				slog.String("unit_id", unitID.String()))
			return nil, ErrUnitNotFound
		}
		log.Error("failed to record unit completion",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("unit_id", unitID.String()))
		return nil, fmt.Errorf("failed to complete unit: %w", err)
	}

	removed := s.cache.Invalidate(learnerID)

	s.emitUnitCompleted(ctx, log, learnerID, completion)

	log.Debug("successfully completed learning unit",
		slog.String("learner_id", learnerID.String()),
		slog.String("unit_id", unitID.String()),
		slog.Time("completed_at", completion.CompletedAt),
		slog.Int("plans_invalidated", removed))

	return completion, nil
}

// emitGradeSubmitted publishes a grade_submitted event. Emission is best
// effort: a failure is logged and never surfaced to the caller.
func (s *reviewServiceImpl) emitGradeSubmitted(
	ctx context.Context,
	log *slog.Logger,
	learnerID uuid.UUID,
	grade domain.Grade,
	state *domain.ReviewState,
) {
	event, err := events.NewGradeSubmittedEvent(learnerID, events.GradeSubmittedPayload{
		ItemID:       state.ItemID,
		Grade:        grade,
		Status:       state.Status,
		NextReviewAt: state.NextReviewAt,
	})
	if err != nil {
		log.Error("failed to build grade_submitted event",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", state.ItemID.String()))
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit grade_submitted event",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", state.ItemID.String()))
	}
}

// emitUnitCompleted publishes a unit_completed event. Emission is best
// effort: a failure is logged and never surfaced to the caller.
func (s *reviewServiceImpl) emitUnitCompleted(
	ctx context.Context,
	log *slog.Logger,
	learnerID uuid.UUID,
	completion *domain.UnitCompletion,
) {
	event, err := events.NewUnitCompletedEvent(learnerID, events.UnitCompletedPayload{
		UnitID:      completion.UnitID,
		CompletedAt: completion.CompletedAt,
	})
	if err != nil {
		log.Error("failed to build unit_completed event",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("unit_id", completion.UnitID.String()))
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit unit_completed event",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("unit_id", completion.UnitID.String()))
	}
}

// isRetryableConflict reports whether the error is a lost optimistic
// concurrency race worth retrying: a version mismatch on update, or a
// duplicate create when two writers raced the same first exposure.
func isRetryableConflict(err error) bool {
	return store.IsConflictError(err) || errors.Is(err, store.ErrReviewStateExists)
}
