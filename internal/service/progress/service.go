// Package progress assembles a learner's standing across units and records
// unit completions. The snapshot it produces is the planner's ranking input.
//
// A unit's review item shares the unit's ID: the review state stored under
// (learner, unitID) feeds that unit's mastery score. Review states for items
// with no matching unit never contribute to planning.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/domain/srs"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/store"
)

// Service assembles learner path snapshots and records unit completions.
type Service interface {
	// GetSnapshot assembles the learner's current path snapshot from the
	// completion and review stores. With unitIDs it restricts the Units map
	// to those units; tag activity always covers the learner's full history.
	// The reads are not transactional: the snapshot tolerates read skew and
	// is advisory.
	GetSnapshot(
		ctx context.Context,
		learnerID uuid.UUID,
		unitIDs ...uuid.UUID,
	) (*domain.LearnerPathSnapshot, error)

	// CompleteUnit records that the learner completed the unit. The write is
	// idempotent; repeating it keeps the earliest completion time.
	// Returns store.ErrUnitNotFound if the unit does not exist.
	CompleteUnit(
		ctx context.Context,
		learnerID, unitID uuid.UUID,
	) (*domain.UnitCompletion, error)
}

// Verify interface compliance at compile time
var _ Service = (*progressService)(nil)

// progressService implements the Service interface.
type progressService struct {
	unitStore       store.UnitStore
	completionStore store.CompletionStore
	reviewStore     store.ReviewStateStore
	srsService      srs.Service
	logger          *slog.Logger
}

// NewService creates a progress Service over the given stores.
func NewService(
	unitStore store.UnitStore,
	completionStore store.CompletionStore,
	reviewStore store.ReviewStateStore,
	srsService srs.Service,
	log *slog.Logger,
) Service {
	// Validate inputs
	if unitStore == nil {
		panic("unitStore cannot be nil")
	}
	if completionStore == nil {
		panic("completionStore cannot be nil")
	}
	if reviewStore == nil {
		panic("reviewStore cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}

	// Use provided logger or create default
	if log == nil {
		log = slog.Default()
	}

	return &progressService{
		unitStore:       unitStore,
		completionStore: completionStore,
		reviewStore:     reviewStore,
		srsService:      srsService,
		logger:          log.With(slog.String("component", "progress_service")),
	}
}

// GetSnapshot implements Service.GetSnapshot.
func (s *progressService) GetSnapshot(
	ctx context.Context,
	learnerID uuid.UUID,
	unitIDs ...uuid.UUID,
) (*domain.LearnerPathSnapshot, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	units, err := s.unitStore.List(ctx)
	if err != nil {
		log.Error("failed to load learning units",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to load learning units: %w", err)
	}

	completions, err := s.completionStore.ListByLearner(ctx, learnerID)
	if err != nil {
		log.Error("failed to load completions",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to load completions: %w", err)
	}

	states, err := s.reviewStore.ListByLearner(ctx, learnerID)
	if err != nil {
		log.Error("failed to load review states",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to load review states: %w", err)
	}

	completedAt := make(map[uuid.UUID]time.Time, len(completions))
	for _, completion := range completions {
		completedAt[completion.UnitID] = completion.CompletedAt
	}

	stateByItem := make(map[uuid.UUID]*domain.ReviewState, len(states))
	for _, state := range states {
		stateByItem[state.ItemID] = state
	}

	var include map[uuid.UUID]struct{}
	if len(unitIDs) > 0 {
		include = make(map[uuid.UUID]struct{}, len(unitIDs))
		for _, id := range unitIDs {
			include[id] = struct{}{}
		}
	}

	snap := &domain.LearnerPathSnapshot{
		LearnerID:   learnerID,
		AsOf:        time.Now().UTC(),
		Units:       make(map[uuid.UUID]domain.UnitProgress),
		TagActivity: make(map[string]time.Time),
	}

	for _, unit := range units {
		at, completed := completedAt[unit.ID]
		state := stateByItem[unit.ID]

		included := true
		if include != nil {
			_, included = include[unit.ID]
		}
		if included {
			snap.Units[unit.ID] = domain.UnitProgress{
				Completed:    completed,
				MasteryScore: s.srsService.MasteryScore(state),
			}
		}

		// Tag activity covers the whole history regardless of the unit
		// filter, so affinity ranking sees recent work on excluded units too.
		if state != nil && !state.LastReviewedAt.IsZero() {
			touchTags(snap.TagActivity, unit.Tags, state.LastReviewedAt)
		}
		if completed {
			touchTags(snap.TagActivity, unit.Tags, at)
		}
	}

	log.Debug("assembled path snapshot",
		slog.String("learner_id", learnerID.String()),
		slog.Int("unit_count", len(snap.Units)),
		slog.Int("completion_count", len(completions)),
		slog.Int("state_count", len(states)))

	return snap, nil
}

// touchTags records activity for each tag, keeping the most recent time.
func touchTags(activity map[string]time.Time, tags []string, at time.Time) {
	for _, tag := range tags {
		if current, ok := activity[tag]; !ok || at.After(current) {
			activity[tag] = at
		}
	}
}

// CompleteUnit implements Service.CompleteUnit.
func (s *progressService) CompleteUnit(
	ctx context.Context,
	learnerID, unitID uuid.UUID,
) (*domain.UnitCompletion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	completion, err := domain.NewUnitCompletion(learnerID, unitID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.completionStore.MarkCompleted(ctx, learnerID, unitID, completion.CompletedAt); err != nil {
		if store.IsNotFoundError(err) {
			log.Warn("completion recorded for unknown unit",
				slog.String("learner_id", learnerID.String()),
				slog.String("unit_id", unitID.String()))
			return nil, err
		}

		log.Error("failed to record unit completion",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("unit_id", unitID.String()))
		return nil, fmt.Errorf("failed to record unit completion: %w", err)
	}

	log.Debug("recorded unit completion",
		slog.String("learner_id", learnerID.String()),
		slog.String("unit_id", unitID.String()))

	return completion, nil
}
