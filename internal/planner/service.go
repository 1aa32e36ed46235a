package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/plancache"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/store"
)

// SnapshotProvider supplies the learner progress snapshot the planner ranks
// against. Implemented by the progress service.
type SnapshotProvider interface {
	// GetSnapshot assembles the learner's current path snapshot. With no
	// unitIDs it covers every stored unit.
	GetSnapshot(
		ctx context.Context,
		learnerID uuid.UUID,
		unitIDs ...uuid.UUID,
	) (*domain.LearnerPathSnapshot, error)
}

// Service computes learner plans, consulting the recommendation cache before
// running the pure planner.
type Service interface {
	// Plan returns the ranked frontier for the learner, optionally filtered
	// to the given unit IDs. A plan served from the cache carries
	// FromCache=true and the timestamp of its original computation.
	// Returns a *GraphIntegrityError when the stored graph is malformed.
	Plan(
		ctx context.Context,
		learnerID uuid.UUID,
		constraintIDs []uuid.UUID,
	) (*domain.LearnerPlan, error)
}

// Verify interface compliance at compile time
var _ Service = (*plannerService)(nil)

// plannerService implements the Service interface.
type plannerService struct {
	unitStore store.UnitStore
	snapshots SnapshotProvider
	cache     plancache.Cache
	logger    *slog.Logger
}

// NewService creates a planner Service backed by the given unit store,
// snapshot provider, and recommendation cache.
func NewService(
	unitStore store.UnitStore,
	snapshots SnapshotProvider,
	cache plancache.Cache,
	log *slog.Logger,
) Service {
	// Validate inputs
	if unitStore == nil {
		panic("unitStore cannot be nil")
	}
	if snapshots == nil {
		panic("snapshots cannot be nil")
	}
	if cache == nil {
		panic("cache cannot be nil")
	}

	// Use provided logger or create default
	if log == nil {
		log = slog.Default()
	}

	return &plannerService{
		unitStore: unitStore,
		snapshots: snapshots,
		cache:     cache,
		logger:    log.With(slog.String("component", "planner_service")),
	}
}

// Plan implements Service.Plan.
func (s *plannerService) Plan(
	ctx context.Context,
	learnerID uuid.UUID,
	constraintIDs []uuid.UUID,
) (*domain.LearnerPlan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	key := plancache.ConstraintKey(constraintIDs)
	if entry, ok := s.cache.Get(learnerID, key); ok {
		log.Debug("serving plan from cache",
			slog.String("learner_id", learnerID.String()),
			slog.String("constraint_key", key))
		return &domain.LearnerPlan{
			LearnerID:     learnerID,
			UnitIDs:       entry.UnitIDs,
			ConstraintKey: key,
			ComputedAt:    entry.ComputedAt,
			FromCache:     true,
		}, nil
	}

	units, err := s.unitStore.List(ctx)
	if err != nil {
		log.Error("failed to load learning units",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to load learning units: %w", err)
	}

	snap, err := s.snapshots.GetSnapshot(ctx, learnerID)
	if err != nil {
		log.Error("failed to build path snapshot",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to build path snapshot: %w", err)
	}

	unitIDs, err := Plan(units, snap, constraintIDs)
	if err != nil {
		if errors.Is(err, ErrGraphIntegrity) {
			// The store admitted a graph the planner rejects. Surface the
			// error as-is so callers can name the offending units.
			log.Error("stored graph failed integrity validation",
				slog.String("error", err.Error()),
				slog.String("learner_id", learnerID.String()))
			return nil, err
		}
		return nil, fmt.Errorf("failed to compute plan: %w", err)
	}

	computedAt := time.Now().UTC()
	s.cache.Put(learnerID, key, &plancache.Entry{
		UnitIDs:    unitIDs,
		ComputedAt: computedAt,
	})

	log.Debug("computed plan",
		slog.String("learner_id", learnerID.String()),
		slog.String("constraint_key", key),
		slog.Int("unit_count", len(unitIDs)))

	return &domain.LearnerPlan{
		LearnerID:     learnerID,
		UnitIDs:       unitIDs,
		ConstraintKey: key,
		ComputedAt:    computedAt,
		FromCache:     false,
	}, nil
}
