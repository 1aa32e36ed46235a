package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/domain"
)

// Common errors
var (
	ErrNilPlanService = errors.New("plan service cannot be nil")
	ErrNilLogger      = errors.New("logger cannot be nil")
	ErrEmptyLearnerID = errors.New("learner ID cannot be empty")
)

// PlanService defines the interface for plan computation operations.
// The planner's service satisfies it; computing a plan also warms the
// recommendation cache for the learner.
type PlanService interface {
	// Plan computes the learner's recommended path, optionally constrained
	// to the given unit IDs
	Plan(ctx context.Context, learnerID uuid.UUID, constraintIDs []uuid.UUID) (*domain.LearnerPlan, error)
}

// planRefreshPayload represents the serialized data stored in the task
type planRefreshPayload struct {
	LearnerID uuid.UUID `json:"learner_id"`
}

// PlanRefreshTask implements the Task interface for recomputing a learner's
// recommended path. It runs after progress changes invalidate the learner's
// cached plans, so the next plan request is served warm.
type PlanRefreshTask struct {
	id          uuid.UUID
	learnerID   uuid.UUID
	planService PlanService
	logger      *slog.Logger
	status      TaskStatus
}

// NewPlanRefreshTask creates a new plan refresh task for the given learner
func NewPlanRefreshTask(
	learnerID uuid.UUID,
	planService PlanService,
	logger *slog.Logger,
) (*PlanRefreshTask, error) {
	// Validate dependencies
	if planService == nil {
		return nil, ErrNilPlanService
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	// Validate learner ID
	if learnerID == uuid.Nil {
		return nil, ErrEmptyLearnerID
	}

	return &PlanRefreshTask{
		id:          uuid.New(),
		learnerID:   learnerID,
		planService: planService,
		logger:      logger.With("task_type", TaskTypePlanRefresh, "learner_id", learnerID),
		status:      TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *PlanRefreshTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *PlanRefreshTask) Type() string {
	return TaskTypePlanRefresh
}

// Payload returns the task data as a byte slice
func (t *PlanRefreshTask) Payload() []byte {
	payload := planRefreshPayload{
		LearnerID: t.learnerID,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// If marshal fails, return an empty payload with error logged
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *PlanRefreshTask) Status() TaskStatus {
	return t.status
}

// Execute recomputes the learner's unconstrained plan. The planner writes
// the result into the recommendation cache as a side effect, which is the
// entire point of running this in the background.
func (t *PlanRefreshTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting plan refresh task")

	// Check for context cancellation
	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	plan, err := t.planService.Plan(ctx, t.learnerID, nil)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to refresh plan", "error", err)
		return fmt.Errorf("failed to refresh plan: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("plan refresh task completed successfully",
		"unit_count", len(plan.UnitIDs),
		"from_cache", plan.FromCache)
	return nil
}
