package task

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumolearn/lumo-core/internal/domain"
)

// fakePlanService implements PlanService with a configurable function
type fakePlanService struct {
	PlanFn         func(ctx context.Context, learnerID uuid.UUID, constraintIDs []uuid.UUID) (*domain.LearnerPlan, error)
	PlanCalled     bool
	LastLearnerID  uuid.UUID
	LastConstraint []uuid.UUID
}

func (f *fakePlanService) Plan(
	ctx context.Context,
	learnerID uuid.UUID,
	constraintIDs []uuid.UUID,
) (*domain.LearnerPlan, error) {
	f.PlanCalled = true
	f.LastLearnerID = learnerID
	f.LastConstraint = constraintIDs
	if f.PlanFn == nil {
		return &domain.LearnerPlan{LearnerID: learnerID, ComputedAt: time.Now().UTC()}, nil
	}
	return f.PlanFn(ctx, learnerID, constraintIDs)
}

func TestNewPlanRefreshTask(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validLearnerID := uuid.New()

	t.Run("creates task with valid parameters", func(t *testing.T) {
		planService := &fakePlanService{}

		task, err := NewPlanRefreshTask(validLearnerID, planService, logger)

		require.NoError(t, err)
		assert.NotNil(t, task)
		assert.Equal(t, validLearnerID, task.learnerID)
		assert.Equal(t, TaskStatusPending, task.Status())
		assert.Equal(t, TaskTypePlanRefresh, task.Type())
		assert.NotEqual(t, uuid.Nil, task.ID())
	})

	t.Run("fails with nil plan service", func(t *testing.T) {
		task, err := NewPlanRefreshTask(validLearnerID, nil, logger)

		assert.Error(t, err)
		assert.Equal(t, ErrNilPlanService, err)
		assert.Nil(t, task)
	})

	t.Run("fails with nil logger", func(t *testing.T) {
		task, err := NewPlanRefreshTask(validLearnerID, &fakePlanService{}, nil)

		assert.Error(t, err)
		assert.Equal(t, ErrNilLogger, err)
		assert.Nil(t, task)
	})

	t.Run("fails with nil learner ID", func(t *testing.T) {
		task, err := NewPlanRefreshTask(uuid.Nil, &fakePlanService{}, logger)

		assert.Error(t, err)
		assert.Equal(t, ErrEmptyLearnerID, err)
		assert.Nil(t, task)
	})
}

func TestPlanRefreshTaskPayload(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	learnerID := uuid.New()

	task, err := NewPlanRefreshTask(learnerID, &fakePlanService{}, logger)
	require.NoError(t, err)

	var payload planRefreshPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, learnerID, payload.LearnerID)
}

func TestPlanRefreshTaskExecute(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	learnerID := uuid.New()

	t.Run("recomputes the unconstrained plan", func(t *testing.T) {
		planService := &fakePlanService{
			PlanFn: func(ctx context.Context, learnerID uuid.UUID, constraintIDs []uuid.UUID) (*domain.LearnerPlan, error) {
				return &domain.LearnerPlan{
					LearnerID:  learnerID,
					UnitIDs:    []uuid.UUID{uuid.New(), uuid.New()},
					ComputedAt: time.Now().UTC(),
				}, nil
			},
		}

		task, err := NewPlanRefreshTask(learnerID, planService, logger)
		require.NoError(t, err)

		err = task.Execute(context.Background())

		require.NoError(t, err)
		assert.Equal(t, TaskStatusCompleted, task.Status())
		assert.True(t, planService.PlanCalled)
		assert.Equal(t, learnerID, planService.LastLearnerID)
		assert.Nil(t, planService.LastConstraint)
	})

	t.Run("fails when plan computation fails", func(t *testing.T) {
		planErr := errors.New("stored graph failed validation")
		planService := &fakePlanService{
			PlanFn: func(ctx context.Context, learnerID uuid.UUID, constraintIDs []uuid.UUID) (*domain.LearnerPlan, error) {
				return nil, planErr
			},
		}

		task, err := NewPlanRefreshTask(learnerID, planService, logger)
		require.NoError(t, err)

		err = task.Execute(context.Background())

		assert.Error(t, err)
		assert.ErrorIs(t, err, planErr)
		assert.Contains(t, err.Error(), "failed to refresh plan")
		assert.Equal(t, TaskStatusFailed, task.Status())
	})

	t.Run("fails when context is already cancelled", func(t *testing.T) {
		planService := &fakePlanService{}

		task, err := NewPlanRefreshTask(learnerID, planService, logger)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = task.Execute(ctx)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "task cancelled by context")
		assert.Equal(t, TaskStatusFailed, task.Status())
		assert.False(t, planService.PlanCalled)
	})
}
