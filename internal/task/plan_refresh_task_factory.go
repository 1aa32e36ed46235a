package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// PlanRefreshTaskFactory creates PlanRefreshTask instances
type PlanRefreshTaskFactory struct {
	planService PlanService
	logger      *slog.Logger
}

// NewPlanRefreshTaskFactory creates a new factory for PlanRefreshTasks
func NewPlanRefreshTaskFactory(
	planService PlanService,
	logger *slog.Logger,
) *PlanRefreshTaskFactory {
	return &PlanRefreshTaskFactory{
		planService: planService,
		logger:      logger.With("component", "plan_refresh_task_factory"),
	}
}

// CreateTask creates a new PlanRefreshTask for the specified learner
func (f *PlanRefreshTaskFactory) CreateTask(learnerID uuid.UUID) (Task, error) {
	task, err := NewPlanRefreshTask(
		learnerID,
		f.planService,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ReviveTask rebuilds a plan refresh task from its persisted payload, keeping
// the stored task ID so status updates land on the original row.
func (f *PlanRefreshTaskFactory) ReviveTask(id uuid.UUID, payload []byte) (Task, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	var p planRefreshPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode plan refresh payload: %w", err)
	}

	task, err := NewPlanRefreshTask(
		p.LearnerID,
		f.planService,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	task.id = id
	return task, nil
}

// Ensure PlanRefreshTaskFactory implements TaskFactory and TaskReviver
var (
	_ TaskFactory = (*PlanRefreshTaskFactory)(nil)
	_ TaskReviver = (*PlanRefreshTaskFactory)(nil)
)
