package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/events"
)

// PlanRefreshEventHandler implements the events.EventHandler interface.
// It reacts to learner progress events by enqueueing a plan refresh task,
// so the plan invalidated by the event is recomputed before the learner
// asks for it again.
type PlanRefreshEventHandler struct {
	factory   TaskFactory
	submitter TaskSubmitter
	logger    *slog.Logger
}

// NewPlanRefreshEventHandler creates a new event handler that uses the given
// task factory to create plan refresh tasks and submits them to the provided
// submitter, typically the TaskRunner.
func NewPlanRefreshEventHandler(
	factory TaskFactory,
	submitter TaskSubmitter,
	logger *slog.Logger,
) *PlanRefreshEventHandler {
	return &PlanRefreshEventHandler{
		factory:   factory,
		submitter: submitter,
		logger:    logger.With("component", "plan_refresh_event_handler"),
	}
}

// HandleEvent processes learner progress events by creating and submitting
// plan refresh tasks. Events of other types are ignored without error.
func (h *PlanRefreshEventHandler) HandleEvent(
	ctx context.Context,
	event *events.LearnerEvent,
) error {
	switch event.Type {
	case events.EventGradeSubmitted, events.EventUnitCompleted:
		// Both invalidate the learner's cached plans; refresh them.
	default:
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	if event.LearnerID == uuid.Nil {
		h.logger.Error("event carries no learner ID",
			"event_type", event.Type,
			"event_id", event.ID)
		return fmt.Errorf("event %s carries no learner ID", event.ID)
	}

	h.logger.Debug("creating plan refresh task",
		"learner_id", event.LearnerID,
		"event_id", event.ID)
	task, err := h.factory.CreateTask(event.LearnerID)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"learner_id", event.LearnerID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.submitter.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"learner_id", event.LearnerID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("plan refresh task submitted",
		"task_id", task.ID(),
		"learner_id", event.LearnerID,
		"event_id", event.ID)
	return nil
}

// Ensure PlanRefreshEventHandler implements events.EventHandler
var _ events.EventHandler = (*PlanRefreshEventHandler)(nil)
