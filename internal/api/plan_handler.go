package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lumolearn/lumo-core/internal/api/shared"
	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/planner"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/redact"
)

// PlanResponse represents the response data for a learner's ranked plan
type PlanResponse struct {
	LearnerID  string    `json:"learner_id"`
	UnitIDs    []string  `json:"unit_ids"`
	ComputedAt time.Time `json:"computed_at"`
	FromCache  bool      `json:"from_cache"`
}

// PlanHandler handles path-planning HTTP requests
type PlanHandler struct {
	planService planner.Service
	logger      *slog.Logger
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(planService planner.Service, logger *slog.Logger) *PlanHandler {
	if planService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("planService cannot be nil for PlanHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PlanHandler{
		planService: planService,
		logger:      logger.With(slog.String("component", "plan_handler")),
	}
}

// GetPlan handles GET /learners/{learnerID}/plan requests
// It returns the learner's ranked frontier, optionally filtered to the units
// named in the comma-separated units query parameter.
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract learner ID from URL path
	learnerID, ok := handlePathUUID(w, r, "learnerID", log)
	if !ok {
		return
	}

	// Parse the optional units filter
	constraintIDs, err := parseUUIDList(r.URL.Query().Get("units"))
	if err != nil {
		log.Warn("invalid units parameter",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid units parameter")
		return
	}

	log.Debug("computing plan",
		slog.String("learner_id", learnerID.String()),
		slog.Int("constraint_count", len(constraintIDs)))

	// Compute the plan through the service
	plan, err := h.planService.Plan(r.Context(), learnerID, constraintIDs)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Transform domain object to response
	response := planToResponse(plan)

	log.Debug("successfully computed plan",
		slog.String("learner_id", learnerID.String()),
		slog.Int("unit_count", len(response.UnitIDs)),
		slog.Bool("from_cache", response.FromCache))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// planToResponse converts a domain.LearnerPlan to a PlanResponse
func planToResponse(plan *domain.LearnerPlan) PlanResponse {
	unitIDs := make([]string, 0, len(plan.UnitIDs))
	for _, id := range plan.UnitIDs {
		unitIDs = append(unitIDs, id.String())
	}

	return PlanResponse{
		LearnerID:  plan.LearnerID.String(),
		UnitIDs:    unitIDs,
		ComputedAt: plan.ComputedAt,
		FromCache:  plan.FromCache,
	}
}
