package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lumolearn/lumo-core/internal/api/shared"
	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/redact"
	"github.com/lumolearn/lumo-core/internal/store"
)

// UnitHandler handles curriculum-graph administration HTTP requests
type UnitHandler struct {
	unitStore store.UnitStore
	logger    *slog.Logger
}

// NewUnitHandler creates a new UnitHandler
func NewUnitHandler(unitStore store.UnitStore, logger *slog.Logger) *UnitHandler {
	if unitStore == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("unitStore cannot be nil for UnitHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &UnitHandler{
		unitStore: unitStore,
		logger:    logger.With(slog.String("component", "unit_handler")),
	}
}

// CreateUnit handles POST /units requests
// It creates a learning unit together with its prerequisite edges. The store
// rejects unknown prerequisites and edges that would introduce a cycle.
func (h *UnitHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Parse request body
	var req CreateUnitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error", slog.String("error", redact.Error(err)))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Build the domain unit
	unit, err := domain.NewLearningUnit(req.Title, req.Prerequisites, req.Tags)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	unit.OrderHint = req.OrderHint

	// Persist unit and edges
	if err := h.unitStore.Create(r.Context(), unit); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("learning unit created",
		slog.String("unit_id", unit.ID.String()),
		slog.Int("prerequisite_count", len(unit.Prerequisites)))
	shared.RespondWithJSON(w, r, http.StatusCreated, unitToResponse(unit))
}

// ListUnits handles GET /units requests
// It returns all learning units with their prerequisites populated.
func (h *UnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	units, err := h.unitStore.List(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list units")
		return
	}

	response := make([]UnitResponse, 0, len(units))
	for _, unit := range units {
		response = append(response, unitToResponse(unit))
	}

	log.Debug("listed learning units", slog.Int("count", len(response)))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// GetUnit handles GET /units/{unitID} requests
func (h *UnitHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract unit ID from URL path
	unitID, ok := handlePathUUID(w, r, "unitID", log)
	if !ok {
		return
	}

	unit, err := h.unitStore.GetByID(r.Context(), unitID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, unitToResponse(unit))
}

// UpdateUnit handles PUT /units/{unitID} requests
// It replaces the unit's fields and prerequisite edges under the same
// integrity checks as creation.
func (h *UnitHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract unit ID from URL path
	unitID, ok := handlePathUUID(w, r, "unitID", log)
	if !ok {
		return
	}

	// Parse request body
	var req UpdateUnitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("unit_id", unitID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.String("unit_id", unitID.String()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Load the current unit so the response keeps its creation timestamp
	unit, err := h.unitStore.GetByID(r.Context(), unitID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Apply the replacement fields
	unit.Title = req.Title
	unit.Prerequisites = req.Prerequisites
	unit.OrderHint = req.OrderHint
	unit.Tags = req.Tags
	unit.UpdatedAt = time.Now().UTC()

	// Persist unit and edges
	if err := h.unitStore.Update(r.Context(), unit); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("learning unit updated",
		slog.String("unit_id", unit.ID.String()),
		slog.Int("prerequisite_count", len(unit.Prerequisites)))
	shared.RespondWithJSON(w, r, http.StatusOK, unitToResponse(unit))
}

// DeleteUnit handles DELETE /units/{unitID} requests
// Deletion is refused with a conflict while other units still list this unit
// as a prerequisite.
func (h *UnitHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract unit ID from URL path
	unitID, ok := handlePathUUID(w, r, "unitID", log)
	if !ok {
		return
	}

	if err := h.unitStore.Delete(r.Context(), unitID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("learning unit deleted", slog.String("unit_id", unitID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// ListPrerequisites handles GET /units/{unitID}/prerequisites requests
// It returns the unit's direct prerequisite IDs in authored order.
func (h *UnitHandler) ListPrerequisites(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract unit ID from URL path
	unitID, ok := handlePathUUID(w, r, "unitID", log)
	if !ok {
		return
	}

	prerequisiteIDs, err := h.unitStore.ListPrerequisites(r.Context(), unitID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PrerequisitesResponse{
		UnitID:          unitID,
		PrerequisiteIDs: prerequisiteIDs,
	})
}

// unitToResponse converts a domain.LearningUnit to a UnitResponse
func unitToResponse(unit *domain.LearningUnit) UnitResponse {
	// Keep list fields non-nil so they serialize as [] rather than null
	prerequisites := unit.Prerequisites
	if prerequisites == nil {
		prerequisites = []uuid.UUID{}
	}
	tags := unit.Tags
	if tags == nil {
		tags = []string{}
	}

	return UnitResponse{
		ID:            unit.ID,
		Title:         unit.Title,
		Prerequisites: prerequisites,
		OrderHint:     unit.OrderHint,
		Tags:          tags,
		CreatedAt:     unit.CreatedAt,
		UpdatedAt:     unit.UpdatedAt,
	}
}
