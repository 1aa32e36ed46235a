package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lumolearn/lumo-core/internal/api/shared"
	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/lumolearn/lumo-core/internal/redact"
	"github.com/lumolearn/lumo-core/internal/service/review"
)

// defaultSessionLimit is the batch size used when the request does not name
// one. Matches the store's due-query default.
const defaultSessionLimit = 20

// ReviewStateResponse represents the response data for a single review state
type ReviewStateResponse struct {
	LearnerID      string     `json:"learner_id"`
	ItemID         string     `json:"item_id"`
	EaseFactor     float64    `json:"ease_factor"`
	Repetitions    int        `json:"repetitions"`
	IntervalDays   float64    `json:"interval_days"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"` // null until the first grade
	NextReviewAt   time.Time  `json:"next_review_at"`
	Status         string     `json:"status"`
	Version        int64      `json:"version"`
}

// SessionItemResponse pairs a review state with its scheduler classification
type SessionItemResponse struct {
	State          ReviewStateResponse `json:"state"`
	Classification string              `json:"classification"`
}

// SessionResponse represents the response data for a review session batch
type SessionResponse struct {
	LearnerID string                `json:"learner_id"`
	StartedAt time.Time             `json:"started_at"`
	Items     []SessionItemResponse `json:"items"`
}

// ReviewHandler handles review-session HTTP requests
type ReviewHandler struct {
	reviewService review.ReviewService
	logger        *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(
	reviewService review.ReviewService,
	logger *slog.Logger,
) *ReviewHandler {
	if reviewService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("reviewService cannot be nil for ReviewHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger.With(slog.String("component", "review_handler")),
	}
}

// StartSession handles GET /learners/{learnerID}/session requests
// It assembles a fixed batch of due items for the learner, up to the limit
// query parameter.
func (h *ReviewHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract learner ID from URL path
	learnerID, ok := handlePathUUID(w, r, "learnerID", log)
	if !ok {
		return
	}

	// Parse the optional limit query parameter
	limit := defaultSessionLimit
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			log.Warn("invalid limit parameter", slog.String("limit", rawLimit))
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	log.Debug("starting review session",
		slog.String("learner_id", learnerID.String()),
		slog.Int("limit", limit))

	// Assemble the batch from the service
	session, err := h.reviewService.StartSession(r.Context(), learnerID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Transform domain object to response
	response := sessionToResponse(session)

	log.Debug("successfully started review session",
		slog.String("learner_id", learnerID.String()),
		slog.Int("item_count", len(response.Items)))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// SubmitGradeRequest represents the request body for submitting a recall grade.
// Grade is a pointer so a submitted 0 is distinguishable from a missing field.
type SubmitGradeRequest struct {
	Grade *int `json:"grade" validate:"required,min=0,max=5"`
}

// SubmitGrade handles POST /learners/{learnerID}/items/{itemID}/grade requests
// It applies a 0-5 recall grade to the item and returns the recomputed state.
func (h *ReviewHandler) SubmitGrade(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract learner and item IDs from URL path
	learnerID, ok := handlePathUUID(w, r, "learnerID", log)
	if !ok {
		return
	}
	itemID, ok := handlePathUUID(w, r, "itemID", log)
	if !ok {
		return
	}

	// Parse request body
	var req SubmitGradeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Apply the grade through the service
	state, err := h.reviewService.SubmitGrade(
		r.Context(),
		learnerID,
		itemID,
		domain.Grade(*req.Grade),
		time.Now().UTC(),
	)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Transform domain object to response
	response := reviewStateToResponse(state)

	log.Debug("successfully submitted grade",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int("grade", *req.Grade))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// PostponeRequest represents the request body for postponing an item's next
// review. Days is a pointer so zero is rejected by validation, not defaulted.
type PostponeRequest struct {
	Days *int `json:"days" validate:"required,min=1"`
}

// PostponeItem handles POST /learners/{learnerID}/items/{itemID}/postpone
// requests. It pushes the item's next review forward by whole days.
func (h *ReviewHandler) PostponeItem(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract learner and item IDs from URL path
	learnerID, ok := handlePathUUID(w, r, "learnerID", log)
	if !ok {
		return
	}
	itemID, ok := handlePathUUID(w, r, "itemID", log)
	if !ok {
		return
	}

	// Parse request body
	var req PostponeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID.String()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Postpone through the service
	state, err := h.reviewService.PostponeItem(
		r.Context(),
		learnerID,
		itemID,
		*req.Days,
		time.Now().UTC(),
	)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Transform domain object to response
	response := reviewStateToResponse(state)

	log.Debug("successfully postponed item",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int("days", *req.Days))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// CompleteUnit handles POST /learners/{learnerID}/units/{unitID}/complete
// requests. It records the completion, which is idempotent, and returns no
// body.
func (h *ReviewHandler) CompleteUnit(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract learner and unit IDs from URL path
	learnerID, ok := handlePathUUID(w, r, "learnerID", log)
	if !ok {
		return
	}
	unitID, ok := handlePathUUID(w, r, "unitID", log)
	if !ok {
		return
	}

	// Record the completion through the service
	if _, err := h.reviewService.CompleteUnit(r.Context(), learnerID, unitID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("successfully recorded unit completion",
		slog.String("learner_id", learnerID.String()),
		slog.String("unit_id", unitID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// reviewStateToResponse converts a domain.ReviewState to a ReviewStateResponse
func reviewStateToResponse(state *domain.ReviewState) ReviewStateResponse {
	var lastReviewedAt *time.Time
	if !state.LastReviewedAt.IsZero() {
		t := state.LastReviewedAt
		lastReviewedAt = &t
	}

	return ReviewStateResponse{
		LearnerID:      state.LearnerID.String(),
		ItemID:         state.ItemID.String(),
		EaseFactor:     state.EaseFactor,
		Repetitions:    state.Repetitions,
		IntervalDays:   state.IntervalDays,
		LastReviewedAt: lastReviewedAt,
		NextReviewAt:   state.NextReviewAt,
		Status:         string(state.Status),
		Version:        state.Version,
	}
}

// sessionToResponse converts a review.ReviewSession to a SessionResponse
func sessionToResponse(session *review.ReviewSession) SessionResponse {
	items := make([]SessionItemResponse, 0, len(session.Items))
	for _, item := range session.Items {
		items = append(items, SessionItemResponse{
			State:          reviewStateToResponse(item.State),
			Classification: string(item.Classification),
		})
	}

	return SessionResponse{
		LearnerID: session.LearnerID.String(),
		StartedAt: session.StartedAt,
		Items:     items,
	}
}
