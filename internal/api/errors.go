package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lumolearn/lumo-core/internal/api/shared"
	"github.com/lumolearn/lumo-core/internal/domain"
	"github.com/lumolearn/lumo-core/internal/domain/srs"
	"github.com/lumolearn/lumo-core/internal/planner"
	"github.com/lumolearn/lumo-core/internal/service/review"
	"github.com/lumolearn/lumo-core/internal/store"
)

// HandleAPIError writes a JSON error response for the given error, mapping it
// to a status code and a safe client message. A non-empty messageOverride
// replaces the derived message; the full error is logged, never returned.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, messageOverride string) {
	status := MapErrorToStatusCode(err)
	message := messageOverride
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, review.ErrItemNotFound),
		errors.Is(err, review.ErrUnitNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, review.ErrConflictRetriesExhausted),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrUnitHasDependents):
		return http.StatusConflict

	// Graph integrity errors: the stored prerequisite graph violates its own
	// rules, so the request is well-formed but cannot be processed.
	case errors.Is(err, planner.ErrGraphIntegrity):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, srs.ErrInvalidGrade),
		errors.Is(err, srs.ErrInvalidDays),
		errors.Is(err, domain.ErrInvalidGrade),
		errors.Is(err, review.ErrInvalidMaxItems),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidFormat):
		return http.StatusBadRequest

	// Domain validation errors reachable from client-supplied unit data or
	// identifiers
	case errors.Is(err, domain.ErrEmptyUnitID),
		errors.Is(err, domain.ErrEmptyUnitTitle),
		errors.Is(err, domain.ErrSelfPrerequisite),
		errors.Is(err, domain.ErrDuplicatePrerequisite),
		errors.Is(err, domain.ErrEmptyPrerequisiteID),
		errors.Is(err, domain.ErrEmptyReviewLearnerID),
		errors.Is(err, domain.ErrEmptyReviewItemID),
		errors.Is(err, domain.ErrEmptyCompletionLearnerID),
		errors.Is(err, domain.ErrEmptyCompletionUnitID):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	// Map specific error types to user-friendly messages
	switch {
	// Not found errors
	case errors.Is(err, review.ErrItemNotFound),
		errors.Is(err, store.ErrReviewStateNotFound):
		return "Review item not found"

	case errors.Is(err, review.ErrUnitNotFound),
		errors.Is(err, store.ErrUnitNotFound):
		return "Learning unit not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	// Conflict errors
	case errors.Is(err, review.ErrConflictRetriesExhausted):
		return "Too many concurrent updates for this item, please retry"

	case errors.Is(err, store.ErrUnitHasDependents):
		return "Learning unit still has dependent units"

	case errors.Is(err, store.ErrUnitExists):
		return "Learning unit already exists"

	case errors.Is(err, store.ErrReviewStateExists):
		return "Review state already exists"

	case errors.Is(err, store.ErrConflict):
		return "Conflicting update, please retry"

	case errors.Is(err, store.ErrDuplicate):
		return "Entity already exists"

	// Graph integrity errors carry only unit IDs and a short reason, both of
	// which the client needs to repair the graph.
	case errors.Is(err, planner.ErrGraphIntegrity):
		var integrityErr *planner.GraphIntegrityError
		if errors.As(err, &integrityErr) {
			return integrityErr.Error()
		}
		return "Prerequisite graph integrity violation"

	// Bad request errors
	case errors.Is(err, srs.ErrInvalidGrade),
		errors.Is(err, domain.ErrInvalidGrade):
		return "Grade must be between 0 and 5"

	case errors.Is(err, srs.ErrInvalidDays):
		return "Postpone days must be at least 1"

	case errors.Is(err, review.ErrInvalidMaxItems):
		return "Session size must be at least 1"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, domain.ErrEmptyUnitTitle):
		return "Unit title is required"

	case errors.Is(err, domain.ErrSelfPrerequisite):
		return "A unit cannot be its own prerequisite"

	case errors.Is(err, domain.ErrDuplicatePrerequisite):
		return "Prerequisites cannot contain duplicates"

	case errors.Is(err, domain.ErrEmptyUnitID),
		errors.Is(err, domain.ErrEmptyPrerequisiteID):
		return "Invalid unit data"

	case errors.Is(err, domain.ErrEmptyReviewLearnerID),
		errors.Is(err, domain.ErrEmptyReviewItemID),
		errors.Is(err, domain.ErrEmptyCompletionLearnerID),
		errors.Is(err, domain.ErrEmptyCompletionUnitID):
		return "Invalid identifier"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidFormat):
		return "Validation error"

	// Default case for unknown errors
	default:
		// Review service errors carry the failed operation, which is safe
		// to translate without exposing the underlying cause.
		var svcErr *review.ServiceError
		if errors.As(err, &svcErr) {
			switch svcErr.Operation {
			case "start_session":
				return "Failed to start review session"
			case "submit_grade":
				return "Failed to submit grade"
			case "postpone_item":
				return "Failed to postpone item"
			case "complete_unit":
				return "Failed to record unit completion"
			}
		}
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Extract the field name and validation tag
		// Example format: "Key: 'SubmitGradeRequest.Grade' Error:Field validation for 'Grade' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			// Further split to get just the field validation part
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				// Create a cleaner error message
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "value too small"
	case "max":
		return "value too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
