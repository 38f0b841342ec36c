package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusbus/internal/checkpoint"
	"campusbus/internal/entitlement"
	"campusbus/internal/ledger"
	"campusbus/internal/scan"
)

// respondError maps the domain error taxonomy onto HTTP statuses and surfaces
// the message verbatim; the operator decides whether to rescan or resubmit.
func respondError(c *gin.Context, err error) {
	c.JSON(httpStatus(err), gin.H{"error": err.Error()})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, checkpoint.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, checkpoint.ErrNotFound), errors.Is(err, entitlement.ErrNotFound), errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkpoint.ErrInvalidTransition),
		errors.Is(err, checkpoint.ErrConflictingSubmission),
		errors.Is(err, ledger.ErrAlreadyScanned):
		return http.StatusConflict
	case errors.Is(err, entitlement.ErrInvalid), errors.Is(err, scan.ErrPhaseMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkpoint.ErrNotOwner):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// resultLabel names the outcome for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, checkpoint.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, checkpoint.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, checkpoint.ErrConflictingSubmission):
		return "conflicting_submission"
	case errors.Is(err, checkpoint.ErrNotFound), errors.Is(err, entitlement.ErrNotFound):
		return "not_found"
	case errors.Is(err, entitlement.ErrInvalid):
		return "entitlement_invalid"
	case errors.Is(err, scan.ErrPhaseMismatch):
		return "phase_mismatch"
	case errors.Is(err, ledger.ErrAlreadyScanned):
		return "already_scanned"
	case errors.Is(err, checkpoint.ErrNotOwner):
		return "forbidden"
	default:
		return "error"
	}
}
