package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mirrah-art/custody-ledger/internal/domain"
	"github.com/mirrah-art/custody-ledger/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest    ErrorCode = "bad_request"
	errCodeNotFound      ErrorCode = "not_found"
	errCodeUnauthorized  ErrorCode = "unauthorized"
	errCodeForbidden     ErrorCode = "forbidden"
	errCodeNotForSale    ErrorCode = "not_for_sale"
	errCodeUnknownCcy    ErrorCode = "unknown_currency"
	errCodeWorkInProg    ErrorCode = "work_in_progress"
	errCodeTerminalStage ErrorCode = "terminal_stage"
	errCodeInvalidStage  ErrorCode = "invalid_stage"
	errCodeArityMismatch ErrorCode = "arity_mismatch"
	errCodePaymentFailed ErrorCode = "payment_failed"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}
	if len(details) > 0 {
		response.Error.Details = details[0]
	}
	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondInternalError sends a 500 Internal Server Error response and logs
// the error
func respondInternalError(c *gin.Context, err error) {
	logger.Error(err, zap.String("path", c.Request.URL.Path))
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, "Internal server error")
}

// respondDomainError maps a ledger failure kind to its HTTP shape. Every
// validated precondition in the engine fails with exactly one of these.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Asset not found")
	case errors.Is(err, domain.ErrNotOwner):
		respondWithError(c, http.StatusForbidden, errCodeForbidden, "Not owner")
	case errors.Is(err, domain.ErrNotAdminOrOwner):
		respondWithError(c, http.StatusForbidden, errCodeForbidden, "Not admin or owner")
	case errors.Is(err, domain.ErrNotForSale):
		respondWithError(c, http.StatusConflict, errCodeNotForSale, "Asset not for sale")
	case errors.Is(err, domain.ErrUnknownCurrency):
		respondWithError(c, http.StatusBadRequest, errCodeUnknownCcy, "Unknown currency index")
	case errors.Is(err, domain.ErrWorkInProgress):
		respondWithError(c, http.StatusConflict, errCodeWorkInProg, "A request is already pending for this asset")
	case errors.Is(err, domain.ErrTerminalStage):
		respondWithError(c, http.StatusConflict, errCodeTerminalStage, "Stage is terminal")
	case errors.Is(err, domain.ErrInvalidStage):
		respondWithError(c, http.StatusBadRequest, errCodeInvalidStage, "Invalid stage")
	case errors.Is(err, domain.ErrArityMismatch):
		respondWithError(c, http.StatusBadRequest, errCodeArityMismatch, "Currency list arity mismatch")
	case errors.Is(err, domain.ErrInsufficientAllowance), errors.Is(err, domain.ErrInsufficientBalance):
		// adapter errors propagate unmodified in the detail
		respondWithError(c, http.StatusPaymentRequired, errCodePaymentFailed, "Payment failed", err.Error())
	default:
		respondInternalError(c, err)
	}
}
