package handler

import (
	"errors"
	"net/http"

	"github.com/bizops/backend/internal/application/lifecycle"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/logger"
	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/bizops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		middleware.GetRequestID(c),
		details,
	))
}

// HandleError converts an error into the API envelope. Domain errors keep
// their message; anything else is logged and reported as internal.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		if code == dto.ErrCodeStoreUnavailable {
			logger.GetGinLogger(c).Warn("Store unavailable", zap.Error(err))
		}
		h.ErrorWithCode(c, code, domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// BindJSON decodes the request body into obj. It writes the error response
// and returns false when the body is oversized, malformed or fails binding
// rules.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &tooLarge):
		h.ErrorWithCode(c, dto.ErrCodeTooLarge, "Request body too large")
	case errors.As(err, &invalid):
		h.ValidationError(c, middleware.ValidationDetails(err))
	default:
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
	}
	return false
}

// Actor returns the authenticated actor, writing a 401 when there is none
func (h *BaseHandler) Actor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return identity.Actor{}, false
	}
	return actor, true
}

// Result sends a lifecycle result: 201 when something was created, 200
// otherwise.
func (h *BaseHandler) Result(c *gin.Context, res *lifecycle.Result) {
	if res.Outcome == lifecycle.OutcomeCreated {
		h.Created(c, dto.NewResultResponse(res))
		return
	}
	h.Success(c, dto.NewResultResponse(res))
}
