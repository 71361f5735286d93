package handler

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/interfaces/http/dto"
)

// RequestIDKey is both the gin context key and the header carrying the request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler writes the dto.Response envelope for every connector handler
type BaseHandler struct{}

// requestID prefers the ID set by the RequestID middleware over the raw header
func requestID(c *gin.Context) string {
	return cmp.Or(c.GetString(RequestIDKey), c.GetHeader(RequestIDKey))
}

// parseID parses the uuid path parameter and writes a 400 when it is malformed
func (h *BaseHandler) parseID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.BadRequest(c, fmt.Sprintf("Invalid %s ID format", label))
		return uuid.Nil, false
	}
	return id, true
}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta adds pagination meta to the envelope
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted answers operations that leave work queued, such as a pull that
// stored order lines without processing them
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) NoContent(c *gin.Context) { c.Status(http.StatusNoContent) }

func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, requestID(c)))
}

// ErrorWithCode derives the status from the error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID(c), details))
}

// BindError reports a ShouldBind* failure, with field details for validator errors
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]dto.ValidationDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   fieldName(fe),
				Message: validationMessage(fe),
			})
		}
		h.ValidationError(c, details)
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "Request body exceeds maximum allowed size")
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is not valid JSON: "+err.Error())
		return
	}
	h.BadRequest(c, err.Error())
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	return strings.ToLower(ns)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "price_mode":
		return "must be FIXED or PROPORTIONAL"
	case "sku":
		return "must not contain whitespace"
	default:
		return "failed the " + fe.Tag() + " rule"
	}
}

// HandleError maps wrapped sentinel and domain errors to HTTP responses.
// Anything unrecognized is reported as an internal error without details.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if code, ok := dto.SentinelErrorCode(err); ok {
		h.ErrorWithCode(c, code, err.Error())
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, dto.DomainErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	_ = c.Error(err)
	h.InternalError(c, "An unexpected error occurred")
}
