// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Warning string      `json:"warning,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessResponseWithWarning reports a successful mutation carrying a
// caveat (e.g. "requires re-approval") distinct from a hard error.
func SuccessResponseWithWarning(c *gin.Context, data interface{}, warning string) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Warning: warning,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	if message == "" {
		message = "invalid request"
	}
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	ErrorResponse(c, http.StatusUnauthorized, string(apperrors.CodeAuthentication), message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = "access denied"
	}
	ErrorResponse(c, http.StatusForbidden, string(apperrors.CodePermission), message, nil)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, string(apperrors.CodeNotFound), resource+" not found", nil)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	ErrorResponse(c, http.StatusBadRequest, string(apperrors.CodeValidation), "input validation failed", errors)
}

// AppErrorResponse maps a typed service error to its HTTP status. Storage
// errors are logged with operation context and surfaced generically.
func AppErrorResponse(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	message := apperrors.MessageOf(err)

	switch code {
	case apperrors.CodeAuthentication:
		ErrorResponse(c, http.StatusUnauthorized, string(code), message, nil)
	case apperrors.CodePermission:
		ErrorResponse(c, http.StatusForbidden, string(code), message, nil)
	case apperrors.CodeValidation:
		ErrorResponse(c, http.StatusBadRequest, string(code), message, nil)
	case apperrors.CodeNotFound:
		ErrorResponse(c, http.StatusNotFound, string(code), message, nil)
	case apperrors.CodeInvalidState:
		ErrorResponse(c, http.StatusConflict, string(code), message, nil)
	case apperrors.CodeConflict:
		ErrorResponse(c, http.StatusConflict, string(code), message, nil)
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed with storage error")
		ErrorResponse(c, http.StatusInternalServerError, string(apperrors.CodeStorage), message, nil)
	}
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userID, exists := c.Get("user_id"); exists {
		if userIDStr, ok := userID.(string); ok {
			return userIDStr, true
		}
	}
	return "", false
}

func GetUserRoleFromContext(c *gin.Context) (string, bool) {
	if role, exists := c.Get("user_role"); exists {
		if roleStr, ok := role.(string); ok {
			return roleStr, true
		}
	}
	return "", false
}
