// Package response writes the JSON envelope every API response uses:
// {"success": bool, "data": ..., "error": {"code", "message"}, "meta": ...}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stable machine-readable error codes.
const (
	CodeNoToken      = "NO_TOKEN"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeExpiredToken = "EXPIRED_TOKEN"
	CodeUnknownToken = "UNKNOWN_TOKEN"
	CodeRevokedToken = "REVOKED_TOKEN"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeInternal     = "INTERNAL_ERROR"

	CodeValidation               = "VALIDATION_ERROR"
	CodeNotFound                 = "NOT_FOUND"
	CodeEmailTaken               = "EMAIL_TAKEN"
	CodeInvalidCredentials       = "INVALID_CREDENTIALS"
	CodeInvalidVerificationToken = "INVALID_VERIFICATION_TOKEN"
	CodeAlreadyApplied           = "ALREADY_APPLIED"
	CodeJobClosed                = "JOB_CLOSED"
	CodeInvalidStatusChange      = "INVALID_STATUS_CHANGE"
	CodeRateLimited              = "RATE_LIMITED"
)

type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorData `json:"error,omitempty"`
	Meta    any        `json:"meta,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// Page is Success with pagination metadata.
func Page(c *gin.Context, data, meta any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: meta})
}

func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	})
}

// InternalError never exposes err to the client.
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeValidation, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}
