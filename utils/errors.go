package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request. Detail carries the
// human-readable message; ErrorCode classifies it.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, detail string) {
	c.JSON(statusCode, ErrorResponse{
		Detail:    detail,
		ErrorCode: errorCode,
	})
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, errorCode, detail string) {
	RespondWithError(c, http.StatusNotFound, errorCode, detail)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, errorCode, detail string) {
	RespondWithError(c, http.StatusInternalServerError, errorCode, detail)
}
