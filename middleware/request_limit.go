package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-graph-service/utils"
)

// RequestSizeLimit rejects bodies larger than maxSize. Declared lengths are checked up
// front; chunked bodies are capped while being read.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				"request_too_large",
				"Request body exceeds maximum size")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
