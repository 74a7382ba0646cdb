package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const maxCapturedError = 4 << 10

// errorCaptureWriter keeps the start of the response body so failures can be logged
// with their detail.
type errorCaptureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *errorCaptureWriter) Write(b []byte) (int, error) {
	if w.Status() >= 400 && w.buf.Len() < maxCapturedError {
		n := min(len(b), maxCapturedError-w.buf.Len())
		w.buf.Write(b[:n])
	}
	return w.ResponseWriter.Write(b)
}

// AuditMiddleware writes one structured log line per request: the route, the resource
// it touched, the outcome and, for failures, the error code and detail returned.
func AuditMiddleware(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		writer := &errorCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []any{
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"route", route,
			"action", mapHTTPMethodToAction(c.Request.Method),
			"resource", extractResourceFromPath(route),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"bytes_in", c.Request.ContentLength,
			"bytes_out", c.Writer.Size(),
		}
		if status >= 400 {
			code, detail := extractErrorFromResponse(writer.buf.Bytes())
			attrs = append(attrs, "error_code", code, "detail", detail)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("request failed", attrs...)
		case status >= 400:
			logger.Warn("request rejected", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

// mapHTTPMethodToAction maps HTTP methods to audit actions
func mapHTTPMethodToAction(method string) string {
	switch method {
	case "GET", "HEAD":
		return "READ"
	case "POST":
		return "CREATE"
	case "PUT", "PATCH":
		return "UPDATE"
	case "DELETE":
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// extractResourceFromPath names what a route operates on.
func extractResourceFromPath(route string) string {
	switch {
	case strings.HasPrefix(route, "/parse_resume"):
		return "resume"
	case strings.HasPrefix(route, "/extract_entities/tasks"):
		return "task"
	case strings.HasPrefix(route, "/extract_entities"):
		return "entities"
	case strings.HasPrefix(route, "/download_results"):
		return "export"
	case route == "/health", route == "/ready":
		return "probe"
	default:
		return "other"
	}
}

// extractErrorFromResponse reads the error_code and detail of a JSON error body.
func extractErrorFromResponse(body []byte) (string, string) {
	var resp struct {
		Detail    string `json:"detail"`
		ErrorCode string `json:"error_code"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", ""
	}
	if resp.Detail == "" {
		resp.Detail = resp.Error
	}
	return resp.ErrorCode, resp.Detail
}

func (w *errorCaptureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
