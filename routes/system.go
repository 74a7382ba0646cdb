package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-graph-service/utils"
)

// ReadinessCheck reports whether the service's backing store is reachable.
type ReadinessCheck func(ctx context.Context) error

type routeDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var routeDocs = []routeDoc{
	{"POST", "/parse_resume/", "Upload a resume (multipart field \"file\") and return its extracted text"},
	{"POST", "/extract_entities/", "Recognize entities in the latest resume and replace the stored graph"},
	{"GET", "/download_results/", "Download stored entities as CSV"},
	{"GET", "/download_results/xlsx", "Download stored entities as an Excel workbook"},
	{"POST", "/extract_entities/async", "Queue extraction of the latest resume (async extraction only)"},
	{"GET", "/extract_entities/tasks/:id", "Status and result of a queued extraction (async extraction only)"},
	{"GET", "/health", "Liveness probe"},
	{"GET", "/ready", "Readiness probe"},
}

// SetupSystemRoutes mounts the docs redirect, route listing and probes.
func SetupSystemRoutes(router gin.IRouter, serviceName string, ready ReadinessCheck) {
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/docs")
	})

	router.GET("/docs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"routes":  routeDocs,
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		if err := ready(ctx); err != nil {
			utils.RespondWithError(c, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
