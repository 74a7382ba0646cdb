package routes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-graph-service/internal/queue"
	"resume-graph-service/models"
	"resume-graph-service/services"
	"resume-graph-service/utils"
)

const (
	csvFilename  = "neo4j_data.csv"
	xlsxFilename = "neo4j_data.xlsx"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExtractionQueue hands extraction to background workers.
type ExtractionQueue interface {
	EnqueueExtraction(ctx context.Context, resumeID string) (string, error)
	Status(id string) (*queue.TaskStatus, error)
}

// ResumeRoutesOptions configures SetupResumeRoutes. Queue may be nil, in which case the
// async endpoints are not mounted.
type ResumeRoutesOptions struct {
	MaxFileSize int64
	Queue       ExtractionQueue
	Logger      *slog.Logger
}

type resumeHandler struct {
	pipeline    *services.Pipeline
	queue       ExtractionQueue
	maxFileSize int64
	logger      *slog.Logger
}

// SetupResumeRoutes mounts the upload, extraction and export endpoints.
func SetupResumeRoutes(router gin.IRouter, pipeline *services.Pipeline, opts ResumeRoutesOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &resumeHandler{
		pipeline:    pipeline,
		queue:       opts.Queue,
		maxFileSize: opts.MaxFileSize,
		logger:      logger,
	}

	router.POST("/parse_resume/", h.parseResume)
	router.POST("/extract_entities/", h.extractEntities)
	router.GET("/download_results/", h.downloadCSV)
	router.GET("/download_results/xlsx", h.downloadXLSX)

	if h.queue != nil {
		router.POST("/extract_entities/async", h.extractEntitiesAsync)
		router.GET("/extract_entities/tasks/:id", h.taskStatus)
	}
}

func (h *resumeHandler) parseResume(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large", "File size exceeds maximum limit")
			return
		}
		utils.RespondWithError(c, http.StatusUnprocessableEntity, "no_file", "A resume must be sent in the multipart field \"file\"")
		return
	}
	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large", "File size exceeds maximum limit")
		return
	}

	file, err := header.Open()
	if err != nil {
		utils.RespondWithInternalError(c, "file_read_error", err.Error())
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		utils.RespondWithInternalError(c, "file_read_error", err.Error())
		return
	}

	res, err := h.pipeline.Upload(c.Request.Context(), raw)
	if err != nil {
		respondWithPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Resume uploaded and parsed successfully.",
		"resume_id":     res.ResumeID,
		"parsed_resume": res.ParsedResume,
	})
}

func (h *resumeHandler) extractEntities(c *gin.Context) {
	entities, err := h.pipeline.ExtractEntities(c.Request.Context())
	if err != nil {
		respondWithPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Entities extracted and stored successfully.",
		"entities": models.Pairs(entities),
	})
}

func (h *resumeHandler) downloadCSV(c *gin.Context) {
	out, err := h.pipeline.ExportCSV(c.Request.Context())
	if err != nil {
		respondWithPipelineError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+csvFilename+`"`)
	c.Data(http.StatusOK, "text/csv", out)
}

func (h *resumeHandler) downloadXLSX(c *gin.Context) {
	out, err := h.pipeline.ExportXLSX(c.Request.Context())
	if err != nil {
		respondWithPipelineError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+xlsxFilename+`"`)
	c.Data(http.StatusOK, xlsxMIME, out)
}

func (h *resumeHandler) extractEntitiesAsync(c *gin.Context) {
	ctx := c.Request.Context()

	// The task carries the session id so a later upload cannot change its input.
	resumeID, err := h.pipeline.LatestSession(ctx)
	if err != nil {
		respondWithPipelineError(c, err)
		return
	}

	taskID, err := h.queue.EnqueueExtraction(ctx, resumeID)
	if err != nil {
		h.logger.Error("failed to enqueue extraction", "resume_id", resumeID, "error", err)
		utils.RespondWithInternalError(c, "queue_error", "Failed to queue entity extraction")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Entity extraction queued.",
		"task_id":   taskID,
		"resume_id": resumeID,
	})
}

func (h *resumeHandler) taskStatus(c *gin.Context) {
	status, err := h.queue.Status(c.Param("id"))
	if errors.Is(err, queue.ErrTaskNotFound) {
		utils.RespondWithNotFound(c, "task_not_found", "Task not found")
		return
	}
	if err != nil {
		utils.RespondWithInternalError(c, "queue_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, status)
}

// respondWithPipelineError maps pipeline failures to status codes: missing sessions or
// text are 404, everything else 500.
func respondWithPipelineError(c *gin.Context, err error) {
	code := services.ErrorCode(err)
	switch {
	case errors.Is(err, services.ErrNoSession):
		utils.RespondWithNotFound(c, code, "No recent resume found")
	case errors.Is(err, services.ErrUnknownSession), errors.Is(err, services.ErrTextNotReady):
		utils.RespondWithNotFound(c, code, "Parsed resume not found")
	default:
		utils.RespondWithInternalError(c, code, err.Error())
	}
}
