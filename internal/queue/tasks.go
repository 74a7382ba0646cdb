package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"resume-graph-service/models"
	"resume-graph-service/services"
)

const (
	TaskExtractEntities = "entities:extract"

	// QueueDefault is the only queue extraction tasks use.
	QueueDefault = "default"
)

type ExtractEntitiesPayload struct {
	ResumeID string `json:"resume_id"`
}

// ExtractEntitiesResult is written as the task result once extraction succeeds.
type ExtractEntitiesResult struct {
	ResumeID string      `json:"resume_id"`
	Entities [][2]string `json:"entities"`
}

// NewExtractEntitiesTask creates a task pinned to one session id, so the outcome does
// not depend on which upload is latest when a worker picks it up.
func NewExtractEntitiesTask(resumeID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExtractEntitiesPayload{ResumeID: resumeID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskExtractEntities,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueDefault),
		asynq.Retention(24*time.Hour),
	), nil
}

// SessionExtractor is the pipeline operation the worker runs.
type SessionExtractor interface {
	ExtractSession(ctx context.Context, id string) ([]models.Entity, error)
}

// Task handlers
type TaskProcessor struct {
	extractor SessionExtractor
	logger    *slog.Logger
}

func NewTaskProcessor(extractor SessionExtractor, logger *slog.Logger) *TaskProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskProcessor{extractor: extractor, logger: logger}
}

// Register mounts the processor's handlers on mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskExtractEntities, p.ProcessExtractEntities)
}

func (p *TaskProcessor) ProcessExtractEntities(ctx context.Context, t *asynq.Task) error {
	var payload ExtractEntitiesPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	p.logger.Info("processing entity extraction", "resume_id", payload.ResumeID)

	entities, err := p.extractor.ExtractSession(ctx, payload.ResumeID)
	if err != nil {
		// A missing session or text will not appear on retry.
		if services.IsPrecondition(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	result, err := json.Marshal(ExtractEntitiesResult{
		ResumeID: payload.ResumeID,
		Entities: models.Pairs(entities),
	})
	if err != nil {
		return err
	}
	if w := t.ResultWriter(); w != nil {
		if _, err := w.Write(result); err != nil {
			return fmt.Errorf("write task result: %w", err)
		}
	}

	p.logger.Info("entity extraction completed", "resume_id", payload.ResumeID, "entities", len(entities))
	return nil
}
