package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-graph-service/internal/telemetry"
	"resume-graph-service/internal/workers"
	"resume-graph-service/models"
	"resume-graph-service/utils"
)

const defaultOperationTimeout = 2 * time.Minute

// UploadResult is returned by Pipeline.Upload.
type UploadResult struct {
	ResumeID     string `json:"resume_id"`
	ParsedResume string `json:"parsed_resume"`
}

// PipelineOptions wires the pipeline's collaborators. Pool, Metrics and Logger are
// optional.
type PipelineOptions struct {
	Extractor        TextExtractor
	Recognizer       EntityRecognizer
	Store            EntityStore
	Registry         SessionRegistry
	Pool             *workers.Pool
	Metrics          *telemetry.Metrics
	Logger           *slog.Logger
	OperationTimeout time.Duration
}

// Pipeline orchestrates upload, entity extraction and export. Once started an
// operation runs to completion or failure even if the caller goes away; only the
// operation timeout bounds it.
type Pipeline struct {
	extractor  TextExtractor
	recognizer EntityRecognizer
	store      EntityStore
	registry   SessionRegistry
	pool       *workers.Pool
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	timeout    time.Duration
	tracer     trace.Tracer

	// storeMu keeps replace calls from this process from interleaving.
	storeMu sync.Mutex
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pool := opts.Pool
	if pool == nil {
		pool = workers.NewPool(1)
	}
	timeout := opts.OperationTimeout
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	return &Pipeline{
		extractor:  opts.Extractor,
		recognizer: opts.Recognizer,
		store:      opts.Store,
		registry:   opts.Registry,
		pool:       pool,
		metrics:    opts.Metrics,
		logger:     logger,
		timeout:    timeout,
		tracer:     otel.Tracer("resume-pipeline"),
	}
}

func (p *Pipeline) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
}

// Upload registers raw as a new session, extracts its text and makes it the latest
// session. A parse failure leaves the created session registered but never latest.
func (p *Pipeline) Upload(ctx context.Context, raw []byte) (*UploadResult, error) {
	ctx, cancel := p.operationContext(ctx)
	defer cancel()
	digest := utils.ShortHash(raw)
	ctx, span := p.tracer.Start(ctx, "pipeline.upload", trace.WithAttributes(
		attribute.Int("resume.bytes", len(raw)),
		attribute.String("resume.sha256", digest),
	))
	defer span.End()

	id, err := p.registry.Create(ctx, raw)
	if err != nil {
		return nil, p.fail(span, "create session", err)
	}
	span.SetAttributes(attribute.String("resume.id", id))

	start := time.Now()
	text, err := workers.Run(ctx, p.pool, func(ctx context.Context) (string, error) {
		return p.extractor.ExtractText(ctx, raw)
	})
	if err != nil {
		p.metrics.RecordDocumentParse(time.Since(start).Seconds(), "error")
		return nil, p.fail(span, "extract text", err)
	}
	p.metrics.RecordDocumentParse(time.Since(start).Seconds(), "ok")

	if err := p.registry.SetExtractedText(ctx, id, text); err != nil {
		return nil, p.fail(span, "store text", err)
	}
	if err := p.registry.MarkLatest(ctx, id); err != nil {
		return nil, p.fail(span, "mark latest", err)
	}

	p.logger.Info("resume uploaded", "resume_id", id, "sha256", digest, "bytes", len(raw), "chars", len(text))
	return &UploadResult{ResumeID: id, ParsedResume: text}, nil
}

// LatestSession returns the id extract would operate on right now.
func (p *Pipeline) LatestSession(ctx context.Context) (string, error) {
	return p.registry.Latest(ctx)
}

// ExtractEntities recognizes entities in the latest session's text, replaces the
// stored graph with them and returns the recognizer output as emitted.
func (p *Pipeline) ExtractEntities(ctx context.Context) ([]models.Entity, error) {
	id, err := p.registry.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return p.ExtractSession(ctx, id)
}

// ExtractSession runs extraction for a specific session id.
func (p *Pipeline) ExtractSession(ctx context.Context, id string) ([]models.Entity, error) {
	ctx, cancel := p.operationContext(ctx)
	defer cancel()
	ctx, span := p.tracer.Start(ctx, "pipeline.extract_entities", trace.WithAttributes(
		attribute.String("resume.id", id),
		attribute.String("recognizer", p.recognizer.Name()),
	))
	defer span.End()

	text, err := p.registry.ExtractedText(ctx, id)
	if err != nil {
		return nil, p.fail(span, "read text", err)
	}

	entities, err := workers.Run(ctx, p.pool, func(ctx context.Context) ([]models.Entity, error) {
		return p.recognizer.Recognize(ctx, text)
	})
	if err != nil {
		return nil, p.fail(span, "recognize", err)
	}
	p.metrics.RecordEntitiesRecognized(len(entities), p.recognizer.Name())

	if err := p.replaceAll(ctx, entities); err != nil {
		return nil, p.fail(span, "replace entities", err)
	}

	span.SetAttributes(attribute.Int("entities.count", len(entities)))
	p.logger.Info("entities extracted", "resume_id", id, "entities", len(entities))
	return entities, nil
}

func (p *Pipeline) replaceAll(ctx context.Context, entities []models.Entity) error {
	p.storeMu.Lock()
	defer p.storeMu.Unlock()

	err := p.store.ReplaceAll(ctx, entities)
	p.metrics.RecordStoreOperation("replace_all", err == nil)
	return err
}

func (p *Pipeline) readAll(ctx context.Context) ([]models.Entity, error) {
	entities, err := p.store.ReadAll(ctx)
	p.metrics.RecordStoreOperation("read_all", err == nil)
	return entities, err
}

// ExportCSV serializes the stored entities as name,label CSV.
func (p *Pipeline) ExportCSV(ctx context.Context) ([]byte, error) {
	ctx, cancel := p.operationContext(ctx)
	defer cancel()
	ctx, span := p.tracer.Start(ctx, "pipeline.export_csv")
	defer span.End()

	entities, err := p.readAll(ctx)
	if err != nil {
		return nil, p.fail(span, "read entities", err)
	}
	out, err := EncodeEntitiesCSV(entities)
	if err != nil {
		return nil, p.fail(span, "encode csv", err)
	}
	span.SetAttributes(attribute.Int("entities.count", len(entities)))
	return out, nil
}

// ExportXLSX serializes the stored entities as a workbook.
func (p *Pipeline) ExportXLSX(ctx context.Context) ([]byte, error) {
	ctx, cancel := p.operationContext(ctx)
	defer cancel()
	ctx, span := p.tracer.Start(ctx, "pipeline.export_xlsx")
	defer span.End()

	entities, err := p.readAll(ctx)
	if err != nil {
		return nil, p.fail(span, "read entities", err)
	}
	out, err := EncodeEntitiesXLSX(entities)
	if err != nil {
		return nil, p.fail(span, "encode xlsx", err)
	}
	return out, nil
}

// Ready reports whether the entity store is reachable.
func (p *Pipeline) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.store.Ping(ctx)
}

func (p *Pipeline) fail(span trace.Span, step string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, step)
	if IsPrecondition(err) {
		p.logger.Warn("pipeline precondition failed", "step", step, "error", err, "error_code", ErrorCode(err))
		return fmt.Errorf("%s: %w", step, err)
	}
	p.logger.Error("pipeline step failed", "step", step, "error", err, "error_code", ErrorCode(err))
	return fmt.Errorf("%s: %w", step, err)
}
