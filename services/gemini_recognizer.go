package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"resume-graph-service/models"
)

const nerSystemPrompt = `You are a named entity recognizer. Label spans with exactly one of:
PERSON, NORP, FAC, ORG, GPE, LOC, PRODUCT, EVENT, WORK_OF_ART, LAW, LANGUAGE, DATE, TIME,
PERCENT, MONEY, QUANTITY, ORDINAL, CARDINAL.
Return a JSON array of objects {"text": "...", "label": "..."}, one per distinct span.
"text" must be copied character for character from the input. Return [] when nothing matches.`

// JSONGenerator is the slice of the Gemini client the recognizer needs.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, prompt string) (string, error)
	Model() string
}

// GeminiRecognizer asks a pinned Gemini model for the distinct entity spans of a text at
// temperature 0, then locates every occurrence itself so ordering and per-occurrence
// output never depend on how the model lists its answer.
type GeminiRecognizer struct {
	client  JSONGenerator
	chunker *TextChunker
	logger  *slog.Logger
}

// Long resumes are sent in several prompts.
const (
	geminiChunkSize    = 16000
	geminiChunkOverlap = 200
)

func NewGeminiRecognizer(client JSONGenerator, logger *slog.Logger) *GeminiRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiRecognizer{
		client:  client,
		chunker: NewTextChunker(geminiChunkSize, geminiChunkOverlap),
		logger:  logger,
	}
}

// WithChunker replaces the prompt chunker.
func (r *GeminiRecognizer) WithChunker(c *TextChunker) *GeminiRecognizer {
	r.chunker = c
	return r
}

func (r *GeminiRecognizer) Name() string { return "gemini:" + r.client.Model() }

type geminiSpan struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

func (r *GeminiRecognizer) Recognize(ctx context.Context, text string) ([]models.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return []models.Entity{}, nil
	}

	chunks := r.chunker.Chunk(text)

	// A span reported by several chunks keeps the label of the first.
	seen := make(map[string]bool)
	var entities []models.Entity
	for i, chunk := range chunks {
		raw, err := r.client.GenerateJSON(ctx, nerSystemPrompt, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d/%d: %v", ErrRecognizer, i+1, len(chunks), err)
		}

		spans, err := parseSpans(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d/%d: %v", ErrRecognizer, i+1, len(chunks), err)
		}

		for _, s := range spans {
			if s.Text == "" || seen[s.Text] {
				continue
			}
			seen[s.Text] = true
			entities = append(entities, models.Entity{Name: s.Text, Label: s.Label})
		}
	}

	out := expandOccurrences(text, entities)
	r.logger.Debug("gemini entities recognized", "chunks", len(chunks), "spans", len(entities), "occurrences", len(out))
	return out, nil
}

// parseSpans accepts a bare array or an object wrapping it under "entities", and
// tolerates a markdown code fence around the JSON.
func parseSpans(raw string) ([]geminiSpan, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var spans []geminiSpan
	if err := json.Unmarshal([]byte(raw), &spans); err == nil {
		return spans, nil
	}

	var wrapped struct {
		Entities []geminiSpan `json:"entities"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, fmt.Errorf("decode model output: %v", err)
	}
	return wrapped.Entities, nil
}
