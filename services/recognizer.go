package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"

	"resume-graph-service/models"
)

// EntityRecognizer finds named entities in plain text. Results follow document order
// with one entry per occurrence; deduplication is left to the entity store.
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]models.Entity, error)
	Name() string
}

// ProseRecognizer runs the averaged-perceptron NER model bundled with prose. The model
// ships inside the binary and is never retrained, so output is a pure function of text.
type ProseRecognizer struct {
	logger *slog.Logger
}

// NewProseRecognizer creates the offline recognizer and runs one document through the
// model so a broken model fails at startup rather than on the first request.
func NewProseRecognizer(logger *slog.Logger) (*ProseRecognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &ProseRecognizer{logger: logger}
	if _, err := r.Recognize(context.Background(), "Jane Doe joined Google in London."); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ProseRecognizer) Name() string { return "prose" }

// Recognize returns PERSON/GPE/ORG style spans in the order they appear.
func (r *ProseRecognizer) Recognize(ctx context.Context, text string) ([]models.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []models.Entity{}, nil
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("%w: prose: %v", ErrRecognizer, err)
	}

	ents := doc.Entities()
	out := make([]models.Entity, 0, len(ents))
	for _, ent := range ents {
		out = append(out, models.Entity{Name: ent.Text, Label: ent.Label})
	}
	return out, nil
}

type occurrence struct {
	start, end int
	entity     models.Entity
}

// expandOccurrences turns a list of distinct spans into one entity per occurrence in
// text, ordered by position. Longer spans claim overlapping text first, and matches
// must sit on word boundaries so "Al" is not found inside "Alabama".
func expandOccurrences(text string, spans []models.Entity) []models.Entity {
	candidates := make([]models.Entity, 0, len(spans))
	seen := make(map[models.Entity]bool, len(spans))
	for _, s := range spans {
		s.Name = strings.TrimSpace(s.Name)
		s.Label = strings.ToUpper(strings.TrimSpace(s.Label))
		if s.Name == "" || s.Label == "" || seen[s] {
			continue
		}
		seen[s] = true
		candidates = append(candidates, s)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].Name) > len(candidates[j].Name)
	})

	covered := make([]bool, len(text))
	var found []occurrence
	for _, c := range candidates {
		for offset := 0; offset < len(text); {
			i := strings.Index(text[offset:], c.Name)
			if i < 0 {
				break
			}
			start := offset + i
			end := start + len(c.Name)
			offset = end

			if !onWordBoundary(text, start, end) || anyCovered(covered, start, end) {
				continue
			}
			for k := start; k < end; k++ {
				covered[k] = true
			}
			found = append(found, occurrence{start: start, end: end, entity: c})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	out := make([]models.Entity, 0, len(found))
	for _, o := range found {
		out = append(out, o.entity)
	}
	return out
}

func anyCovered(covered []bool, start, end int) bool {
	for k := start; k < end; k++ {
		if covered[k] {
			return true
		}
	}
	return false
}

func onWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
