package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TextChunker splits text into pieces of at most maxChunkSize bytes, preferring
// paragraph and then sentence boundaries. Consecutive chunks share up to overlap bytes
// so a span cut by a boundary still appears whole in one of them.
type TextChunker struct {
	maxChunkSize   int
	overlap        int
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

func NewTextChunker(maxChunkSize, overlap int) *TextChunker {
	if maxChunkSize < 1 {
		maxChunkSize = 1
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = 0
	}
	return &TextChunker{
		maxChunkSize:   maxChunkSize,
		overlap:        overlap,
		sentenceRegex:  regexp.MustCompile(`[.!?]+\s+`),
		paragraphRegex: regexp.MustCompile(`\n\s*\n+|\f`),
	}
}

// Chunk returns text unchanged when it fits, otherwise the packed chunks in order.
func (tc *TextChunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= tc.maxChunkSize {
		return []string{text}
	}

	var pieces []string
	for _, para := range tc.paragraphRegex.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= tc.maxChunkSize {
			pieces = append(pieces, para)
			continue
		}
		for _, sentence := range tc.sentences(para) {
			pieces = append(pieces, hardSplit(sentence, tc.maxChunkSize)...)
		}
	}

	var chunks []string
	var current strings.Builder
	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+2+len(piece) > tc.maxChunkSize {
			prev := current.String()
			chunks = append(chunks, prev)
			current.Reset()

			if tail := overlapTail(prev, tc.overlap); tail != "" && len(tail)+2+len(piece) <= tc.maxChunkSize {
				current.WriteString(tail)
			}
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func (tc *TextChunker) sentences(para string) []string {
	var out []string
	start := 0
	for _, loc := range tc.sentenceRegex.FindAllStringIndex(para, -1) {
		if s := strings.TrimSpace(para[start:loc[1]]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(para[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// hardSplit cuts s into pieces of at most max bytes, at the last space when there is
// one and never inside a UTF-8 sequence.
func hardSplit(s string, max int) []string {
	var out []string
	for len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if sp := strings.LastIndexByte(s[:cut], ' '); sp > 0 {
			cut = sp
		}
		if cut == 0 {
			// a single rune wider than max
			_, size := utf8.DecodeRuneInString(s)
			cut = size
		}
		out = append(out, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// overlapTail returns at most n trailing bytes of s, starting on a word.
func overlapTail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return ""
	}
	tail := s[len(s)-n:]
	if i := strings.IndexAny(tail, " \n"); i >= 0 {
		tail = tail[i+1:]
	} else {
		return ""
	}
	return strings.TrimSpace(tail)
}
