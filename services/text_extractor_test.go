package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-graph-service/internal/testutil"
)

func TestPDFTextExtractor_SinglePage(t *testing.T) {
	e := NewPDFTextExtractor(nil)

	text, err := e.ExtractText(context.Background(), testutil.TextPDF("Jane Doe, Software Engineer at Acme"))
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe, Software Engineer at Acme")
}

func TestPDFTextExtractor_PagesInOrder(t *testing.T) {
	e := NewPDFTextExtractor(nil)

	text, err := e.ExtractText(context.Background(), testutil.TextPDF("Experience in London", "Education in Paris"))
	require.NoError(t, err)

	first := strings.Index(text, "Experience in London")
	second := strings.Index(text, "Education in Paris")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
	assert.Contains(t, text[first:second], pageBreak)
}

func TestPDFTextExtractor_Deterministic(t *testing.T) {
	e := NewPDFTextExtractor(nil)
	doc := testutil.TextPDF("John Smith (Washington)")

	a, err := e.ExtractText(context.Background(), doc)
	require.NoError(t, err)
	b, err := e.ExtractText(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "John Smith (Washington)")
}

func TestPDFTextExtractor_Invalid(t *testing.T) {
	e := NewPDFTextExtractor(nil)
	valid := testutil.TextPDF("Jane Doe")

	cases := map[string][]byte{
		"empty":     nil,
		"not a pdf": []byte("this is a plain text file, not a document"),
		"truncated": valid[:len(valid)/2],
		"png":       {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			text, err := e.ExtractText(context.Background(), raw)
			assert.ErrorIs(t, err, ErrDocumentParse)
			assert.Empty(t, text)
		})
	}
}

func TestPDFTextExtractor_CanceledContext(t *testing.T) {
	e := NewPDFTextExtractor(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ExtractText(ctx, testutil.TextPDF("Jane Doe"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPDFTextExtractor_BlankPage(t *testing.T) {
	e := NewPDFTextExtractor(nil)

	text, err := e.ExtractText(context.Background(), testutil.TextPDF(""))
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(text))
}
