package ai

import (
	"context"
	"os"
	"testing"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCounter_RequestLimit(t *testing.T) {
	tc := NewTokenCounter(RateLimits{RPM: 2, TPM: 1000, RPD: 10})

	require.True(t, tc.CanConsume(10, 1))
	tc.RecordUsage(10, 1)
	require.True(t, tc.CanConsume(10, 1))
	tc.RecordUsage(10, 1)

	assert.False(t, tc.CanConsume(10, 1))
}

func TestTokenCounter_MinuteWindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tc := NewTokenCounter(RateLimits{RPM: 1, TPM: 100, RPD: 10})
	tc.now = func() time.Time { return now }
	tc.lastMinuteReset, tc.lastDayReset = now, now

	tc.RecordUsage(50, 1)
	assert.False(t, tc.CanConsume(1, 1))

	now = now.Add(61 * time.Second)
	assert.True(t, tc.CanConsume(1, 1))
}

func TestTokenCounter_TokenLimit(t *testing.T) {
	tc := NewTokenCounter(RateLimits{RPM: 100, TPM: 100, RPD: 100})
	assert.False(t, tc.CanConsume(101, 1))
}

func TestGetRateLimits_UnknownTierIsFree(t *testing.T) {
	assert.Equal(t, getRateLimits("free"), getRateLimits("enterprise"))
	assert.Equal(t, 1000, getRateLimits("tier1").RPM)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`[{"text":`), genai.Text(`"Acme"}]`)}},
		}},
	}
	assert.Equal(t, `[{"text":"Acme"}]`, responseText(resp))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))
	assert.Equal(t, 4, extractTokenUsage(resp))
}

func TestGenerateJSON_Live(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	gc, err := NewGeminiClient(context.Background(), GeminiOptions{APIKey: os.Getenv("GEMINI_API_KEY")})
	require.NoError(t, err)
	defer gc.Close()

	out, err := gc.GenerateJSON(context.Background(), "Reply with JSON only.", `Return {"ok": true}`)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}
