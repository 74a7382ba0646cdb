package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "release", "resume-graph-service")

	l.Info("resume parsed", "resume_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "resume parsed", line["msg"])
	assert.Equal(t, "abc", line["resume_id"])
	assert.Equal(t, "resume-graph-service", line["service"])
	assert.NotContains(t, line, "source")
}

func TestNew_ReleaseDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "release", "").Debug("hidden")
	assert.Empty(t, buf.String())

	buf.Reset()
	New(&buf, "debug", "").Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
