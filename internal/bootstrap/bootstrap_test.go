package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-graph-service/internal/config"
	"resume-graph-service/internal/testutil"
	"resume-graph-service/services"
)

func memoryConfig() *config.Config {
	return &config.Config{
		EntityStore:      config.StoreMemory,
		SessionStore:     config.SessionsMemory,
		Recognizer:       config.RecognizerProse,
		WorkerPoolSize:   2,
		OperationTimeout: time.Minute,
		MaxFileSize:      1 << 20,
	}
}

func TestBuild_MemoryBackends(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	comps, err := Build(context.Background(), memoryConfig(), logger, nil)
	require.NoError(t, err)
	defer comps.Close(context.Background())

	assert.IsType(t, &services.MemoryEntityStore{}, comps.Store)
	assert.IsType(t, &services.MemorySessionRegistry{}, comps.Registry)
	assert.Equal(t, "prose", comps.Recognizer.Name())
	assert.Nil(t, comps.Redis)

	res, err := comps.Pipeline.Upload(context.Background(), testutil.TextPDF("John Smith lives in Paris."))
	require.NoError(t, err)
	assert.Contains(t, res.ParsedResume, "John Smith")

	_, err = comps.Pipeline.ExtractEntities(context.Background())
	require.NoError(t, err)
	require.NoError(t, comps.Pipeline.Ready(context.Background()))
}

func TestComponentsClose_ReverseOrderAndJoinedErrors(t *testing.T) {
	var order []int
	errA := errors.New("a")
	errB := errors.New("b")

	comps := &Components{}
	comps.onClose(func(context.Context) error { order = append(order, 1); return errA })
	comps.onClose(func(context.Context) error { order = append(order, 2); return nil })
	comps.onClose(func(context.Context) error { order = append(order, 3); return errB })

	err := comps.Close(context.Background())
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	assert.NoError(t, comps.Close(context.Background()))
}
