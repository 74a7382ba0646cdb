package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-graph-service/models"
	"resume-graph-service/services"
)

type fakeExtractor struct {
	got      string
	entities []models.Entity
	err      error
}

func (f *fakeExtractor) ExtractSession(_ context.Context, id string) ([]models.Entity, error) {
	f.got = id
	return f.entities, f.err
}

func TestNewExtractEntitiesTask(t *testing.T) {
	task, err := NewExtractEntitiesTask("abc")
	require.NoError(t, err)
	assert.Equal(t, TaskExtractEntities, task.Type())

	var payload ExtractEntitiesPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "abc", payload.ResumeID)
}

func TestProcessExtractEntities(t *testing.T) {
	ext := &fakeExtractor{entities: []models.Entity{{Name: "Jane Doe", Label: "PERSON"}}}
	p := NewTaskProcessor(ext, nil)

	task, err := NewExtractEntitiesTask("session-1")
	require.NoError(t, err)

	require.NoError(t, p.ProcessExtractEntities(context.Background(), task))
	assert.Equal(t, "session-1", ext.got)
}

func TestProcessExtractEntities_PreconditionSkipsRetry(t *testing.T) {
	p := NewTaskProcessor(&fakeExtractor{err: services.ErrUnknownSession}, nil)
	task, err := NewExtractEntitiesTask("gone")
	require.NoError(t, err)

	err = p.ProcessExtractEntities(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessExtractEntities_StoreErrorRetries(t *testing.T) {
	p := NewTaskProcessor(&fakeExtractor{err: errors.Join(services.ErrGraphStore, errors.New("down"))}, nil)
	task, err := NewExtractEntitiesTask("s")
	require.NoError(t, err)

	err = p.ProcessExtractEntities(context.Background(), task)
	assert.ErrorIs(t, err, services.ErrGraphStore)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessExtractEntities_BadPayload(t *testing.T) {
	p := NewTaskProcessor(&fakeExtractor{}, nil)

	err := p.ProcessExtractEntities(context.Background(), asynq.NewTask(TaskExtractEntities, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
