package queue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

// ErrTaskNotFound is returned for ids the queue does not know (or no longer retains).
var ErrTaskNotFound = errors.New("task not found")

// TaskStatus is the externally visible state of an extraction task.
type TaskStatus struct {
	ID        string                 `json:"task_id"`
	State     string                 `json:"state"`
	Retried   int                    `json:"retried"`
	LastError string                 `json:"last_error,omitempty"`
	Result    *ExtractEntitiesResult `json:"result,omitempty"`
}

// Client enqueues extraction tasks and reports their progress.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewClient(opt asynq.RedisClientOpt) *Client {
	return &Client{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
	}
}

// EnqueueExtraction schedules extraction of resumeID and returns the task id.
func (c *Client) EnqueueExtraction(ctx context.Context, resumeID string) (string, error) {
	task, err := NewExtractEntitiesTask(resumeID)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// Status looks up a task in the extraction queue.
func (c *Client) Status(id string) (*TaskStatus, error) {
	info, err := c.inspector.GetTaskInfo(QueueDefault, id)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	status := &TaskStatus{
		ID:        info.ID,
		State:     info.State.String(),
		Retried:   info.Retried,
		LastError: info.LastErr,
	}
	if len(info.Result) > 0 {
		var result ExtractEntitiesResult
		if err := json.Unmarshal(info.Result, &result); err == nil {
			status.Result = &result
		}
	}
	return status, nil
}

func (c *Client) Close() error {
	return errors.Join(c.client.Close(), c.inspector.Close())
}
