package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeGenerate is the asynq task type for generation jobs.
const TaskTypeGenerate = "audiogen:generate"

type generateTaskPayload struct {
	JobID string `json:"job_id"`
}

// NewGenerateTask builds the asynq task for a submitted job. The task
// carries only the job ID; the worker loads the request payload from the
// job store.
func NewGenerateTask(jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(generateTaskPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeGenerate, payload), nil
}

// JobIDFromTask extracts the job ID from a generation task.
func JobIDFromTask(t *asynq.Task) (string, error) {
	var p generateTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return "", fmt.Errorf("unmarshal task payload: %w", err)
	}
	if p.JobID == "" {
		return "", fmt.Errorf("task payload missing job_id")
	}
	return p.JobID, nil
}

// AsynqEnqueuer pushes generation tasks onto the Redis-backed queue.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) Enqueue(ctx context.Context, jobID string) error {
	task, err := NewGenerateTask(jobID)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		return err
	}
	log.Printf("[Jobs] enqueued task=%s queue=%s job=%s", info.ID, info.Queue, jobID)
	return nil
}

// InlineEnqueuer runs the worker in-process. Used when Redis is not
// available and in tests.
type InlineEnqueuer struct {
	Process func(ctx context.Context, jobID string) error
}

func (e *InlineEnqueuer) Enqueue(_ context.Context, jobID string) error {
	go func() {
		if err := e.Process(context.Background(), jobID); err != nil {
			log.Printf("[Jobs] inline worker job=%s: %v", jobID, err)
		}
	}()
	return nil
}
