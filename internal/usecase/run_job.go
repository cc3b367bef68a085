package usecase

import (
	"context"
	"encoding/json"

	"LPPLWatch/pkg/queue"

	"github.com/google/uuid"
)

// RunBatchMessage is the queue message type for batch requests.
const RunBatchMessage = "lppl.run_batch"

// runBatchPayload is the queued form of a batch request. RunID is assigned at
// enqueue time so the caller can correlate it with the finished batch.
type runBatchPayload struct {
	RunID   uuid.UUID `json:"run_id"`
	Symbols []string  `json:"symbols,omitempty"`
}

// RunBatchJob consumes queued batch requests.
type RunBatchJob struct {
	runner *BatchRunner
}

var _ queue.Job = (*RunBatchJob)(nil)

func NewRunBatchJob(runner *BatchRunner) *RunBatchJob {
	return &RunBatchJob{runner: runner}
}

func (j *RunBatchJob) Name() string { return "run_batch" }
func (j *RunBatchJob) Type() string { return RunBatchMessage }

// Handle returns ErrBatchInProgress when a batch is already running, so the
// queue schedules a retry.
func (j *RunBatchJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[runBatchPayload](payload)
	if err != nil {
		return err
	}
	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}
	_, err = j.runner.RunWithID(ctx, req.RunID, req.Symbols)
	return err
}

// QueueTrigger enqueues batch requests instead of running them in process.
type QueueTrigger struct {
	pub queue.Publisher
}

func NewQueueTrigger(pub queue.Publisher) *QueueTrigger {
	return &QueueTrigger{pub: pub}
}

// Trigger enqueues the request and returns the run ID the batch will carry.
func (t *QueueTrigger) Trigger(ctx context.Context, symbols []string) (string, error) {
	runID := uuid.New()
	if _, err := t.pub.Enqueue(ctx, RunBatchMessage, runBatchPayload{RunID: runID, Symbols: symbols}); err != nil {
		return "", err
	}
	return runID.String(), nil
}
