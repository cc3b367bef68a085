package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/cache"
	"LPPLWatch/pkg/logger"

	"github.com/google/uuid"
)

// ErrBatchInProgress is returned when another batch holds the run lock.
var ErrBatchInProgress = errors.New("batch already in progress")

const batchLockKey = "batch:lock"

// BatchRunner serializes batches across triggers (CLI, scheduler, API, queue)
// and across processes sharing the same cache, and remembers the last result.
type BatchRunner struct {
	orch    *RunOrchestrator
	locks   cache.Service
	lockTTL time.Duration
	logger  *logger.Logger

	mu      sync.Mutex
	running bool
	last    *models.BatchOutcome
	wg      sync.WaitGroup
}

func NewBatchRunner(orch *RunOrchestrator, locks cache.Service, l *logger.Logger) *BatchRunner {
	return &BatchRunner{orch: orch, locks: locks, lockTTL: 6 * time.Hour, logger: l}
}

// Run executes one batch synchronously.
func (b *BatchRunner) Run(ctx context.Context, symbols []string) (*models.BatchOutcome, error) {
	return b.RunWithID(ctx, uuid.New(), symbols)
}

// RunWithID executes one batch synchronously under the given run ID.
func (b *BatchRunner) RunWithID(ctx context.Context, runID uuid.UUID, symbols []string) (*models.BatchOutcome, error) {
	if err := b.claim(ctx); err != nil {
		return nil, err
	}
	defer b.release(ctx)
	return b.execute(ctx, runID, symbols), nil
}

// Trigger claims the batch slot, starts the batch in the background and
// returns its run ID. A second trigger while one is running gets
// ErrBatchInProgress.
func (b *BatchRunner) Trigger(ctx context.Context, symbols []string) (string, error) {
	if err := b.claim(ctx); err != nil {
		return "", err
	}
	runID := uuid.New()
	bg := context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.release(bg)
		b.execute(bg, runID, symbols)
	}()
	return runID.String(), nil
}

// claim marks the runner busy and takes the shared lock when one is configured.
func (b *BatchRunner) claim(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return ErrBatchInProgress
	}
	b.running = true
	b.mu.Unlock()

	if b.locks == nil {
		return nil
	}
	ok, err := b.locks.TryLock(ctx, batchLockKey, b.lockTTL)
	if err == nil && ok {
		return nil
	}
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("acquire batch lock: %w", err)
	}
	return ErrBatchInProgress
}

func (b *BatchRunner) release(ctx context.Context) {
	if b.locks != nil {
		if err := b.locks.Unlock(context.WithoutCancel(ctx), batchLockKey); err != nil {
			b.logger.Warn("release batch lock failed", logger.Error(err))
		}
	}
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
}

func (b *BatchRunner) execute(ctx context.Context, runID uuid.UUID, symbols []string) *models.BatchOutcome {
	outcome := b.orch.RunBatchWithID(ctx, runID, symbols)
	b.mu.Lock()
	b.last = outcome
	b.mu.Unlock()
	return outcome
}

// Schedule runs a batch every interval until ctx is done.
func (b *BatchRunner) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := b.Run(ctx, nil); err != nil {
				b.logger.Warn("scheduled batch skipped", logger.Error(err))
			}
		}
	}
}

// Wait blocks until background batches started by Trigger finish.
func (b *BatchRunner) Wait() { b.wg.Wait() }

// Last returns the most recent finished batch, or nil.
func (b *BatchRunner) Last() *models.BatchOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
