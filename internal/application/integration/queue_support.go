package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue defaults
const (
	DefaultQueueBatchSize   = 50
	DefaultQueueLockTTL     = 5 * time.Minute
	DefaultAutoProcessLimit = 20
)

// QueueOptions tunes queue creation and processing
type QueueOptions struct {
	// BatchSize is the maximum number of lines per queue
	BatchSize int
	// LockTTL bounds how long a worker may hold a queue line
	LockTTL time.Duration
	// AutoProcessLimit caps the queues picked per AutoProcessQueues run
	AutoProcessLimit int
	// Observer receives processing outcomes, e.g. for metrics
	Observer QueueObserver
}

// Line outcomes reported to a QueueObserver
const (
	OutcomeDone    = "done"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeLocked  = "locked"
)

// QueueObserver is notified about queue intake and line processing
type QueueObserver interface {
	LinesEnqueued(ctx context.Context, kind integration.QueueKind, count int)
	LineProcessed(ctx context.Context, kind integration.QueueKind, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) LinesEnqueued(context.Context, integration.QueueKind, int) {}

func (nopObserver) LineProcessed(context.Context, integration.QueueKind, string, time.Duration) {}

func (o QueueOptions) withDefaults() QueueOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultQueueBatchSize
	}
	if o.LockTTL <= 0 {
		o.LockTTL = DefaultQueueLockTTL
	}
	if o.AutoProcessLimit <= 0 {
		o.AutoProcessLimit = DefaultAutoProcessLimit
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

// queueItem is one inbound record ready to become a queue line
type queueItem struct {
	externalID string
	data       []byte
}

// enqueueItems splits items into queues of at most batchSize lines and skips
// records that already have a draft or done line.
func enqueueItems(
	ctx context.Context,
	queues integration.QueueRepository,
	instanceID uuid.UUID,
	kind integration.QueueKind,
	batchSize int,
	items []queueItem,
	observer QueueObserver,
) (*EnqueueResult, error) {
	result := &EnqueueResult{InstanceID: instanceID, Kind: kind, QueueIDs: []uuid.UUID{}}

	seen := make(map[string]struct{}, len(items))
	pending := make([]queueItem, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.externalID]; dup {
			result.Duplicates++
			continue
		}
		seen[item.externalID] = struct{}{}

		exists, err := queues.ExistsActiveLine(ctx, instanceID, kind, item.externalID)
		if err != nil {
			return nil, err
		}
		if exists {
			result.Duplicates++
			continue
		}
		pending = append(pending, item)
	}

	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		queue, err := integration.NewDataQueue(instanceID, kind, queueName(kind, batch))
		if err != nil {
			return nil, err
		}
		lines := make([]*integration.QueueLine, 0, len(batch))
		for _, item := range batch {
			line, err := integration.NewQueueLine(queue, item.externalID, item.data)
			if err != nil {
				return nil, err
			}
			lines = append(lines, line)
		}
		if err := queues.SaveQueueWithLines(ctx, queue, lines); err != nil {
			return nil, err
		}
		result.QueueIDs = append(result.QueueIDs, queue.ID)
		result.Enqueued += len(lines)
	}
	if result.Enqueued > 0 {
		observer.LinesEnqueued(ctx, kind, result.Enqueued)
	}
	return result, nil
}

func queueName(kind integration.QueueKind, batch []queueItem) string {
	if len(batch) == 1 {
		return fmt.Sprintf("%s %s", kind, batch[0].externalID)
	}
	return fmt.Sprintf("%s %s..%s", kind, batch[0].externalID, batch[len(batch)-1].externalID)
}

// withLineLock runs fn while holding the processing lock of a queue line.
// A nil lock runs fn unguarded.
func withLineLock(ctx context.Context, lock shared.ProcessingLock, lineID uuid.UUID, ttl time.Duration, fn func() error) error {
	if lock == nil {
		return fn()
	}
	key := "queue-line:" + lineID.String()
	acquired, err := lock.Acquire(ctx, key, ttl)
	if err != nil {
		return fmt.Errorf("acquire lock for queue line %s: %w", lineID, err)
	}
	if !acquired {
		return shared.ErrLocked
	}
	defer func() {
		// Release with a fresh context so a cancelled request still frees the line
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx, key)
	}()
	return fn()
}

// lineProcessor processes one queue line by id
type lineProcessor func(ctx context.Context, lineID uuid.UUID) (*LineResult, error)

// runQueue processes the draft lines of a queue in creation order, collecting
// failures without stopping, then flags the queue when lines failed.
func runQueue(
	ctx context.Context,
	queues integration.QueueRepository,
	queueID uuid.UUID,
	kind integration.QueueKind,
	process lineProcessor,
	observer QueueObserver,
	log *zap.Logger,
) (*QueueRunResult, error) {
	queue, err := queues.FindQueueByID(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if queue.Kind != kind {
		return nil, fmt.Errorf("%w: queue %s holds %s lines", integration.ErrQueueInvalidKind, queueID, queue.Kind)
	}
	ctx, log = logger.WithInstanceID(ctx, logger.Traced(ctx, log), queue.InstanceID.String())

	lines, err := queues.FindLinesByQueue(ctx, queueID, integration.QueueLineStateDraft)
	if err != nil {
		return nil, err
	}

	result := &QueueRunResult{QueueID: queueID, Failures: []LineFailure{}}
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		started := time.Now()
		lineResult, err := process(ctx, line.ID)
		var outcome string
		switch {
		case errors.Is(err, shared.ErrLocked):
			result.Locked++
			outcome = OutcomeLocked
		case err != nil:
			result.Failed++
			result.Failures = append(result.Failures, LineFailure{LineID: line.ID, ExternalID: line.ExternalID, Error: err.Error()})
			outcome = OutcomeFailed
		case lineResult != nil && lineResult.Skipped:
			result.Skipped++
			outcome = OutcomeSkipped
		default:
			result.Done++
			outcome = OutcomeDone
		}
		observer.LineProcessed(ctx, kind, outcome, time.Since(started))
	}

	summary, err := settleQueue(ctx, queues, queue)
	if err != nil {
		return nil, err
	}
	result.State = summary.State()
	result.ActionRequired = queue.IsActionRequired

	log.Info("queue processed",
		zap.String("queue_id", queueID.String()),
		zap.String("kind", string(kind)),
		zap.Int("done", result.Done),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("locked", result.Locked),
	)
	return result, nil
}

// settleQueue flags the queue action required while any of its lines failed,
// clears the flag otherwise, and saves it.
func settleQueue(ctx context.Context, queues integration.QueueRepository, queue *integration.DataQueue) (integration.QueueSummary, error) {
	summary, err := queues.SummarizeQueue(ctx, queue.ID)
	if err != nil {
		return integration.QueueSummary{}, err
	}
	if summary.Failed > 0 {
		queue.RequireAction()
	} else {
		queue.ClearActionRequired()
	}
	if err := queues.SaveQueue(ctx, queue); err != nil {
		return integration.QueueSummary{}, err
	}
	return summary, nil
}

// reprocessLine runs process for a single line outside a queue run, then
// settles the queue holding it. A locked line leaves the queue untouched.
func reprocessLine(
	ctx context.Context,
	queues integration.QueueRepository,
	lineID uuid.UUID,
	process lineProcessor,
	log *zap.Logger,
) (*LineResult, error) {
	line, err := queues.FindLineByID(ctx, lineID)
	if err != nil {
		return nil, err
	}

	result, processErr := process(ctx, lineID)
	if errors.Is(processErr, shared.ErrLocked) {
		return nil, processErr
	}

	queue, err := queues.FindQueueByID(ctx, line.QueueID)
	if err == nil {
		_, err = settleQueue(ctx, queues, queue)
	}
	if err != nil {
		if processErr != nil {
			logger.Traced(ctx, log).Error("failed to settle queue after line failure",
				zap.String("queue_id", line.QueueID.String()),
				zap.String("queue_line_id", lineID.String()),
				zap.Error(err),
			)
			return nil, processErr
		}
		return nil, err
	}
	if processErr != nil {
		return nil, processErr
	}
	result.QueueActionRequired = queue.IsActionRequired
	return result, nil
}

// autoProcess runs every queue of kind that holds draft lines, oldest first.
func autoProcess(
	ctx context.Context,
	queues integration.QueueRepository,
	kind integration.QueueKind,
	limit int,
	run func(ctx context.Context, queueID uuid.UUID) (*QueueRunResult, error),
	logger *zap.Logger,
) ([]QueueRunResult, error) {
	pending, err := queues.FindQueuesWithDraftLines(ctx, kind, limit)
	if err != nil {
		return nil, err
	}

	results := make([]QueueRunResult, 0, len(pending))
	for _, queue := range pending {
		if queue.IsActionRequired {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := run(ctx, queue.ID)
		if err != nil {
			logger.Error("queue run failed",
				zap.String("queue_id", queue.ID.String()),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}
