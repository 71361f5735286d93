package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	appintegration "github.com/erp/connector/internal/application/integration"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/infrastructure/telemetry"
)

// QueueProcessor processes every queue of one kind that still has draft lines
type QueueProcessor interface {
	AutoProcessQueues(ctx context.Context) ([]appintegration.QueueRunResult, error)
}

// QueueJobExecutor dispatches auto-process jobs to the processor of their queue kind
type QueueJobExecutor struct {
	processors map[integration.QueueKind]QueueProcessor
	logger     *zap.Logger
}

// NewQueueJobExecutor creates an executor backed by the order and customer queue services
func NewQueueJobExecutor(orders, customers QueueProcessor, logger *zap.Logger) *QueueJobExecutor {
	processors := make(map[integration.QueueKind]QueueProcessor, 2)
	if orders != nil {
		processors[integration.QueueKindOrder] = orders
	}
	if customers != nil {
		processors[integration.QueueKindCustomer] = customers
	}
	return &QueueJobExecutor{processors: processors, logger: logger}
}

// Execute runs AutoProcessQueues for the job's kind and logs a summary
func (e *QueueJobExecutor) Execute(ctx context.Context, job *Job) error {
	processor, ok := e.processors[job.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoProcessor, job.Kind)
	}

	var (
		results []appintegration.QueueRunResult
		err     error
	)
	telemetry.WithProfileLabels(ctx, func(ctx context.Context) {
		results, err = processor.AutoProcessQueues(ctx)
	}, "queue_kind", string(job.Kind))
	if err != nil {
		return fmt.Errorf("auto-process %s queues: %w", job.Kind, err)
	}
	if len(results) == 0 {
		return nil
	}

	var done, skipped, failed, locked int
	for _, r := range results {
		done += r.Done
		skipped += r.Skipped
		failed += r.Failed
		locked += r.Locked
	}
	e.logger.Info("Auto-processed queues",
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.Int("queues", len(results)),
		zap.Int("done", done),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("locked", locked),
	)
	return nil
}
