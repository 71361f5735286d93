package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderPage is one page of a storefront order search
type OrderPage struct {
	Orders     []json.RawMessage
	TotalCount int
}

// OrderSource pulls raw orders from a storefront
type OrderSource interface {
	// SearchOrders returns orders updated after since (all when nil), 1-indexed page
	SearchOrders(ctx context.Context, instance *integration.StorefrontInstance, since *time.Time, page int) (*OrderPage, error)
}

// OrderQueueService handles the order queue use cases
type OrderQueueService interface {
	EnqueueOrders(ctx context.Context, instanceID uuid.UUID, rawOrders []json.RawMessage) (*EnqueueResult, error)
	PullOrders(ctx context.Context, instanceID uuid.UUID) (*EnqueueResult, error)
	ProcessQueueLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error)
	ReprocessQueueLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error)
	ProcessQueue(ctx context.Context, queueID uuid.UUID) (*QueueRunResult, error)
	AutoProcessQueues(ctx context.Context) ([]QueueRunResult, error)
	CancelQueueLine(ctx context.Context, lineID uuid.UUID) (*QueueLineResponse, error)
	GetQueueLine(ctx context.Context, lineID uuid.UUID) (*QueueLineResponse, error)
	ListLogLines(ctx context.Context, lineID uuid.UUID) ([]LogLineResponse, error)
}

// OrderQueueServiceImpl implements OrderQueueService
type OrderQueueServiceImpl struct {
	instances integration.StorefrontInstanceRepository
	queues    integration.QueueRepository
	logLines  integration.LogLineRepository
	importer  OrderImporter
	lock      shared.ProcessingLock
	source    OrderSource
	opts      QueueOptions
	logger    *zap.Logger
}

// NewOrderQueueService creates a new OrderQueueServiceImpl. lock and source may be nil.
func NewOrderQueueService(
	instances integration.StorefrontInstanceRepository,
	queues integration.QueueRepository,
	logLines integration.LogLineRepository,
	importer OrderImporter,
	lock shared.ProcessingLock,
	source OrderSource,
	opts QueueOptions,
	logger *zap.Logger,
) *OrderQueueServiceImpl {
	return &OrderQueueServiceImpl{
		instances: instances,
		queues:    queues,
		logLines:  logLines,
		importer:  importer,
		lock:      lock,
		source:    source,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

// ---------------------------------------------------------------------------
// Intake
// ---------------------------------------------------------------------------

// EnqueueOrders stores raw storefront orders as draft queue lines. The whole
// batch is rejected with ErrInvalidPayload when any order is malformed.
func (s *OrderQueueServiceImpl) EnqueueOrders(ctx context.Context, instanceID uuid.UUID, rawOrders []json.RawMessage) (*EnqueueResult, error) {
	instance, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if err := instance.EnsureActive(); err != nil {
		return nil, err
	}

	items := make([]queueItem, 0, len(rawOrders))
	for i, raw := range rawOrders {
		payload, err := integration.ParseOrderPayload(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: order #%d: %v", integration.ErrInvalidPayload, i, err)
		}
		ref := strings.TrimSpace(payload.IncrementID)
		if ref == "" {
			return nil, fmt.Errorf("%w: order #%d has no increment_id", integration.ErrInvalidPayload, i)
		}
		items = append(items, queueItem{externalID: ref, data: raw})
	}

	result, err := enqueueItems(ctx, s.queues, instanceID, integration.QueueKindOrder, s.opts.BatchSize, items, s.opts.Observer)
	if err != nil {
		return nil, err
	}
	s.logger.Info("orders enqueued",
		zap.String("instance_id", instanceID.String()),
		zap.Int("enqueued", result.Enqueued),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("queues", len(result.QueueIDs)),
	)
	return result, nil
}

// PullOrders fetches orders updated since the instance watermark and enqueues them.
func (s *OrderQueueServiceImpl) PullOrders(ctx context.Context, instanceID uuid.UUID) (*EnqueueResult, error) {
	if s.source == nil {
		return nil, shared.NewDomainError("NOT_CONFIGURED", "Storefront client is not configured")
	}
	instance, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if err := instance.EnsureActive(); err != nil {
		return nil, err
	}

	startedAt := time.Now()
	var raw []json.RawMessage
	for page := 1; ; page++ {
		res, err := s.source.SearchOrders(ctx, instance, instance.LastOrderImportAt, page)
		if err != nil {
			return nil, fmt.Errorf("pull orders page %d: %w", page, err)
		}
		raw = append(raw, res.Orders...)
		if len(res.Orders) == 0 || len(raw) >= res.TotalCount {
			break
		}
	}

	result := &EnqueueResult{InstanceID: instanceID, Kind: integration.QueueKindOrder, QueueIDs: []uuid.UUID{}}
	if len(raw) > 0 {
		if result, err = s.EnqueueOrders(ctx, instanceID, raw); err != nil {
			return nil, err
		}
	}

	instance.RecordOrderImport(startedAt)
	if err := s.instances.Save(ctx, instance); err != nil {
		return nil, err
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Processing
// ---------------------------------------------------------------------------

// ProcessQueueLine imports one order line. On failure the line is marked
// FAILED with the error text and the error is returned.
func (s *OrderQueueServiceImpl) ProcessQueueLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_queue", "process_line",
		telemetry.WithAttribute(telemetry.SpanAttrQueueLineID, lineID.String()),
	)
	defer span.End()

	var result *LineResult
	err := withLineLock(ctx, s.lock, lineID, s.opts.LockTTL, func() error {
		var err error
		result, err = s.processLine(ctx, lineID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, string(result.State))
	return result, nil
}

// ReprocessQueueLine processes one line on operator request and recomputes
// the action-required flag of its queue.
func (s *OrderQueueServiceImpl) ReprocessQueueLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error) {
	return reprocessLine(ctx, s.queues, lineID, s.ProcessQueueLine, s.logger)
}

func (s *OrderQueueServiceImpl) processLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error) {
	line, err := s.queues.FindLineByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.Kind != integration.QueueKindOrder {
		return nil, integration.ErrQueueInvalidKind
	}
	if err := line.StartProcessing(); err != nil {
		return nil, err
	}

	importResult, err := s.importLine(ctx, line)
	if err != nil {
		line.MarkFailed(err)
		if saveErr := s.queues.SaveLine(ctx, line); saveErr != nil {
			s.logger.Error("failed to persist failed queue line",
				zap.String("queue_line_id", line.ID.String()),
				zap.Error(saveErr),
			)
		}
		s.logger.Warn("order queue line failed",
			zap.String("queue_line_id", line.ID.String()),
			zap.String("order_ref", line.ExternalID),
			zap.Error(err),
		)
		return nil, err
	}

	if importResult.Outcome == ImportOutcomeSkipped {
		line.MarkSkipped()
	} else {
		line.MarkOrderCreated(importResult.OrderID)
	}
	if err := s.queues.SaveLine(ctx, line); err != nil {
		return nil, err
	}
	return newLineResult(line, importResult), nil
}

func (s *OrderQueueServiceImpl) importLine(ctx context.Context, line *integration.QueueLine) (*ImportResult, error) {
	instance, err := s.instances.FindByID(ctx, line.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if err := instance.EnsureActive(); err != nil {
		return nil, err
	}

	payload, err := integration.ParseOrderPayload([]byte(line.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidPayload, err)
	}
	payload.NormalizeItemPrices()

	return s.importer.ImportOrder(ctx, instance, payload, line.ID)
}

// ProcessQueue processes the draft lines of one queue
func (s *OrderQueueServiceImpl) ProcessQueue(ctx context.Context, queueID uuid.UUID) (*QueueRunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_queue", "process_queue",
		telemetry.WithAttribute(telemetry.SpanAttrQueueID, queueID.String()),
	)
	defer span.End()

	result, err := runQueue(ctx, s.queues, queueID, integration.QueueKindOrder, s.ProcessQueueLine, s.opts.Observer, s.logger)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// AutoProcessQueues processes every order queue holding draft lines,
// skipping queues flagged action required.
func (s *OrderQueueServiceImpl) AutoProcessQueues(ctx context.Context) ([]QueueRunResult, error) {
	return autoProcess(ctx, s.queues, integration.QueueKindOrder, s.opts.AutoProcessLimit, s.ProcessQueue, s.logger)
}

// CancelQueueLine cancels a draft or failed line
func (s *OrderQueueServiceImpl) CancelQueueLine(ctx context.Context, lineID uuid.UUID) (*QueueLineResponse, error) {
	var line *integration.QueueLine
	err := withLineLock(ctx, s.lock, lineID, s.opts.LockTTL, func() error {
		var err error
		line, err = s.queues.FindLineByID(ctx, lineID)
		if err != nil {
			return err
		}
		if err := line.Cancel(); err != nil {
			return err
		}
		return s.queues.SaveLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	resp := ToQueueLineResponse(line)
	return &resp, nil
}

// GetQueueLine returns a queue line
func (s *OrderQueueServiceImpl) GetQueueLine(ctx context.Context, lineID uuid.UUID) (*QueueLineResponse, error) {
	line, err := s.queues.FindLineByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	resp := ToQueueLineResponse(line)
	return &resp, nil
}

// ListLogLines returns the import log lines of a queue line
func (s *OrderQueueServiceImpl) ListLogLines(ctx context.Context, lineID uuid.UUID) ([]LogLineResponse, error) {
	if _, err := s.queues.FindLineByID(ctx, lineID); err != nil {
		return nil, err
	}
	lines, err := s.logLines.FindByQueueLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	return ToLogLineResponses(lines), nil
}

// IsRetryable reports whether a queue error is transient: store failures and
// lock contention are, payload problems are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, integration.ErrInvalidPayload) &&
		!errors.Is(err, integration.ErrInstanceInactive) &&
		!errors.Is(err, shared.ErrNotFound)
}

var _ OrderQueueService = (*OrderQueueServiceImpl)(nil)
