package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/partner"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/domain/shared/valueobject"
	"github.com/erp/connector/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerQueueService handles the customer queue use cases
type CustomerQueueService interface {
	EnqueueCustomers(ctx context.Context, instanceID uuid.UUID, rawCustomers []json.RawMessage) (*EnqueueResult, error)
	ProcessQueueLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error)
	ReprocessQueueLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error)
	ProcessQueue(ctx context.Context, queueID uuid.UUID) (*QueueRunResult, error)
	AutoProcessQueues(ctx context.Context) ([]QueueRunResult, error)
}

// CustomerQueueServiceImpl implements CustomerQueueService
type CustomerQueueServiceImpl struct {
	instances integration.StorefrontInstanceRepository
	queues    integration.QueueRepository
	customers partner.CustomerRepository
	lock      shared.ProcessingLock
	validate  *validator.Validate
	opts      QueueOptions
	logger    *zap.Logger
}

// NewCustomerQueueService creates a new CustomerQueueServiceImpl
func NewCustomerQueueService(
	instances integration.StorefrontInstanceRepository,
	queues integration.QueueRepository,
	customers partner.CustomerRepository,
	lock shared.ProcessingLock,
	validate *validator.Validate,
	opts QueueOptions,
	logger *zap.Logger,
) *CustomerQueueServiceImpl {
	if validate == nil {
		validate = validator.New()
	}
	return &CustomerQueueServiceImpl{
		instances: instances,
		queues:    queues,
		customers: customers,
		lock:      lock,
		validate:  validate,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

// EnqueueCustomers stores raw storefront customers as draft queue lines
// keyed by customer id.
func (s *CustomerQueueServiceImpl) EnqueueCustomers(ctx context.Context, instanceID uuid.UUID, rawCustomers []json.RawMessage) (*EnqueueResult, error) {
	instance, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if err := instance.EnsureActive(); err != nil {
		return nil, err
	}

	items := make([]queueItem, 0, len(rawCustomers))
	for i, raw := range rawCustomers {
		payload, err := integration.ParseCustomerPayload(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: customer #%d: %v", integration.ErrInvalidPayload, i, err)
		}
		if payload.ID <= 0 {
			return nil, fmt.Errorf("%w: customer #%d has no id", integration.ErrInvalidPayload, i)
		}
		items = append(items, queueItem{externalID: payload.ExternalID(), data: raw})
	}

	result, err := enqueueItems(ctx, s.queues, instanceID, integration.QueueKindCustomer, s.opts.BatchSize, items, s.opts.Observer)
	if err != nil {
		return nil, err
	}
	s.logger.Info("customers enqueued",
		zap.String("instance_id", instanceID.String()),
		zap.Int("enqueued", result.Enqueued),
		zap.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

// ProcessQueueLine creates or updates the partner of one customer line
func (s *CustomerQueueServiceImpl) ProcessQueueLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer_queue", "process_line",
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
	return result, nil
}

// ReprocessQueueLine processes one line on operator request and recomputes
// the action-required flag of its queue.
func (s *CustomerQueueServiceImpl) ReprocessQueueLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error) {
	return reprocessLine(ctx, s.queues, lineID, s.ProcessQueueLine, s.logger)
}

func (s *CustomerQueueServiceImpl) processLine(ctx context.Context, lineID uuid.UUID) (*LineResult, error) {
	line, err := s.queues.FindLineByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.Kind != integration.QueueKindCustomer {
		return nil, integration.ErrQueueInvalidKind
	}
	if err := line.StartProcessing(); err != nil {
		return nil, err
	}

	customer, err := s.upsertCustomer(ctx, line)
	if err != nil {
		line.MarkFailed(err)
		if saveErr := s.queues.SaveLine(ctx, line); saveErr != nil {
			s.logger.Error("failed to persist failed queue line",
				zap.String("queue_line_id", line.ID.String()),
				zap.Error(saveErr),
			)
		}
		return nil, err
	}

	line.MarkPartnerCreated(customer.ID)
	if err := s.queues.SaveLine(ctx, line); err != nil {
		return nil, err
	}
	return newLineResult(line, nil), nil
}

func (s *CustomerQueueServiceImpl) upsertCustomer(ctx context.Context, line *integration.QueueLine) (*partner.Customer, error) {
	payload, err := integration.ParseCustomerPayload([]byte(line.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidPayload, err)
	}
	if err := s.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidPayload, err)
	}

	name := payload.FullName()
	if name == "" {
		name = payload.Email
	}

	customer, err := s.customers.FindByExternalID(ctx, line.InstanceID, payload.ExternalID())
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	changed := false
	if customer == nil {
		customer, err = partner.NewStorefrontCustomer(line.InstanceID, payload.ExternalID(), name, payload.Email)
		if err != nil {
			return nil, err
		}
		changed = true
	} else {
		updated, err := customer.Update(name, payload.Email)
		if err != nil {
			return nil, err
		}
		changed = updated
	}

	if billing := payload.BillingAddress(); billing != nil {
		region := ""
		if billing.Region != nil {
			region = billing.Region.Region
		}
		addr, err := valueobject.NewAddress(billing.Street, billing.City, billing.CountryID,
			valueobject.WithRegion(region),
			valueobject.WithPostalCode(billing.Postcode),
			valueobject.WithTelephone(billing.Telephone),
		)
		if err != nil {
			s.logger.Warn("skipping invalid customer address",
				zap.String("queue_line_id", line.ID.String()),
				zap.String("customer_id", payload.ExternalID()),
				zap.Error(err),
			)
		} else {
			changed = customer.SetAddress(addr) || changed
		}
	}

	if changed {
		if err := s.customers.Save(ctx, customer); err != nil {
			return nil, err
		}
	}
	return customer, nil
}

// ProcessQueue processes the draft lines of one customer queue
func (s *CustomerQueueServiceImpl) ProcessQueue(ctx context.Context, queueID uuid.UUID) (*QueueRunResult, error) {
	return runQueue(ctx, s.queues, queueID, integration.QueueKindCustomer, s.ProcessQueueLine, s.opts.Observer, s.logger)
}

// AutoProcessQueues processes every customer queue holding draft lines
func (s *CustomerQueueServiceImpl) AutoProcessQueues(ctx context.Context) ([]QueueRunResult, error) {
	return autoProcess(ctx, s.queues, integration.QueueKindCustomer, s.opts.AutoProcessLimit, s.ProcessQueue, s.logger)
}

var _ CustomerQueueService = (*CustomerQueueServiceImpl)(nil)
