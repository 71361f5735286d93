package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appintegration "github.com/erp/connector/internal/application/integration"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/infrastructure/config"
	"github.com/erp/connector/internal/infrastructure/telemetry"
)

// InstanceHeader carries the storefront instance id of a message
const InstanceHeader = "instance_id"

// ErrMalformedMessage marks a delivery that can never be enqueued
var ErrMalformedMessage = errors.New("messaging: malformed message")

// OrderEnqueuer stores raw orders as queue lines
type OrderEnqueuer interface {
	EnqueueOrders(ctx context.Context, instanceID uuid.UUID, rawOrders []json.RawMessage) (*appintegration.EnqueueResult, error)
}

// Outcome is what the consumer did with a delivery
type Outcome string

const (
	OutcomeAcked    Outcome = "acked"
	OutcomeRejected Outcome = "rejected"
	OutcomeRequeued Outcome = "requeued"
)

// Consumer reads storefront order webhooks from a queue and enqueues them
// as order queue lines. Deliveries are acked after the lines are stored,
// dropped when malformed and requeued on store errors.
type Consumer struct {
	cfg      config.AMQPConfig
	enqueuer OrderEnqueuer
	logger   *zap.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
	done    chan struct{}
	mu      sync.Mutex
}

// NewConsumer creates a consumer; call Start to connect
func NewConsumer(cfg config.AMQPConfig, enqueuer OrderEnqueuer, logger *zap.Logger) *Consumer {
	return &Consumer{cfg: cfg, enqueuer: enqueuer, logger: logger}
}

// Start connects, declares the queue and begins consuming in the background
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := channel.Qos(c.cfg.PrefetchCount, 0, false); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	if _, err := channel.QueueDeclare(
		c.cfg.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	deliveries, err := channel.Consume(
		c.cfg.Queue,
		c.cfg.ConsumerTag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to consume messages: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.done = make(chan struct{})
	go c.consume(context.WithoutCancel(ctx), deliveries)

	c.logger.Info("AMQP consumer started",
		zap.String("queue", c.cfg.Queue),
		zap.Int("prefetch", c.cfg.PrefetchCount),
	)
	return nil
}

// Stop cancels the subscription, waits for in-flight deliveries and closes the connection
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}

	if err := c.channel.Cancel(c.cfg.ConsumerTag, false); err != nil {
		c.logger.Warn("Failed to cancel AMQP consumer", zap.Error(err))
	}

	var err error
	select {
	case <-c.done:
	case <-ctx.Done():
		err = ctx.Err()
		c.logger.Warn("AMQP consumer stop timed out")
	}

	c.channel.Close()
	c.conn.Close()
	c.conn, c.channel = nil, nil
	c.logger.Info("AMQP consumer stopped")
	return err
}

func (c *Consumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(c.done)
	for d := range deliveries {
		c.HandleDelivery(ctx, d)
	}
}

// HandleDelivery enqueues one delivery and settles it
func (c *Consumer) HandleDelivery(ctx context.Context, d amqp.Delivery) Outcome {
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier(d.Headers))
	ctx, span := telemetry.StartSpan(ctx, "amqp.consume", telemetry.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	telemetry.SetAttributes(span, "messaging.system", "rabbitmq", "messaging.destination", c.cfg.Queue)

	started := time.Now()
	outcome, err := c.handle(ctx, d)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	telemetry.SetAttributes(span, "messaging.outcome", string(outcome))

	fields := []zap.Field{
		zap.String("message_id", d.MessageId),
		zap.String("outcome", string(outcome)),
		zap.Duration("elapsed", time.Since(started)),
	}
	switch outcome {
	case OutcomeAcked:
		c.logger.Debug("Storefront order message enqueued", fields...)
	case OutcomeRejected:
		c.logger.Warn("Dropping malformed storefront order message", append(fields, zap.Error(err))...)
	default:
		c.logger.Error("Requeueing storefront order message", append(fields, zap.Error(err))...)
	}
	return outcome
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) (Outcome, error) {
	instanceID, orders, err := decodeDelivery(d)
	if err != nil {
		return settle(d, OutcomeRejected), err
	}

	if _, err := c.enqueuer.EnqueueOrders(ctx, instanceID, orders); err != nil {
		if appintegration.IsRetryable(err) {
			return settle(d, OutcomeRequeued), err
		}
		return settle(d, OutcomeRejected), err
	}
	return settle(d, OutcomeAcked), nil
}

// settle acks or nacks the delivery. A failed ack leaves the message to be
// redelivered by the broker.
func settle(d amqp.Delivery, outcome Outcome) Outcome {
	switch outcome {
	case OutcomeAcked:
		_ = d.Ack(false)
	case OutcomeRejected:
		_ = d.Nack(false, false)
	default:
		_ = d.Nack(false, true)
	}
	return outcome
}

// decodeDelivery reads the instance header and the body, which is either
// one order object or an array of orders.
func decodeDelivery(d amqp.Delivery) (uuid.UUID, []json.RawMessage, error) {
	raw, ok := d.Headers[InstanceHeader]
	if !ok {
		return uuid.Nil, nil, fmt.Errorf("%w: missing %s header", ErrMalformedMessage, InstanceHeader)
	}
	value, ok := raw.(string)
	if !ok {
		return uuid.Nil, nil, fmt.Errorf("%w: %s header is not a string", ErrMalformedMessage, InstanceHeader)
	}
	instanceID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: %s header: %v", ErrMalformedMessage, InstanceHeader, err)
	}

	body := bytes.TrimSpace(d.Body)
	if len(body) == 0 {
		return uuid.Nil, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, integration.ErrQueueLineEmptyData)
	}
	if body[0] == '[' {
		var orders []json.RawMessage
		if err := json.Unmarshal(body, &orders); err != nil {
			return uuid.Nil, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if len(orders) == 0 {
			return uuid.Nil, nil, fmt.Errorf("%w: empty order array", ErrMalformedMessage)
		}
		return instanceID, orders, nil
	}
	if !json.Valid(body) || body[0] != '{' {
		return uuid.Nil, nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedMessage)
	}
	return instanceID, []json.RawMessage{json.RawMessage(body)}, nil
}

// headerCarrier adapts AMQP headers to a trace context carrier
type headerCarrier amqp.Table

func (h headerCarrier) Get(key string) string {
	if v, ok := h[key].(string); ok {
		return v
	}
	return ""
}

func (h headerCarrier) Set(key, value string) {
	h[key] = value
}

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}
