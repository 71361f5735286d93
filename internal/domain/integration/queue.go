package integration

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Queue Types
// ---------------------------------------------------------------------------

// QueueKind is the type of record a queue carries.
type QueueKind string

const (
	QueueKindOrder    QueueKind = "ORDER"
	QueueKindCustomer QueueKind = "CUSTOMER"
)

// IsValid returns true if the kind is known
func (k QueueKind) IsValid() bool {
	return k == QueueKindOrder || k == QueueKindCustomer
}

// QueueLineState is the lifecycle state of a queue line.
type QueueLineState string

const (
	QueueLineStateDraft     QueueLineState = "DRAFT"
	QueueLineStateDone      QueueLineState = "DONE"
	QueueLineStateFailed    QueueLineState = "FAILED"
	QueueLineStateCancelled QueueLineState = "CANCELLED"
)

// IsTerminal returns true for states no worker picks up again.
func (s QueueLineState) IsTerminal() bool {
	return s == QueueLineStateDone || s == QueueLineStateCancelled
}

// QueueState summarizes a queue from the states of its lines.
type QueueState string

const (
	QueueStateDraft     QueueState = "DRAFT"
	QueueStatePartial   QueueState = "PARTIAL"
	QueueStateCompleted QueueState = "COMPLETED"
	QueueStateFailed    QueueState = "FAILED"
)

// maxErrorMessageLength bounds the error text stored on a line.
const maxErrorMessageLength = 4000

// ---------------------------------------------------------------------------
// DataQueue Entity
// ---------------------------------------------------------------------------

// DataQueue groups queue lines received together from one instance.
type DataQueue struct {
	ID         uuid.UUID
	InstanceID uuid.UUID
	Kind       QueueKind
	Name       string
	// IsActionRequired is set once lines failed; automatic processing skips
	// the queue until an operator reprocesses it.
	IsActionRequired bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewDataQueue creates an empty queue.
func NewDataQueue(instanceID uuid.UUID, kind QueueKind, name string) (*DataQueue, error) {
	if instanceID == uuid.Nil {
		return nil, ErrMappingInvalidInstanceID
	}
	if !kind.IsValid() {
		return nil, ErrQueueInvalidKind
	}
	now := time.Now()
	return &DataQueue{
		ID:         uuid.New(),
		InstanceID: instanceID,
		Kind:       kind,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// RequireAction flags the queue for operator attention.
func (q *DataQueue) RequireAction() {
	q.IsActionRequired = true
	q.UpdatedAt = time.Now()
}

// ClearActionRequired clears the operator flag.
func (q *DataQueue) ClearActionRequired() {
	q.IsActionRequired = false
	q.UpdatedAt = time.Now()
}

// QueueSummary counts a queue's lines per state.
type QueueSummary struct {
	Draft     int64
	Done      int64
	Failed    int64
	Cancelled int64
}

// Total returns the number of lines.
func (s QueueSummary) Total() int64 {
	return s.Draft + s.Done + s.Failed + s.Cancelled
}

// State derives the queue state: all draft is DRAFT, all done or cancelled
// is COMPLETED, all failed is FAILED, anything else is PARTIAL.
func (s QueueSummary) State() QueueState {
	total := s.Total()
	switch {
	case total == 0 || s.Draft == total:
		return QueueStateDraft
	case s.Done+s.Cancelled == total:
		return QueueStateCompleted
	case s.Failed == total:
		return QueueStateFailed
	default:
		return QueueStatePartial
	}
}

// ---------------------------------------------------------------------------
// QueueLine Entity
// ---------------------------------------------------------------------------

// QueueLine is one inbound storefront record awaiting import.
type QueueLine struct {
	ID         uuid.UUID
	QueueID    uuid.UUID
	InstanceID uuid.UUID
	Kind       QueueKind
	// ExternalID is the storefront record id (order increment id or customer id)
	ExternalID string
	// Data is the raw JSON as received
	Data         string
	State        QueueLineState
	ErrorMessage string
	// SalesOrderID is set once an order line produced a sales order
	SalesOrderID *uuid.UUID
	// PartnerID is set once a customer line produced a partner
	PartnerID *uuid.UUID
	// Skipped is set when the import completed without creating a record
	Skipped         bool
	ProcessAttempts int
	ProcessedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewQueueLine creates a draft line in queue.
func NewQueueLine(queue *DataQueue, externalID string, data []byte) (*QueueLine, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrQueueLineEmptyData
	}
	now := time.Now()
	return &QueueLine{
		ID:         uuid.New(),
		QueueID:    queue.ID,
		InstanceID: queue.InstanceID,
		Kind:       queue.Kind,
		ExternalID: externalID,
		Data:       string(data),
		State:      QueueLineStateDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CanProcess returns true for draft and failed lines.
func (l *QueueLine) CanProcess() bool {
	return l.State == QueueLineStateDraft || l.State == QueueLineStateFailed
}

// StartProcessing records a processing attempt.
func (l *QueueLine) StartProcessing() error {
	if !l.CanProcess() {
		return ErrQueueLineNotProcessable
	}
	l.ProcessAttempts++
	l.UpdatedAt = time.Now()
	return nil
}

// MarkDone marks the line processed.
func (l *QueueLine) MarkDone() {
	now := time.Now()
	l.State = QueueLineStateDone
	l.ErrorMessage = ""
	l.ProcessedAt = &now
	l.UpdatedAt = now
}

// MarkOrderCreated marks the line done with the sales order it produced.
func (l *QueueLine) MarkOrderCreated(orderID uuid.UUID) {
	l.SalesOrderID = &orderID
	l.Skipped = false
	l.MarkDone()
}

// MarkPartnerCreated marks the line done with the partner it produced.
func (l *QueueLine) MarkPartnerCreated(partnerID uuid.UUID) {
	l.PartnerID = &partnerID
	l.Skipped = false
	l.MarkDone()
}

// MarkSkipped marks the line done without a produced record; the reason
// lives in the line's log lines.
func (l *QueueLine) MarkSkipped() {
	l.Skipped = true
	l.MarkDone()
}

// MarkFailed marks the line failed with the error text.
func (l *QueueLine) MarkFailed(err error) {
	now := time.Now()
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if len(msg) > maxErrorMessageLength {
		msg = msg[:maxErrorMessageLength]
	}
	l.State = QueueLineStateFailed
	l.ErrorMessage = msg
	l.ProcessedAt = &now
	l.UpdatedAt = now
}

// Cancel cancels a draft or failed line.
func (l *QueueLine) Cancel() error {
	if !l.CanProcess() {
		return ErrQueueLineNotCancellable
	}
	l.State = QueueLineStateCancelled
	l.UpdatedAt = time.Now()
	return nil
}

// ---------------------------------------------------------------------------
// Queue Repository Interfaces
// ---------------------------------------------------------------------------

// QueueLineFilter defines filter criteria for listing queue lines
type QueueLineFilter struct {
	InstanceID *uuid.UUID
	QueueID    *uuid.UUID
	Kind       *QueueKind
	State      *QueueLineState
	ExternalID string
	Page       int
	PageSize   int
}

// QueueReader defines read access to queues and their lines
type QueueReader interface {
	FindQueueByID(ctx context.Context, id uuid.UUID) (*DataQueue, error)

	// FindQueuesWithDraftLines returns queues of kind holding draft lines,
	// oldest draft line first, excluding queues flagged action required.
	FindQueuesWithDraftLines(ctx context.Context, kind QueueKind, limit int) ([]DataQueue, error)

	// SummarizeQueue counts the queue's lines per state
	SummarizeQueue(ctx context.Context, queueID uuid.UUID) (QueueSummary, error)

	FindLineByID(ctx context.Context, id uuid.UUID) (*QueueLine, error)

	// FindLinesByQueue returns lines in creation order, optionally limited to states
	FindLinesByQueue(ctx context.Context, queueID uuid.UUID, states ...QueueLineState) ([]QueueLine, error)

	// ExistsActiveLine reports whether a draft or done line already holds
	// this external record for the instance.
	ExistsActiveLine(ctx context.Context, instanceID uuid.UUID, kind QueueKind, externalID string) (bool, error)

	ListLines(ctx context.Context, filter QueueLineFilter) ([]QueueLine, int64, error)
}

// QueueWriter defines write access to queues and their lines
type QueueWriter interface {
	SaveQueue(ctx context.Context, queue *DataQueue) error

	// SaveQueueWithLines persists a new queue and its lines atomically
	SaveQueueWithLines(ctx context.Context, queue *DataQueue, lines []*QueueLine) error

	SaveLine(ctx context.Context, line *QueueLine) error
}

// QueueRepository defines the full interface for queue persistence
type QueueRepository interface {
	QueueReader
	QueueWriter
}
