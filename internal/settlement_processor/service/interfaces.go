package service

import (
	"context"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/domain/trip"
)

// EventProcessor applies one collaborator event. A returned error means the
// event should be retried; rejected events are acknowledged with nil.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, envelope *shared.Envelope) error
}

// EventValidator rejects malformed envelopes with a shared.ValidationError
type EventValidator interface {
	Validate(envelope *shared.Envelope) error
}

// EntryMapper turns a sale event into the ledger entry it posts
type EntryMapper interface {
	ToEntry(event *shared.SaleEvent, paymentDay time.Time) (*ledger.Entry, error)
}

// RejectionRecorder parks events that can never be applied
type RejectionRecorder interface {
	RecordRejection(ctx context.Context, envelope *shared.Envelope, reason string) error
}

// IngestStore runs ingestion writes in one transaction
type IngestStore interface {
	RunIngestTx(ctx context.Context, fn func(tx IngestTx) error) error
}

// IngestTx is the unit of work of one event
type IngestTx interface {
	LockDayShared(ctx context.Context, day time.Time) error
	GetClosure(ctx context.Context, day time.Time) (*closure.Snapshot, error)
	UpsertSale(ctx context.Context, fact *sale.Fact) error
	Append(ctx context.Context, entry *ledger.Entry) error
	UpsertTrip(ctx context.Context, t *trip.Trip) error
}

// Recorder receives ingestion metrics
type Recorder interface {
	EventProcessed(outcome string)
}
