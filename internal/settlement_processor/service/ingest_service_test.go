package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/domain/trip"
	"github.com/tourdesk-shift-settlement/internal/platform/metrics"
)

// fakeIngestStore applies writes on commit only
type fakeIngestStore struct {
	mu       sync.Mutex
	closed   map[string]bool
	entries  map[uuid.UUID]*ledger.Entry
	facts    map[string]*sale.Fact
	trips    map[string]*trip.Trip
	locked   []string
	failWith error
}

func newFakeIngestStore() *fakeIngestStore {
	return &fakeIngestStore{
		closed:  make(map[string]bool),
		entries: make(map[uuid.UUID]*ledger.Entry),
		facts:   make(map[string]*sale.Fact),
		trips:   make(map[string]*trip.Trip),
	}
}

type fakeIngestTx struct {
	store   *fakeIngestStore
	entries []*ledger.Entry
	facts   []*sale.Fact
	trips   []*trip.Trip
}

func (s *fakeIngestStore) RunIngestTx(ctx context.Context, fn func(tx IngestTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	tx := &fakeIngestTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	for _, e := range tx.entries {
		s.entries[e.ID] = e
	}
	for _, f := range tx.facts {
		s.facts[f.SaleID] = sale.Merge(s.facts[f.SaleID], f)
	}
	for _, t := range tx.trips {
		s.trips[t.TripID] = t
	}
	return nil
}

func (t *fakeIngestTx) LockDayShared(_ context.Context, day time.Time) error {
	t.store.locked = append(t.store.locked, shared.FormatBusinessDay(day))
	return nil
}

func (t *fakeIngestTx) GetClosure(_ context.Context, day time.Time) (*closure.Snapshot, error) {
	key := shared.FormatBusinessDay(day)
	if t.store.closed[key] {
		return &closure.Snapshot{BusinessDay: day}, nil
	}
	return nil, closure.ErrNotFound{BusinessDay: key}
}

func (t *fakeIngestTx) UpsertSale(_ context.Context, fact *sale.Fact) error {
	t.facts = append(t.facts, fact)
	return nil
}

func (t *fakeIngestTx) Append(_ context.Context, entry *ledger.Entry) error {
	if _, ok := t.store.entries[entry.ID]; ok {
		return ledger.ErrDuplicateEntry{ID: entry.ID}
	}
	t.entries = append(t.entries, entry)
	return nil
}

func (t *fakeIngestTx) UpsertTrip(_ context.Context, tr *trip.Trip) error {
	t.trips = append(t.trips, tr)
	return nil
}

type stubValidator struct{ err error }

func (v stubValidator) Validate(*shared.Envelope) error { return v.err }

// stubMapper posts every sale as a cash acceptance under a fixed id
type stubMapper struct{ id uuid.UUID }

func (m stubMapper) ToEntry(event *shared.SaleEvent, day time.Time) (*ledger.Entry, error) {
	e, err := ledger.NewEntry(m.id, day, ledger.KindSellerShift, ledger.TypeSaleAcceptedCash, ledger.MethodCash, event.Amount, event.OccurredAt)
	if err != nil {
		return nil, err
	}
	return e.WithParticipant(event.ParticipantID).WithSale(event.SaleID), nil
}

// sequenceMapper posts every sale under a fresh id
type sequenceMapper struct{}

func (sequenceMapper) ToEntry(event *shared.SaleEvent, day time.Time) (*ledger.Entry, error) {
	return stubMapper{id: uuid.New()}.ToEntry(event, day)
}

type recordedRejection struct {
	envelope *shared.Envelope
	reason   string
}

type fakeRejector struct {
	rejections []recordedRejection
	err        error
}

func (r *fakeRejector) RecordRejection(_ context.Context, envelope *shared.Envelope, reason string) error {
	r.rejections = append(r.rejections, recordedRejection{envelope: envelope, reason: reason})
	return r.err
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) EventProcessed(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[outcome]++
}

func saleEnvelope(paymentDay string) *shared.Envelope {
	return &shared.Envelope{
		Type: shared.EventTypeSale,
		Sale: &shared.SaleEvent{
			EventID:       "evt-1",
			SaleID:        "sale-1",
			ParticipantID: "seller-1",
			Role:          shared.RoleSeller,
			Category:      "speedboat",
			Zone:          "pier-a",
			Kind:          shared.SaleKindAccepted,
			Method:        "CASH",
			Amount:        120000,
			PaymentDay:    paymentDay,
			TripDay:       "2026-07-20",
			OccurredAt:    time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC),
		},
	}
}

type ingestFixture struct {
	store    *fakeIngestStore
	rejector *fakeRejector
	recorder *countingRecorder
	svc      EventProcessor
}

func newIngestFixture(validatorErr error) *ingestFixture {
	f := &ingestFixture{
		store:    newFakeIngestStore(),
		rejector: &fakeRejector{},
		recorder: &countingRecorder{},
	}
	f.svc = NewIngestService(f.store, stubValidator{err: validatorErr}, stubMapper{id: uuid.New()}, f.rejector, f.recorder, newTestLogger())
	return f
}

func TestIngestService_ProcessEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("AppendsSaleAndStoresFact", func(t *testing.T) {
		f := newIngestFixture(nil)
		require.NoError(t, f.svc.ProcessEvent(ctx, saleEnvelope("2026-07-14")))

		require.Len(t, f.store.entries, 1)
		fact := f.store.facts["sale-1"]
		require.NotNil(t, fact)
		assert.Equal(t, "speedboat", fact.Category)
		assert.Equal(t, time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC), fact.TripDay)
		assert.Equal(t, []string{"2026-07-14"}, f.store.locked)
		assert.Equal(t, 1, f.recorder.outcomes[metrics.OutcomeApplied])
		assert.Empty(t, f.rejector.rejections)
	})

	t.Run("CancellationKeepsOriginalSaleFacts", func(t *testing.T) {
		store := newFakeIngestStore()
		svc := NewIngestService(store, stubValidator{}, sequenceMapper{}, &fakeRejector{}, &countingRecorder{}, newTestLogger())

		prepayment := saleEnvelope("2026-07-14")
		prepayment.Sale.Kind = shared.SaleKindPrepayment
		prepayment.Sale.Amount = 20000
		require.NoError(t, svc.ProcessEvent(ctx, prepayment))

		cancel := &shared.Envelope{
			Type: shared.EventTypeSale,
			Sale: &shared.SaleEvent{
				EventID:       "evt-2",
				SaleID:        "sale-1",
				ParticipantID: "seller-1",
				Role:          shared.RoleSeller,
				Kind:          shared.SaleKindCancel,
				Method:        "CASH",
				Amount:        5000,
				PaymentDay:    "2026-07-14",
				OccurredAt:    time.Date(2026, 7, 14, 16, 0, 0, 0, time.UTC),
			},
		}
		require.NoError(t, svc.ProcessEvent(ctx, cancel))

		require.Len(t, store.entries, 2)
		fact := store.facts["sale-1"]
		require.NotNil(t, fact)
		assert.Equal(t, "speedboat", fact.Category)
		assert.Equal(t, "pier-a", fact.Zone)
		assert.Equal(t, time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC), fact.TripDay)
	})

	t.Run("DuplicateIsSkipped", func(t *testing.T) {
		f := newIngestFixture(nil)
		require.NoError(t, f.svc.ProcessEvent(ctx, saleEnvelope("2026-07-14")))
		require.NoError(t, f.svc.ProcessEvent(ctx, saleEnvelope("2026-07-14")))

		assert.Len(t, f.store.entries, 1)
		assert.Equal(t, 1, f.recorder.outcomes[metrics.OutcomeDuplicate])
	})

	t.Run("ClosedPaymentDayIsRejected", func(t *testing.T) {
		f := newIngestFixture(nil)
		f.store.closed["2026-07-14"] = true

		require.NoError(t, f.svc.ProcessEvent(ctx, saleEnvelope("2026-07-14")))

		assert.Empty(t, f.store.entries)
		assert.Empty(t, f.store.facts)
		require.Len(t, f.rejector.rejections, 1)
		assert.Contains(t, f.rejector.rejections[0].reason, "SHIFT_CLOSED")
		assert.Contains(t, f.rejector.rejections[0].reason, "2026-07-14")
		assert.Equal(t, 1, f.recorder.outcomes[metrics.OutcomeRejected])
	})

	t.Run("InvalidEventIsRejectedAndAcknowledged", func(t *testing.T) {
		f := newIngestFixture(shared.ValidationError{Field: "amount", Reason: "must be greater than 0"})
		f.rejector.err = errors.New("dlq down")

		require.NoError(t, f.svc.ProcessEvent(ctx, saleEnvelope("2026-07-14")))

		assert.Empty(t, f.store.entries)
		require.Len(t, f.rejector.rejections, 1)
		assert.Equal(t, "invalid amount: must be greater than 0", f.rejector.rejections[0].reason)
	})

	t.Run("StoreErrorIsRetried", func(t *testing.T) {
		f := newIngestFixture(nil)
		storeErr := errors.New("connection reset")
		f.store.failWith = storeErr

		err := f.svc.ProcessEvent(ctx, saleEnvelope("2026-07-14"))
		assert.ErrorIs(t, err, storeErr)
		assert.Empty(t, f.rejector.rejections)
		assert.Equal(t, 1, f.recorder.outcomes[metrics.OutcomeFailed])
	})

	t.Run("TripStatusIsUpserted", func(t *testing.T) {
		f := newIngestFixture(nil)
		envelope := &shared.Envelope{
			Type: shared.EventTypeTrip,
			Trip: &shared.TripEvent{TripID: "trip-9", TripDay: "2026-07-14", Status: shared.TripStatusCompleted},
		}

		require.NoError(t, f.svc.ProcessEvent(ctx, envelope))

		stored := f.store.trips["trip-9"]
		require.NotNil(t, stored)
		assert.Equal(t, shared.TripStatusCompleted, stored.Status)
		assert.False(t, stored.IsOpen())
	})
}
