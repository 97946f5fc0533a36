package components

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tourdesk-shift-settlement/internal/config"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement_processor/service"
)

var testDay = time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validSale() *shared.SaleEvent {
	return &shared.SaleEvent{
		EventID:       "8d7c2f1e-3f5a-4c1b-9a63-2f0c9a1e7b41",
		SaleID:        "sale-1",
		ParticipantID: "seller-1",
		Role:          shared.RoleSeller,
		Category:      "speedboat",
		Zone:          "pier-a",
		Kind:          shared.SaleKindAccepted,
		Method:        "CASH",
		Amount:        50000,
		PaymentDay:    "2026-07-14",
		TripDay:       "2026-07-14",
		OccurredAt:    testDay.Add(10 * time.Hour),
	}
}

func TestEventValidator_Validate(t *testing.T) {
	validator := NewEventValidator(newTestLogger())

	tests := []struct {
		name     string
		envelope *shared.Envelope
		field    string
	}{
		{name: "valid sale", envelope: &shared.Envelope{Type: shared.EventTypeSale, Sale: validSale()}},
		{name: "valid trip", envelope: &shared.Envelope{Type: shared.EventTypeTrip, Trip: &shared.TripEvent{TripID: "t1", TripDay: "2026-07-14", Status: shared.TripStatusScheduled}}},
		{name: "unknown type", envelope: &shared.Envelope{Type: "REFUND"}, field: "type"},
		{name: "sale payload missing", envelope: &shared.Envelope{Type: shared.EventTypeSale}, field: "sale"},
		{name: "missing event id", envelope: &shared.Envelope{Type: shared.EventTypeSale, Sale: func() *shared.SaleEvent { s := validSale(); s.EventID = " "; return s }()}, field: "event_id"},
		{name: "unknown role", envelope: &shared.Envelope{Type: shared.EventTypeSale, Sale: func() *shared.SaleEvent { s := validSale(); s.Role = "captain"; return s }()}, field: "role"},
		{name: "zero amount", envelope: &shared.Envelope{Type: shared.EventTypeSale, Sale: func() *shared.SaleEvent { s := validSale(); s.Amount = 0; return s }()}, field: "amount"},
		{name: "unknown method", envelope: &shared.Envelope{Type: shared.EventTypeSale, Sale: func() *shared.SaleEvent { s := validSale(); s.Method = "CRYPTO"; return s }()}, field: "method"},
		{name: "mixed split mismatch", envelope: &shared.Envelope{Type: shared.EventTypeSale, Sale: func() *shared.SaleEvent {
			s := validSale()
			s.Method, s.CashAmount, s.CardAmount = "MIXED", 10000, 10000
			return s
		}()}, field: "cash_amount"},
		{name: "bad payment day", envelope: &shared.Envelope{Type: shared.EventTypeSale, Sale: func() *shared.SaleEvent { s := validSale(); s.PaymentDay = "14.07.2026"; return s }()}, field: "business_day"},
		{name: "unknown trip status", envelope: &shared.Envelope{Type: shared.EventTypeTrip, Trip: &shared.TripEvent{TripID: "t1", TripDay: "2026-07-14", Status: "DELAYED"}}, field: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.envelope)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ValidationError{}), "expected validation error, got %v", err)
			var vErr shared.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestEntryID(t *testing.T) {
	raw := "8d7c2f1e-3f5a-4c1b-9a63-2f0c9a1e7b41"
	assert.Equal(t, uuid.MustParse(raw), EntryID(raw))

	hashed := EntryID("pos-42-0001")
	assert.NotEqual(t, uuid.Nil, hashed)
	assert.Equal(t, hashed, EntryID("pos-42-0001"), "same event id must map onto the same entry")
	assert.NotEqual(t, hashed, EntryID("pos-42-0002"))
}

func TestEntryMapper_ToEntry(t *testing.T) {
	mapper := NewEntryMapper(newTestLogger())

	t.Run("AcceptedCash", func(t *testing.T) {
		entry, err := mapper.ToEntry(validSale(), testDay)
		require.NoError(t, err)
		assert.Equal(t, ledger.TypeSaleAcceptedCash, entry.Type)
		assert.Equal(t, ledger.KindSellerShift, entry.Kind)
		assert.Equal(t, int64(50000), entry.Amount)
		assert.Equal(t, "seller-1", entry.Participant())
		require.NotNil(t, entry.SourceSaleID)
		assert.Equal(t, "sale-1", *entry.SourceSaleID)
		assert.Equal(t, testDay, entry.BusinessDay)
	})

	t.Run("DispatcherPrepaymentMixed", func(t *testing.T) {
		event := validSale()
		event.Role = shared.RoleDispatcher
		event.Kind = shared.SaleKindPrepayment
		event.Method = "mixed"
		event.CashAmount, event.CardAmount = 20000, 30000

		entry, err := mapper.ToEntry(event, testDay)
		require.NoError(t, err)
		assert.Equal(t, ledger.TypeSalePrepaymentMixed, entry.Type)
		assert.Equal(t, ledger.KindDispatcherShift, entry.Kind)
		assert.Equal(t, int64(20000), entry.CashPart())
		assert.Equal(t, int64(30000), entry.CardPart())
	})

	t.Run("CancelIsNegativeReversal", func(t *testing.T) {
		event := validSale()
		event.Kind = shared.SaleKindCancel
		event.Method = "CARD"

		entry, err := mapper.ToEntry(event, testDay)
		require.NoError(t, err)
		assert.Equal(t, ledger.TypeSaleCancelReverse, entry.Type)
		assert.Equal(t, int64(-50000), entry.Amount)
		assert.Equal(t, int64(-50000), entry.CardPart())
		assert.Equal(t, ledger.ClassReversal, entry.Type.Classify())
	})

	t.Run("UnknownMethodRejected", func(t *testing.T) {
		event := validSale()
		event.Method = "VOUCHER"
		_, err := mapper.ToEntry(event, testDay)
		assert.True(t, errors.Is(err, shared.ValidationError{}))
	})
}

// MockDeadLetterPublisher mocks producers.DeadLetterPublisher
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	return m.Called().Error(0)
}

func TestRejectionRecorder_RecordRejection(t *testing.T) {
	ctx := context.Background()
	envelope := &shared.Envelope{Type: shared.EventTypeSale, Sale: validSale()}

	t.Run("PublishesEnvelopeToDLQ", func(t *testing.T) {
		dlq := &MockDeadLetterPublisher{}
		dlq.On("PublishToDLQ", ctx, envelope.Sale.EventID, mock.MatchedBy(func(value []byte) bool {
			var decoded shared.Envelope
			return json.Unmarshal(value, &decoded) == nil && decoded.Sale != nil && decoded.Sale.SaleID == "sale-1"
		}), "SHIFT_CLOSED").Return(nil).Once()

		recorder := NewRejectionRecorder(dlq, newTestLogger())
		require.NoError(t, recorder.RecordRejection(ctx, envelope, "SHIFT_CLOSED"))
		dlq.AssertExpectations(t)
	})

	t.Run("PublishError", func(t *testing.T) {
		dlq := &MockDeadLetterPublisher{}
		dlqErr := errors.New("broker down")
		dlq.On("PublishToDLQ", ctx, mock.Anything, mock.Anything, mock.Anything).Return(dlqErr).Once()

		recorder := NewRejectionRecorder(dlq, newTestLogger())
		assert.ErrorIs(t, recorder.RecordRejection(ctx, envelope, "bad"), dlqErr)
	})

	t.Run("DisabledDLQ", func(t *testing.T) {
		recorder := NewRejectionRecorder(nil, newTestLogger())
		assert.NoError(t, recorder.RecordRejection(ctx, envelope, "bad"))
	})
}

type nopStore struct{}

func (nopStore) RunIngestTx(context.Context, func(tx service.IngestTx) error) error { return nil }

type nopRecorder struct{}

func (nopRecorder) EventProcessed(string) {}

func TestCreateEventProcessor(t *testing.T) {
	cfg := &config.Config{WorkerPool: config.WorkerPoolConfig{Size: 4}}

	processor, release := CreateEventProcessor(nopStore{}, nil, nopRecorder{}, newTestLogger(), cfg)
	require.NotNil(t, processor)
	require.NotNil(t, release)
	defer release(time.Second)

	pool, ok := processor.(*service.PooledProcessor)
	require.True(t, ok, "expected the worker pool wrapper")
	assert.Equal(t, 4, pool.Capacity())
}
