package outbox_poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/outbox"
	"github.com/tourdesk-shift-settlement/internal/domain/report"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Enqueue(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepo) ListPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) MarkStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepo) RecordAttempt(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m.Called(tx).Get(0).(outbox.Repository)
}

// MockLedgerRepo for testing; only the day listing is expected to be called
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Append(ctx context.Context, entry *ledger.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedgerRepo) ListByBusinessDay(ctx context.Context, day time.Time) ([]*ledger.Entry, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) ListByRange(ctx context.Context, from, to time.Time) ([]*ledger.Entry, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) ListByTypesInRange(ctx context.Context, types []ledger.Type, from, to time.Time) ([]*ledger.Entry, error) {
	args := m.Called(ctx, types, from, to)
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByDayAndType(ctx context.Context, types []ledger.Type, from, to time.Time) ([]ledger.DayTypeCount, error) {
	args := m.Called(ctx, types, from, to)
	return args.Get(0).([]ledger.DayTypeCount), args.Error(1)
}

func (m *MockLedgerRepo) FutureTripsReserve(ctx context.Context, day time.Time) (int64, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m.Called(tx).Get(0).(ledger.Repository)
}

type MockReportRepo struct {
	mock.Mock
}

func (m *MockReportRepo) Save(ctx context.Context, rep *report.Report) error {
	return m.Called(ctx, rep).Error(0)
}

func (m *MockReportRepo) GetByBusinessDay(ctx context.Context, businessDay string) (*report.Report, error) {
	args := m.Called(ctx, businessDay)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}

type MockShiftEventPublisher struct {
	mock.Mock
}

func (m *MockShiftEventPublisher) PublishShiftClosed(ctx context.Context, snapshot *closure.Snapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

func (m *MockShiftEventPublisher) Close() error {
	return m.Called().Error(0)
}

var testDay = time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMessage(t *testing.T, id int64) *outbox.Message {
	t.Helper()
	msg, err := outbox.NewShiftClosedMessage(&closure.Snapshot{
		BusinessDay: testDay,
		ClosedAt:    testDay.Add(21 * time.Hour),
		ClosedBy:    "manager-1",
		NetTotal:    540000,
		FundTotal:   81000,
	})
	require.NoError(t, err)
	msg.ID = id
	return msg
}

func TestReportPublisher_PublishReport(t *testing.T) {
	ctx := context.Background()
	entries := []*ledger.Entry{{ID: uuid.New(), BusinessDay: testDay, Type: ledger.TypeSaleAcceptedCash, Amount: 540000}}

	t.Run("ArchivesAnnouncesAndMarksProcessed", func(t *testing.T) {
		outboxRepo, ledgerRepo, reports, events := &MockOutboxRepo{}, &MockLedgerRepo{}, &MockReportRepo{}, &MockShiftEventPublisher{}
		msg := newTestMessage(t, 1)

		ledgerRepo.On("ListByBusinessDay", ctx, testDay).Return(entries, nil).Once()
		reports.On("Save", ctx, mock.MatchedBy(func(r *report.Report) bool {
			return r.BusinessDay == "2026-07-14" && r.ClosedBy == "manager-1" && len(r.Entries) == 1 && r.Snapshot.FundTotal == 81000
		})).Return(nil).Once()
		events.On("PublishShiftClosed", ctx, mock.MatchedBy(func(s *closure.Snapshot) bool {
			return s.BusinessDay.Equal(testDay)
		})).Return(nil).Once()
		outboxRepo.On("MarkStatus", ctx, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()

		publisher := NewReportPublisher(outboxRepo, ledgerRepo, reports, events, newTestLogger())
		require.NoError(t, publisher.PublishReport(ctx, msg))

		outboxRepo.AssertExpectations(t)
		ledgerRepo.AssertExpectations(t)
		reports.AssertExpectations(t)
		events.AssertExpectations(t)
	})

	t.Run("WithoutShiftEventsProducer", func(t *testing.T) {
		outboxRepo, ledgerRepo, reports := &MockOutboxRepo{}, &MockLedgerRepo{}, &MockReportRepo{}
		ledgerRepo.On("ListByBusinessDay", ctx, testDay).Return(entries, nil).Once()
		reports.On("Save", ctx, mock.Anything).Return(nil).Once()
		outboxRepo.On("MarkStatus", ctx, int64(2), shared.OutboxStatusProcessed).Return(nil).Once()

		publisher := NewReportPublisher(outboxRepo, ledgerRepo, reports, nil, newTestLogger())
		require.NoError(t, publisher.PublishReport(ctx, newTestMessage(t, 2)))
		outboxRepo.AssertExpectations(t)
	})

	t.Run("ArchiveErrorLeavesMessagePending", func(t *testing.T) {
		outboxRepo, ledgerRepo, reports := &MockOutboxRepo{}, &MockLedgerRepo{}, &MockReportRepo{}
		saveErr := errors.New("mongo unavailable")
		ledgerRepo.On("ListByBusinessDay", ctx, testDay).Return(entries, nil).Once()
		reports.On("Save", ctx, mock.Anything).Return(saveErr).Once()

		publisher := NewReportPublisher(outboxRepo, ledgerRepo, reports, nil, newTestLogger())
		err := publisher.PublishReport(ctx, newTestMessage(t, 3))
		assert.ErrorIs(t, err, saveErr)
		outboxRepo.AssertNotCalled(t, "MarkStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnreadablePayloadIsFailedImmediately", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		outboxRepo.On("MarkStatus", ctx, int64(4), shared.OutboxStatusFailedToPublish).Return(nil).Once()

		msg := &outbox.Message{ID: 4, EventType: outbox.EventShiftClosed, Payload: []byte("garbage")}
		publisher := NewReportPublisher(outboxRepo, &MockLedgerRepo{}, &MockReportRepo{}, nil, newTestLogger())

		err := publisher.PublishReport(ctx, msg)
		assert.ErrorIs(t, err, ErrUnreadablePayload)
		outboxRepo.AssertExpectations(t)
	})
}
