package closer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/motivation"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory Store with database-like semantics: staged writes
// apply on commit, and TryAcquire blocks on an uncommitted lock row the way
// INSERT ... ON CONFLICT DO NOTHING does.
type memStore struct {
	mu        sync.Mutex
	entries   []*ledger.Entry
	closures  map[string]*closure.Snapshot
	snapshots map[string]settings.Settings
	live      settings.Settings
	states    map[string]motivation.State
	facts     map[string]*sale.Fact
	openTrips map[string]int
	locks     map[string]bool
	outbox    []*closure.Snapshot
	dayLocks  map[string]*sync.RWMutex

	failOn string
	delay  time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		closures:  make(map[string]*closure.Snapshot),
		snapshots: make(map[string]settings.Settings),
		live:      settings.Defaults(),
		states:    make(map[string]motivation.State),
		facts:     make(map[string]*sale.Fact),
		openTrips: make(map[string]int),
		locks:     make(map[string]bool),
		dayLocks:  make(map[string]*sync.RWMutex),
	}
}

func key(day time.Time) string { return shared.FormatBusinessDay(day) }

func (s *memStore) addSale(day time.Time, kind ledger.Kind, typ ledger.Type, method ledger.Method, amount int64, participant, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saleID := uuid.NewString()
	e := &ledger.Entry{ID: uuid.New(), BusinessDay: day, Kind: kind, Type: typ, Method: method, Amount: amount, Status: ledger.StatusPosted, OccurredAt: day}
	e.WithParticipant(participant).WithSale(saleID)
	s.entries = append(s.entries, e)
	s.facts[saleID] = &sale.Fact{SaleID: saleID, ParticipantID: participant, Category: category, PaymentDay: day, TripDay: day}
}

func (s *memStore) entriesOfType(day time.Time, typ ledger.Type) []*ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range s.entries {
		if e.Type == typ && e.BusinessDay.Equal(day) {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) closureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.closures)
}

func (s *memStore) dayLock(k string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.dayLocks[k]
	if !ok {
		l = &sync.RWMutex{}
		s.dayLocks[k] = l
	}
	return l
}

func (s *memStore) GetClosure(_ context.Context, day time.Time) (*closure.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.closures[key(day)]; ok {
		return c, nil
	}
	return nil, closure.ErrNotFound{BusinessDay: key(day)}
}

func (s *memStore) CountOpenTrips(_ context.Context, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openTrips[key(day)], nil
}

func (s *memStore) RunInTx(_ context.Context, fn func(tx Tx) error) error {
	tx := &memTx{s: s, closures: map[string]*closure.Snapshot{}, snapshots: map[string]settings.Settings{}}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *memStore) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, tx.entries...)
	for k, c := range tx.closures {
		s.closures[k] = c
	}
	for k, v := range tx.snapshots {
		s.snapshots[k] = v
	}
	for _, st := range tx.states {
		s.states[st.ParticipantID] = st
	}
	for _, k := range tx.locks {
		s.locks[k] = true
	}
	s.outbox = append(s.outbox, tx.outbox...)
}

type memTx struct {
	s         *memStore
	entries   []*ledger.Entry
	closures  map[string]*closure.Snapshot
	snapshots map[string]settings.Settings
	states    []motivation.State
	locks     []string
	outbox    []*closure.Snapshot
	unlock    []func()
}

func (tx *memTx) release() {
	for i := len(tx.unlock) - 1; i >= 0; i-- {
		tx.unlock[i]()
	}
}

func (tx *memTx) fail(step string) error {
	if tx.s.failOn == step {
		return fmt.Errorf("%s: %w", step, errInjected)
	}
	return nil
}

func (tx *memTx) TryAcquire(_ context.Context, day time.Time) (bool, error) {
	l := tx.s.dayLock(key(day))
	l.Lock()
	tx.unlock = append(tx.unlock, l.Unlock)

	tx.s.mu.Lock()
	held := tx.s.locks[key(day)]
	tx.s.mu.Unlock()
	if held {
		return false, nil
	}
	tx.locks = append(tx.locks, key(day))
	return true, nil
}

func (tx *memTx) LockDayShared(_ context.Context, day time.Time) error {
	l := tx.s.dayLock(key(day))
	l.RLock()
	tx.unlock = append(tx.unlock, l.RUnlock)
	return nil
}

func (tx *memTx) GetClosure(ctx context.Context, day time.Time) (*closure.Snapshot, error) {
	if c, ok := tx.closures[key(day)]; ok {
		return c, nil
	}
	return tx.s.GetClosure(ctx, day)
}

func (tx *memTx) CountOpenTrips(ctx context.Context, day time.Time) (int, error) {
	return tx.s.CountOpenTrips(ctx, day)
}

func (tx *memTx) EnsureSettingsSnapshot(_ context.Context, day time.Time) (settings.Settings, error) {
	if err := tx.fail("settings"); err != nil {
		return settings.Settings{}, err
	}
	if v, ok := tx.snapshots[key(day)]; ok {
		return v, nil
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if v, ok := tx.s.snapshots[key(day)]; ok {
		return v, nil
	}
	tx.snapshots[key(day)] = tx.s.live
	return tx.s.live, nil
}

func (tx *memTx) ListEntries(_ context.Context, day time.Time) ([]*ledger.Entry, error) {
	if tx.s.delay > 0 {
		time.Sleep(tx.s.delay)
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range tx.s.entries {
		if e.BusinessDay.Equal(day) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (tx *memTx) SaleFacts(_ context.Context, saleIDs []string) (map[string]*sale.Fact, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	out := make(map[string]*sale.Fact)
	for _, id := range saleIDs {
		if f, ok := tx.s.facts[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func (tx *memTx) MotivationStates(_ context.Context) (map[string]motivation.State, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	out := make(map[string]motivation.State, len(tx.s.states))
	for k, v := range tx.s.states {
		out[k] = v
	}
	return out, nil
}

func (tx *memTx) Append(_ context.Context, entry *ledger.Entry) error {
	if err := tx.fail("append"); err != nil {
		return err
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	all := make([]*ledger.Entry, 0, len(tx.s.entries)+len(tx.entries))
	all = append(all, tx.s.entries...)
	all = append(all, tx.entries...)
	for _, e := range all {
		if e.ID == entry.ID {
			return ledger.ErrDuplicateEntry{ID: entry.ID}
		}
		if entry.Type.Classify() == ledger.ClassWithhold && e.Type == entry.Type && e.BusinessDay.Equal(entry.BusinessDay) {
			return fmt.Errorf("unique violation on %s %s", key(entry.BusinessDay), entry.Type)
		}
	}
	tx.entries = append(tx.entries, entry)
	return nil
}

func (tx *memTx) CreateClosure(_ context.Context, snapshot *closure.Snapshot) error {
	if err := tx.fail("closure"); err != nil {
		return err
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if _, ok := tx.s.closures[key(snapshot.BusinessDay)]; ok {
		return closure.ErrAlreadyClosed{BusinessDay: key(snapshot.BusinessDay)}
	}
	tx.closures[key(snapshot.BusinessDay)] = snapshot
	return nil
}

func (tx *memTx) SaveMotivationStates(_ context.Context, states []motivation.State) error {
	tx.states = append(tx.states, states...)
	return nil
}

func (tx *memTx) EnqueueReport(_ context.Context, snapshot *closure.Snapshot) error {
	if err := tx.fail("outbox"); err != nil {
		return err
	}
	tx.outbox = append(tx.outbox, snapshot)
	return nil
}

type countingRecorder struct {
	mu       sync.Mutex
	results  map[string]int
	withheld map[string]int64
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{results: map[string]int{}, withheld: map[string]int64{}}
}

func (r *countingRecorder) ShiftClosed(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result]++
}

func (r *countingRecorder) Withheld(entryType string, amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withheld[entryType] += amount
}

func (r *countingRecorder) count(result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[result]
}
