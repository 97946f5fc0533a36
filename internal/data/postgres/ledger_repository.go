// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository runs against a persistence.Querier so the same code serves
// the pool and an open transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
)

const uniqueViolation = "23505"

const ledgerColumns = `id, business_day, kind, type, method, amount, cash_amount, card_amount, status, participant_id, source_sale_id, occurred_at`

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append inserts one entry. A second entry with the same id, or a second
// withholding of the same type for a day, is reported as ErrDuplicateEntry.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.BusinessDay,
		entry.Kind,
		entry.Type,
		entry.Method,
		entry.Amount,
		entry.CashAmount,
		entry.CardAmount,
		entry.Status,
		entry.ParticipantID,
		entry.SourceSaleID,
		entry.OccurredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateEntry{ID: entry.ID}
		}
		r.logger.Error("Failed to append ledger entry", "id", entry.ID.String(), "type", string(entry.Type), "error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// ListByBusinessDay returns every entry of the day in posting order
func (r *LedgerRepository) ListByBusinessDay(ctx context.Context, day time.Time) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE business_day = $1
		ORDER BY occurred_at ASC, id ASC
	`
	return r.list(ctx, "list ledger entries by business day", query, day)
}

// ListByRange returns the entries of every day in the inclusive range
func (r *LedgerRepository) ListByRange(ctx context.Context, from, to time.Time) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE business_day BETWEEN $1 AND $2
		ORDER BY business_day ASC, occurred_at ASC, id ASC
	`
	return r.list(ctx, "list ledger entries by range", query, from, to)
}

// ListByTypesInRange returns the entries of the given types in the inclusive range
func (r *LedgerRepository) ListByTypesInRange(ctx context.Context, types []ledger.Type, from, to time.Time) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE type = ANY($1) AND business_day BETWEEN $2 AND $3
		ORDER BY business_day ASC, occurred_at ASC, id ASC
	`
	return r.list(ctx, "list ledger entries by type", query, typeNames(types), from, to)
}

// CountByDayAndType groups entries of the given types by day and type
func (r *LedgerRepository) CountByDayAndType(ctx context.Context, types []ledger.Type, from, to time.Time) ([]ledger.DayTypeCount, error) {
	query := `
		SELECT business_day, type, COUNT(*)
		FROM ledger_entries
		WHERE type = ANY($1) AND business_day BETWEEN $2 AND $3 AND status = 'POSTED'
		GROUP BY business_day, type
		ORDER BY business_day ASC, type ASC
	`

	rows, err := r.querier.Query(ctx, query, typeNames(types), from, to)
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "error", err)
		return nil, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	defer rows.Close()

	var counts []ledger.DayTypeCount
	for rows.Next() {
		var c ledger.DayTypeCount
		if err := rows.Scan(&c.BusinessDay, &c.Type, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan ledger count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger counts: %w", err)
	}

	return counts, nil
}

// FutureTripsReserve sums prepayments taken on day for trips after day
func (r *LedgerRepository) FutureTripsReserve(ctx context.Context, day time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(l.amount), 0)
		FROM ledger_entries l
		JOIN sales s ON s.sale_id = l.source_sale_id
		WHERE l.business_day = $1 AND l.status = 'POSTED' AND l.type = ANY($2) AND s.trip_day > $1
	`

	prepayments := typeNames([]ledger.Type{ledger.TypeSalePrepaymentCash, ledger.TypeSalePrepaymentCard, ledger.TypeSalePrepaymentMixed})

	var total int64
	if err := r.querier.QueryRow(ctx, query, day, prepayments).Scan(&total); err != nil {
		r.logger.Error("Failed to compute future trips reserve", "error", err)
		return 0, fmt.Errorf("failed to compute future trips reserve: %w", err)
	}
	return total, nil
}

func (r *LedgerRepository) list(ctx context.Context, op, query string, args ...any) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		err := rows.Scan(
			&e.ID,
			&e.BusinessDay,
			&e.Kind,
			&e.Type,
			&e.Method,
			&e.Amount,
			&e.CashAmount,
			&e.CardAmount,
			&e.Status,
			&e.ParticipantID,
			&e.SourceSaleID,
			&e.OccurredAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

func typeNames(types []ledger.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
