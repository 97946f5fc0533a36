// Package mongo archives closed-day reports in MongoDB.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/report"
)

const (
	// ReportCollectionName is the name of the report collection in MongoDB
	ReportCollectionName = "shift_reports"
)

// document is the stored shape. The snapshot goes through its JSON form so
// decimal points values keep their exact string representation.
type document struct {
	BusinessDay string          `bson:"business_day"`
	ClosedAt    time.Time       `bson:"closed_at"`
	ClosedBy    string          `bson:"closed_by"`
	NetTotal    int64           `bson:"net_total"`
	FundTotal   int64           `bson:"fund_total"`
	Snapshot    bson.M          `bson:"snapshot"`
	Entries     []*ledger.Entry `bson:"entries"`
	ArchivedAt  time.Time       `bson:"archived_at"`
}

// ReportRepository implements the report.Repository interface for MongoDB
type ReportRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewReportRepository creates a new MongoDB report repository
func NewReportRepository(logger *slog.Logger, db *mongo.Database) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique business_day index
func (r *ReportRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(ReportCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "business_day", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create shift report index: %w", err)
	}
	return nil
}

// Save upserts the report by business day, so a replayed outbox message
// overwrites rather than duplicates
func (r *ReportRepository) Save(ctx context.Context, rep *report.Report) error {
	collection := r.db.Collection(ReportCollectionName)

	doc, err := toDocument(rep)
	if err != nil {
		return err
	}

	filter := bson.M{"business_day": rep.BusinessDay}
	_, err = collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to save shift report", "business_day", rep.BusinessDay, "error", err)
		return fmt.Errorf("failed to save shift report: %w", err)
	}

	return nil
}

// GetByBusinessDay returns ErrNotFound until the report was archived
func (r *ReportRepository) GetByBusinessDay(ctx context.Context, businessDay string) (*report.Report, error) {
	collection := r.db.Collection(ReportCollectionName)

	var doc document
	err := collection.FindOne(ctx, bson.M{"business_day": businessDay}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, report.ErrNotFound{BusinessDay: businessDay}
		}
		r.logger.Error("Failed to get shift report", "business_day", businessDay, "error", err)
		return nil, fmt.Errorf("failed to get shift report: %w", err)
	}

	return fromDocument(&doc)
}

func toDocument(rep *report.Report) (*document, error) {
	raw, err := json.Marshal(rep.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	var snapshot bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to convert snapshot: %w", err)
	}

	return &document{
		BusinessDay: rep.BusinessDay,
		ClosedAt:    rep.ClosedAt,
		ClosedBy:    rep.ClosedBy,
		NetTotal:    rep.Snapshot.NetTotal,
		FundTotal:   rep.Snapshot.FundTotal,
		Snapshot:    snapshot,
		Entries:     rep.Entries,
		ArchivedAt:  rep.ArchivedAt,
	}, nil
}

func fromDocument(doc *document) (*report.Report, error) {
	raw, err := bson.MarshalExtJSON(doc.Snapshot, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert snapshot: %w", err)
	}
	var snapshot closure.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return &report.Report{
		BusinessDay: doc.BusinessDay,
		ClosedAt:    doc.ClosedAt,
		ClosedBy:    doc.ClosedBy,
		Snapshot:    &snapshot,
		Entries:     doc.Entries,
		ArchivedAt:  doc.ArchivedAt,
	}, nil
}
