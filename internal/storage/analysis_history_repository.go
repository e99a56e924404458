package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/types"
)

// DefaultHistoryLimit bounds ListByAddress when no limit is given
const DefaultHistoryLimit = 20

// AnalysisHistoryRepository appends analysis records to ClickHouse
type AnalysisHistoryRepository struct {
	conn driver.Conn
}

// NewAnalysisHistoryRepository creates a new history repository
func NewAnalysisHistoryRepository(db *ClickHouseDB) *AnalysisHistoryRepository {
	return &AnalysisHistoryRepository{conn: db.Conn()}
}

// Record appends one analysis record
func (r *AnalysisHistoryRepository) Record(ctx context.Context, record *models.AnalysisRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	query := `
		INSERT INTO analysis_history (
			id, address, overall_risk, total_risk_score, total_pnl, total_value,
			transaction_count, refreshed, insights_valid, insights_kind,
			include_roast, analyzed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.conn.Exec(ctx, query,
		record.ID,
		types.NormalizeAddress(record.Address),
		record.OverallRisk,
		record.TotalRiskScore,
		record.TotalPnL,
		record.TotalValue,
		record.TransactionCount,
		record.Refreshed,
		record.InsightsValid,
		record.InsightsKind,
		record.IncludeRoast,
		record.AnalyzedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis record: %w", err)
	}
	return nil
}

// ListByAddress returns the most recent records for address, newest first
func (r *AnalysisHistoryRepository) ListByAddress(ctx context.Context, address string, limit int) ([]*models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT
			id, address, overall_risk, total_risk_score, total_pnl, total_value,
			transaction_count, refreshed, insights_valid, insights_kind,
			include_roast, analyzed_at
		FROM analysis_history
		WHERE address = ?
		ORDER BY analyzed_at DESC
		LIMIT ?
	`

	var rows []models.AnalysisRecord
	if err := r.conn.Select(ctx, &rows, query, types.NormalizeAddress(address), limit); err != nil {
		return nil, fmt.Errorf("failed to query analysis history: %w", err)
	}

	records := make([]*models.AnalysisRecord, len(rows))
	for i := range rows {
		records[i] = &rows[i]
	}
	return records, nil
}

// NoopRecorder discards records. It is used when ClickHouse is disabled.
type NoopRecorder struct{}

// Record does nothing
func (NoopRecorder) Record(context.Context, *models.AnalysisRecord) error { return nil }

// ListByAddress always returns an empty list
func (NoopRecorder) ListByAddress(context.Context, string, int) ([]*models.AnalysisRecord, error) {
	return []*models.AnalysisRecord{}, nil
}
