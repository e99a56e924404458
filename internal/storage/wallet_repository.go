package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/types"
)

// sortColumns maps leaderboard sort keys to SQL expressions. Only values
// from this map are ever interpolated into a query.
var sortColumns = map[models.SortKey]string{
	models.SortTotalPnL:   "(performance->>'totalPnL')::double precision",
	models.SortDailyPnL:   "(performance->>'dailyPnL')::double precision",
	models.SortWeeklyPnL:  "(performance->>'weeklyPnL')::double precision",
	models.SortMonthlyPnL: "(performance->>'monthlyPnL')::double precision",
	models.SortTotalValue: "total_value",
}

const snapshotColumns = `id, address, total_value, transactions, risk_assessment, performance, last_updated`

// WalletRepository persists wallet snapshots in Postgres, one row per address
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// FindByAddress returns the snapshot for address, or nil when none is stored
func (r *WalletRepository) FindByAddress(ctx context.Context, address string) (*models.WalletSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM wallet_snapshots WHERE address = $1`

	snapshot, err := scanSnapshot(r.pool.QueryRow(ctx, query, types.NormalizeAddress(address)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet snapshot: %w", err)
	}
	return snapshot, nil
}

// Upsert inserts or refreshes the snapshot for its address. An existing row
// keeps its id; the stored row is returned.
func (r *WalletRepository) Upsert(ctx context.Context, snapshot *models.WalletSnapshot) (*models.WalletSnapshot, error) {
	txJSON, err := json.Marshal(nonNilTransactions(snapshot.Transactions))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transactions: %w", err)
	}
	riskJSON, err := json.Marshal(snapshot.RiskAssessment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal risk assessment: %w", err)
	}
	perfJSON, err := json.Marshal(snapshot.Performance)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal performance: %w", err)
	}

	id := snapshot.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO wallet_snapshots (
			id,
			address,
			total_value,
			transactions,
			risk_assessment,
			performance,
			last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address)
		DO UPDATE SET
			total_value = EXCLUDED.total_value,
			transactions = EXCLUDED.transactions,
			risk_assessment = EXCLUDED.risk_assessment,
			performance = EXCLUDED.performance,
			last_updated = EXCLUDED.last_updated
		RETURNING ` + snapshotColumns

	stored, err := scanSnapshot(r.pool.QueryRow(
		ctx,
		query,
		id,
		types.NormalizeAddress(snapshot.Address),
		snapshot.TotalValue,
		txJSON,
		riskJSON,
		perfJSON,
		snapshot.LastUpdated.UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert wallet snapshot: %w", err)
	}
	return stored, nil
}

// List returns snapshots ordered for the leaderboard. Ties are broken by
// address so the order is deterministic.
func (r *WalletRepository) List(ctx context.Context, q models.LeaderboardQuery) ([]*models.WalletSnapshot, error) {
	query, err := buildListQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*models.WalletSnapshot, 0, q.Limit)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet snapshots: %w", err)
	}

	return snapshots, nil
}

func buildListQuery(q models.LeaderboardQuery) (string, error) {
	column, ok := sortColumns[q.SortBy]
	if !ok {
		return "", fmt.Errorf("unsupported sort key %q", q.SortBy)
	}
	direction := "DESC"
	if q.Order == models.OrderAsc {
		direction = "ASC"
	}
	if q.Limit <= 0 {
		return "", fmt.Errorf("invalid limit %d", q.Limit)
	}

	return fmt.Sprintf(
		`SELECT %s FROM wallet_snapshots ORDER BY %s %s NULLS LAST, address ASC LIMIT $1`,
		snapshotColumns, column, direction,
	), nil
}

func scanSnapshot(row pgx.Row) (*models.WalletSnapshot, error) {
	var (
		snapshot models.WalletSnapshot
		id       uuid.UUID
		txJSON   []byte
		riskJSON []byte
		perfJSON []byte
	)

	if err := row.Scan(
		&id,
		&snapshot.Address,
		&snapshot.TotalValue,
		&txJSON,
		&riskJSON,
		&perfJSON,
		&snapshot.LastUpdated,
	); err != nil {
		return nil, err
	}
	snapshot.ID = id.String()

	if len(txJSON) > 0 {
		if err := json.Unmarshal(txJSON, &snapshot.Transactions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
		}
	}
	snapshot.Transactions = nonNilTransactions(snapshot.Transactions)

	// Rows written before risk scoring carry a NULL assessment
	if len(riskJSON) > 0 {
		if err := json.Unmarshal(riskJSON, &snapshot.RiskAssessment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal risk assessment: %w", err)
		}
	}
	if len(perfJSON) > 0 {
		if err := json.Unmarshal(perfJSON, &snapshot.Performance); err != nil {
			return nil, fmt.Errorf("failed to unmarshal performance: %w", err)
		}
	}

	return &snapshot, nil
}

func nonNilTransactions(txs []types.Transaction) []types.Transaction {
	if txs == nil {
		return []types.Transaction{}
	}
	return txs
}
