package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-insights/internal/config"
	"github.com/wallet-insights/internal/models"
)

func TestHistoryOptions(t *testing.T) {
	opts := historyOptions(&config.ClickHouseConfig{
		Host:     "ch.internal",
		Port:     "9440",
		Database: "wallet_insights",
		User:     "writer",
		Password: "secret",
	})

	assert.Equal(t, []string{"ch.internal:9440"}, opts.Addr)
	assert.Equal(t, "wallet_insights", opts.Auth.Database)
	assert.Equal(t, "writer", opts.Auth.Username)
	assert.Equal(t, 1, opts.Settings["async_insert"])
	assert.Equal(t, 1, opts.Settings["wait_for_async_insert"], "inserts must be acknowledged so Record sees failures")
	require.Len(t, opts.ClientInfo.Products, 1)
	assert.Equal(t, clientName, opts.ClientInfo.Products[0].Name)
}

func TestSplitSQLStatements(t *testing.T) {
	content := `
-- header comment
CREATE TABLE a (
    x Int64
) ENGINE = MergeTree() ORDER BY x;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
SELECT 1`

	statements := splitSQLStatements(content)
	require.Len(t, statements, 3)
	assert.Equal(t, "CREATE TABLE a (\n    x Int64\n) ENGINE = MergeTree() ORDER BY x", statements[0])
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Memory", statements[1])
	assert.Equal(t, "SELECT 1", statements[2])
}

func TestSplitSQLStatements_Empty(t *testing.T) {
	assert.Empty(t, splitSQLStatements("-- nothing here\n\n"))
}

func TestNoopRecorder(t *testing.T) {
	var r NoopRecorder
	ctx := testContext(t)

	require.NoError(t, r.Record(ctx, &models.AnalysisRecord{Address: "0xabc"}))
	records, err := r.ListByAddress(ctx, "0xabc", 10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestAnalysisHistoryRepository_RecordAndList(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := NewClickHouseDB(&config.ClickHouseConfig{
		Host:     "localhost",
		Port:     "9000",
		Database: "default",
		User:     "default",
	})
	if err != nil {
		t.Skipf("Skipping test - ClickHouse not available: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := testContext(t)
	require.NoError(t, RunClickHouseMigrations(ctx, db, "../../migrations/clickhouse"))

	repo := NewAnalysisHistoryRepository(db)
	address := "0x" + time.Now().Format("20060102150405.000000")
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, kind := range []string{"valid", "fallback"} {
		require.NoError(t, repo.Record(ctx, &models.AnalysisRecord{
			Address:          address,
			OverallRisk:      "LOW",
			TotalValue:       float64(i),
			TransactionCount: 2,
			InsightsValid:    true,
			InsightsKind:     kind,
			AnalyzedAt:       base.Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := repo.ListByAddress(ctx, address, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "fallback", records[0].InsightsKind, "newest first")
	assert.NotEmpty(t, records[0].ID)
}
