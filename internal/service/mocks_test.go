package service

import (
	"context"
	"sync"
	"time"

	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/types"
)

// Mock collaborators for testing

type mockWalletStore struct {
	mu        sync.Mutex
	snapshots map[string]*models.WalletSnapshot
	upserts   int
	findErr   error
	upsertErr error
	listErr   error
	listed    []models.LeaderboardQuery
	list      []*models.WalletSnapshot
}

func newMockWalletStore() *mockWalletStore {
	return &mockWalletStore{snapshots: map[string]*models.WalletSnapshot{}}
}

func (m *mockWalletStore) FindByAddress(ctx context.Context, address string) (*models.WalletSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	s, ok := m.snapshots[address]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockWalletStore) Upsert(ctx context.Context, snapshot *models.WalletSnapshot) (*models.WalletSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.upserts++

	stored := *snapshot
	if existing, ok := m.snapshots[snapshot.Address]; ok {
		stored.ID = existing.ID
	} else {
		stored.ID = "generated-id"
	}
	m.snapshots[snapshot.Address] = &stored
	cp := stored
	return &cp, nil
}

func (m *mockWalletStore) List(ctx context.Context, q models.LeaderboardQuery) ([]*models.WalletSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed = append(m.listed, q)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.list, nil
}

func (m *mockWalletStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

type mockMarketData struct {
	mu      sync.Mutex
	txs     []types.Transaction
	value   float64
	records []types.TokenPerformanceRecord
	calls   map[string]int
	// hold, when set, is called at the start of every fetch
	hold func()
}

func newMockMarketData() *mockMarketData {
	return &mockMarketData{
		txs:     []types.Transaction{},
		records: []types.TokenPerformanceRecord{},
		calls:   map[string]int{},
	}
}

func (m *mockMarketData) track(name string) {
	m.mu.Lock()
	m.calls[name]++
	hold := m.hold
	m.mu.Unlock()
	if hold != nil {
		hold()
	}
}

func (m *mockMarketData) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockMarketData) GetTransactionHistory(ctx context.Context, address string) []types.Transaction {
	m.track("history")
	return m.txs
}

func (m *mockMarketData) GetPortfolioValue(ctx context.Context, address string) float64 {
	m.track("value")
	return m.value
}

func (m *mockMarketData) GetTokenPerformance(ctx context.Context, address string) []types.TokenPerformanceRecord {
	m.track("performance")
	return m.records
}

type mockInsightsGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	lastSeen *models.WalletSnapshot
	roast    bool
}

func (m *mockInsightsGenerator) GenerateInsights(ctx context.Context, snapshot *models.WalletSnapshot, includeRoast bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastSeen = snapshot
	m.roast = includeRoast
	return m.response, m.err
}

type mockRecorder struct {
	mu      sync.Mutex
	records []*models.AnalysisRecord
	err     error
	listErr error
}

func (m *mockRecorder) Record(ctx context.Context, record *models.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return m.err
}

func (m *mockRecorder) ListByAddress(ctx context.Context, address string, limit int) ([]*models.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.AnalysisRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].Address == address {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
