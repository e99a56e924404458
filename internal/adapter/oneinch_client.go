package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wallet-insights/internal/config"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/types"
)

const oneInchProvider = "1inch"

// OneInchClient reads wallet history, portfolio value and token performance
// from the 1inch API. The Get methods never fail: upstream errors are logged
// and replaced by empty defaults.
type OneInchClient struct {
	baseURL      string
	chainID      string
	historyLimit int
	timeout      time.Duration
	http         *upstream
}

// NewOneInchClient creates a client from configuration
func NewOneInchClient(cfg config.OneInchConfig) *OneInchClient {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	chainID := cfg.ChainID
	if chainID == "" {
		chainID = "1"
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 50
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &OneInchClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		chainID:      chainID,
		historyLimit: limit,
		timeout:      timeout,
		http:         newUpstream(oneInchProvider, &http.Client{}, headers),
	}
}

// Wire formats

type historyRequest struct {
	Filter historyFilter `json:"filter"`
}

type historyFilter struct {
	ChainIDs []string `json:"chain_ids"`
	Limit    int      `json:"limit"`
}

type historyResponse struct {
	Items []historyItem `json:"items"`
}

type historyItem struct {
	ID           flexString      `json:"id"`
	TimeMs       int64           `json:"timeMs"`
	Type         flexString      `json:"type"`
	Direction    flexString      `json:"direction"`
	TxHash       string          `json:"txHash"`
	TokenActions []tokenAction   `json:"tokenActions"`
	Details      *historyDetails `json:"details"`
}

type historyDetails struct {
	TxHash       string        `json:"txHash"`
	Type         flexString    `json:"type"`
	TokenActions []tokenAction `json:"tokenActions"`
}

type tokenAction struct {
	Address   string     `json:"address"`
	Symbol    string     `json:"symbol"`
	Amount    flexString `json:"amount"`
	Direction string     `json:"direction"`
	USDValue  flexFloat  `json:"usdValue"`
}

type portfolioResponse struct {
	Result *struct {
		Total flexFloat `json:"total"`
	} `json:"result"`
}

type tokenRecord struct {
	ContractAddress string    `json:"contract_address"`
	ProfitPeriod    flexFloat `json:"abs_profit_fiat_period"`
}

// FetchTransactionHistory returns recent history events for address
func (c *OneInchClient) FetchTransactionHistory(ctx context.Context, address string) ([]types.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/history/v2.0/history/%s/events", c.baseURL, url.PathEscape(address))
	body := historyRequest{Filter: historyFilter{ChainIDs: []string{c.chainID}, Limit: c.historyLimit}}

	var resp historyResponse
	if err := c.http.doJSON(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}

	txs := make([]types.Transaction, 0, len(resp.Items))
	for _, item := range resp.Items {
		txs = append(txs, item.toTransaction())
	}
	return txs, nil
}

func (item historyItem) toTransaction() types.Transaction {
	tx := types.Transaction{
		ID:        string(item.ID),
		TxHash:    item.TxHash,
		TimeMs:    item.TimeMs,
		Type:      string(item.Type),
		Direction: string(item.Direction),
	}

	actions := item.TokenActions
	if item.Details != nil {
		if tx.TxHash == "" {
			tx.TxHash = item.Details.TxHash
		}
		if tx.Type == "" {
			tx.Type = string(item.Details.Type)
		}
		if len(actions) == 0 {
			actions = item.Details.TokenActions
		}
	}

	tx.TokenActions = make([]types.TokenAction, 0, len(actions))
	for _, a := range actions {
		tx.TokenActions = append(tx.TokenActions, types.TokenAction{
			Address:   a.Address,
			Symbol:    a.Symbol,
			Amount:    string(a.Amount),
			Direction: types.Direction(a.Direction),
			USDValue:  float64(a.USDValue),
		})
	}
	return tx
}

// FetchPortfolioValue returns the current fiat value of address
func (c *OneInchClient) FetchPortfolioValue(ctx context.Context, address string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("addresses", address)
	query.Set("chain_id", c.chainID)
	endpoint := c.baseURL + "/portfolio/portfolio/v5.0/general/current_value?" + query.Encode()

	var resp portfolioResponse
	if err := c.http.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Result == nil {
		return 0, nil
	}
	return float64(resp.Result.Total), nil
}

// FetchTokenPerformance returns per-token profit records for address.
// The endpoint answers with either a bare list or {"result": [...]}.
func (c *OneInchClient) FetchTokenPerformance(ctx context.Context, address string) ([]types.TokenPerformanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("chain_id", c.chainID)
	query.Set("address", address)
	endpoint := c.baseURL + "/portfolio/portfolio/v5.0/wallet/tokens?" + query.Encode()

	var raw json.RawMessage
	if err := c.http.doJSON(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}

	records, err := decodeTokenRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token performance: %w", err)
	}
	return records, nil
}

func decodeTokenRecords(raw json.RawMessage) ([]types.TokenPerformanceRecord, error) {
	raw = bytes.TrimSpace(raw)
	var list []tokenRecord

	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return []types.TokenPerformanceRecord{}, nil
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
	case raw[0] == '{':
		var wrapped struct {
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		result := bytes.TrimSpace(wrapped.Result)
		if len(result) == 0 || result[0] != '[' {
			return []types.TokenPerformanceRecord{}, nil
		}
		if err := json.Unmarshal(result, &list); err != nil {
			return nil, err
		}
	default:
		return []types.TokenPerformanceRecord{}, nil
	}

	records := make([]types.TokenPerformanceRecord, 0, len(list))
	for _, r := range list {
		records = append(records, types.TokenPerformanceRecord{
			ContractAddress: r.ContractAddress,
			ProfitPeriod:    float64(r.ProfitPeriod),
		})
	}
	return records, nil
}

// GetTransactionHistory returns history or an empty list on failure
func (c *OneInchClient) GetTransactionHistory(ctx context.Context, address string) []types.Transaction {
	txs, err := c.FetchTransactionHistory(ctx, address)
	if err != nil {
		c.logDegraded(ctx, "history", address, err)
		return []types.Transaction{}
	}
	return txs
}

// GetPortfolioValue returns the portfolio total or zero on failure
func (c *OneInchClient) GetPortfolioValue(ctx context.Context, address string) float64 {
	value, err := c.FetchPortfolioValue(ctx, address)
	if err != nil {
		c.logDegraded(ctx, "portfolio", address, err)
		return 0
	}
	return value
}

// GetTokenPerformance returns performance records or an empty list on failure
func (c *OneInchClient) GetTokenPerformance(ctx context.Context, address string) []types.TokenPerformanceRecord {
	records, err := c.FetchTokenPerformance(ctx, address)
	if err != nil {
		c.logDegraded(ctx, "tokens", address, err)
		return []types.TokenPerformanceRecord{}
	}
	return records
}

func (c *OneInchClient) logDegraded(ctx context.Context, endpoint, address string, err error) {
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"provider": oneInchProvider,
		"endpoint": endpoint,
		"address":  address,
	}).WithError(err).Warn("Market data unavailable, using default")
}

// SetPacer makes every 1inch request wait for shared budget first
func (c *OneInchClient) SetPacer(p Pacer) {
	c.http.pacer = p
}

// BreakerState reports the circuit breaker state for health checks
func (c *OneInchClient) BreakerState() string {
	return string(c.http.breaker.State())
}
