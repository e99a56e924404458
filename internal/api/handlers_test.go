package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/insights"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/service"
	"github.com/wallet-insights/internal/types"
)

const handlerWallet = "0x28c6c06298d514db089934071355e5743bf21d60"

func postAnalyze(server *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/wallet/analyze", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	return w
}

func TestHandleAnalyzeWallet_Success(t *testing.T) {
	server, analysis, _ := createTestServer()
	generated := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	var got service.AnalyzeInput
	analysis.analyzeFunc = func(ctx context.Context, input service.AnalyzeInput) (*service.AnalyzeResult, error) {
		got = input
		return &service.AnalyzeResult{
			Wallet: &models.WalletSnapshot{
				ID:             "snap-1",
				Address:        handlerWallet,
				TotalValue:     12.5,
				Transactions:   []types.Transaction{},
				RiskAssessment: types.WalletRiskAssessment{OverallRisk: types.RiskLow, RiskFactors: []string{}},
				Performance:    types.EmptyPerformance(),
			},
			Insights:          `{"Performance insights":"steady"}`,
			ParsedInsights:    insights.Parse(`{"Performance insights":"steady"}`),
			InsightsAvailable: true,
			Refreshed:         true,
			GeneratedAt:       generated,
		}, nil
	}

	w := postAnalyze(server, `{"address":"  `+handlerWallet+`  ","includeRoast":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, service.AnalyzeInput{Address: handlerWallet, IncludeRoast: true}, got)

	var resp map[string]interface{}
	decodeBody(t, w, &resp)
	assert.Equal(t, true, resp["refreshed"])
	assert.Equal(t, true, resp["insightsAvailable"])
	assert.Equal(t, "2026-04-01T10:00:00Z", resp["generatedAt"])
	assert.NotContains(t, resp, "insightsError")

	wallet := resp["wallet"].(map[string]interface{})
	assert.Equal(t, "snap-1", wallet["id"])
	assert.Equal(t, 12.5, wallet["totalValue"])

	parsed := resp["parsedInsights"].(map[string]interface{})
	assert.Equal(t, true, parsed["isValid"])
	assert.Equal(t, map[string]interface{}{"Performance insights": "steady"}, parsed["insights"])
}

func TestHandleAnalyzeWallet_BadRequests(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{"missing address", `{}`, "Wallet address required"},
		{"blank address", `{"address":"   "}`, "Wallet address required"},
		{"invalid json", `not json`, "Invalid request body"},
		{"unknown field", `{"address":"` + handlerWallet + `","extra":1}`, "Invalid request body"},
		{"wrong type", `{"address":42}`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, analysis, _ := createTestServer()
			called := false
			analysis.analyzeFunc = func(ctx context.Context, input service.AnalyzeInput) (*service.AnalyzeResult, error) {
				called = true
				return nil, nil
			}

			w := postAnalyze(server, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, ErrCodeInvalidInput, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			assert.False(t, called)
		})
	}
}

func TestHandleAnalyzeWallet_ServiceErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:       "invalid address",
			err:        apperrors.NewInvalidAddressError("0x123"),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidInput,
		},
		{
			name:        "analysis failed",
			err:         apperrors.NewAnalysisFailedError(errors.New("pq: connection refused")),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    apperrors.CodeAnalysisFailed,
			wantMessage: "Failed to analyze wallet",
		},
		{
			name:        "uncategorized",
			err:         errors.New("secret internal detail"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrCodeInternalError,
			wantMessage: "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, analysis, _ := createTestServer()
			analysis.analyzeFunc = func(ctx context.Context, input service.AnalyzeInput) (*service.AnalyzeResult, error) {
				return nil, tt.err
			}

			w := postAnalyze(server, `{"address":"0x123"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp ErrorResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, resp.Error.Message)
			}
			assert.NotContains(t, w.Body.String(), "connection refused")
			assert.NotContains(t, w.Body.String(), "secret internal detail")
		})
	}
}

func TestHandleAnalyzeWallet_MethodNotAllowed(t *testing.T) {
	server, _, _ := createTestServer()

	req := httptest.NewRequest("GET", "/api/wallet/analyze", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleLeaderboard(t *testing.T) {
	server, _, leaderboard := createTestServer()

	var got models.LeaderboardQuery
	leaderboard.leaderboardFunc = func(ctx context.Context, q models.LeaderboardQuery) (*service.LeaderboardResult, error) {
		got = q
		return &service.LeaderboardResult{
			Entries: []models.LeaderboardEntry{
				{Rank: 1, Address: handlerWallet, ShortAddress: "0x28...1d60", RiskLevel: types.RiskUnknown},
				{Rank: 2, Address: "0x0000000000000000000000000000000000000001", RiskLevel: types.RiskHigh},
			},
			SortBy: q.SortBy,
			Order:  q.Order,
		}, nil
	}

	req := httptest.NewRequest("GET", "/api/leaderboard?sortBy=weeklyPnL&order=asc&limit=2", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.LeaderboardQuery{SortBy: models.SortWeeklyPnL, Order: models.OrderAsc, Limit: 2}, got)

	var resp LeaderboardResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, models.SortWeeklyPnL, resp.SortBy)
	assert.Equal(t, models.OrderAsc, resp.Order)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 1, resp.Data[0].Rank)
	assert.Equal(t, types.RiskUnknown, resp.Data[0].RiskLevel)
}

func TestHandleLeaderboard_Defaults(t *testing.T) {
	server, _, leaderboard := createTestServer()

	var got models.LeaderboardQuery
	leaderboard.leaderboardFunc = func(ctx context.Context, q models.LeaderboardQuery) (*service.LeaderboardResult, error) {
		got = q
		return &service.LeaderboardResult{Entries: []models.LeaderboardEntry{}, SortBy: q.SortBy, Order: q.Order}, nil
	}

	req := httptest.NewRequest("GET", "/api/leaderboard?sortBy=nonsense&order=asc&limit=abc", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.LeaderboardQuery{SortBy: models.SortTotalPnL, Order: models.OrderDesc, Limit: 50}, got)

	var resp map[string]interface{}
	decodeBody(t, w, &resp)
	assert.Equal(t, []interface{}{}, resp["data"])
	assert.Equal(t, float64(0), resp["count"])
	assert.Equal(t, "totalPnL", resp["sortBy"])
	assert.Equal(t, "desc", resp["order"])
}

func TestHandleLeaderboard_Error(t *testing.T) {
	server, _, leaderboard := createTestServer()
	leaderboard.leaderboardFunc = func(ctx context.Context, q models.LeaderboardQuery) (*service.LeaderboardResult, error) {
		return nil, apperrors.NewDatabaseError("list leaderboard", errors.New("relation missing"))
	}

	req := httptest.NewRequest("GET", "/api/leaderboard", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp LeaderboardErrorResponse
	decodeBody(t, w, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to fetch leaderboard data", resp.Error)
	assert.Equal(t, "database error during list leaderboard", resp.Message)
}

func TestHandleWalletHistory(t *testing.T) {
	server, analysis, _ := createTestServer()

	var gotAddress string
	var gotLimit int
	analysis.historyFunc = func(ctx context.Context, address string, limit int) ([]*models.AnalysisRecord, error) {
		gotAddress, gotLimit = address, limit
		return []*models.AnalysisRecord{{ID: "r1", Address: handlerWallet, InsightsKind: "valid"}}, nil
	}

	req := httptest.NewRequest("GET", "/api/wallet/0x28C6C06298D514DB089934071355E5743BF21D60/history?limit=5", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0x28C6C06298D514DB089934071355E5743BF21D60", gotAddress)
	assert.Equal(t, 5, gotLimit)

	var resp WalletHistoryResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, handlerWallet, resp.Address)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "r1", resp.Records[0].ID)
}

func TestHandleWalletHistory_Errors(t *testing.T) {
	server, analysis, _ := createTestServer()

	req := httptest.NewRequest("GET", "/api/wallet/"+handlerWallet+"/history?limit=ten", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var gotLimit int
	analysis.historyFunc = func(ctx context.Context, address string, limit int) ([]*models.AnalysisRecord, error) {
		gotLimit = limit
		return nil, apperrors.NewInvalidAddressError(address)
	}
	req = httptest.NewRequest("GET", "/api/wallet/nope/history", nil)
	w = httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, defaultHistoryLimit, gotLimit)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, ErrCodeInvalidInput, resp.Error.Code)
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid parameter", apperrors.NewInvalidParameterError("limit", "too big"), http.StatusBadRequest, ErrCodeInvalidInput},
		{"rate limit", apperrors.NewRateLimitError(3), http.StatusTooManyRequests, apperrors.CodeRateLimitExceeded},
		{"database", apperrors.NewDatabaseError("x", errors.New("y")), http.StatusInternalServerError, apperrors.CodeDatabaseError},
		{"service error", &types.ServiceError{Code: apperrors.CodeInvalidAddress, Message: "bad"}, http.StatusBadRequest, ErrCodeInvalidInput},
		{"nil", nil, http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := mapServiceError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
