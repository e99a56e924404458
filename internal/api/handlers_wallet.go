package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/service"
	"github.com/wallet-insights/internal/types"
)

const defaultHistoryLimit = 20

// AnalyzeWalletRequest is the body of POST /api/wallet/analyze
type AnalyzeWalletRequest struct {
	Address      string `json:"address"`
	IncludeRoast bool   `json:"includeRoast"`
}

// WalletHistoryResponse is the body of GET /api/wallet/{address}/history
type WalletHistoryResponse struct {
	Address string                   `json:"address"`
	Records []*models.AnalysisRecord `json:"records"`
	Count   int                      `json:"count"`
}

// handleAnalyzeWallet handles POST /api/wallet/analyze
func (s *Server) handleAnalyzeWallet(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeWalletRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", map[string]interface{}{
			"reason": err.Error(),
		})
		return
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Wallet address required", nil)
		return
	}

	result, err := s.analysisService.Analyze(r.Context(), service.AnalyzeInput{
		Address:      address,
		IncludeRoast: req.IncludeRoast,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleWalletHistory handles GET /api/wallet/{address}/history
func (s *Server) handleWalletHistory(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be an integer", nil)
			return
		}
		limit = n
	}

	records, err := s.analysisService.History(r.Context(), address, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, WalletHistoryResponse{
		Address: types.NormalizeAddress(address),
		Records: records,
		Count:   len(records),
	})
}
