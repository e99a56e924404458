package api

import (
	"net/http"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/models"
)

// LeaderboardResponse is the body of GET /api/leaderboard
type LeaderboardResponse struct {
	Success bool                      `json:"success"`
	Data    []models.LeaderboardEntry `json:"data"`
	Count   int                       `json:"count"`
	SortBy  models.SortKey            `json:"sortBy"`
	Order   models.SortOrder          `json:"order"`
}

// LeaderboardErrorResponse is returned when the leaderboard cannot be read
type LeaderboardErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleLeaderboard handles GET /api/leaderboard
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := models.NewLeaderboardQuery(params.Get("sortBy"), params.Get("order"), params.Get("limit"))

	result, err := s.leaderboardService.Leaderboard(r.Context(), q)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("Error fetching leaderboard data")
		respondJSON(w, http.StatusInternalServerError, LeaderboardErrorResponse{
			Success: false,
			Error:   "Failed to fetch leaderboard data",
			Message: apperrors.Categorize(err).Message,
		})
		return
	}

	respondJSON(w, http.StatusOK, LeaderboardResponse{
		Success: true,
		Data:    result.Entries,
		Count:   len(result.Entries),
		SortBy:  result.SortBy,
		Order:   result.Order,
	})
}
