package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logging.WithError(err).Warn("Failed to encode response")
		}
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

const maxBodyBytes = 1 << 16

// Common error codes
const (
	ErrCodeInvalidInput  = apperrors.CodeInvalidInput
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = apperrors.CodeInternalError
)

// mapServiceError maps service errors to an HTTP status, code and message.
// Input errors collapse to INVALID_INPUT; uncategorized errors never leak
// their text.
func mapServiceError(err error) (int, string, string) {
	catErr := apperrors.Categorize(err)
	if catErr == nil {
		return http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred"
	}

	switch catErr.Category {
	case apperrors.CategoryUserInput, apperrors.CategoryValidation:
		return http.StatusBadRequest, ErrCodeInvalidInput, catErr.Message
	case apperrors.CategoryRateLimit:
		return http.StatusTooManyRequests, catErr.Code, catErr.Message
	}

	if catErr.Code == apperrors.CodeInternalError {
		return http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred"
	}
	return catErr.StatusCode, catErr.Code, catErr.Message
}

// respondServiceError logs err with the request logger and writes the mapped response
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := mapServiceError(err)
	log := logging.FromContext(r.Context()).WithError(err).WithField("code", code)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Debug("Request rejected")
	}
	respondError(w, status, code, message, nil)
}
