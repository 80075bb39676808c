// Package handler contains the HTTP handlers for the market engine API. Each
// handler declares the narrow service interface it needs so the package never
// depends on concrete service types.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/predmarket/marketd/internal/domain"
)

// writeJSON marshals v and writes it with the given status. A marshal failure
// falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondServiceError maps a domain error to an HTTP status. Unclassified
// errors are logged and surfaced as a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "handler: "+op+" failed",
			slog.String("error", err.Error()),
		)
		writeError(w, status, op+" failed")
		return
	}
	writeError(w, status, err.Error())
}

// errorStatus classifies the domain error taxonomy into HTTP statuses:
// validation 400, authorization 403, not found 404, lifecycle conflicts 409,
// economic/arithmetic/external-data rejections 422.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrUnauthorizedSigner),
		errors.Is(err, domain.ErrInsufficientReputation),
		errors.Is(err, domain.ErrHumanVerificationRequired):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrInvalidQuestionLength),
		errors.Is(err, domain.ErrInvalidDescriptionLength),
		errors.Is(err, domain.ErrInvalidCategoryLength),
		errors.Is(err, domain.ErrInvalidResolutionDate),
		errors.Is(err, domain.ErrInvalidReasonLength),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrPredictionTooSmall),
		errors.Is(err, domain.ErrInvalidProof),
		errors.Is(err, domain.ErrProofExpired),
		errors.Is(err, domain.ErrInvalidAccuracyScore):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrMarketNotActive),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrMarketNotResolved),
		errors.Is(err, domain.ErrMarketExpired),
		errors.Is(err, domain.ErrMarketNotExpired),
		errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrActionExecuted),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrLockHeld):
		return http.StatusConflict

	case errors.Is(err, domain.ErrMathOverflow),
		errors.Is(err, domain.ErrSlippageExceeded),
		errors.Is(err, domain.ErrImbalancedLiquidity),
		errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, domain.ErrNoWinnings),
		errors.Is(err, domain.ErrPositionNotWinning),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrNoVotes),
		errors.Is(err, domain.ErrInsufficientOracleConfidence),
		errors.Is(err, domain.ErrInvalidOracleData):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

// parseListOpts extracts pagination from the query string. Defaults: limit=50
// (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{Limit: limit, Offset: offset}
}

// decodeJSON reads the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseOutcome converts the wire outcome string to a domain.Outcome.
func parseOutcome(s string) (domain.Outcome, error) {
	switch s {
	case "yes":
		return domain.OutcomeYes(), nil
	case "no":
		return domain.OutcomeNo(), nil
	default:
		return domain.Outcome{}, domain.ErrInvalidOutcome
	}
}
