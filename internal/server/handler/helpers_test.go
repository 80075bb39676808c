package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/domain"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnauthorized, http.StatusForbidden},
		{domain.ErrInsufficientReputation, http.StatusForbidden},
		{domain.ErrInvalidQuestionLength, http.StatusBadRequest},
		{domain.ErrPredictionTooSmall, http.StatusBadRequest},
		{domain.ErrMarketNotActive, http.StatusConflict},
		{domain.ErrAlreadyClaimed, http.StatusConflict},
		{domain.ErrLockHeld, http.StatusConflict},
		{domain.ErrSlippageExceeded, http.StatusUnprocessableEntity},
		{domain.ErrMathOverflow, http.StatusUnprocessableEntity},
		{domain.ErrInsufficientOracleConfidence, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", domain.ErrImbalancedLiquidity), http.StatusUnprocessableEntity},
		{fmt.Errorf("opaque failure"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, errorStatus(tc.err), "error %v", tc.err)
	}
}

func TestParseListOpts(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/markets?limit=20&offset=40", nil)
	opts := parseListOpts(req)
	require.Equal(t, 20, opts.Limit)
	require.Equal(t, 40, opts.Offset)

	req = httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	opts = parseListOpts(req)
	require.Equal(t, 50, opts.Limit)
	require.Equal(t, 0, opts.Offset)

	req = httptest.NewRequest(http.MethodGet, "/api/markets?limit=9999&offset=-5", nil)
	opts = parseListOpts(req)
	require.Equal(t, 500, opts.Limit)
	require.Equal(t, 0, opts.Offset)
}

func TestParseOutcome(t *testing.T) {
	yes, err := parseOutcome("yes")
	require.NoError(t, err)
	require.True(t, yes.Equal(domain.OutcomeYes()))

	no, err := parseOutcome("no")
	require.NoError(t, err)
	require.True(t, no.Equal(domain.OutcomeNo()))

	_, err = parseOutcome("maybe")
	require.ErrorIs(t, err, domain.ErrInvalidOutcome)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "bad input")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"bad input"}`, rec.Body.String())
}
