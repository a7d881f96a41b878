package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/querylog"
)

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_DISABLED", querylog.ErrDisabled.Error(), false, nil)
		return
	}

	limit := querylog.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, map[string]any{"limit": raw})
			return
		}
		limit = querylog.ClampLimit(parsed)
	}

	entries, err := deps.History.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, querylog.ErrDisabled) {
			writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_DISABLED", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_FAILED", "failed to read answer history", true, map[string]any{"details": err.Error()})
		return
	}
	if entries == nil {
		entries = []querylog.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "limit": limit})
}
