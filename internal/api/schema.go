package api

import (
	"net/http"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Warehouse == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "warehouse is not configured", false, nil)
		return
	}
	info, err := deps.Warehouse.Initialize(r.Context())
	if err != nil {
		writeAPIError(w, r, classifyError(err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleSchemaReload drops the loaded tables and loads the sources again.
func handleSchemaReload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Warehouse == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "warehouse is not configured", false, nil)
		return
	}
	if err := deps.Warehouse.Reset(); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "RESET_FAILED", "failed to drop the loaded warehouse", true, map[string]any{"details": err.Error()})
		return
	}
	info, err := deps.Warehouse.Initialize(r.Context())
	if err != nil {
		writeAPIError(w, r, classifyError(err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}
