package eventlog

import (
	"net/http"
	"strconv"

	"github.com/noah-isme/backend-billing/internal/common"
)

// Handler exposes a read-only HTTP view over the event log.
type Handler struct {
	Store Store
}

// List returns the most recent event log records.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "EVENTLOG_NOT_CONFIGURED", "event log store not configured", nil)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := h.Store.ListRecent(r.Context(), limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "EVENTLOG_QUERY_FAILED", "unable to fetch event log", nil)
		return
	}
	if records == nil {
		records = []Record{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": records})
}
