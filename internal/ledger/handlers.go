package ledger

import (
	"net/http"
	"strconv"

	"github.com/kreeda-labs/backend-quotes/internal/common"
)

// Handler exposes the activity trail read-only.
type Handler struct {
	Ledger Ledger
}

// Activity returns the most recent trail entries, newest last. The limit
// query parameter defaults to 50 and is capped at 500.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	if h.Ledger == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "ledger not configured", nil)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}
	if limit > 500 {
		limit = 500
	}
	entries, err := h.Ledger.Tail(r.Context(), limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to read activity trail", nil)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}
