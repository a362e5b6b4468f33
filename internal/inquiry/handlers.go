package inquiry

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/kreeda-labs/backend-quotes/internal/common"
	"github.com/kreeda-labs/backend-quotes/internal/store"
)

// Handler serves persisted parsed events read-only.
type Handler struct {
	Store *store.Store
}

// Get returns one parsed event by email id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "event store not configured", nil)
		return
	}
	id := chi.URLParam(r, "emailID")
	var event ParsedEvent
	if err := h.Store.Load(id, &event); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			common.JSONError(w, http.StatusNotFound, "EVENT_NOT_FOUND", "no parsed event for this email", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load event", nil)
		return
	}
	common.JSON(w, http.StatusOK, event)
}

// List returns the ids of all persisted events.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "event store not configured", nil)
		return
	}
	ids, err := h.Store.List()
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list events", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ids})
}
