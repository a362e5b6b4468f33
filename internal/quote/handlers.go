package quote

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/kreeda-labs/backend-quotes/internal/common"
	"github.com/kreeda-labs/backend-quotes/internal/store"
)

// Handler serves persisted quotes read-only.
type Handler struct {
	Store *store.Store
}

// Get returns one quote by email id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote store not configured", nil)
		return
	}
	id := chi.URLParam(r, "emailID")
	var q Quote
	if err := h.Store.Load(id, &q); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			common.JSONError(w, http.StatusNotFound, "QUOTE_NOT_FOUND", "no quote for this email", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load quote", nil)
		return
	}
	common.JSON(w, http.StatusOK, q)
}

// List returns the ids of all persisted quotes.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote store not configured", nil)
		return
	}
	ids, err := h.Store.List()
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list quotes", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ids})
}
