package api

import (
	"net/http"

	"github.com/hookline/hookline/catalog"
)

func (h *Handler) listEventTypes(w http.ResponseWriter, r *http.Request) {
	cat := h.hl.Catalog()
	if cat == nil {
		writeData(w, http.StatusOK, []catalog.Definition{})
		return
	}

	writeData(w, http.StatusOK, cat.List())
}
