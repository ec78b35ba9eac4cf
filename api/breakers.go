package api

import (
	"net/http"

	"github.com/hookline/hookline/breaker"
)

func (h *Handler) listBreakers(w http.ResponseWriter, r *http.Request) {
	reg := h.hl.Breakers()
	if reg == nil {
		writeData(w, http.StatusOK, []breaker.Status{})
		return
	}

	writeData(w, http.StatusOK, reg.Statuses())
}

func (h *Handler) resetBreaker(w http.ResponseWriter, r *http.Request) {
	if reg := h.hl.Breakers(); reg != nil {
		reg.Reset(r.PathValue("key"))
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resetAllBreakers(w http.ResponseWriter, r *http.Request) {
	if reg := h.hl.Breakers(); reg != nil {
		reg.ResetAll()
	}

	w.WriteHeader(http.StatusNoContent)
}
