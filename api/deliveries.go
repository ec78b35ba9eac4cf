package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/hookline/hookline/breaker"
	"github.com/hookline/hookline/id"
)

func (h *Handler) redeliver(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	delID, err := id.ParseDeliveryID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid delivery ID")
		return
	}

	res, redeliverErr := h.hl.Redeliver(r.Context(), delID, ownerID)
	if redeliverErr != nil {
		h.writeServiceError(w, redeliverErr)
		return
	}

	// A circuit rejection means the sequence never ran; surface it as
	// unavailability rather than a completed failure.
	var openErr *breaker.OpenError
	if errors.As(res.Err, &openErr) {
		w.Header().Set("Retry-After", strconv.FormatInt(ceilSeconds(openErr.RetryAfter), 10))
		writeError(w, http.StatusServiceUnavailable, "circuit_open", res.Err.Error())
		return
	}

	writeData(w, http.StatusOK, toResultResponse(res))
}
