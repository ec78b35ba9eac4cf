package api

import (
	"encoding/json"
	"net/http"

	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/scope"
)

type sendEventRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`

	// Raw sends Data on the wire verbatim instead of wrapping it in the
	// standard envelope.
	Raw bool `json:"raw,omitempty"`
}

// resultResponse is the JSON shape for one delivery outcome.
type resultResponse struct {
	WebhookID  string `json:"webhook_id"`
	DeliveryID string `json:"delivery_id,omitempty"`
	Success    bool   `json:"success"`
	Attempts   int    `json:"attempts"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

func toResultResponse(res delivery.Result) resultResponse {
	out := resultResponse{
		WebhookID:  res.WebhookID.String(),
		Success:    res.Success,
		Attempts:   res.Attempts,
		StatusCode: res.StatusCode,
	}
	if !res.DeliveryID.IsNil() {
		out.DeliveryID = res.DeliveryID.String()
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func (h *Handler) sendEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req sendEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "type is required")
		return
	}

	var evt *event.Event
	if req.Raw {
		evt = event.NewRaw(req.Type, req.Data)
	} else {
		evt = event.New(req.Type, req.Data)
	}

	results, err := h.hl.SendEvent(r.Context(), ownerID, scope.From(r.Context()).InboxID, evt)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	out := make([]resultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, toResultResponse(res))
	}

	writeData(w, http.StatusOK, out)
}
