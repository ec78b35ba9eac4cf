package api

import (
	"net/http"

	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/webhook"
)

type createWebhookRequest struct {
	InboxID   string            `json:"inbox_id,omitempty"`
	URL       string            `json:"url"`
	Events    []string          `json:"events"`
	Secret    string            `json:"secret,omitempty"`
	RateLimit int               `json:"rate_limit,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// webhookWithSecret is the create response: the one time the signing
// secret appears alongside the subscription.
type webhookWithSecret struct {
	*webhook.Subscription
	Secret string `json:"secret"`
}

func (h *Handler) createWebhook(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req createWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	sub, err := h.hl.Webhooks().Create(r.Context(), webhook.Input{
		OwnerID:   ownerID,
		InboxID:   req.InboxID,
		URL:       req.URL,
		Events:    req.Events,
		Secret:    req.Secret,
		RateLimit: req.RateLimit,
		Metadata:  req.Metadata,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, webhookWithSecret{Subscription: sub, Secret: sub.Secret})
}

func (h *Handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	opts := webhook.ListOpts{
		InboxID: queryParam(r, "inbox_id"),
		Offset:  queryInt(r, "offset", 0),
		Limit:   queryInt(r, "limit", 50),
	}

	subs, err := h.hl.Webhooks().List(r.Context(), ownerID, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, subs)
}

func (h *Handler) getWebhook(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid webhook ID")
		return
	}

	sub, getErr := h.hl.Webhooks().Get(r.Context(), whID, ownerID)
	if getErr != nil {
		h.writeServiceError(w, getErr)
		return
	}

	writeData(w, http.StatusOK, sub)
}

func (h *Handler) updateWebhook(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid webhook ID")
		return
	}

	var in webhook.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	sub, updateErr := h.hl.Webhooks().Update(r.Context(), whID, ownerID, in)
	if updateErr != nil {
		h.writeServiceError(w, updateErr)
		return
	}

	writeData(w, http.StatusOK, sub)
}

func (h *Handler) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid webhook ID")
		return
	}

	if deleteErr := h.hl.Webhooks().Delete(r.Context(), whID, ownerID); deleteErr != nil {
		h.writeServiceError(w, deleteErr)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid webhook ID")
		return
	}

	secret, rotateErr := h.hl.Webhooks().RotateSecret(r.Context(), whID, ownerID)
	if rotateErr != nil {
		h.writeServiceError(w, rotateErr)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"secret": secret})
}

func (h *Handler) activateWebhook(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivateWebhook(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid webhook ID")
		return
	}

	if setErr := h.hl.Webhooks().SetActive(r.Context(), whID, ownerID, active); setErr != nil {
		h.writeServiceError(w, setErr)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid webhook ID")
		return
	}

	opts := delivery.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}

	switch queryParam(r, "success") {
	case "true":
		success := true
		opts.Success = &success
	case "false":
		success := false
		opts.Success = &success
	}

	recs, listErr := h.hl.Deliveries(r.Context(), whID, ownerID, opts)
	if listErr != nil {
		h.writeServiceError(w, listErr)
		return
	}

	writeData(w, http.StatusOK, recs)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid webhook ID")
		return
	}

	stats, statsErr := h.hl.Stats(r.Context(), whID, ownerID)
	if statsErr != nil {
		h.writeServiceError(w, statsErr)
		return
	}

	writeData(w, http.StatusOK, stats)
}
