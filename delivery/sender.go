package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/webhook"
)

const maxResponseBody = 1000 // cap on stored response body bytes

// Request is one signed wire payload bound for one subscription. Body is
// marshalled once per attempt sequence and Signature covers exactly those
// bytes, so every attempt in the sequence sends an identical request.
type Request struct {
	Subscription *webhook.Subscription
	DeliveryID   id.ID
	EventType    string
	Body         []byte
	Signature    string
}

// Attempt holds the outcome of a single HTTP attempt.
type Attempt struct {
	// StatusCode is the HTTP status, or 0 when the attempt failed in
	// transport before a status line arrived.
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// OK reports whether the attempt got a 2xx response.
func (a Attempt) OK() bool {
	return a.StatusCode >= 200 && a.StatusCode < 300
}

// Sender performs HTTP webhook delivery.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given HTTP timeout per attempt.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// NewSenderWithClient creates a sender using a caller-supplied HTTP client.
// The client's own timeout applies per attempt.
func NewSenderWithClient(client *http.Client) *Sender {
	return &Sender{client: client}
}

// Send performs one HTTP POST to the subscription URL and returns the
// attempt outcome. It never returns an error: transport failures come back
// as an Attempt with StatusCode 0 and the error string set.
func (s *Sender) Send(ctx context.Context, req Request) Attempt {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Subscription.URL, bytes.NewReader(req.Body))
	if err != nil {
		return Attempt{Error: fmt.Sprintf("create request: %v", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "Hookline/1.0")
	httpReq.Header.Set("X-Webhook-Id", req.Subscription.ID.String())
	httpReq.Header.Set("X-Delivery-Id", req.DeliveryID.String())
	httpReq.Header.Set("X-Event-Type", req.EventType)
	httpReq.Header.Set("X-Webhook-Signature", req.Signature)

	start := time.Now()
	resp, err := s.client.Do(httpReq) //nolint:gosec // G704: URL is a user-configured webhook destination
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Attempt{
			Error:     err.Error(),
			LatencyMs: int(latency),
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Attempt{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  int(latency),
		}
	}

	return Attempt{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  int(latency),
	}
}
