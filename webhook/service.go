package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/signature"
)

// Service provides subscription management operations.
//
// Every operation is scoped to an owner account. A webhook ID that exists
// but belongs to a different owner behaves exactly like one that does not
// exist.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new subscription service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Create registers a new webhook subscription. The signing secret is
// generated server-side unless the input supplies one, and is returned on
// the subscription; this is the one time callers see it alongside the rest
// of the fields.
func (svc *Service) Create(ctx context.Context, in Input) (*Subscription, error) {
	if in.OwnerID == "" {
		return nil, &ValidationError{Field: "owner_id", Message: "required"}
	}

	if err := validateURL(in.URL); err != nil {
		return nil, err
	}

	if len(in.Events) == 0 {
		return nil, ErrInvalidEvents
	}

	if in.InboxID != "" {
		if err := svc.checkInbox(ctx, in.OwnerID, in.InboxID); err != nil {
			return nil, err
		}
	}

	if in.RateLimit < 0 {
		return nil, &ValidationError{Field: "rate_limit", Message: "must not be negative"}
	}

	secret := in.Secret
	if secret == "" {
		secret = signature.GenerateSecret()
	}

	sub := &Subscription{
		Entity:    entity.New(),
		ID:        id.NewWebhookID(),
		OwnerID:   in.OwnerID,
		InboxID:   in.InboxID,
		URL:       in.URL,
		Events:    in.Events,
		Secret:    secret,
		Active:    true,
		RateLimit: in.RateLimit,
		Metadata:  in.Metadata,
	}

	if err := svc.store.CreateWebhook(ctx, sub); err != nil {
		return nil, err
	}

	svc.logger.DebugContext(ctx, "webhook created",
		"webhook_id", sub.ID,
		"owner_id", sub.OwnerID,
		"url", sub.URL,
	)

	return sub, nil
}

// Get returns a subscription owned by the given account.
func (svc *Service) Get(ctx context.Context, whID id.ID, ownerID string) (*Subscription, error) {
	return svc.owned(ctx, whID, ownerID)
}

// Update applies a partial update to an owned subscription. Nil fields keep
// their current value. The signing secret cannot be updated here; use
// RotateSecret.
func (svc *Service) Update(ctx context.Context, whID id.ID, ownerID string, in UpdateInput) (*Subscription, error) {
	sub, err := svc.owned(ctx, whID, ownerID)
	if err != nil {
		return nil, err
	}

	if in.URL != nil {
		if err := validateURL(*in.URL); err != nil {
			return nil, err
		}
		sub.URL = *in.URL
	}
	if in.InboxID != nil {
		if *in.InboxID != "" {
			if err := svc.checkInbox(ctx, ownerID, *in.InboxID); err != nil {
				return nil, err
			}
		}
		sub.InboxID = *in.InboxID
	}
	if in.Events != nil {
		if len(in.Events) == 0 {
			return nil, ErrInvalidEvents
		}
		sub.Events = in.Events
	}
	if in.Active != nil {
		sub.Active = *in.Active
	}
	if in.RateLimit != nil {
		if *in.RateLimit < 0 {
			return nil, &ValidationError{Field: "rate_limit", Message: "must not be negative"}
		}
		sub.RateLimit = *in.RateLimit
	}
	if in.Metadata != nil {
		sub.Metadata = in.Metadata
	}

	if err := svc.store.UpdateWebhook(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// Delete removes an owned subscription and all of its delivery records.
func (svc *Service) Delete(ctx context.Context, whID id.ID, ownerID string) error {
	if _, err := svc.owned(ctx, whID, ownerID); err != nil {
		return err
	}

	if err := svc.store.DeleteWebhook(ctx, whID); err != nil {
		return err
	}

	svc.logger.DebugContext(ctx, "webhook deleted",
		"webhook_id", whID,
		"owner_id", ownerID,
	)

	return nil
}

// List returns subscriptions for an owner.
func (svc *Service) List(ctx context.Context, ownerID string, opts ListOpts) ([]*Subscription, error) {
	return svc.store.ListWebhooks(ctx, ownerID, opts)
}

// SetActive activates or deactivates an owned subscription.
func (svc *Service) SetActive(ctx context.Context, whID id.ID, ownerID string, active bool) error {
	if _, err := svc.owned(ctx, whID, ownerID); err != nil {
		return err
	}
	return svc.store.SetActive(ctx, whID, active)
}

// RotateSecret generates a new signing secret for an owned subscription and
// returns it. The old secret stops working immediately.
func (svc *Service) RotateSecret(ctx context.Context, whID id.ID, ownerID string) (string, error) {
	sub, err := svc.owned(ctx, whID, ownerID)
	if err != nil {
		return "", err
	}

	newSecret := signature.GenerateSecret()

	sub.Secret = newSecret
	if err := svc.store.UpdateWebhook(ctx, sub); err != nil {
		return "", err
	}

	return newSecret, nil
}

// owned loads a subscription and verifies ownership. A subscription owned
// by someone else reads as not found.
func (svc *Service) owned(ctx context.Context, whID id.ID, ownerID string) (*Subscription, error) {
	sub, err := svc.store.GetWebhook(ctx, whID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return sub, nil
}

// checkInbox verifies that the inbox exists and belongs to the owner. A
// missing inbox and a foreign inbox produce the same error.
func (svc *Service) checkInbox(ctx context.Context, ownerID, inboxID string) error {
	inboxOwner, err := svc.store.InboxOwner(ctx, inboxID)
	if err != nil {
		if errors.Is(err, ErrInboxNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if inboxOwner != ownerID {
		return ErrUnauthorized
	}
	return nil
}

// validateURL rejects anything that is not an absolute http or https URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "webhook validation: " + e.Field + ": " + e.Message
}
