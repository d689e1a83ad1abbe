package payments

import (
	"context"
	"errors"
)

// Event types delivered by the processor webhook.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

// ErrNotConfigured distinguishes a missing processor credential from every
// other failure so the handler can surface a remediation message.
var ErrNotConfigured = errors.New("payment provider not configured")

var ErrBadSignature = errors.New("webhook signature verification failed")

type LineItem struct {
	Name      string
	Images    []string
	UnitPrice int64
	Quantity  uint
	Currency  string
}

type SessionParams struct {
	Lines      []LineItem
	SuccessURL string
	CancelURL  string
	CustomerEmail string
	// Metadata rides on the session and comes back in webhook events; it
	// carries the order and user ids.
	Metadata map[string]string
}

type Session struct {
	ID  string
	URL string
}

// Event is the provider-neutral view of a webhook notification.
type Event struct {
	ID        string
	Type      string
	SessionID string
	Metadata  map[string]string
}

// Provider is the seam between checkout/webhook logic and the processor SDK.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	// VerifyEvent authenticates a raw webhook payload against its signature
	// header. It fails closed: unverifiable payloads never reach business
	// logic.
	VerifyEvent(payload []byte, sigHeader string) (*Event, error)
}
