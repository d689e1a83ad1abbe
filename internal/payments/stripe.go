package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeProvider drives Stripe hosted checkout. Zero-value keys yield
// ErrNotConfigured instead of opaque SDK errors.
type StripeProvider struct {
	SecretKey     string
	WebhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	return &StripeProvider{SecretKey: secretKey, WebhookSecret: webhookSecret}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	if p.SecretKey == "" {
		return nil, fmt.Errorf("%w: STRIPE_SECRET_KEY is not set, add it to the server environment", ErrNotConfigured)
	}
	stripe.Key = p.SecretKey

	lines := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.Lines))
	for _, l := range params.Lines {
		images := make([]*string, 0, len(l.Images))
		for _, img := range l.Images {
			images = append(images, stripe.String(img))
		}
		lines = append(lines, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(l.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(l.Currency),
				UnitAmount: stripe.Int64(l.UnitPrice),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:   stripe.String(l.Name),
					Images: images,
				},
			},
		})
	}

	sessParams := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lines,
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	if params.CustomerEmail != "" {
		sessParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	for k, v := range params.Metadata {
		sessParams.AddMetadata(k, v)
	}
	sessParams.Context = ctx

	s, err := session.New(sessParams)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) VerifyEvent(payload []byte, sigHeader string) (*Event, error) {
	if p.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET is not set, add it to the server environment", ErrNotConfigured)
	}

	ev, err := webhook.ConstructEvent(payload, sigHeader, p.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}

	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		out.SessionID = sess.ID
		out.Metadata = sess.Metadata
	}

	return out, nil
}
