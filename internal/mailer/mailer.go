package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/liushenghao/taixuan_shop/internal/models"
)

// Mailer sends order confirmations through Resend. A nil Mailer (no API key)
// drops mail silently; callers treat send failures as non-fatal either way.
type Mailer struct {
	client *resend.Client
	from   string
}

func New(apiKey, from string) *Mailer {
	if apiKey == "" {
		return nil
	}
	return &Mailer{client: resend.NewClient(apiKey), from: from}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.client != nil
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if !m.Enabled() {
		return nil
	}
	if order.Email == "" {
		return fmt.Errorf("order %d has no email", order.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Payment received for order #%d</h2><ul>", order.ID)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "<li>%s &times; %d</li>", it.Name, it.Quantity)
	}
	fmt.Fprintf(&b, "</ul><p>Total: %d.%02d %s</p>",
		order.Total/100, order.Total%100, strings.ToUpper(order.Currency))

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{order.Email},
		Subject: fmt.Sprintf("Order #%d confirmed", order.ID),
		Html:    b.String(),
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend: send confirmation: %w", err)
	}
	return nil
}
