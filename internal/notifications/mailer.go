package notifications

import (
	"context"
	"fmt"

	"github.com/ticketflow-io/ticketflow/internal/template"
)

// TemplateMailer renders a template by ID and sends it through an
// EmailProvider. It satisfies the automation executor's Mailer contract.
type TemplateMailer struct {
	renderer *template.Renderer
	provider EmailProvider
}

// NewTemplateMailer wires rendering to delivery.
func NewTemplateMailer(renderer *template.Renderer, provider EmailProvider) *TemplateMailer {
	return &TemplateMailer{renderer: renderer, provider: provider}
}

// Send renders templateID with vars and mails it to recipient. The subject
// comes from the "subject" variable when present.
func (m *TemplateMailer) Send(ctx context.Context, templateID, recipient string, vars map[string]interface{}) error {
	body, err := m.renderer.Render(templateID, vars)
	if err != nil {
		return fmt.Errorf("failed to render mail %q: %w", templateID, err)
	}

	subject := "Ticket notification"
	if s, ok := vars["subject"].(string); ok && s != "" {
		subject = s
	}

	msg := EmailMessage{
		To:      []string{recipient},
		Subject: subject,
		Body:    body,
		HTML:    true,
	}
	if err := m.provider.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail %q to %s: %w", templateID, recipient, err)
	}
	return nil
}
