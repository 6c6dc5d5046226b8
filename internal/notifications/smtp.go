// Package notifications delivers rendered messages over SMTP and chat
// webhooks.
package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/ticketflow-io/ticketflow/internal/config"
)

// EmailMessage is one outbound mail.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
	HTML    bool
}

// EmailProvider sends mail.
type EmailProvider interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPProvider sends mail through a configured SMTP server. With mail
// disabled in config it is a silent no-op so automation rules keep working
// in environments without a mail relay.
type SMTPProvider struct {
	cfg *config.EmailConfig
}

// NewSMTPProvider creates an SMTP-backed provider.
func NewSMTPProvider(cfg *config.EmailConfig) EmailProvider {
	return &SMTPProvider{cfg: cfg}
}

func (s *SMTPProvider) Send(_ context.Context, msg EmailMessage) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return nil
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	fromHeader := s.cfg.From
	if fromHeader == "" {
		fromHeader = s.cfg.SMTP.User
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", strings.Join(msg.To, ", ")),
		fmt.Sprintf("Subject: %s", msg.Subject),
	}
	if msg.HTML {
		headers = append(headers, "MIME-Version: 1.0", "Content-Type: text/html; charset=UTF-8")
	} else {
		headers = append(headers, "Content-Type: text/plain; charset=UTF-8")
	}
	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + msg.Body

	client, err := s.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.authenticate(client); err != nil {
		return err
	}

	sender := fromHeader
	if sender == "" {
		sender = "noreply@localhost"
	}
	if err := client.Mail(sender); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, to := range msg.To {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data transfer: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to quit SMTP session: %w", err)
	}
	return nil
}

func (s *SMTPProvider) dial() (*smtp.Client, error) {
	addr := s.cfg.SMTP.Host + ":" + strconv.Itoa(s.cfg.SMTP.Port)
	if !s.cfg.SMTP.UseTLS {
		client, err := smtp.Dial(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		return client, nil
	}

	tlsConfig := &tls.Config{ServerName: s.cfg.SMTP.Host}
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect via SMTPS: %w", err)
	}
	client, err := smtp.NewClient(conn, s.cfg.SMTP.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client, nil
}

func (s *SMTPProvider) authenticate(client *smtp.Client) error {
	if s.cfg.SMTP.User == "" || s.cfg.SMTP.Password == "" {
		return nil
	}
	auth := smtp.PlainAuth("", s.cfg.SMTP.User, s.cfg.SMTP.Password, s.cfg.SMTP.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	return nil
}
