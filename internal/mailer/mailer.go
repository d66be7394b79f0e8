// Package mailer delivers campaign messages over SMTP. Supports implicit TLS
// (port 465), STARTTLS (port 587) and plaintext relays for local testing.
package mailer

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"log/slog"

	"github.com/mohamedattahri/mail"

	"phishly/internal/config"
)

// Mailer sends HTML messages through a configured SMTP relay.
type Mailer struct {
	logger *slog.Logger

	host     string
	port     int
	username string
	password string
	from     string
	useSSL   bool
	useTLS   bool
}

// NewMailer builds a mailer from configuration. An empty SMTP host yields a
// mailer whose Send is a logged no-op so link generation works without a
// relay configured.
func NewMailer(cfg *config.Config, logger *slog.Logger) *Mailer {
	return &Mailer{
		logger:   logger,
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		useSSL:   cfg.SMTPUseSSL,
		useTLS:   cfg.SMTPUseTLS,
	}
}

// Enabled reports whether a relay is configured.
func (m *Mailer) Enabled() bool {
	return m.host != ""
}

// Send delivers one HTML message to a single recipient.
func (m *Mailer) Send(recipient, subject, htmlBody string) error {
	if !m.Enabled() {
		m.logger.Info("SMTP relay not configured, skipping delivery",
			slog.String("recipient", recipient),
			slog.String("subject", subject))
		return nil
	}

	msg := mail.NewMessage()
	msg.SetFrom(&mail.Address{Address: m.from})
	msg.To().Add(&mail.Address{Address: recipient})
	msg.SetSubject(subject)
	msg.SetContentType("text/html; charset=utf-8")
	if _, err := fmt.Fprint(msg.Body, htmlBody); err != nil {
		return fmt.Errorf("failed to build message body: %w", err)
	}

	if err := m.deliver(recipient, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to deliver message to %s: %w", recipient, err)
	}

	m.logger.Info("Message delivered",
		slog.String("recipient", recipient),
		slog.String("subject", subject))
	return nil
}

func (m *Mailer) deliver(recipient string, body []byte) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	if m.useSSL {
		return m.deliverImplicitTLS(addr, recipient, body)
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.useTLS {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return err
		}
	}

	return m.submit(client, recipient, body)
}

// deliverImplicitTLS handles relays that expect a TLS handshake before any
// SMTP traffic, the port 465 convention.
func (m *Mailer) deliverImplicitTLS(addr, recipient string, body []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	return m.submit(client, recipient, body)
}

func (m *Mailer) submit(client *smtp.Client, recipient string, body []byte) error {
	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(envelopeAddress(m.from)); err != nil {
		return err
	}
	if err := client.Rcpt(recipient); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}

// envelopeAddress strips an optional display name from a From value.
func envelopeAddress(from string) string {
	if start := strings.LastIndex(from, "<"); start != -1 {
		if end := strings.LastIndex(from, ">"); end > start {
			return from[start+1 : end]
		}
	}
	return from
}
