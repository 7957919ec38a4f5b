// Package mailer delivers transactional mail such as password reset
// links.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer sends a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	// Addr is the relay address (host:port).
	Addr string
	// From is the sender address on outgoing mail.
	From string
}

// NewSMTPMailer creates an SMTPMailer for the given relay and sender.
func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{Addr: addr, From: from}
}

// Send delivers the message. net/smtp has no context support; the ctx
// check covers cancellation before dialing only.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer writes the message to the log instead of sending it. Used in
// development when no relay is configured.
type LogMailer struct {
	Log *zap.Logger
}

// Send logs the message. The body is logged in full; reset tokens expire
// quickly so this is acceptable outside production.
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.Log.Info("outgoing mail",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
