// Package mailer delivers final responses to ticket submitters.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/opsdesk/triage-service/internal/config"
)

// Message is one outbound response email.
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	Body     string
	TicketID int64
}

// Sender delivers a response email to the submitter.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns the SMTP sender when SMTP is enabled, otherwise a
// console sender that logs the email instead of delivering it.
func NewSender(cfg config.SMTPConfig, logger *zap.Logger) Sender {
	if cfg.Enabled {
		logger.Info("email notification: smtp enabled", zap.String("host", cfg.Host))
		return &smtpSender{cfg: cfg}
	}
	logger.Info("email notification: console demo mode")
	return &consoleSender{logger: logger}
}

type smtpSender struct {
	cfg config.SMTPConfig
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return fmt.Errorf("recipient email is required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return fmt.Errorf("message body is required")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetAddressHeader("To", msg.ToEmail, msg.ToName)
	m.SetHeader("Subject", fmt.Sprintf("Re: %s [Ticket #%d]", msg.Subject, msg.TicketID))
	m.SetBody("text/plain", msg.Body)

	dialer := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(m)
	}()

	// gomail has no context support; bound the dial with the caller's deadline.
	wait := 30 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

type consoleSender struct {
	logger *zap.Logger
}

func (s *consoleSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("email (demo mode)",
		zap.Int64("ticket_id", msg.TicketID),
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.Int("body_len", len(msg.Body)))
	return nil
}
