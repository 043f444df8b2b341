package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"resort/internal/config"
	"resort/internal/models"
)

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailSender struct {
	cfg      config.SMTPConfig
	sendMail SendMailFunc
}

func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return &EmailSender{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *EmailSender) Send(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Host == "" {
		return errors.New("smtp host is not configured")
	}
	if n.Recipient == "" {
		return errors.New("email recipient is empty")
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.sendMail(addr, auth, s.cfg.From, []string{n.Recipient}, buildMessage(s.cfg.From, n)); err != nil {
		return fmt.Errorf("send email to %s: %w", n.Recipient, err)
	}
	return nil
}

func buildMessage(from string, n *models.Notification) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + n.Recipient + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(n.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(n.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
