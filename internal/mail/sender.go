// Package mail delivers the account emails triggered by auth events.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes mail to the log instead of delivering it.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, body string) error {
	s.Log.Info("mail", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

type SMTPSender struct {
	Addr string
	From string
	Auth smtp.Auth
}

func NewSMTP(addr, user, password, from string) *SMTPSender {
	s := &SMTPSender{Addr: addr, From: from}
	if user != "" {
		host := addr
		if i := strings.LastIndexByte(addr, ':'); i > 0 {
			host = addr[:i]
		}
		s.Auth = smtp.PlainAuth("", user, password, host)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.From, to, subject, body)
	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
