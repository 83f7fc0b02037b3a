// Command mailer consumes auth events and sends the resulting emails.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tazhibayda/identity-service/internal/config"
	applog "github.com/tazhibayda/identity-service/internal/log"
	"github.com/tazhibayda/identity-service/internal/mail"
	"github.com/tazhibayda/identity-service/internal/queue"
)

func main() {
	cfg := config.MustLoad()
	logger, err := applog.Init(cfg.Production)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.RabbitURL == "" {
		logger.Fatal("RABBIT_URL is required for the mailer")
	}
	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.MailerQueue,
		queue.KeyPasswordResetRequested, queue.KeyUserRegistered)
	if err != nil {
		logger.Fatal("rabbit consumer init failed", zap.Error(err))
	}
	defer cons.Close()

	var sender mail.Sender = mail.LogSender{Log: logger}
	if cfg.SMTPAddr != "" {
		sender = mail.NewSMTP(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	}
	h := &mail.Handler{Sender: sender, PublicURL: cfg.PublicURL, Log: logger}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("mailer up",
		zap.String("exchange", cfg.RabbitExchange),
		zap.String("queue", cfg.MailerQueue),
		zap.Int("workers", cfg.MailerWorkers),
		zap.Bool("smtp", cfg.SMTPAddr != ""),
	)
	if err := cons.Consume(ctx, cfg.MailerWorkers, h.Handle); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
