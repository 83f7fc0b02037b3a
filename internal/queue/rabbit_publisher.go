package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	applog "github.com/tazhibayda/identity-service/internal/log"
)

const (
	appID           = "identity-service"
	requestIDHeader = "X-Request-ID"
	publishTimeout  = 3 * time.Second
)

var ErrNotConfirmed = errors.New("broker did not confirm publish")

// RabbitPublisher publishes events on a topic exchange with publisher
// confirms enabled, so Publish returns only once the broker has the message.
type RabbitPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbit dials url, declares exchange as a durable topic exchange and puts
// the channel into confirm mode.
func NewRabbit(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*RabbitPublisher, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	if err := ch.Confirm(false); err != nil {
		return fail("confirm mode", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch}, nil
}

func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	return nil
}

// publishing builds the AMQP message for event. The request id carried by ctx
// becomes the correlation id so the mailer's logs line up with the request
// that caused the mail.
func publishing(ctx context.Context, key string, event any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", key, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Type:         key,
		AppId:        appID,
		Body:         body,
	}
	if id := applog.RequestID(ctx); id != "" {
		msg.CorrelationId = id
		msg.Headers = amqp.Table{requestIDHeader: id}
	}
	return msg, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, exchange, key string, event any) error {
	if p == nil || p.ch == nil {
		return nil
	}
	msg, err := publishing(ctx, key, event, time.Now().UTC())
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}

	conf, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", key, err)
	}
	if !acked {
		return fmt.Errorf("%s: %w", key, ErrNotConfirmed)
	}
	return nil
}
