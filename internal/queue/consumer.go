package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDrop marks a message that must not be redelivered, e.g. one that does
// not decode.
var ErrDrop = errors.New("drop message")

// Message is the part of a delivery handlers need.
type Message struct {
	Key       string
	Body      []byte
	RequestID string
}

type Handler func(ctx context.Context, m Message) error

type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	q    string
}

func NewConsumer(url, exchange, queue string, keys ...string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	qd, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(qd.Name, key, exchange, false, nil); err != nil {
			return fail("bind queue", err)
		}
	}

	return &Consumer{conn: conn, ch: ch, q: qd.Name}, nil
}

func (c *Consumer) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Consume runs workers goroutines until ctx is done or the delivery channel
// closes. Handler errors requeue the message unless they wrap ErrDrop.
func (c *Consumer) Consume(ctx context.Context, workers int, handle Handler) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if workers <= 0 {
		workers = 1
	}

	if err := c.ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := c.ch.Consume(c.q, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case d, ok := <-msgs:
					if !ok {
						return
					}
					_ = Dispatch(ctx, d, handle)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	wg.Wait()
	return nil
}

// Acknowledger is the subset of amqp.Delivery Dispatch settles.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Dispatch hands one delivery to handle and settles it.
func Dispatch(ctx context.Context, d amqp.Delivery, handle Handler) error {
	return settle(&d, handle(ctx, toMessage(d)))
}

func toMessage(d amqp.Delivery) Message {
	reqID := d.CorrelationId
	if reqID == "" {
		reqID, _ = d.Headers[requestIDHeader].(string)
	}
	return Message{Key: d.RoutingKey, Body: d.Body, RequestID: reqID}
}

func settle(d Acknowledger, err error) error {
	switch {
	case err == nil:
		return d.Ack(false)
	case errors.Is(err, ErrDrop):
		return d.Nack(false, false)
	default:
		return d.Nack(false, true)
	}
}
