package queue

import "context"

const (
	KeyUserRegistered         = "user.registered"
	KeyUserLoggedIn           = "user.loggedin"
	KeyUserLinked             = "user.linked"
	KeyPasswordResetRequested = "user.password_reset_requested"
)

// Publisher sends domain events. The request id, when ctx carries one,
// travels with the message.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(context.Context, string, string, any) error {
	return nil
}
func (NoopPub) Close() error { return nil }
