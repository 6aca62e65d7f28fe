package kafka

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook observes message handling. Hooks must not block.
type ConsumerHook interface {
	AfterHandle(ctx context.Context, topic string, km kafka.Message, err error)
	OnDeadLetter(ctx context.Context, topic string, km kafka.Message, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) AfterHandle(context.Context, string, kafka.Message, error) {}

func (NoopHook) OnDeadLetter(context.Context, string, kafka.Message, error) {}

// HookFuncs adapts plain functions to ConsumerHook. Nil functions are no-ops.
type HookFuncs struct {
	After      func(context.Context, string, kafka.Message, error)
	DeadLetter func(context.Context, string, kafka.Message, error)
}

func (h HookFuncs) AfterHandle(ctx context.Context, topic string, km kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, topic, km, err)
	}
}

func (h HookFuncs) OnDeadLetter(ctx context.Context, topic string, km kafka.Message, err error) {
	if h.DeadLetter != nil {
		h.DeadLetter(ctx, topic, km, err)
	}
}

// PermanentError marks a handler failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the consumer dead-letters the message without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
