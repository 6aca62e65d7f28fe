package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	calls atomic.Int32
	fn    func(n int32) error
}

func (h *stubHandler) Topic() string { return "t" }

func (h *stubHandler) Handle(context.Context, []byte) error {
	return h.fn(h.calls.Add(1))
}

func newTestConsumer(t *testing.T, retryMax int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retryMax, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestHandleWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &stubHandler{fn: func(n int32) error {
		if n < 3 {
			return errors.New("transient")
		}
		return nil
	}}

	attempts, err := c.handleWithRetry(context.Background(), h, kafka.Message{Topic: "t"})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestHandleWithRetry_GivesUpAfterRetryMax(t *testing.T) {
	c := newTestConsumer(t, 2)
	h := &stubHandler{fn: func(int32) error { return errors.New("down") }}

	attempts, err := c.handleWithRetry(context.Background(), h, kafka.Message{Topic: "t"})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.EqualValues(t, 3, h.calls.Load())
}

func TestHandleWithRetry_PermanentSkipsRetries(t *testing.T) {
	c := newTestConsumer(t, 5)
	h := &stubHandler{fn: func(int32) error { return Permanent(errors.New("bad payload")) }}

	attempts, err := c.handleWithRetry(context.Background(), h, kafka.Message{Topic: "t"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
}

func TestHandleWithRetry_RecoversPanics(t *testing.T) {
	c := newTestConsumer(t, 0)
	h := &stubHandler{fn: func(int32) error { panic("boom") }}

	_, err := c.handleWithRetry(context.Background(), h, kafka.Message{Topic: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestHandleWithRetry_HookSeesEveryAttempt(t *testing.T) {
	c := newTestConsumer(t, 1)
	var seen atomic.Int32
	c.SetHook(HookFuncs{After: func(context.Context, string, kafka.Message, error) { seen.Add(1) }})
	h := &stubHandler{fn: func(int32) error { return errors.New("x") }}

	_, _ = c.handleWithRetry(context.Background(), h, kafka.Message{Topic: "t"})
	assert.EqualValues(t, 2, seen.Load())
}

func TestRegisterHandler_RejectsDuplicates(t *testing.T) {
	c := newTestConsumer(t, 0)
	require.NoError(t, c.RegisterHandler(&stubHandler{}))
	assert.Error(t, c.RegisterHandler(&stubHandler{}))
}

func TestBackoffWithJitter_Bounds(t *testing.T) {
	min, max := 10*time.Millisecond, 80*time.Millisecond
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.LessOrEqual(t, d, max)
		assert.Greater(t, d, time.Duration(0))
	}
	assert.GreaterOrEqual(t, backoffWithJitter(min, max, 1), min/2)
}

func TestNewConsumer_RequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}
