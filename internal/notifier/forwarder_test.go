package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/social-bet-fulfillment/pkg/contracts/events"
)

type flakyBroadcaster struct {
	failures int
	calls    int
	channel  string
	last     []byte
}

func (b *flakyBroadcaster) Publish(_ context.Context, channel string, payload []byte) error {
	b.calls++
	if b.calls <= b.failures {
		return errors.New("redis unavailable")
	}
	b.channel = channel
	b.last = payload
	return nil
}

type captureWriter struct{ msgs []kafka.Message }

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func envelope(t *testing.T) kafka.Message {
	t.Helper()
	b, err := json.Marshal(events.FulfillmentEnvelope{
		Type:     events.TypeFulfillmentStatusChanged,
		BetID:    "b1",
		Payload:  json.RawMessage(`{"status":"FULFILLED"}`),
		TsUnixMs: 1,
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte("b1"), Value: b}
}

func newForwarder(b Broadcaster, dlq MessageWriter) (*Forwarder, map[string]int) {
	counts := map[string]int{}
	return &Forwarder{
		Log:         zap.NewNop(),
		Broadcaster: b,
		Channel:     "bet_fulfillment_broadcast",
		DLQ:         dlq,
		OnForwarded: func() { counts["forwarded"]++ },
		OnDLQ:       func() { counts["dlq"]++ },
		OnError:     func(s string) { counts[s]++ },
	}, counts
}

func TestHandleForwardsUpdate(t *testing.T) {
	b := &flakyBroadcaster{}
	f, counts := newForwarder(b, &captureWriter{})

	require.NoError(t, f.Handle(context.Background(), envelope(t)))
	assert.Equal(t, "bet_fulfillment_broadcast", b.channel)
	var u Update
	require.NoError(t, json.Unmarshal(b.last, &u))
	assert.Equal(t, "b1", u.BetID)
	assert.Equal(t, events.TypeFulfillmentStatusChanged, u.Type)
	assert.JSONEq(t, `{"status":"FULFILLED"}`, string(u.Payload))
	assert.Equal(t, map[string]int{"forwarded": 1}, counts)
}

func TestHandleRetriesBeforeSucceeding(t *testing.T) {
	b := &flakyBroadcaster{failures: 2}
	dlq := &captureWriter{}
	f, counts := newForwarder(b, dlq)

	require.NoError(t, f.Handle(context.Background(), envelope(t)))
	assert.Equal(t, 3, b.calls)
	assert.Empty(t, dlq.msgs)
	assert.Equal(t, 1, counts["forwarded"])
}

func TestHandleSendsToDLQAfterRetries(t *testing.T) {
	b := &flakyBroadcaster{failures: 100}
	dlq := &captureWriter{}
	f, counts := newForwarder(b, dlq)

	msg := envelope(t)
	err := f.Handle(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, 1+defaultRetries, b.calls)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "b1", string(dlq.msgs[0].Key))
	assert.Equal(t, msg.Value, dlq.msgs[0].Value)
	assert.Equal(t, map[string]int{"publish": 1, "dlq": 1}, counts)
}

func TestHandleInvalidEnvelopeGoesToDLQ(t *testing.T) {
	b := &flakyBroadcaster{}
	dlq := &captureWriter{}
	f, counts := newForwarder(b, dlq)

	err := f.Handle(context.Background(), kafka.Message{Value: []byte(`{"type":""}`)})
	assert.ErrorIs(t, err, errInvalidEnvelope)
	assert.Zero(t, b.calls)
	assert.Len(t, dlq.msgs, 1)
	assert.Equal(t, map[string]int{"decode": 1, "dlq": 1}, counts)
}

func TestHandleShutdownDuringBackoffStillDeadLetters(t *testing.T) {
	b := &flakyBroadcaster{failures: 100}
	dlq := &captureWriter{}
	f, counts := newForwarder(b, dlq)
	f.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := envelope(t)
	err := f.Handle(ctx, msg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, b.calls)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, msg.Value, dlq.msgs[0].Value)
	assert.Equal(t, map[string]int{"publish": 1, "dlq": 1}, counts)
}
