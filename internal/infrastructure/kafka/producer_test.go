package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshop-backend/internal/shared"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter("bikeshop.bookings", w)

	event := shared.NewEvent(shared.EventBookingSubmitted, "req-1", map[string]string{"status": "pending"})
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "req-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, shared.EventBookingSubmitted, string(msg.Headers[0].Value))

	var decoded struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, shared.EventBookingSubmitted, decoded.Type)
	assert.Equal(t, "pending", decoded.Payload["status"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishError(t *testing.T) {
	p := NewProducerWithWriter("t", &fakeWriter{err: assert.AnError})
	err := p.Publish(context.Background(), shared.NewEvent(shared.EventCouponRedeemed, "k", nil))
	assert.ErrorIs(t, err, assert.AnError)
}
