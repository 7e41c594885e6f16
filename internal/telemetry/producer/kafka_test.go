package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creator-access-gate/internal/telemetry"
)

type fakeWriter struct {
	msgs     []kafka.Message
	err      error
	closed   bool
	deadline bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, f.deadline = ctx.Deadline()
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ Producer = (*KafkaProducer)(nil)

func TestNewKafkaProducer_DisabledWithoutBrokers(t *testing.T) {
	p, err := NewKafkaProducer(nil, "topic")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewKafkaProducer([]string{"localhost:9092"}, "")
	require.NoError(t, err)
	assert.Nil(t, p)

	// nil producer is safe to use
	assert.NoError(t, p.Emit(context.Background(), &telemetry.Event{}))
	assert.NoError(t, p.Close())
}

func TestKafkaProducer_EmitWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "events"}
	occurred := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := &telemetry.Event{ID: "e1", EventType: telemetry.EventTypeAccessGranted, ResourceID: "res-1", CredentialID: "c1", OccurredAt: occurred}

	require.NoError(t, p.Emit(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	assert.True(t, w.deadline, "write should be bounded by a deadline")
	assert.Equal(t, "res-1", string(w.msgs[0].Key))
	assert.True(t, occurred.Equal(w.msgs[0].Time))

	var decoded telemetry.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "e1", decoded.ID)
	assert.Equal(t, "c1", decoded.CredentialID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaProducer_EmitError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := &KafkaProducer{writer: w}
	assert.Error(t, p.Emit(context.Background(), &telemetry.Event{ID: "e1"}))
	assert.NoError(t, p.Emit(context.Background(), nil))
}
