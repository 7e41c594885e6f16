// Package consumer forwards access events from the Kafka topic to a log sink (Loki).
package consumer

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader the forwarder uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Sink receives raw access-event JSON.
type Sink interface {
	PushEventJSON(ctx context.Context, raw []byte) error
}

// Defaults for Forwarder.
const (
	DefaultPushTimeout = 10 * time.Second
	DefaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

// Forwarder copies messages from a reader to a sink. A message is committed after it was
// pushed, or after MaxAttempts failed pushes, in which case it is logged and dropped.
type Forwarder struct {
	reader      MessageReader
	sink        Sink
	logger      zerolog.Logger
	pushTimeout time.Duration
	maxAttempts int
	backoff     time.Duration
}

// NewForwarder returns a Forwarder with the default timeout and attempts.
func NewForwarder(reader MessageReader, sink Sink, logger zerolog.Logger) *Forwarder {
	return &Forwarder{
		reader:      reader,
		sink:        sink,
		logger:      logger,
		pushTimeout: DefaultPushTimeout,
		maxAttempts: DefaultMaxAttempts,
		backoff:     defaultBackoff,
	}
}

// Run forwards until ctx is canceled. It returns nil on cancellation.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		msg, err := f.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				// Reader closed.
				return nil
			}
			f.logger.Warn().Err(err).Msg("worker: kafka fetch failed")
			if !sleep(ctx, f.backoff) {
				return nil
			}
			continue
		}

		if !f.push(ctx, msg) && ctx.Err() != nil {
			// Not committed; redelivered after restart.
			return nil
		}
		if err := f.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("worker: kafka commit failed")
		}
	}
}

// push reports whether msg reached the sink.
func (f *Forwarder) push(ctx context.Context, msg kafka.Message) bool {
	var err error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		pushCtx, cancel := context.WithTimeout(ctx, f.pushTimeout)
		err = f.sink.PushEventJSON(pushCtx, msg.Value)
		cancel()
		if err == nil {
			return true
		}
		if attempt < f.maxAttempts && !sleep(ctx, f.backoff*time.Duration(attempt)) {
			return false
		}
	}
	f.logger.Error().Err(err).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Msg("worker: dropping access event after failed pushes")
	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
