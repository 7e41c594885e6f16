// Worker consumes access events from Kafka and pushes them to Loki.
// Requires KAFKA_BROKERS and LOKI_URL; ACCESS_EVENTS_TOPIC and KAFKA_GROUP_ID have defaults.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"creator-access-gate/internal/config"
	"creator-access-gate/internal/logging"
	"creator-access-gate/internal/telemetry/consumer"
	"creator-access-gate/internal/telemetry/loki"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.IsProduction())

	sink, err := loki.NewClient(cfg.LokiURL, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid LOKI_URL")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokersList(),
		Topic:    cfg.AccessEventsTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  1 * time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("topic", cfg.AccessEventsTopic).
		Str("group", cfg.KafkaGroupID).
		Str("loki", cfg.LokiURL).
		Msg("worker: consuming access events")

	if err := consumer.NewForwarder(reader, sink, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("worker: stopped with error")
		return
	}
	logger.Info().Msg("worker: stopped")
}
