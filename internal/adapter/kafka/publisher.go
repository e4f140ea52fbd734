package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/chaos-meter/internal/config"
	"github.com/couchcryptid/chaos-meter/internal/controller"
)

// Publisher produces scored snapshots to a Kafka topic so downstream
// consumers (alerting, archival) see the same score the dashboard displayed.
// It implements controller.Broadcaster.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured broadcast topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes one scored snapshot and writes it. The message key is
// the computation timestamp so a compacted topic keeps the latest score.
func (p *Publisher) Publish(ctx context.Context, scored controller.ScoredSnapshot) error {
	msg, err := serializeToMessage(scored)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a scored snapshot into a Kafka message.
func serializeToMessage(scored controller.ScoredSnapshot) (kafkago.Message, error) {
	data, err := json.Marshal(scored)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize scored snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(scored.ComputedAt.UTC().Format(time.RFC3339Nano)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "score", Value: []byte(strconv.FormatFloat(scored.Score, 'f', -1, 64))},
			{Key: "computed_at", Value: []byte(scored.ComputedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
