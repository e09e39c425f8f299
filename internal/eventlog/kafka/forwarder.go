// Package kafka forwards DLT event log entries to a Kafka topic so the
// pipeline's events can be consumed outside the workspace.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	kafka "github.com/segmentio/kafka-go"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/config"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/eventlog"
)

const batchSize = 100

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Forwarder struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

func New(cfg config.KafkaConfig, logger *slog.Logger) (*Forwarder, error) {
	brokers := []string{}
	for _, b := range cfg.Brokers {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers provided")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &Forwarder{writer: w, topic: cfg.Topic, logger: logger}, nil
}

// Forward publishes events in order, keyed by event id so that replays of
// the same log land on the same partition.
func (f *Forwarder) Forward(ctx context.Context, events []eventlog.Event) (int, error) {
	msgs, err := Messages(events)
	if err != nil {
		return 0, err
	}

	sent := 0
	for start := 0; start < len(msgs); start += batchSize {
		end := min(start+batchSize, len(msgs))
		if err := f.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return sent, fmt.Errorf("write to %s: %w", f.topic, err)
		}
		sent = end
	}
	f.logger.Info("events forwarded", "topic", f.topic, "count", sent)
	return sent, nil
}

func (f *Forwarder) Close() error {
	return f.writer.Close()
}

// Messages encodes events as JSON Kafka messages.
func Messages(events []eventlog.Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.ID),
			Value: value,
			Time:  e.Timestamp,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.EventType)},
				{Key: "level", Value: []byte(e.Level)},
			},
		})
	}
	return msgs, nil
}
