package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/config"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/eventlog"
)

type fakeWriter struct {
	batches [][]kafka.Message
	failAt  int
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.failAt > 0 && len(w.batches)+1 == w.failAt {
		return errors.New("broker unavailable")
	}
	w.batches = append(w.batches, msgs)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func events(n int) []eventlog.Event {
	out := make([]eventlog.Event, n)
	for i := range out {
		out[i] = eventlog.Event{
			ID:        fmt.Sprintf("e%d", i),
			Timestamp: time.Date(2022, 7, 1, 0, 0, i, 0, time.UTC),
			Level:     "INFO",
			EventType: "flow_progress",
		}
	}
	return out
}

func testForwarder(w *fakeWriter) *Forwarder {
	return &Forwarder{writer: w, topic: "dlt-events", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestMessages(t *testing.T) {
	msgs, err := Messages(events(1))
	if err != nil {
		t.Fatal(err)
	}
	m := msgs[0]
	if string(m.Key) != "e0" {
		t.Errorf("key: got %s", m.Key)
	}
	var decoded eventlog.Event
	if err := json.Unmarshal(m.Value, &decoded); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if decoded.EventType != "flow_progress" {
		t.Errorf("event type: got %s", decoded.EventType)
	}
	if len(m.Headers) != 2 || string(m.Headers[0].Value) != "flow_progress" {
		t.Errorf("headers: %+v", m.Headers)
	}
}

func TestForward_Batches(t *testing.T) {
	w := &fakeWriter{}
	f := testForwarder(w)

	sent, err := f.Forward(context.Background(), events(250))
	if err != nil {
		t.Fatal(err)
	}
	if sent != 250 {
		t.Errorf("sent: got %d", sent)
	}
	if len(w.batches) != 3 || len(w.batches[2]) != 50 {
		t.Errorf("unexpected batching: %d batches", len(w.batches))
	}
	if err := f.Close(); err != nil || !w.closed {
		t.Error("expected writer to be closed")
	}
}

func TestForward_ReportsPartialProgress(t *testing.T) {
	w := &fakeWriter{failAt: 2}
	sent, err := testForwarder(w).Forward(context.Background(), events(150))
	if err == nil {
		t.Fatal("expected error")
	}
	if sent != 100 {
		t.Errorf("sent before failure: got %d", sent)
	}
}

func TestNew_Validation(t *testing.T) {
	logger := slog.Default()
	if _, err := New(config.KafkaConfig{Brokers: []string{" "}, Topic: "t"}, logger); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := New(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, logger); err == nil {
		t.Error("expected error without topic")
	}
	f, err := New(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "dlt-events"}, logger)
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
}
