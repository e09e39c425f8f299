// Package eventlog reads the DLT event log: the Delta table a pipeline keeps
// under <root>/system/events.
package eventlog

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

const LevelError = "ERROR"

type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	EventType string          `json:"event_type"`
	Message   string          `json:"message"`
	FlowName  string          `json:"flow_name,omitempty"`
	UpdateID  string          `json:"update_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

type origin struct {
	FlowName string `json:"flow_name"`
	UpdateID string `json:"update_id"`
}

type flowProgress struct {
	FlowProgress *struct {
		Status  string `json:"status"`
		Metrics *struct {
			NumOutputRows *int64 `json:"num_output_rows"`
		} `json:"metrics"`
	} `json:"flow_progress"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Parse maps event log rows to events. Columns it does not know are
// ignored; rows missing known columns leave the fields empty.
func Parse(rs *types.ResultSet) ([]Event, error) {
	idx := map[string]int{}
	for _, name := range []string{"id", "timestamp", "level", "event_type", "message", "origin", "details"} {
		idx[name] = rs.Column(name)
	}

	events := make([]Event, 0, len(rs.Rows))
	for n, row := range rs.Rows {
		e := Event{
			ID:        stringAt(row, idx["id"]),
			Level:     stringAt(row, idx["level"]),
			EventType: stringAt(row, idx["event_type"]),
			Message:   stringAt(row, idx["message"]),
		}

		ts, err := timeAt(row, idx["timestamp"])
		if err != nil {
			return nil, fmt.Errorf("event row %d: %w", n, err)
		}
		e.Timestamp = ts

		if raw := stringAt(row, idx["origin"]); raw != "" {
			var o origin
			if err := json.Unmarshal([]byte(raw), &o); err == nil {
				e.FlowName = o.FlowName
				e.UpdateID = o.UpdateID
			}
		}
		if raw := stringAt(row, idx["details"]); raw != "" && json.Valid([]byte(raw)) {
			e.Details = json.RawMessage(raw)
		}
		events = append(events, e)
	}
	return events, nil
}

func stringAt(row []any, i int) string {
	if i < 0 || i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func timeAt(row []any, i int) (time.Time, error) {
	if i < 0 || i >= len(row) || row[i] == nil {
		return time.Time{}, nil
	}
	if t, ok := row[i].(time.Time); ok {
		return t.UTC(), nil
	}
	s := stringAt(row, i)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Summary aggregates an event log.
type Summary struct {
	Total      int              `json:"total"`
	ByType     map[string]int   `json:"by_type"`
	ByLevel    map[string]int   `json:"by_level"`
	First      time.Time        `json:"first"`
	Last       time.Time        `json:"last"`
	Updates    int              `json:"updates"`
	Errors     []Event          `json:"errors,omitempty"`
	OutputRows map[string]int64 `json:"output_rows,omitempty"`
}

// Summarize counts events by type and level and totals the output rows
// reported by completed flow progress events, per flow.
func Summarize(events []Event) *Summary {
	s := &Summary{
		Total:      len(events),
		ByType:     map[string]int{},
		ByLevel:    map[string]int{},
		OutputRows: map[string]int64{},
	}
	updates := map[string]struct{}{}

	for _, e := range events {
		s.ByType[e.EventType]++
		s.ByLevel[e.Level]++
		if e.UpdateID != "" {
			updates[e.UpdateID] = struct{}{}
		}
		if !e.Timestamp.IsZero() {
			if s.First.IsZero() || e.Timestamp.Before(s.First) {
				s.First = e.Timestamp
			}
			if e.Timestamp.After(s.Last) {
				s.Last = e.Timestamp
			}
		}
		if e.Level == LevelError {
			s.Errors = append(s.Errors, e)
		}
		if e.EventType == "flow_progress" && e.FlowName != "" && len(e.Details) > 0 {
			var fp flowProgress
			if err := json.Unmarshal(e.Details, &fp); err == nil &&
				fp.FlowProgress != nil && fp.FlowProgress.Status == "COMPLETED" &&
				fp.FlowProgress.Metrics != nil && fp.FlowProgress.Metrics.NumOutputRows != nil {
				s.OutputRows[e.FlowName] += *fp.FlowProgress.Metrics.NumOutputRows
			}
		}
	}
	s.Updates = len(updates)

	sort.Slice(s.Errors, func(i, j int) bool {
		return s.Errors[i].Timestamp.Before(s.Errors[j].Timestamp)
	})
	return s
}

// Keys returns the keys of m in sorted order.
func Keys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
