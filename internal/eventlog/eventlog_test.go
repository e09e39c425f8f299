package eventlog

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

func eventLog() *types.ResultSet {
	cols := []string{"id", "sequence", "origin", "timestamp", "message", "level", "maturity_level", "error", "details", "event_type"}
	return &types.ResultSet{
		Statement: "SELECT * FROM delta.`dbfs:/mnt/demo/dlt/demo_bookstore/system/events`",
		Columns:   cols,
		Rows: [][]any{
			{"e1", nil, `{"pipeline_id":"p1","update_id":"u1"}`, "2022-07-01T10:00:00.000Z", "Update u1 started by USER_ACTION.", "INFO", "STABLE", nil, `{"create_update":{"cause":"USER_ACTION"}}`, "create_update"},
			{"e2", nil, `{"update_id":"u1","flow_name":"cn_daily_customer_books"}`, "2022-07-01T10:05:00.000Z", "Flow 'cn_daily_customer_books' has COMPLETED.", "INFO", "STABLE", nil, `{"flow_progress":{"status":"COMPLETED","metrics":{"num_output_rows":123}}}`, "flow_progress"},
			{"e3", nil, `{"update_id":"u2","flow_name":"fr_daily_customer_books"}`, time.Date(2022, 7, 2, 9, 0, 0, 0, time.UTC), "Flow 'fr_daily_customer_books' has FAILED.", "ERROR", "STABLE", "boom", `{"flow_progress":{"status":"FAILED"}}`, "flow_progress"},
			{"e4", nil, `{"update_id":"u2","flow_name":"cn_daily_customer_books"}`, "2022-07-02 09:30:00", "Flow 'cn_daily_customer_books' is RUNNING.", "INFO", "STABLE", nil, `{"flow_progress":{"status":"RUNNING","metrics":{"num_output_rows":7}}}`, "flow_progress"},
		},
	}
}

func TestParse(t *testing.T) {
	events, err := Parse(eventLog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	e := events[1]
	if e.FlowName != "cn_daily_customer_books" || e.UpdateID != "u1" {
		t.Errorf("origin not parsed: %+v", e)
	}
	if !e.Timestamp.Equal(time.Date(2022, 7, 1, 10, 5, 0, 0, time.UTC)) {
		t.Errorf("timestamp: got %v", e.Timestamp)
	}
	if events[3].Timestamp.IsZero() {
		t.Error("expected space separated timestamp to parse")
	}
}

func TestParse_BadTimestamp(t *testing.T) {
	rs := &types.ResultSet{Columns: []string{"id", "timestamp"}, Rows: [][]any{{"e1", "yesterday"}}}
	if _, err := Parse(rs); err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
}

func TestParse_MissingColumns(t *testing.T) {
	rs := &types.ResultSet{Columns: []string{"id"}, Rows: [][]any{{"e1"}}}
	events, err := Parse(rs)
	if err != nil {
		t.Fatal(err)
	}
	if events[0].ID != "e1" || events[0].Level != "" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestSummarize(t *testing.T) {
	events, err := Parse(eventLog())
	if err != nil {
		t.Fatal(err)
	}
	s := Summarize(events)

	if s.Total != 4 || s.Updates != 2 {
		t.Errorf("total=%d updates=%d", s.Total, s.Updates)
	}
	if diff := cmp.Diff(map[string]int{"create_update": 1, "flow_progress": 3}, s.ByType); diff != "" {
		t.Errorf("by type (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"INFO": 3, "ERROR": 1}, s.ByLevel); diff != "" {
		t.Errorf("by level (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int64{"cn_daily_customer_books": 123}, s.OutputRows); diff != "" {
		t.Errorf("output rows (-want +got):\n%s", diff)
	}
	if len(s.Errors) != 1 || s.Errors[0].ID != "e3" {
		t.Errorf("errors: %+v", s.Errors)
	}
	if !s.First.Equal(time.Date(2022, 7, 1, 10, 0, 0, 0, time.UTC)) || !s.Last.Equal(time.Date(2022, 7, 2, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("range: %v - %v", s.First, s.Last)
	}
}

func TestKeys(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "b", "c"}, Keys(map[string]int{"c": 1, "a": 2, "b": 3})); diff != "" {
		t.Error(diff)
	}
}
