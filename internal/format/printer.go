// Package format renders listings, result sets and reports for the terminal.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jinzhu/inflection"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/contract"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/eventlog"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/history"
	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

const cellWidth = 80

// Printer writes results to w in one Mode.
type Printer struct {
	w    io.Writer
	mode Mode
	now  func() time.Time
}

func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode, now: time.Now}
}

// Count renders "1 row", "3 rows" and so on.
func Count(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %s", n, inflection.Plural(noun))
}

func (p *Printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) heading(title string) {
	if title == "" {
		return
	}
	if p.mode == Markdown {
		fmt.Fprintf(p.w, "### %s\n\n", title)
		return
	}
	fmt.Fprintf(p.w, "%s\n", title)
}

// Listing renders entries the way dbutils.fs.ls displays them: directory
// names carry a trailing slash.
func (p *Printer) Listing(title string, l *types.Listing) error {
	if p.mode == JSON {
		return p.writeJSON(struct {
			Title   string        `json:"title,omitempty"`
			Path    string        `json:"path"`
			Entries []types.Entry `json:"entries"`
		}{title, l.Path, l.Entries})
	}

	p.heading(title)
	tb := NewTable(p.mode)
	tb.Header("path", "name", "size", "modificationTime")
	tb.Columns(ColumnConfig{Number: 3, Align: AlignRight})

	dirs := 0
	for _, e := range l.Entries {
		path, name := e.Path, e.Name
		if e.IsDir {
			path += "/"
			name += "/"
			dirs++
		}
		size := humanize.IBytes(uint64(max(e.Size, 0)))
		tb.Row(path, name, size, formatTime(e.ModTime))
	}
	fmt.Fprintln(p.w, tb.String())
	fmt.Fprintf(p.w, "%s, %s\n\n", Count(dirs, "directory"), Count(len(l.Entries)-dirs, "file"))
	return nil
}

// ResultSet renders every row of rs.
func (p *Printer) ResultSet(title string, rs *types.ResultSet) error {
	if p.mode == JSON {
		rows := make([]map[string]any, 0, len(rs.Rows))
		for _, row := range rs.Rows {
			m := make(map[string]any, len(rs.Columns))
			for i, c := range rs.Columns {
				if i < len(row) {
					m[c] = row[i]
				}
			}
			rows = append(rows, m)
		}
		return p.writeJSON(struct {
			Title     string           `json:"title,omitempty"`
			Statement string           `json:"statement"`
			Columns   []string         `json:"columns"`
			Rows      []map[string]any `json:"rows"`
		}{title, rs.Statement, rs.Columns, rows})
	}

	p.heading(title)
	tb := NewTable(p.mode)
	tb.Header(rs.Columns...)
	if p.mode == ASCII {
		cfgs := make([]ColumnConfig, len(rs.Columns))
		for i := range cfgs {
			cfgs[i] = ColumnConfig{Number: i + 1, MaxWidth: cellWidth}
		}
		tb.Columns(cfgs...)
	}
	for _, row := range rs.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = Cell(v)
		}
		tb.Row(cells...)
	}
	fmt.Fprintln(p.w, tb.String())
	fmt.Fprintf(p.w, "%s\n\n", Count(len(rs.Rows), "row"))
	return nil
}

// Cell formats a single value for table output.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return formatTime(t)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Summary renders an event log summary.
func (p *Printer) Summary(s *eventlog.Summary) error {
	if p.mode == JSON {
		return p.writeJSON(s)
	}

	p.heading("Event log summary")
	fmt.Fprintf(p.w, "%s across %s, %s to %s\n\n",
		Count(s.Total, "event"), Count(s.Updates, "update"), formatTime(s.First), formatTime(s.Last))

	tb := NewTable(p.mode)
	tb.Header("event_type", "count")
	for _, k := range eventlog.Keys(s.ByType) {
		tb.Row(k, s.ByType[k])
	}
	fmt.Fprintln(p.w, tb.String())

	tb = NewTable(p.mode)
	tb.Header("level", "count")
	for _, k := range eventlog.Keys(s.ByLevel) {
		tb.Row(k, s.ByLevel[k])
	}
	fmt.Fprintln(p.w, tb.String())

	if len(s.OutputRows) > 0 {
		tb = NewTable(p.mode)
		tb.Header("flow", "output rows")
		for _, k := range eventlog.Keys(s.OutputRows) {
			tb.Row(k, humanize.Comma(s.OutputRows[k]))
		}
		fmt.Fprintln(p.w, tb.String())
	}

	if len(s.Errors) > 0 {
		tb = NewTable(p.mode)
		tb.Header("timestamp", "flow", "message")
		tb.Columns(ColumnConfig{Number: 3, MaxWidth: cellWidth})
		for _, e := range s.Errors {
			tb.Row(formatTime(e.Timestamp), e.FlowName, e.Message)
		}
		fmt.Fprintln(p.w, tb.String())
	}
	fmt.Fprintln(p.w)
	return nil
}

// Report renders contract check results.
func (p *Printer) Report(r *contract.Report) error {
	if p.mode == JSON {
		return p.writeJSON(struct {
			Blocking bool                `json:"blocking"`
			Issues   []types.CheckResult `json:"issues"`
		}{r.Blocking(), r.Issues})
	}

	tb := NewTable(p.mode)
	tb.Header("severity", "check", "target", "message")
	tb.Columns(ColumnConfig{Number: 4, MaxWidth: cellWidth})
	counts := map[string]int{}
	for _, iss := range r.Issues {
		tb.Row(iss.Severity, iss.Check, iss.Target, iss.Message)
		counts[iss.Severity]++
	}
	fmt.Fprintln(p.w, tb.String())

	var parts []string
	for _, sev := range []string{contract.SeverityBlock, contract.SeverityWarn, contract.SeverityInfo} {
		parts = append(parts, fmt.Sprintf("%d %s", counts[sev], sev))
	}
	fmt.Fprintln(p.w, strings.Join(parts, ", "))
	return nil
}

// Snapshots renders recorded verification runs, newest first.
func (p *Printer) Snapshots(snaps []*history.Snapshot) error {
	if p.mode == JSON {
		return p.writeJSON(snaps)
	}

	tb := NewTable(p.mode)
	tb.Header("run", "taken", "events", "tables")
	for _, s := range snaps {
		events := "-"
		if s.EventCount >= 0 {
			events = humanize.Comma(s.EventCount)
		}
		var tables []string
		for _, k := range eventlog.Keys(s.TableCounts) {
			tables = append(tables, fmt.Sprintf("%s=%d", k, s.TableCounts[k]))
		}
		tb.Row(s.RunID, humanize.RelTime(s.TakenAt, p.now(), "ago", "from now"), events, strings.Join(tables, "\n"))
	}
	fmt.Fprintln(p.w, tb.String())
	fmt.Fprintln(p.w, Count(len(snaps), "run"))
	return nil
}
