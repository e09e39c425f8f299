// Package contract checks a pipeline's output against what its storage
// layout and tables are expected to look like after at least one run.
package contract

import (
	"fmt"
	"slices"

	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

// ExpectedLayout is the set of directories a DLT storage location holds.
var ExpectedLayout = []string{"autoloader", "checkpoints", "system", "tables"}

type Report struct {
	Issues []types.CheckResult
}

func (r *Report) add(check, target, kind, detail string) {
	msg := MessageForChange(kind)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	r.Issues = append(r.Issues, types.CheckResult{
		Check:    check,
		Target:   target,
		Severity: SeverityForChange(kind),
		Message:  msg,
	})
}

func (r *Report) pass(check, target, detail string) {
	r.Issues = append(r.Issues, types.CheckResult{
		Check:    check,
		Target:   target,
		Severity: SeverityInfo,
		Message:  "ok: " + detail,
	})
}

// Blocking reports whether any issue has BLOCK severity.
func (r *Report) Blocking() bool {
	for _, iss := range r.Issues {
		if iss.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Merge appends the issues of other.
func (r *Report) Merge(other *Report) {
	r.Issues = append(r.Issues, other.Issues...)
}

// ValidateLayout checks that the root listing holds exactly the expected
// directories.
func ValidateLayout(root *types.Listing) *Report {
	report := &Report{}
	dirs := map[string]bool{}
	for _, e := range root.Entries {
		dirs[e.Name] = e.IsDir
	}

	for _, name := range ExpectedLayout {
		if !dirs[name] {
			report.add("layout", root.Path, "layout_missing", name)
		}
	}
	for _, e := range root.Entries {
		if !slices.Contains(ExpectedLayout, e.Name) {
			report.add("layout", root.Path, "layout_extra", e.Name)
		}
	}
	if len(report.Issues) == 0 {
		report.pass("layout", root.Path, "autoloader, checkpoints, system and tables present")
	}
	return report
}

// ValidateEventsPresent checks that the event log directory is not empty.
func ValidateEventsPresent(events *types.Listing) *Report {
	report := &Report{}
	if len(events.Entries) == 0 {
		report.add("events_present", events.Path, "events_empty", "")
		return report
	}
	report.pass("events_present", events.Path, fmt.Sprintf("%d entries", len(events.Entries)))
	return report
}

// ValidateEventLogGrowth checks that the event log row count did not drop
// since the previous run. A negative previous count means there is no
// earlier observation.
func ValidateEventLogGrowth(target string, previous, current int64) *Report {
	report := &Report{}
	switch {
	case previous < 0:
		report.pass("event_log_monotonic", target, fmt.Sprintf("%d rows, no earlier run recorded", current))
	case current < previous:
		report.add("event_log_monotonic", target, "event_log_shrank", fmt.Sprintf("%d -> %d", previous, current))
	default:
		report.pass("event_log_monotonic", target, fmt.Sprintf("%d -> %d rows", previous, current))
	}
	return report
}

// ValidateRowCount checks that a full scan returned as many rows as an
// independent count query.
func ValidateRowCount(table string, selected, counted int64) *Report {
	report := &Report{}
	if selected != counted {
		report.add("row_count_round_trip", table, "row_count_mismatch", fmt.Sprintf("selected %d, counted %d", selected, counted))
		return report
	}
	report.pass("row_count_round_trip", table, fmt.Sprintf("%d rows", counted))
	return report
}
