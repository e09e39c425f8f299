package contract

// Severity rules:
// - BLOCK when the pipeline output breaks its contract
// - WARN when the platform behaves in a way the inspector cannot rely on
// - INFO for observations that need no action

const (
	SeverityInfo  = "INFO"
	SeverityWarn  = "WARN"
	SeverityBlock = "BLOCK"
)

// Check kinds:
// "layout_missing", "layout_extra", "events_empty", "event_log_shrank",
// "row_count_mismatch", "missing_path_listed", "missing_table_queried", "check_failed"
func SeverityForChange(kind string) string {
	switch kind {
	case "layout_missing", "events_empty", "event_log_shrank", "row_count_mismatch", "check_failed":
		return SeverityBlock
	case "missing_path_listed", "missing_table_queried":
		return SeverityWarn
	default:
		return SeverityInfo
	}
}

// MessageForChange returns a concise message for the given check kind.
func MessageForChange(kind string) string {
	switch kind {
	case "layout_missing":
		return "expected directory missing from storage location"
	case "layout_extra":
		return "unexpected entry in storage location"
	case "events_empty":
		return "event log directory is empty; the pipeline has not run"
	case "event_log_shrank":
		return "event log has fewer rows than the previous run"
	case "row_count_mismatch":
		return "SELECT * row count differs from COUNT(*)"
	case "missing_path_listed":
		return "listing a missing path did not fail with not found"
	case "missing_table_queried":
		return "querying a missing table did not fail with table not found"
	case "check_failed":
		return "check could not run"
	default:
		return ""
	}
}
