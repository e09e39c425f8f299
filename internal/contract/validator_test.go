package contract

import (
	"testing"

	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

func dirs(path string, names ...string) *types.Listing {
	l := &types.Listing{Path: path}
	for _, n := range names {
		l.Entries = append(l.Entries, types.Entry{Name: n, IsDir: true, Path: path + "/" + n})
	}
	return l
}

func severities(r *Report) map[string]int {
	out := map[string]int{}
	for _, iss := range r.Issues {
		out[iss.Severity]++
	}
	return out
}

func TestValidateLayout_Complete(t *testing.T) {
	rep := ValidateLayout(dirs("dbfs:/mnt/demo/dlt/demo_bookstore", "autoloader", "checkpoints", "system", "tables"))
	if rep.Blocking() {
		t.Fatalf("expected no blocking issues, got %v", rep.Issues)
	}
	if len(rep.Issues) != 1 || rep.Issues[0].Severity != SeverityInfo {
		t.Fatalf("expected a single pass entry, got %v", rep.Issues)
	}
}

func TestValidateLayout_MissingAndExtra(t *testing.T) {
	rep := ValidateLayout(dirs("dbfs:/root", "autoloader", "system", "tables", "scratch"))
	if !rep.Blocking() {
		t.Fatalf("expected blocking issue for missing checkpoints, got %v", rep.Issues)
	}
	got := severities(rep)
	if got[SeverityBlock] != 1 || got[SeverityInfo] != 1 {
		t.Errorf("expected one BLOCK and one INFO, got %v", rep.Issues)
	}
	if rep.Issues[0].Message != MessageForChange("layout_missing")+": checkpoints" {
		t.Errorf("unexpected message: %s", rep.Issues[0].Message)
	}
}

func TestValidateLayout_FileIsNotDirectory(t *testing.T) {
	l := dirs("dbfs:/root", "autoloader", "checkpoints", "system")
	l.Entries = append(l.Entries, types.Entry{Name: "tables", IsDir: false})
	if !ValidateLayout(l).Blocking() {
		t.Fatal("a file named tables must not satisfy the layout")
	}
}

func TestValidateEventsPresent(t *testing.T) {
	if !ValidateEventsPresent(dirs("dbfs:/root/system/events")).Blocking() {
		t.Error("empty events directory should block")
	}
	if ValidateEventsPresent(dirs("dbfs:/root/system/events", "_delta_log")).Blocking() {
		t.Error("non-empty events directory should pass")
	}
}

func TestValidateEventLogGrowth(t *testing.T) {
	tests := []struct {
		name     string
		previous int64
		current  int64
		blocking bool
	}{
		{"first run", -1, 10, false},
		{"unchanged", 10, 10, false},
		{"grew", 10, 25, false},
		{"shrank", 25, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateEventLogGrowth("events", tt.previous, tt.current).Blocking(); got != tt.blocking {
				t.Errorf("blocking = %v, want %v", got, tt.blocking)
			}
		})
	}
}

func TestValidateRowCount(t *testing.T) {
	if ValidateRowCount("t", 123, 123).Blocking() {
		t.Error("matching counts should pass")
	}
	rep := ValidateRowCount("t", 120, 123)
	if !rep.Blocking() {
		t.Fatal("mismatched counts should block")
	}
	if rep.Issues[0].Target != "t" {
		t.Errorf("target: got %s", rep.Issues[0].Target)
	}
}

func TestSeverityForChange(t *testing.T) {
	tests := map[string]string{
		"layout_missing":        SeverityBlock,
		"row_count_mismatch":    SeverityBlock,
		"check_failed":          SeverityBlock,
		"missing_path_listed":   SeverityWarn,
		"missing_table_queried": SeverityWarn,
		"layout_extra":          SeverityInfo,
		"unknown":               SeverityInfo,
	}
	for kind, want := range tests {
		if got := SeverityForChange(kind); got != want {
			t.Errorf("SeverityForChange(%q) = %s, want %s", kind, got, want)
		}
	}
}
