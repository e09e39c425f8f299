package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/history"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/source"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/storage"
)

const roundTripParallelism = 4

// Baseline supplies the snapshot recorded by the previous run.
type Baseline interface {
	Latest(ctx context.Context, root string) (*history.Snapshot, error)
}

type Verifier struct {
	Lister   storage.Lister
	Querier  source.Querier
	Baseline Baseline // optional
	Logger   *slog.Logger
}

// Target names what to verify.
type Target struct {
	Root       string
	Database   string
	GoldTables []string
}

// Verify runs every check against target. Check failures become issues in
// the report; only cancellation of ctx is returned as an error. The
// returned snapshot carries the counts observed by this run.
func (v *Verifier) Verify(ctx context.Context, target Target) (*Report, *history.Snapshot, error) {
	report := &Report{}
	snap := history.NewSnapshot(target.Root)

	if root, err := v.Lister.List(ctx, target.Root); err != nil {
		report.add("layout", target.Root, "check_failed", err.Error())
	} else {
		report.Merge(ValidateLayout(root))
	}

	eventsPath := storage.Join(target.Root, "system", "events")
	if events, err := v.Lister.List(ctx, eventsPath); err != nil {
		report.add("events_present", eventsPath, "check_failed", err.Error())
	} else {
		report.Merge(ValidateEventsPresent(events))
	}

	report.Merge(v.checkEventLog(ctx, eventsPath, snap))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	rt, err := v.checkRoundTrips(ctx, target.GoldTables, snap)
	if err != nil {
		return nil, nil, err
	}
	report.Merge(rt)

	report.Merge(v.probeMissingPath(ctx, target.Root))
	report.Merge(v.probeMissingTable(ctx, target.Database))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return report, snap, nil
}

func (v *Verifier) checkEventLog(ctx context.Context, eventsPath string, snap *history.Snapshot) *Report {
	report := &Report{}
	stmt, err := source.EventLogStatement(eventsPath)
	if err != nil {
		report.add("event_log_monotonic", eventsPath, "check_failed", err.Error())
		return report
	}
	rs, err := v.Querier.Query(ctx, stmt)
	if err != nil {
		report.add("event_log_monotonic", eventsPath, "check_failed", err.Error())
		return report
	}
	snap.EventCount = int64(len(rs.Rows))

	previous := int64(-1)
	if v.Baseline != nil {
		last, err := v.Baseline.Latest(ctx, snap.Root)
		if err != nil {
			v.Logger.Warn("previous snapshot unavailable", "error", err)
		} else if last != nil {
			previous = last.EventCount
		}
	}
	report.Merge(ValidateEventLogGrowth(eventsPath, previous, snap.EventCount))
	return report
}

// checkRoundTrips compares SELECT * with COUNT(*) for every table. Tables
// are checked concurrently; issues keep the configured table order.
func (v *Verifier) checkRoundTrips(ctx context.Context, tables []string, snap *history.Snapshot) (*Report, error) {
	reports := make([]*Report, len(tables))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(roundTripParallelism)
	for i, table := range tables {
		g.Go(func() error {
			r := &Report{}
			reports[i] = r

			stmt, err := source.SelectAllStatement(table)
			if err != nil {
				r.add("row_count_round_trip", table, "check_failed", err.Error())
				return nil
			}
			rs, err := v.Querier.Query(gctx, stmt)
			if err != nil {
				r.add("row_count_round_trip", table, "check_failed", err.Error())
				return gctx.Err()
			}
			counted, err := v.Querier.Count(gctx, table)
			if err != nil {
				r.add("row_count_round_trip", table, "check_failed", err.Error())
				return gctx.Err()
			}

			mu.Lock()
			snap.TableCounts[table] = counted
			mu.Unlock()

			reports[i] = ValidateRowCount(table, int64(len(rs.Rows)), counted)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, r := range reports {
		report.Merge(r)
	}
	return report, nil
}

func probeName() string {
	return "__dltinspect_missing_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (v *Verifier) probeMissingPath(ctx context.Context, root string) *Report {
	report := &Report{}
	path := storage.Join(root, probeName())

	listing, err := v.Lister.List(ctx, path)
	switch {
	case err == nil:
		report.add("missing_path_not_found", path, "missing_path_listed", fmt.Sprintf("returned %d entries", len(listing.Entries)))
	case errors.Is(err, storage.ErrNotFound):
		report.pass("missing_path_not_found", path, "not found")
	default:
		report.add("missing_path_not_found", path, "missing_path_listed", err.Error())
	}
	return report
}

func (v *Verifier) probeMissingTable(ctx context.Context, database string) *Report {
	report := &Report{}
	table := probeName()
	if database != "" {
		table = database + "." + table
	}

	stmt, err := source.SelectAllStatement(table)
	if err != nil {
		report.add("missing_table_not_found", table, "check_failed", err.Error())
		return report
	}
	rs, err := v.Querier.Query(ctx, stmt)
	switch {
	case err == nil:
		report.add("missing_table_not_found", table, "missing_table_queried", fmt.Sprintf("returned %d rows", len(rs.Rows)))
	case source.IsTableNotFound(err):
		report.pass("missing_table_not_found", table, "table not found")
	default:
		report.add("missing_table_not_found", table, "missing_table_queried", err.Error())
	}
	return report
}
