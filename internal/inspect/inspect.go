// Package inspect walks a pipeline's output in a fixed order: the storage
// location, the event log, the tables directory, then the gold tables.
package inspect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/source"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/storage"
	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

type Kind int

const (
	KindList Kind = iota
	KindQuery
)

func (k Kind) String() string {
	if k == KindQuery {
		return "query"
	}
	return "list"
}

// Step is one read-only operation. Target is a path for KindList and a SQL
// statement for KindQuery.
type Step struct {
	Kind   Kind
	Title  string
	Target string
}

// Display receives each result as soon as its step completes.
type Display interface {
	Listing(title string, l *types.Listing) error
	ResultSet(title string, rs *types.ResultSet) error
}

// Plan returns the inspection steps for a storage root and gold tables.
func Plan(root string, goldTables []string) ([]Step, error) {
	eventsPath := storage.Join(root, "system", "events")
	eventLog, err := source.EventLogStatement(eventsPath)
	if err != nil {
		return nil, err
	}

	steps := []Step{
		{Kind: KindList, Title: "Storage location", Target: root},
		{Kind: KindList, Title: "Event log files", Target: eventsPath},
		{Kind: KindQuery, Title: "Event log", Target: eventLog},
		{Kind: KindList, Title: "Pipeline tables", Target: storage.Join(root, "tables")},
	}
	for _, table := range goldTables {
		stmt, err := source.SelectAllStatement(table)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Kind: KindQuery, Title: table, Target: stmt})
	}
	return steps, nil
}

type Inspector struct {
	lister  storage.Lister
	querier source.Querier
	display Display
	logger  *slog.Logger
}

// New builds an Inspector. querier may be nil when only listing steps run.
func New(lister storage.Lister, querier source.Querier, display Display, logger *slog.Logger) *Inspector {
	return &Inspector{lister: lister, querier: querier, display: display, logger: logger}
}

// Run executes steps one at a time, displaying each result before the next
// step starts. The first failure stops the run; the platform's error is
// returned wrapped with the step title.
func (i *Inspector) Run(ctx context.Context, steps []Step) error {
	for n, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		i.logger.Info("step", "n", n+1, "of", len(steps), "kind", step.Kind, "title", step.Title)
		if err := i.runStep(ctx, step); err != nil {
			return fmt.Errorf("%s: %w", step.Title, err)
		}
	}
	return nil
}

func (i *Inspector) runStep(ctx context.Context, step Step) error {
	switch step.Kind {
	case KindList:
		l, err := i.lister.List(ctx, step.Target)
		if err != nil {
			return err
		}
		return i.display.Listing(step.Title, l)
	case KindQuery:
		if i.querier == nil {
			return fmt.Errorf("no warehouse configured for %q", step.Target)
		}
		rs, err := i.querier.Query(ctx, step.Target)
		if err != nil {
			return err
		}
		return i.display.ResultSet(step.Title, rs)
	default:
		return fmt.Errorf("unknown step kind %d", step.Kind)
	}
}

// ListRoot lists the storage location.
func (i *Inspector) ListRoot(ctx context.Context, root string) (*types.Listing, error) {
	return i.lister.List(ctx, root)
}

// ListEvents lists <root>/system/events.
func (i *Inspector) ListEvents(ctx context.Context, root string) (*types.Listing, error) {
	return i.lister.List(ctx, storage.Join(root, "system", "events"))
}

// ListTables lists <root>/tables.
func (i *Inspector) ListTables(ctx context.Context, root string) (*types.Listing, error) {
	return i.lister.List(ctx, storage.Join(root, "tables"))
}

// QueryEventLog selects every row of the event log Delta table.
func (i *Inspector) QueryEventLog(ctx context.Context, root string) (*types.ResultSet, error) {
	stmt, err := source.EventLogStatement(storage.Join(root, "system", "events"))
	if err != nil {
		return nil, err
	}
	return i.query(ctx, stmt)
}

// QueryGold selects every row of a gold table.
func (i *Inspector) QueryGold(ctx context.Context, table string) (*types.ResultSet, error) {
	stmt, err := source.SelectAllStatement(table)
	if err != nil {
		return nil, err
	}
	return i.query(ctx, stmt)
}

func (i *Inspector) query(ctx context.Context, stmt string) (*types.ResultSet, error) {
	if i.querier == nil {
		return nil, fmt.Errorf("no warehouse configured for %q", stmt)
	}
	return i.querier.Query(ctx, stmt)
}
