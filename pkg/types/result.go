package types

import "time"

// Entry is a single item returned by a storage listing.
type Entry struct {
	Path    string
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// Listing is the ordered content of one directory.
type Listing struct {
	Path    string
	Entries []Entry
}

// Names returns the entry names in listing order.
func (l *Listing) Names() []string {
	names := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		names = append(names, e.Name)
	}
	return names
}

// ResultSet holds every row a statement returned, as the engine returned it.
type ResultSet struct {
	Statement string
	Columns   []string
	Rows      [][]any
}

// Column returns the index of the named column, or -1.
func (r *ResultSet) Column(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

type CheckResult struct {
	Check    string
	Target   string
	Severity string
	Message  string
}
