// Package storage lists pipeline storage locations across the filesystems a
// Databricks workspace can be backed by.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/config"
	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

const dbfsScheme = "dbfs:"

var (
	// ErrNotFound indicates the listed path does not exist.
	ErrNotFound = errors.New("path not found")
	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path must not be empty")
)

// Lister returns the entries directly under a path.
type Lister interface {
	// List returns the entries of path ordered by name. A missing path
	// yields an error wrapping ErrNotFound, never an empty listing.
	List(ctx context.Context, path string) (*types.Listing, error)
}

// New builds the Lister selected by cfg.Type.
func New(cfg config.StorageConfig, logger *slog.Logger) (Lister, error) {
	logger = logger.With("storage", cfg.Type)

	switch cfg.Type {
	case "local":
		return NewLocal(cfg.Mount, logger), nil
	case "dbfs":
		if cfg.Host == "" || cfg.Token == "" {
			return nil, errors.New("storage.host and storage.token are required for dbfs storage")
		}
		return NewDBFS(cfg.Host, cfg.Token, logger), nil
	case "azure":
		if cfg.Container == "" {
			return nil, errors.New("storage.container is required for azure storage")
		}
		if cfg.ConnectionString == "" && cfg.AccountURL == "" {
			return nil, errors.New("storage.connection_string or storage.account_url is required for azure storage")
		}
		return NewAzure(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// Join appends path elements to root using forward slashes, preserving a
// dbfs: scheme.
func Join(root string, elem ...string) string {
	out := strings.TrimRight(root, "/")
	for _, e := range elem {
		e = strings.Trim(e, "/")
		if e == "" {
			continue
		}
		out += "/" + e
	}
	if out == dbfsScheme {
		return dbfsScheme + "/"
	}
	return out
}

// DBFSPath strips the dbfs: scheme and returns the absolute workspace path.
func DBFSPath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	p := strings.TrimPrefix(path, dbfsScheme)
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("path %q is not absolute", path)
	}
	if strings.Contains(p, "..") {
		return "", fmt.Errorf("path %q contains a parent segment", path)
	}
	return p, nil
}

func baseName(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func sortEntries(entries []types.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}

func notFound(path string, cause error) error {
	if cause == nil {
		return fmt.Errorf("list %s: %w", path, ErrNotFound)
	}
	return fmt.Errorf("list %s: %w: %w", path, ErrNotFound, cause)
}
