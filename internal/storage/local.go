package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

// Local lists a filesystem where dbfs: paths appear under a mount directory,
// as on a Databricks driver node (/dbfs).
type Local struct {
	mount  string
	logger *slog.Logger
}

func NewLocal(mount string, logger *slog.Logger) *Local {
	return &Local{mount: mount, logger: logger}
}

func (l *Local) resolve(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if !strings.HasPrefix(path, dbfsScheme) {
		return filepath.Clean(path), nil
	}
	p, err := DBFSPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.mount, filepath.FromSlash(p)), nil
}

func (l *Local) List(ctx context.Context, path string) (*types.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	local, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("listing", "path", path, "local", local)

	info, err := os.Stat(local)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(path, err)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	// Listing a file yields the file itself.
	if !info.IsDir() {
		return &types.Listing{
			Path: path,
			Entries: []types.Entry{{
				Path:    path,
				Name:    info.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}},
		}, nil
	}

	dirEntries, err := os.ReadDir(local)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}

	entries := make([]types.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		fi, err := de.Info()
		if err != nil {
			// removed between ReadDir and Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		e := types.Entry{
			Path:    Join(path, de.Name()),
			Name:    de.Name(),
			IsDir:   de.IsDir(),
			ModTime: fi.ModTime(),
		}
		if !e.IsDir {
			e.Size = fi.Size()
		}
		entries = append(entries, e)
	}
	sortEntries(entries)

	return &types.Listing{Path: path, Entries: entries}, nil
}
