package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

// DBFS lists paths through the Databricks workspace REST API.
type DBFS struct {
	host   string
	token  string
	client *http.Client
	logger *slog.Logger
}

type dbfsFile struct {
	Path             string `json:"path"`
	IsDir            bool   `json:"is_dir"`
	FileSize         int64  `json:"file_size"`
	ModificationTime int64  `json:"modification_time"`
}

type dbfsListResponse struct {
	Files []dbfsFile `json:"files"`
}

type dbfsError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func NewDBFS(host, token string, logger *slog.Logger) *DBFS {
	return &DBFS{
		host:   strings.TrimRight(host, "/"),
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (d *DBFS) List(ctx context.Context, path string) (*types.Listing, error) {
	p, err := DBFSPath(path)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/api/2.0/dbfs/list?%s", d.host, url.Values{"path": {p}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Accept", "application/json")

	d.logger.Debug("listing", "path", p)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr dbfsError
		_ = json.Unmarshal(body, &apiErr)
		if resp.StatusCode == http.StatusNotFound || apiErr.ErrorCode == "RESOURCE_DOES_NOT_EXIST" {
			return nil, notFound(path, errors.New(apiErr.Message))
		}
		if apiErr.ErrorCode != "" {
			return nil, fmt.Errorf("list %s: dbfs returned status %d: %s: %s", path, resp.StatusCode, apiErr.ErrorCode, apiErr.Message)
		}
		return nil, fmt.Errorf("list %s: dbfs returned status %d", path, resp.StatusCode)
	}

	var listing dbfsListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode dbfs listing: %w", err)
	}

	entries := make([]types.Entry, 0, len(listing.Files))
	for _, f := range listing.Files {
		e := types.Entry{
			Path:  dbfsScheme + f.Path,
			Name:  baseName(f.Path),
			Size:  f.FileSize,
			IsDir: f.IsDir,
		}
		if f.ModificationTime > 0 {
			e.ModTime = time.UnixMilli(f.ModificationTime).UTC()
		}
		entries = append(entries, e)
	}
	sortEntries(entries)

	return &types.Listing{Path: path, Entries: entries}, nil
}
