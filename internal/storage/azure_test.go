package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/google/go-cmp/cmp"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/config"
	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func TestAzure_BlobPrefix(t *testing.T) {
	a := &Azure{mountPoint: "/mnt/demo", prefix: "lake", logger: discard()}

	tests := []struct {
		path string
		want string
	}{
		{"dbfs:/mnt/demo/dlt/demo_bookstore", "lake/dlt/demo_bookstore/"},
		{"dbfs:/mnt/demo/dlt/demo_bookstore/system/events", "lake/dlt/demo_bookstore/system/events/"},
		{"dbfs:/mnt/demo", "lake/"},
	}
	for _, tt := range tests {
		got, err := a.blobPrefix(tt.path)
		if err != nil {
			t.Fatalf("blobPrefix(%q): %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("blobPrefix(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	if _, err := a.blobPrefix("dbfs:/mnt/demolition/x"); err == nil {
		t.Error("expected error for path outside mount point")
	}

	root := &Azure{logger: discard()}
	if got, _ := root.blobPrefix("dbfs:/"); got != "" {
		t.Errorf("container root prefix: got %q", got)
	}
}

func TestEntriesFromSegments(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	prefix := "lake/dlt/demo_bookstore/"

	segments := []*container.BlobHierarchyListSegment{
		{
			BlobPrefixes: []*container.BlobPrefix{
				{Name: ptr(prefix + "tables/")},
				{Name: ptr(prefix + "system/")},
			},
			BlobItems: []*container.BlobItem{
				{
					Name:     ptr(prefix + "tables"),
					Metadata: map[string]*string{"hdi_isfolder": ptr("true")},
				},
				{
					Name:     ptr(prefix + "autoloader"),
					Metadata: map[string]*string{"Hdi_isfolder": ptr("true")},
				},
			},
		},
		{
			BlobPrefixes: []*container.BlobPrefix{{Name: ptr(prefix + "checkpoints/")}},
			BlobItems: []*container.BlobItem{{
				Name: ptr(prefix + "_SUCCESS"),
				Properties: &container.BlobProperties{
					ContentLength: ptr(int64(0)),
					LastModified:  &modified,
				},
			}},
		},
		nil,
	}

	entries := entriesFromSegments("dbfs:/mnt/demo/dlt/demo_bookstore", prefix, segments)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{"_SUCCESS", "autoloader", "checkpoints", "system", "tables"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	if entries[0].IsDir || !entries[0].ModTime.Equal(modified) {
		t.Errorf("unexpected file entry: %+v", entries[0])
	}
	for _, e := range entries[1:] {
		if !e.IsDir {
			t.Errorf("%s: expected directory", e.Name)
		}
	}
	if entries[4].Path != "dbfs:/mnt/demo/dlt/demo_bookstore/tables" {
		t.Errorf("path: got %s", entries[4].Path)
	}
}

// azuriteKey is the public development key of the Azure storage emulator.
const azuriteKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="

// blobServer answers hierarchy listings with no results and HEAD requests
// from blobs, keyed by blob name.
func blobServer(t *testing.T, blobs map[string]http.Header) *Azure {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("comp") == "list" {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?>`+
				`<EnumerationResults ServiceEndpoint="http://%s/devstoreaccount1/" ContainerName="lake">`+
				`<Prefix>%s</Prefix><Delimiter>/</Delimiter><Blobs /><NextMarker /></EnumerationResults>`,
				r.Host, r.URL.Query().Get("prefix"))
			return
		}

		key := strings.TrimPrefix(r.URL.Path, "/devstoreaccount1/lake/")
		h, ok := blobs[key]
		if r.Method != http.MethodHead || !ok {
			w.Header().Set("x-ms-error-code", "BlobNotFound")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		for k, v := range h {
			w.Header()[k] = v
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	a, err := NewAzure(config.StorageConfig{
		Type:      "azure",
		Container: "lake",
		ConnectionString: "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=" + azuriteKey +
			";BlobEndpoint=" + srv.URL + "/devstoreaccount1;",
		MountPoint: "/mnt/demo",
	}, discard())
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAzure_ListFileOrMarker(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := blobServer(t, map[string]http.Header{
		"dlt/demo_bookstore/system/events/part-00000.parquet": {
			"Content-Length": {"2048"},
			"Last-Modified":  {modified.Format(http.TimeFormat)},
		},
		"dlt/demo_bookstore/autoloader": {
			"Content-Length":         {"0"},
			"X-Ms-Meta-Hdi_isfolder": {"true"},
		},
	})
	ctx := context.Background()

	file := "dbfs:/mnt/demo/dlt/demo_bookstore/system/events/part-00000.parquet"
	l, err := a.List(ctx, file)
	if err != nil {
		t.Fatalf("list file: %v", err)
	}
	want := []types.Entry{{Path: file, Name: "part-00000.parquet", Size: 2048, ModTime: modified}}
	if diff := cmp.Diff(want, l.Entries); diff != "" {
		t.Errorf("file entries (-want +got):\n%s", diff)
	}

	l, err = a.List(ctx, "dbfs:/mnt/demo/dlt/demo_bookstore/autoloader")
	if err != nil {
		t.Fatalf("list folder marker: %v", err)
	}
	if len(l.Entries) != 0 {
		t.Errorf("empty folder should list no entries, got %+v", l.Entries)
	}

	_, err = a.List(ctx, "dbfs:/mnt/demo/dlt/demo_bookstore/nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
