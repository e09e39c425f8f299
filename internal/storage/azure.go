package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/config"
	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

// Azure lists the blob container a dbfs:/mnt mount point is backed by.
type Azure struct {
	client     *azblob.Client
	container  string
	mountPoint string
	prefix     string
	logger     *slog.Logger
}

// NewAzure creates the blob client from a connection string, or from the
// default Azure credential chain when only an account URL is configured.
func NewAzure(cfg config.StorageConfig, logger *slog.Logger) (*Azure, error) {
	var (
		client *azblob.Client
		err    error
	)

	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		var cred azcore.TokenCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azure credential: %w", err)
		}
		client, err = azblob.NewClient(cfg.AccountURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Azure{
		client:     client,
		container:  cfg.Container,
		mountPoint: strings.TrimRight(cfg.MountPoint, "/"),
		prefix:     strings.Trim(cfg.Prefix, "/"),
		logger:     logger,
	}, nil
}

// blobPrefix maps a dbfs path under the mount point to a directory prefix
// inside the container. The result ends in "/" unless it is the container root.
func (a *Azure) blobPrefix(path string) (string, error) {
	p, err := DBFSPath(path)
	if err != nil {
		return "", err
	}
	if a.mountPoint != "" {
		if p != a.mountPoint && !strings.HasPrefix(p, a.mountPoint+"/") {
			return "", fmt.Errorf("path %q is outside mount point %s", path, a.mountPoint)
		}
		p = strings.TrimPrefix(p, a.mountPoint)
	}

	key := strings.Trim(strings.Trim(a.prefix, "/")+"/"+strings.Trim(p, "/"), "/")
	if key == "" {
		return "", nil
	}
	return key + "/", nil
}

func (a *Azure) List(ctx context.Context, path string) (*types.Listing, error) {
	prefix, err := a.blobPrefix(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("listing", "container", a.container, "prefix", prefix)

	pager := a.client.ServiceClient().
		NewContainerClient(a.container).
		NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{
			Prefix:  &prefix,
			Include: container.ListBlobsInclude{Metadata: true},
		})

	var segments []*container.BlobHierarchyListSegment
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return nil, notFound(path, err)
			}
			return nil, fmt.Errorf("list %s: %w", path, err)
		}
		segments = append(segments, resp.Segment)
	}

	entries := entriesFromSegments(path, prefix, segments)
	if len(entries) > 0 {
		return &types.Listing{Path: path, Entries: entries}, nil
	}

	key := strings.TrimSuffix(prefix, "/")
	if key == "" {
		return nil, notFound(path, nil)
	}
	return a.listBlob(ctx, path, key)
}

// listBlob handles a path with nothing beneath it: a file lists as itself,
// an ADLS folder marker as an empty directory.
func (a *Azure) listBlob(ctx context.Context, path, key string) (*types.Listing, error) {
	props, err := a.client.ServiceClient().
		NewContainerClient(a.container).
		NewBlobClient(key).
		GetProperties(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound(path, err)
		}
		return nil, fmt.Errorf("get properties %s: %w", path, err)
	}

	if isFolder(props.Metadata) {
		return &types.Listing{Path: path, Entries: []types.Entry{}}, nil
	}
	return &types.Listing{Path: path, Entries: []types.Entry{blobEntry(path, props)}}, nil
}

func blobEntry(path string, props blob.GetPropertiesResponse) types.Entry {
	e := types.Entry{Path: path, Name: baseName(path)}
	if props.ContentLength != nil {
		e.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		e.ModTime = props.LastModified.UTC()
	}
	return e
}

func isNotFound(err error) bool {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return true
	}
	// HEAD responses carry no error body.
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// entriesFromSegments converts hierarchy listing pages into entries. Folder
// placeholder blobs written by ADLS Gen2 collapse into their prefix entry.
func entriesFromSegments(path, prefix string, segments []*container.BlobHierarchyListSegment) []types.Entry {
	byName := map[string]types.Entry{}

	for _, seg := range segments {
		if seg == nil {
			continue
		}
		for _, bp := range seg.BlobPrefixes {
			if bp == nil || bp.Name == nil {
				continue
			}
			name := strings.TrimSuffix(strings.TrimPrefix(*bp.Name, prefix), "/")
			if name == "" {
				continue
			}
			byName[name] = types.Entry{Path: Join(path, name), Name: name, IsDir: true}
		}
		for _, item := range seg.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			name := strings.TrimPrefix(*item.Name, prefix)
			if name == "" {
				continue
			}
			if isFolder(item.Metadata) {
				if _, ok := byName[name]; !ok {
					byName[name] = types.Entry{Path: Join(path, name), Name: name, IsDir: true}
				}
				continue
			}
			e := types.Entry{Path: Join(path, name), Name: name}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					e.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					e.ModTime = item.Properties.LastModified.UTC()
				}
			}
			byName[name] = e
		}
	}

	entries := make([]types.Entry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries
}

func isFolder(metadata map[string]*string) bool {
	for k, v := range metadata {
		if strings.EqualFold(k, "hdi_isfolder") && v != nil && strings.EqualFold(*v, "true") {
			return true
		}
	}
	return false
}
