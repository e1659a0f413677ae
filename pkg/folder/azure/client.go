package azure

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// DefaultMaxRetries is the retry budget used when none is configured.
const DefaultMaxRetries = 3

// ClientConfig describes how to reach a blob container.
//
// Exactly one way of authenticating is used, in this order:
//   - ConnectionString
//   - AccountName + AccountKey (shared key)
//   - ServiceURL carrying a SAS token, or a public container
type ClientConfig struct {
	ServiceURL       string `mapstructure:"service_url"`
	Container        string `mapstructure:"container" validate:"required"`
	Prefix           string `mapstructure:"prefix"`
	ConnectionString string `mapstructure:"connection_string"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	MaxRetries       int    `mapstructure:"max_retries"`
}

// Client is the narrow container API the provider depends on.
type Client interface {
	// Exists verifies the container is reachable.
	Exists(ctx context.Context) error

	// ListPage returns one hierarchy page below prefix, using "/" as the
	// delimiter. An empty marker starts the listing.
	ListPage(ctx context.Context, prefix, marker string, maxResults int32) (container.ListBlobsHierarchySegmentResponse, error)

	// Download opens the blob for reading.
	Download(ctx context.Context, blobName string) (io.ReadCloser, error)
}

// containerClient adapts *container.Client to Client.
type containerClient struct {
	c *container.Client
}

// NewClient builds a container client from cfg.
func NewClient(cfg ClientConfig) (Client, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: int32(maxRetries)},
		},
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
	case cfg.AccountName != "" && cfg.AccountKey != "":
		cred, credErr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("invalid shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL(cfg), cred, opts)
	default:
		if cfg.ServiceURL == "" {
			return nil, fmt.Errorf("azure blob: service_url, connection_string or account credentials are required")
		}
		client, err = azblob.NewClientWithNoCredential(cfg.ServiceURL, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	return &containerClient{c: client.ServiceClient().NewContainerClient(cfg.Container)}, nil
}

// serviceURL defaults to the public endpoint of the account.
func serviceURL(cfg ClientConfig) string {
	if cfg.ServiceURL != "" {
		return cfg.ServiceURL
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
}

func (c *containerClient) Exists(ctx context.Context) error {
	_, err := c.c.GetProperties(ctx, nil)
	return err
}

func (c *containerClient) ListPage(ctx context.Context, prefix, marker string, maxResults int32) (container.ListBlobsHierarchySegmentResponse, error) {
	opts := &container.ListBlobsHierarchyOptions{}
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}
	if marker != "" {
		opts.Marker = to.Ptr(marker)
	}
	if maxResults > 0 {
		opts.MaxResults = to.Ptr(maxResults)
	}

	pager := c.c.NewListBlobsHierarchyPager("/", opts)
	if !pager.More() {
		return container.ListBlobsHierarchySegmentResponse{}, nil
	}
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return container.ListBlobsHierarchySegmentResponse{}, err
	}
	return resp.ListBlobsHierarchySegmentResponse, nil
}

func (c *containerClient) Download(ctx context.Context, blobName string) (io.ReadCloser, error) {
	resp, err := c.c.NewBlobClient(strings.TrimPrefix(blobName, "/")).DownloadStream(ctx, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
