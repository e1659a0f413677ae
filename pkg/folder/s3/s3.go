// Package s3 implements folders backed by Amazon S3 or S3-compatible storage.
//
// Key Layout:
// Object keys are interpreted as "/"-separated paths below an optional key
// prefix. A folder is a key prefix: ListObjectsV2 with a "/" delimiter returns
// its files as Contents and its sub-folders as CommonPrefixes.
//
// Example:
//
//	Key Prefix: "media/"
//	Location:   photos/2024        (source "photos", sub "2024")
//	Listed:     media/2024/*
//
// S3 listings are cursor-paginated (continuation tokens), so every folder is
// sequential and served by the array loader.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Client is the subset of *s3.Client used by the provider.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ProviderConfig contains configuration for the S3 provider.
type ProviderConfig struct {
	// Client is the configured S3 client
	Client Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all listed keys
	// Example: "media/" lists keys like "media/2024/a.jpg"
	KeyPrefix string
}

// Provider exposes a bucket (or a key prefix of it) as a folder tree.
//
// Thread Safety:
// Safe for concurrent use; the S3 client is.
type Provider struct {
	client    Client
	bucket    string
	keyPrefix string
}

// NewProvider creates an S3 provider and verifies bucket access.
//
// Context Cancellation:
// This operation checks the context before verifying bucket access.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Provider configuration
//
// Returns:
//   - *Provider: Initialized provider
//   - error: Missing client/bucket, bucket access failure, or context cancelled
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Provider{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}, nil
}

// Open returns the folder for loc. Sub-folders that hold no keys do not exist.
func (p *Provider) Open(ctx context.Context, loc folder.Location) (folder.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := p.keyPrefix
	if sub := folder.JoinPath(loc.Sub); sub != "" {
		prefix += sub + "/"

		out, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(p.bucket),
			Prefix:  aws.String(prefix),
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			return nil, fmt.Errorf("probe %q: %w", prefix, err)
		}
		if len(out.Contents) == 0 && len(out.CommonPrefixes) == 0 {
			return nil, fmt.Errorf("folder %q: %w", loc.Path(), folder.ErrNotFound)
		}
	}

	return &S3Folder{provider: p, loc: loc, prefix: prefix}, nil
}

// Close is a no-op; the client is shared.
func (p *Provider) Close() error {
	return nil
}

// ============================================================================
// S3Folder
// ============================================================================

// S3Folder is one key prefix.
//
// Implemented Interfaces:
//   - folder.Folder
//   - folder.SequentialFolder
//   - folder.InfoProvider
//   - folder.ParentPathProvider
type S3Folder struct {
	provider *Provider
	loc      folder.Location
	prefix   string
}

// SequentialAccess is always true: S3 listings only page forward.
func (f *S3Folder) SequentialAccess() bool {
	return true
}

// GetFiles lists one page of the prefix. req.Cursor is the continuation token
// of the previous page. Sort options are ignored; S3 lists in key order.
func (f *S3Folder) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(f.provider.bucket),
		Prefix:    aws.String(f.prefix),
		Delimiter: aws.String("/"),
	}
	if req.PageSize > 0 {
		input.MaxKeys = aws.Int32(int32(req.PageSize))
	}
	if req.Cursor != "" {
		input.ContinuationToken = aws.String(req.Cursor)
	}

	out, err := f.provider.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", f.prefix, err)
	}

	items := make([]folder.ContentInfo, 0, len(out.CommonPrefixes)+len(out.Contents))
	for _, cp := range out.CommonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), f.prefix), "/")
		if name == "" {
			continue
		}
		items = append(items, folder.ContentInfo{
			Name: name,
			Type: folder.TypeFolder,
			Size: folder.UnknownSize,
			Path: f.loc.Child(name).Path(),
		})
	}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		name := strings.TrimPrefix(key, f.prefix)
		// Zero-byte "directory marker" objects.
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}

		item := folder.ContentInfo{
			Name:        name,
			Type:        folder.TypeByExtension(name),
			Size:        aws.ToInt64(obj.Size),
			UpdatedTime: aws.ToTime(obj.LastModified),
			Content:     folder.DeferredSource(f.provider.getObject(key)),
		}
		if folder.MediaKind(item.Type) == folder.MediaImage {
			item.Thumbnail = item.Content
		}
		items = append(items, item)
	}

	res := &folder.ListResult{Items: items, Total: folder.UnknownSize}
	if aws.ToBool(out.IsTruncated) {
		res.Next = aws.ToString(out.NextContinuationToken)
	}
	return res, nil
}

// GetInfo returns the folder name. S3 cannot count a prefix cheaply, so the
// size is left unknown.
func (f *S3Folder) GetInfo(ctx context.Context) (*folder.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := f.loc.Source
	if f.loc.Sub != "" {
		name = path.Base(f.loc.Sub)
	}
	return &folder.Info{
		Type: folder.TypeFolder,
		Name: name,
		Path: f.loc.Path(),
		Size: folder.UnknownSize,
	}, nil
}

// ParentPath returns the logical parent path.
func (f *S3Folder) ParentPath() string {
	return f.loc.ParentPath()
}

func (p *Provider) getObject(key string) folder.FetchFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("get object %q: %w", key, err)
		}
		return out.Body, nil
	}
}
