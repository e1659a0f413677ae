package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittobrowse/pkg/folder"
	foldertesting "github.com/marmos91/dittobrowse/pkg/folder/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fake Client
// ============================================================================

// fakeS3 is an in-memory bucket implementing the listing semantics the
// provider relies on: prefix, "/" delimiter, MaxKeys and continuation tokens.
type fakeS3 struct {
	bucket string

	mu      sync.Mutex
	objects map[string][]byte
	lists   int
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: make(map[string][]byte)}
}

func (f *fakeS3) put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != f.bucket {
		return nil, errors.New("NoSuchBucket")
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++

	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	type entry struct {
		key      string
		isPrefix bool
	}
	seen := make(map[string]bool)
	var entries []entry
	for key := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+len(delim)]
				if !seen[cp] {
					seen[cp] = true
					entries = append(entries, entry{key: cp, isPrefix: true})
				}
				continue
			}
		}
		entries = append(entries, entry{key: key})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, errors.New("InvalidContinuationToken")
		}
		start = n
	}
	maxKeys := 1000
	if in.MaxKeys != nil {
		maxKeys = int(*in.MaxKeys)
	}
	end := min(start+maxKeys, len(entries))
	if start > end {
		start = end
	}

	out := &s3.ListObjectsV2Output{}
	for _, e := range entries[start:end] {
		if e.isPrefix {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(e.key)})
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(e.key),
			Size:         aws.Int64(int64(len(f.objects[e.key]))),
			LastModified: aws.Time(time.Unix(1700000000, 0)),
		})
	}
	if end < len(entries) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func newProvider(t *testing.T, client *fakeS3, keyPrefix string) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{Client: client, Bucket: client.bucket, KeyPrefix: keyPrefix})
	require.NoError(t, err)
	return p
}

// ============================================================================
// Tests
// ============================================================================

func TestS3Folder(t *testing.T) {
	suite := &foldertesting.FolderTestSuite{
		NewFolder: func(t *testing.T, names []string) folder.Folder {
			client := newFakeS3("media")
			for _, n := range names {
				client.put("library/"+n, []byte("data"))
			}
			f, err := newProvider(t, client, "library").Open(context.Background(), folder.Location{Source: "cloud"})
			require.NoError(t, err)
			return f
		},
	}
	suite.Run(t)
}

func TestNewProvider_BucketAccess(t *testing.T) {
	_, err := NewProvider(context.Background(), ProviderConfig{Client: newFakeS3("media"), Bucket: "other"})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), ProviderConfig{Bucket: "media"})
	assert.Error(t, err)
}

func TestGetFiles_PrefixesAreFolders(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3("media")
	client.put("2024/summer/beach.jpg", []byte("jpeg"))
	client.put("2024/summer/", nil)
	client.put("2024/clip.mp4", []byte("mp4"))
	client.put("2024/readme.txt", []byte("txt"))

	p := newProvider(t, client, "")
	f, err := p.Open(ctx, folder.Location{Source: "cloud", Sub: "2024"})
	require.NoError(t, err)
	assert.True(t, folder.IsSequential(f))

	items, err := foldertesting.ListAll(ctx, f, 10, folder.Options{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "clip.mp4", items[0].Name)
	assert.Equal(t, "video/mp4", items[0].Type)
	assert.False(t, items[0].Thumbnail.Available())

	assert.Equal(t, "readme.txt", items[1].Name)
	assert.Equal(t, "text/plain", items[1].Type)

	assert.Equal(t, "summer", items[2].Name)
	assert.Equal(t, folder.TypeFolder, items[2].Type)
	assert.Equal(t, "cloud/2024/summer", items[2].Path)

	sub, err := p.Open(ctx, folder.Location{Source: "cloud", Sub: "2024/summer"})
	require.NoError(t, err)
	res, err := sub.GetFiles(ctx, folder.ListRequest{PageSize: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1, "directory markers are not listed")

	beach := res.Items[0]
	assert.Equal(t, "image/jpeg", beach.Type)
	assert.True(t, beach.Thumbnail.Available())
	rc, err := beach.Content.Fetch(ctx)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	assert.Equal(t, "jpeg", string(data))

	assert.Equal(t, "cloud/2024", sub.(folder.ParentPathProvider).ParentPath())
}

func TestOpen_MissingPrefix(t *testing.T) {
	client := newFakeS3("media")
	client.put("a.jpg", []byte("x"))
	p := newProvider(t, client, "")

	_, err := p.Open(context.Background(), folder.Location{Source: "cloud", Sub: "missing"})
	assert.ErrorIs(t, err, folder.ErrNotFound)
}

func TestGetInfo(t *testing.T) {
	client := newFakeS3("media")
	client.put("albums/x/a.jpg", []byte("x"))
	p := newProvider(t, client, "albums")

	f, err := p.Open(context.Background(), folder.Location{Source: "cloud", Sub: "x"})
	require.NoError(t, err)
	info, err := f.(folder.InfoProvider).GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", info.Name)
	assert.Equal(t, folder.UnknownSize, info.Size)
}
