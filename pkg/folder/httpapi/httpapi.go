// Package httpapi implements folders served by a remote JSON listing API.
//
// Wire Protocol:
//
//	GET {base}/list?path=<sub>&limit=<n>&offset=<i>&cursor=<tok>&sort=<field>&order=<a|d>
//	  -> {"items": [...], "next": "<tok>", "total": <n>}
//	GET {base}/info?path=<sub>
//	  -> {"name": "...", "type": "folder", "size": <n>, "thumbnail_url": "..."}
//
// Offset servers ignore cursor and set "next" to any non-empty value while
// more items exist. Cursor servers (Sequential) ignore offset. A missing
// "total" means the count is unknown. 404 maps to folder.ErrNotFound.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Config configures an HTTP listing source.
type Config struct {
	// BaseURL is the API root, e.g. "https://media.example.com/api".
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// Sequential marks a cursor-paginated server.
	Sequential bool `mapstructure:"sequential"`

	// Headers are sent with every request (e.g. Authorization).
	Headers map[string]string `mapstructure:"headers"`

	// Timeout bounds one HTTP attempt. Zero means no limit besides ctx.
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryMax is the number of retries after the first attempt.
	RetryMax int `mapstructure:"retry_max" validate:"gte=0"`
}

// Defaults applied by NewProvider.
const (
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 200 * time.Millisecond
	DefaultRetryWaitMax = 5 * time.Second
)

// retryLogger routes retryablehttp's leveled logs to the package logger.
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	logger.Error("HTTP retry: %s %v", msg, keysAndValues)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	logger.Debug("HTTP retry: %s %v", msg, keysAndValues)
}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	logger.Warn("HTTP retry: %s %v", msg, keysAndValues)
}

// Provider talks to one listing API.
//
// Thread Safety:
// Safe for concurrent use; the HTTP client is.
type Provider struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	headers http.Header
}

// NewProvider validates cfg and builds the retrying HTTP client.
func NewProvider(cfg Config) (*Provider, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	if retryClient.RetryMax == 0 {
		retryClient.RetryMax = DefaultRetryMax
	}
	retryClient.RetryWaitMin = DefaultRetryWaitMin
	retryClient.RetryWaitMax = DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = retryLogger{}

	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	return &Provider{
		cfg:     cfg,
		base:    base,
		http:    retryClient.StandardClient(),
		headers: headers,
	}, nil
}

// Open returns the folder for loc. The server is asked for the folder's info
// so that missing folders fail here rather than on the first page.
func (p *Provider) Open(ctx context.Context, loc folder.Location) (folder.Folder, error) {
	f := &HTTPFolder{provider: p, loc: loc}
	if _, err := f.GetInfo(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.http.CloseIdleConnections()
	return nil
}

// ============================================================================
// Wire Types
// ============================================================================

type wireItem struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Size         *int64    `json:"size,omitempty"`
	UpdatedTime  time.Time `json:"updated_time"`
	Path         string    `json:"path,omitempty"`
	URL          string    `json:"url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

type wireList struct {
	Items []wireItem `json:"items"`
	Next  string     `json:"next,omitempty"`
	Total *int       `json:"total,omitempty"`
}

type wireInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Path         string `json:"path"`
	Size         *int   `json:"size,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// ============================================================================
// HTTPFolder
// ============================================================================

// HTTPFolder is one folder of the remote API.
//
// Implemented Interfaces:
//   - folder.Folder
//   - folder.SequentialFolder
//   - folder.InfoProvider
//   - folder.ParentPathProvider
type HTTPFolder struct {
	provider *Provider
	loc      folder.Location
}

// SequentialAccess reports the configured pagination mode.
func (f *HTTPFolder) SequentialAccess() bool {
	return f.provider.cfg.Sequential
}

// GetFiles requests one page from the server.
func (f *HTTPFolder) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	q := url.Values{}
	q.Set("path", f.loc.Sub)
	if req.PageSize > 0 {
		q.Set("limit", strconv.Itoa(req.PageSize))
	}
	if f.provider.cfg.Sequential {
		if req.Cursor != "" {
			q.Set("cursor", req.Cursor)
		}
	} else {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	if req.Options.SortField != "" {
		q.Set("sort", req.Options.SortField)
	}
	if req.Options.SortOrder != "" {
		q.Set("order", req.Options.SortOrder)
	}
	for k, v := range req.Options.Extra {
		q.Set(k, v)
	}

	var body wireList
	if err := f.provider.getJSON(ctx, "list", q, &body); err != nil {
		return nil, err
	}

	res := &folder.ListResult{
		Items: make([]folder.ContentInfo, 0, len(body.Items)),
		Next:  body.Next,
		Total: folder.UnknownSize,
	}
	if body.Total != nil {
		res.Total = *body.Total
	}
	for _, w := range body.Items {
		res.Items = append(res.Items, f.item(w))
	}
	return res, nil
}

func (f *HTTPFolder) item(w wireItem) folder.ContentInfo {
	item := folder.ContentInfo{
		Name:        w.Name,
		Type:        w.Type,
		Size:        folder.UnknownSize,
		UpdatedTime: w.UpdatedTime,
		Path:        w.Path,
		Content:     folder.URLSource(f.provider.resolve(w.URL)),
		Thumbnail:   folder.URLSource(f.provider.resolve(w.ThumbnailURL)),
	}
	if w.Size != nil {
		item.Size = *w.Size
	}
	if item.Type == "" {
		item.Type = folder.TypeByExtension(w.Name)
	}
	if folder.IsContainer(item.Type) && item.Path == "" {
		item.Path = f.loc.Child(w.Name).Path()
	}
	return item
}

// GetInfo asks the server for the folder metadata.
func (f *HTTPFolder) GetInfo(ctx context.Context) (*folder.Info, error) {
	q := url.Values{}
	q.Set("path", f.loc.Sub)

	var body wireInfo
	if err := f.provider.getJSON(ctx, "info", q, &body); err != nil {
		return nil, err
	}

	info := &folder.Info{
		Type:      body.Type,
		Name:      body.Name,
		Path:      f.loc.Path(),
		Size:      folder.UnknownSize,
		Thumbnail: folder.URLSource(f.provider.resolve(body.ThumbnailURL)),
	}
	if info.Type == "" {
		info.Type = folder.TypeFolder
	}
	if info.Name == "" {
		info.Name = f.loc.Source
		if f.loc.Sub != "" {
			info.Name = path.Base(f.loc.Sub)
		}
	}
	if body.Size != nil {
		info.Size = *body.Size
	}
	return info, nil
}

// ParentPath returns the logical parent path.
func (f *HTTPFolder) ParentPath() string {
	return f.loc.ParentPath()
}

// ============================================================================
// Transport
// ============================================================================

func (p *Provider) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	u := *p.base
	u.Path = path.Join(u.Path, endpoint)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range p.headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("GET %s?%s: %w", endpoint, u.RawQuery, folder.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest && q.Get("cursor") != "":
		return fmt.Errorf("GET %s: %w", endpoint, folder.ErrInvalidCursor)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GET %s: unexpected status %s", endpoint, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// resolve makes server-relative URLs absolute.
func (p *Provider) resolve(ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return p.base.ResolveReference(r).String()
}
