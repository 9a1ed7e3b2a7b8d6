// Package assets downloads media referenced by exported content.
package assets

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"github.com/toothbrush/wp2aem/internal/logging"
	"github.com/toothbrush/wp2aem/naming"
)

const (
	DefaultTimeout = 5 * time.Second

	// DefaultMaxBytes caps a single download.  Anything larger is recorded as a failure rather
	// than buffered.
	DefaultMaxBytes = 512 << 20
)

// FetchedAsset is the outcome of fetching one reference.  Exactly one of Data and FailureReason
// is set.
type FetchedAsset struct {
	SourceURL string
	LocalName string
	MimeType  string

	Data          []byte
	FailureReason string
}

func (a FetchedAsset) OK() bool {
	return a.FailureReason == ""
}

// Resolver is the slice of *net.Resolver the fetcher needs.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Fetcher validates and downloads remote assets.  It never returns errors: every failure is
// recorded on the FetchedAsset and the caller moves on.
type Fetcher struct {
	Client   *http.Client
	Resolver Resolver
	Timeout  time.Duration
	MaxBytes int64

	Logger *logrus.Logger
}

func NewFetcher(timeout time.Duration, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		Client:   &http.Client{},
		Resolver: net.DefaultResolver,
		Timeout:  timeout,
		MaxBytes: DefaultMaxBytes,
		Logger:   logger,
	}
}

// Fetch runs, in order: URL validation, host resolution, the http->https upgrade, a
// time-bounded GET, and local name derivation.  Nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) FetchedAsset {
	asset := FetchedAsset{SourceURL: rawURL}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return f.fail(asset, "invalid URL")
	}
	resolveCtx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()
	if _, err := f.resolver().LookupHost(resolveCtx, u.Hostname()); err != nil {
		return f.fail(asset, fmt.Sprintf("unresolvable host %s: %v", u.Hostname(), err))
	}

	if u.Scheme == "http" {
		u.Scheme = "https"
	}

	data, err := f.get(ctx, u.String())
	if err != nil {
		return f.fail(asset, err.Error())
	}

	asset.LocalName = localName(u)
	if asset.LocalName == "" {
		return f.fail(asset, "URL has no usable file name")
	}
	asset.Data = data
	asset.MimeType = mimetype.Detect(data).String()

	f.logger().WithFields(logrus.Fields{
		"url":   rawURL,
		"name":  asset.LocalName,
		"bytes": len(data),
		"mime":  asset.MimeType,
	}).Debug("Fetched asset")

	return asset
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't build request: %w", err)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("couldn't read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("asset larger than %d bytes", limit)
	}

	return data, nil
}

func (f *Fetcher) fail(asset FetchedAsset, reason string) FetchedAsset {
	asset.FailureReason = reason
	f.logger().WithFields(logrus.Fields{
		"url":    asset.SourceURL,
		"reason": reason,
	}).Warn("Skipping asset")
	return asset
}

func localName(u *url.URL) string {
	return naming.Sanitize(path.Base(u.Path))
}

func (f *Fetcher) timeout() time.Duration {
	if f.Timeout <= 0 {
		return DefaultTimeout
	}
	return f.Timeout
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *Fetcher) resolver() Resolver {
	if f.Resolver == nil {
		return net.DefaultResolver
	}
	return f.Resolver
}

func (f *Fetcher) logger() *logrus.Logger {
	return logging.OrDiscard(f.Logger)
}
