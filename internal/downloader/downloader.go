// Package downloader fetches remote source files into local sinks.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/metrics"
)

const userAgent = "vstore-downloader/1.0"

// StatusError reports a non-2xx response. It matches common.ErrNotFound.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to download %s: status %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return common.ErrNotFound
}

// Downloader streams HTTP(S) resources into sinks. Redirects are followed.
type Downloader struct {
	client  *http.Client
	timeout time.Duration
	metrics *metrics.Metrics
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithClient replaces the default http.Client.
func WithClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithTimeout bounds each download, including reading the body.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) { d.timeout = timeout }
}

// WithMetrics records download outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Downloader) { d.metrics = m }
}

func New(opts ...Option) *Downloader {
	d := &Downloader{client: http.DefaultClient}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches rawURL and streams the body into sink in bounded chunks.
// The sink is closed on every return path. Nothing is written to the sink
// unless the response status is 2xx.
func (d *Downloader) Download(ctx context.Context, rawURL string, sink io.WriteCloser) (err error) {
	var written int64
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sink: %w", cerr)
		}
		d.metrics.ObserveDownload(result(err), written)
	}()

	u, err := parseSourceURL(rawURL)
	if err != nil {
		return err
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	buf := make([]byte, common.ChunkSize)
	written, err = io.CopyBuffer(sink, resp.Body, buf)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}

	return nil
}

func parseSourceURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme in %q", common.ErrInvalidInput, rawURL)
	}
	if u.Path == "" || u.Path == "/" {
		return nil, fmt.Errorf("%w: empty path in %q", common.ErrInvalidInput, rawURL)
	}
	return u, nil
}

func result(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return "http_error"
	default:
		return "error"
	}
}
