package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sony/gobreaker"

	"epw-platform/internal/models"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// HTTPClient is the transport the fetcher downloads through.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetcherConfig tunes downloads of remote weather files.
type FetcherConfig struct {
	Timeout        time.Duration
	MaxRetries     uint64
	RetryDelay     time.Duration
	MaxBytes       int64
	BreakerTimeout time.Duration
}

// Fetcher downloads EPW files, validates them by loading them into the
// catalog, and keeps a copy in the data directory.
type Fetcher struct {
	client  HTTPClient
	breaker *gobreaker.CircuitBreaker
	cfg     FetcherConfig
	dataDir string
	catalog *Catalog
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// HTTPStatusError is a non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// IsTransient reports whether retrying could help.
func (e *HTTPStatusError) IsTransient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func NewFetcher(name string, cfg FetcherConfig, dataDir string, catalog *Catalog, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Fetcher {
	return newFetcher(name, &http.Client{Timeout: cfg.Timeout}, cfg, dataDir, catalog, logger, metricsCollector)
}

func newFetcher(name string, client HTTPClient, cfg FetcherConfig, dataDir string, catalog *Catalog, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Fetcher {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	metricsCollector.SetBreakerState(name, float64(gobreaker.StateClosed))

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metricsCollector.SetBreakerState(name, float64(to))
			logger.Warn(context.Background(), "[FETCH_BREAKER] Circuit breaker state changed", logging.Fields{
				"source": name,
				"from":   from.String(),
				"to":     to.String(),
			})
		},
	}

	return &Fetcher{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		cfg:     cfg,
		dataDir: dataDir,
		catalog: catalog,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Fetch downloads rawURL, writes it to the data directory under the URL's
// base name and then adds it to the catalog. Nothing is cataloged when the
// body does not parse or cannot be written.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*models.Station, error) {
	name, err := fileNameFromURL(rawURL)
	if err != nil {
		return nil, err
	}

	out, err := f.breaker.Execute(func() (interface{}, error) {
		return f.downloadWithRetry(ctx, rawURL)
	})
	if err != nil {
		f.metrics.RecordFetch("failed")
		return nil, err
	}
	body := out.([]byte)

	file, duration, err := f.catalog.parseBytes(rawURL, body)
	if err != nil {
		f.metrics.RecordFetch("invalid")
		return nil, fmt.Errorf("downloaded file %s is not a valid EPW file: %w", rawURL, err)
	}

	dest := filepath.Join(f.dataDir, name)
	if err := writeFileAtomic(dest, body); err != nil {
		f.metrics.RecordFetch("failed")
		return nil, err
	}
	station := f.catalog.add(ctx, rawURL, file, duration)
	f.metrics.RecordFetch("success")

	f.logger.Info(ctx, "[FETCH_COMPLETE] Weather file downloaded", logging.Fields{
		"url":        rawURL,
		"path":       dest,
		"station_id": station.ID.String(),
		"bytes":      len(body),
	})
	return station, nil
}

func (f *Fetcher) downloadWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	var permanent error

	op := func() error {
		b, err := f.download(ctx, rawURL)
		if err == nil {
			body = b
			return nil
		}
		if t, ok := err.(interface{ IsTransient() bool }); ok && !t.IsTransient() {
			permanent = err
			return nil
		}
		if ctx.Err() != nil {
			permanent = ctx.Err()
			return nil
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.cfg.RetryDelay
	policy.MaxElapsedTime = 0

	err := backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(policy, f.cfg.MaxRetries), ctx),
		func(err error, d time.Duration) {
			f.metrics.RecordFetch("retry")
			f.logger.Warn(ctx, "[FETCH_RETRY] Download failed, retrying", logging.Fields{
				"url":   rawURL,
				"delay": d.String(),
				"error": err.Error(),
			})
		},
	)
	if err != nil {
		return nil, err
	}
	if permanent != nil {
		return nil, permanent
	}
	return body, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &requestError{err: fmt.Errorf("creating request failed: %w", err)}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.cfg.MaxBytes {
		return nil, &requestError{err: fmt.Errorf("GET %s: body exceeds %d bytes", rawURL, f.cfg.MaxBytes)}
	}
	return body, nil
}

// requestError marks failures no retry can fix.
type requestError struct{ err error }

func (e *requestError) Error() string     { return e.err.Error() }
func (e *requestError) Unwrap() error     { return e.err }
func (e *requestError) IsTransient() bool { return false }

func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid url %q: scheme must be http or https", rawURL)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("invalid url %q: no file name", rawURL)
	}
	if !strings.EqualFold(path.Ext(name), ".epw") {
		name += ".epw"
	}
	return name, nil
}

func writeFileAtomic(dest string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
