// Package webapi downloads resources from remote archives with bounded retry.
package webapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/prometheus"
	"github.com/protwis/signprot/pkg/errors"
)

const (
	defaultMaxAttempts = 5
	defaultDelay       = 2 * time.Second
	defaultTimeout     = 60 * time.Second
	userAgent          = "signprot-fetcher/1.0"
)

// Fetch attempt outcomes recorded in metrics.
const (
	OutcomeOK        = "ok"
	OutcomeRetry     = "retry"
	OutcomeMissing   = "missing"
	OutcomeExhausted = "exhausted"
)

// Fetcher retrieves files from a base URL. Every failure other than HTTP 400
// and 404 is retried after a constant delay until the attempt bound.
type Fetcher struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	delay       time.Duration
	logger      logging.Logger
	metrics     *prometheus.AppMetrics
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = c }
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

func NewFetcher(cfg config.FetchConfig, log logging.Logger, opts ...Option) (*Fetcher, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.New(errors.ErrCodeValidation, "fetch base url must be http or https").
			WithDetail(cfg.BaseURL)
	}
	f := &Fetcher{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: orDuration(cfg.Timeout, defaultTimeout)},
		maxAttempts: cfg.MaxAttempts,
		delay:       orDuration(cfg.Delay, defaultDelay),
		logger:      log.Named("fetcher"),
		metrics:     prometheus.NewNopAppMetrics(),
	}
	if f.maxAttempts < 1 {
		f.maxAttempts = defaultMaxAttempts
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// FetchPDB downloads the coordinate file of a PDB entry.
func (f *Fetcher) FetchPDB(ctx context.Context, pdbCode string) ([]byte, bool, error) {
	return f.Fetch(ctx, strings.ToUpper(strings.TrimSpace(pdbCode))+".pdb")
}

// Fetch downloads base/<index>. It returns ok=false without an error once
// every attempt has failed. A 400 or 404 response stops immediately with an
// ErrCodeResourceMissing error. Cancelling ctx stops retrying and returns
// the context error.
func (f *Fetcher) Fetch(ctx context.Context, index string) ([]byte, bool, error) {
	if strings.TrimSpace(index) == "" {
		return nil, false, errors.New(errors.ErrCodeValidation, "fetch index required")
	}
	fullURL := f.baseURL + "/" + url.PathEscape(index)

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		data, err := f.get(ctx, fullURL)
		if err != nil {
			return err
		}
		body = data
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.delay), uint64(f.maxAttempts-1)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		f.metrics.RecordFetchAttempt(OutcomeRetry)
		f.logger.Warn("Fetch failed, retrying",
			logging.String("url", fullURL),
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
			logging.Err(err))
	})
	switch {
	case err == nil:
		f.metrics.RecordFetchAttempt(OutcomeOK)
		f.logger.Info("Fetched", logging.String("url", fullURL), logging.Int("bytes", len(body)))
		return body, true, nil
	case errors.IsCode(err, errors.ErrCodeResourceMissing):
		f.metrics.RecordFetchAttempt(OutcomeMissing)
		return nil, false, err
	case ctx.Err() != nil:
		return nil, false, ctx.Err()
	default:
		f.metrics.RecordFetchAttempt(OutcomeExhausted)
		f.logger.Error("Fetch attempts exhausted",
			logging.String("url", fullURL),
			logging.Int("attempts", attempt),
			logging.Err(err))
		return nil, false, nil
	}
}

func (f *Fetcher) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, backoff.Permanent(errors.Wrap(err, errors.ErrCodeValidation, "invalid fetch url"))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, backoff.Permanent(errors.New(errors.ErrCodeResourceMissing, "remote resource does not exist").
			WithDetail(fullURL))
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, errors.Newf(errors.ErrCodeExternalService, "unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "read body failed")
	}
	return data, nil
}

func orDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
