package wellapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/observability"
)

// maxBodyBytes bounds how much of a response is read. A multi-decade daily
// history is well under this.
const maxBodyBytes = 32 << 20

// Options configures a Client.
type Options struct {
	Endpoint   string
	IDParam    string
	Timeout    time.Duration
	MaxRetries int
}

// Client implements the well history source against the well data API.
type Client struct {
	endpoint   string
	idParam    string
	maxRetries int
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a well data API client. Every attempt is bounded by
// opts.Timeout.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		endpoint:   opts.Endpoint,
		idParam:    opts.IDParam,
		maxRetries: opts.MaxRetries,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		newBackOff: defaultBackOff,
		metrics:    metrics,
		logger:     logger,
	}
}

// Exponential backoff: start at 200ms, grow 2x, cap at 5s.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// FetchSeries returns the full history for wellID. Transport failures,
// timeouts, 429 and 5xx responses are retried up to MaxRetries times; every
// other failure is returned immediately.
func (c *Client) FetchSeries(ctx context.Context, wellID string) (domain.TimeSeries, error) {
	u, err := c.requestURL(wellID)
	if err != nil {
		return domain.TimeSeries{}, err
	}

	var series domain.TimeSeries
	attempt := 0
	op := func() error {
		attempt++
		s, err := c.fetchOnce(ctx, u)
		if err == nil {
			c.metrics.SourceAttempts.WithLabelValues("success").Inc()
			series = s
			return nil
		}
		if !errors.Is(err, errRetryable) {
			c.metrics.SourceAttempts.WithLabelValues("permanent").Inc()
			return backoff.Permanent(err)
		}
		c.metrics.SourceAttempts.WithLabelValues("retryable").Inc()
		c.logger.Warn("well data request failed",
			"well_id", wellID,
			"attempt", attempt,
			"error", err,
		)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) && ctx.Err() != nil {
			return domain.TimeSeries{}, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
		}
		return domain.TimeSeries{}, err
	}
	return series, nil
}

func (c *Client) requestURL(wellID string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint: %v", domain.ErrSourceUnavailable, err)
	}
	q := u.Query()
	q.Set(c.idParam, wellID)
	q.Set("mode", "full")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// errRetryable marks source failures worth another attempt.
var errRetryable = errors.New("retryable")

type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() []error {
	return []error{e.err, errRetryable}
}

func (c *Client) fetchOnce(ctx context.Context, u string) (domain.TimeSeries, error) {
	start := time.Now()
	defer func() { c.metrics.SourceDuration.Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.TimeSeries{}, fmt.Errorf("%w: create request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TimeSeries{}, retryableError{fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.TimeSeries{}, retryableError{fmt.Errorf("%w: read response: %v", domain.ErrSourceUnavailable, err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return domain.TimeSeries{}, fmt.Errorf("%w: %s", domain.ErrNotFound, upstreamMessage(body, resp.Status))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.TimeSeries{}, retryableError{fmt.Errorf("%w: status %d: %s",
			domain.ErrSourceUnavailable, resp.StatusCode, upstreamMessage(body, resp.Status))}
	default:
		return domain.TimeSeries{}, fmt.Errorf("%w: status %d: %s",
			domain.ErrSourceUnavailable, resp.StatusCode, upstreamMessage(body, resp.Status))
	}

	return ParseSeries(body)
}

// upstreamMessage extracts an "error" message from a JSON body, falling back
// to def.
func upstreamMessage(body []byte, def string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return def
}
