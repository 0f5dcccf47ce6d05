package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/pkg/logger"
)

const userAgent = "routewx/1.0"

// client performs JSON GETs against one upstream API with retry and
// exponential backoff. Deadlines come from the request context.
type client struct {
	provider   string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	metrics    *observability.Metrics
	logger     *logger.Logger
}

func newClient(provider string, maxRetries int, metrics *observability.Metrics, log *logger.Logger) *client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		provider:   provider,
		httpClient: &http.Client{},
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
		metrics:    metrics,
		logger:     log,
	}
}

// getJSON fetches url into target. It reports false when the upstream answered
// 204 No Content.
func (c *client) getJSON(ctx context.Context, url string, target interface{}) (bool, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := c.backoff * time.Duration(1<<uint(attempt-1))
			c.logger.Debug("Retrying upstream request",
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoffDuration))
			if err := sleepContext(ctx, backoffDuration); err != nil {
				break
			}
		}

		found, err := c.do(ctx, url, target)
		if err == nil {
			if attempt > 0 {
				c.logger.Debug("Upstream request succeeded after retries",
					logger.Int("attempts_needed", attempt+1))
			}
			return found, nil
		}

		lastErr = err
		if !retryable(ctx, err) {
			break
		}
		c.logger.Debug("Upstream request failed, may retry",
			logger.Error(err),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", c.maxRetries+1))
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return false, newProviderError(c.provider, classify(ctx, lastErr), lastErr)
}

func (c *client) do(ctx context.Context, url string, target interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return false, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return false, nil
	default:
		return false, &statusError{code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return false, fmt.Errorf("error decoding response: %w", err)
	}
	return true, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
