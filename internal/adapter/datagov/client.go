package datagov

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/carpark-etl/internal/domain"
	"github.com/couchcryptid/carpark-etl/internal/observability"
)

// maxBodyBytes caps the feed response. A full pull is a few hundred kilobytes.
const maxBodyBytes = 32 << 20

// Client fetches the car park availability feed.
// It implements pipeline.LiveFetcher.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
}

// NewClient creates a feed client. The timeout bounds the whole request,
// including reading the body.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
	}
}

// Fetch issues one GET against the feed and normalizes the response.
// Network failures and non-2xx statuses are domain.ErrTransport; body errors
// are those of domain.ParseFeed. There is no retry, and nothing is logged:
// dropped entries are reported through LiveTable.Dropped.
func (c *Client) Fetch(ctx context.Context) (domain.LiveTable, error) {
	start := time.Now()
	body, err := c.get(ctx)
	if err != nil {
		c.metrics.FeedFetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return domain.LiveTable{}, err
	}
	c.metrics.FeedFetchDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	return domain.ParseFeed(body)
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrTransport, resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
	}
	return body, nil
}
