package pocket

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kazuph/mcp-pocket/internal/errortypes"
	"github.com/kazuph/mcp-pocket/internal/telemetry"
)

const (
	// DefaultBaseURL is the Pocket v3 API root.
	DefaultBaseURL = "https://getpocket.com/v3"

	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 30 * time.Second

	// DefaultCount is the number of articles requested when none is given.
	DefaultCount = 20

	// MaxCount is the upstream page size cap.
	MaxCount = 20

	// Upstream failure messages, prefixed to the HTTP status text.
	msgFetchFailed   = "Pocket API request failed"
	msgArchiveFailed = "Failed to mark article as read"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Pocket API on behalf of one credential pair.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	creds      Credentials
	baseURL    string
	mode       Mode
	httpClient Doer
	metrics    *telemetry.MetricsCollector
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the transport used for upstream requests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.httpClient = d }
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithMode selects the listing policy. The default is ModeUnread.
func WithMode(m Mode) Option {
	return func(c *Client) { c.mode = m }
}

// WithMetrics records request counts and latencies into m.
func WithMetrics(m *telemetry.MetricsCollector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for creds.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:   creds,
		baseURL: DefaultBaseURL,
		mode:    ModeUnread,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Mode returns the client's listing policy.
func (c *Client) Mode() Mode {
	return c.mode
}

// ClampCount limits a requested article count to [1, MaxCount].
func ClampCount(count int) int {
	if count > MaxCount {
		return MaxCount
	}
	if count < 1 {
		return 1
	}
	return count
}

// FetchArticles requests up to count of the newest saved articles.
// In ModeUnread only unread articles are requested and ids are kept.
func (c *Client) FetchArticles(ctx context.Context, count int) ([]Article, error) {
	req := getRequest{
		ConsumerKey: c.creds.ConsumerKey,
		AccessToken: c.creds.AccessToken,
		Count:       ClampCount(count),
		Sort:        "newest",
		DetailType:  "complete",
	}
	if c.mode.TracksItems() {
		req.State = "unread"
	}

	c.logger.Debug("Fetching Pocket articles", "count", req.Count, "mode", string(c.mode))
	body, err := c.post(ctx, "get", req, msgFetchFailed)
	if err != nil {
		return nil, err
	}

	var resp getResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errortypes.ExternalError(err, "failed to decode Pocket API response").
			WithField("body_length", len(body))
	}

	articles := make([]Article, 0, len(resp.List))
	for _, it := range resp.List {
		articles = append(articles, it.article(c.mode.TracksItems()))
	}

	c.logger.Debug("Fetched Pocket articles", "count", len(articles))
	return articles, nil
}

// MarkAsRead archives a single item.
func (c *Client) MarkAsRead(ctx context.Context, itemID string) error {
	if !c.mode.TracksItems() {
		return errortypes.ValidationError(ErrUnsupported, "mark as read is disabled").
			WithField("mode", string(c.mode))
	}

	req := sendRequest{
		ConsumerKey: c.creds.ConsumerKey,
		AccessToken: c.creds.AccessToken,
		Actions: []action{
			{Action: "archive", ItemID: itemID},
		},
	}

	c.logger.Debug("Archiving Pocket item", "item_id", itemID)
	if _, err := c.post(ctx, "send", req, msgArchiveFailed); err != nil {
		return err
	}
	return nil
}

// post sends payload as JSON to <baseURL>/<endpoint> and returns the
// response body of a 2xx reply.
func (c *Client) post(ctx context.Context, endpoint string, payload interface{}, failMsg string) ([]byte, error) {
	counter, timer := telemetry.MetricRequestsGet, telemetry.MetricResponseTimeGet
	if endpoint == "send" {
		counter, timer = telemetry.MetricRequestsSend, telemetry.MetricResponseTimeSend
	}
	c.metrics.IncrementCounter(counter, 1)
	c.metrics.RecordTimestamp(telemetry.MetricLastRequest)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errortypes.InternalError(err, "failed to encode Pocket API request")
	}

	url := c.baseURL + "/" + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, errortypes.InternalError(err, "failed to create Pocket API request").
			WithField("url", url)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")
	httpReq.Header.Set("X-Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.RecordTimer(timer, time.Since(start))
	if err != nil {
		c.metrics.IncrementCounter(telemetry.MetricRequestsFailure, 1)
		return nil, errortypes.NetworkError(err, failMsg).WithField("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.IncrementCounter(telemetry.MetricRequestsFailure, 1)
		return nil, errortypes.APIError(newStatusError(resp), failMsg).
			WithField("status_code", resp.StatusCode).
			WithField("url", url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncrementCounter(telemetry.MetricRequestsFailure, 1)
		return nil, errortypes.NetworkError(err, "failed to read Pocket API response")
	}

	c.metrics.IncrementCounter(telemetry.MetricRequestsSuccess, 1)
	return body, nil
}
