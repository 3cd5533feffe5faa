package tsdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
	"github.com/nerrad567/aq-logger/internal/infrastructure/influxdb"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
)

// maxErrorBody caps how much of an error response is kept for the error message.
const maxErrorBody = 512

// Client writes readings to VictoriaMetrics through its InfluxDB
// line-protocol endpoint.
//
// VictoriaMetrics has no principals or databases, so provisioning reduces
// to a reachability check and the table name is passed as the db parameter,
// which VictoriaMetrics records as a label.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	db         string
	httpClient *http.Client
	log        *logging.Logger

	mu        sync.RWMutex
	connected bool
}

// New creates a Client for cfg. No network traffic happens until
// Provision or Connect is called.
func New(cfg config.StoreConfig, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		baseURL:    cfg.URL(),
		db:         cfg.Credentials().Database,
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		log:        log.With("component", "tsdb", "url", cfg.URL()),
	}
}

// Provision verifies the server answers. There is nothing to create.
func (c *Client) Provision(ctx context.Context) error {
	if _, err := c.health(ctx); err != nil {
		return err
	}
	return nil
}

// Connect checks GET /health.
//
// Returns:
//   - bool: true for a 200 answer
//   - error: wraps ErrConnectionFailed on transport failure or timeout
func (c *Client) Connect(ctx context.Context) (bool, error) {
	healthy, err := c.health(ctx)

	c.mu.Lock()
	c.connected = healthy
	c.mu.Unlock()

	return healthy, err
}

// WriteReading POSTs one line-protocol point to /write.
//
// Returns:
//   - error: ErrNotConnected before a successful Connect; wraps ErrWriteFailed otherwise
func (c *Client) WriteReading(ctx context.Context, r reading.Reading, id reading.RunIdentity) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	line := write.PointToLineProtocol(influxdb.NewReadingPoint(r, id), time.Nanosecond)

	endpoint := c.baseURL + "/write?" + url.Values{"db": {c.db}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(line))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort detail
		return fmt.Errorf("%w: status %d: %s", ErrWriteFailed, resp.StatusCode, bytes.TrimSpace(body))
	}
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// Close forgets the connection and releases idle sockets. Safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.httpClient.CloseIdleConnections()
	return nil
}

// IsConnected returns the result of the last Connect, cleared by Close.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) health(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: health check: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("health check answered", "status", resp.StatusCode)
		return false, nil
	}
	return true, nil
}
