// Package tfl is the TfL Unified API client. It builds authenticated request
// URLs, triages upstream status codes and decodes bodies with path-tracking
// error reporting.
package tfl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/tb8/tb8/adapters/metrics"
	"github.com/tb8/tb8/domain/apperr"
	"github.com/tb8/tb8/domain/transit"
	"github.com/tb8/tb8/pkg/pathjson"
	"github.com/tb8/tb8/ports"
)

const (
	DefaultBaseURL = "https://api.tfl.gov.uk"
	DefaultAppID   = "tb8-rs"

	maxBodySize = 50 << 20
)

// Client talks to the TfL API. It is immutable after construction and safe
// for concurrent use; share one instance per process.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	appID   string
	appKey  string
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// Config contains configuration for the TfL client.
type Config struct {
	BaseURL         string
	AppID           string
	AppKey          string
	Timeout         time.Duration // 0 keeps the transport default (no overall limit)
	MaxIdleConns    int
	IdleConnTimeout time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Collector // optional
}

// NewClient creates a TfL client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AppID == "" {
		cfg.AppID = DefaultAppID
	}
	if cfg.AppKey == "" {
		return nil, errors.New("app key is required")
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("parse base URL: %q is not absolute", cfg.BaseURL)
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 100
	}

	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}

	// Start from the default transport to keep proxy and TLS handshake settings.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = maxIdleConns
	transport.MaxIdleConnsPerHost = maxIdleConns
	transport.IdleConnTimeout = idleConnTimeout

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL: baseURL,
		appID:   cfg.AppID,
		appKey:  cfg.AppKey,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// FetchLines returns every line.
func (c *Client) FetchLines(ctx context.Context) ([]transit.Line, error) {
	body, err := c.get(ctx, "/Line", "/Line")
	if err != nil {
		return nil, err
	}
	return decodeList[transit.Line](body)
}

// FetchLineByID returns the lines matching id. The API answers a single id
// with an object and a comma-separated list with an array; both come back
// as a slice.
func (c *Client) FetchLineByID(ctx context.Context, id string) ([]transit.Line, error) {
	if err := requireID("line id", id); err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "/Line/{id}", "/Line/"+id)
	if err != nil {
		return nil, err
	}

	var lines []transit.Line
	if isObject(body) {
		var line transit.Line
		if err := pathjson.Unmarshal(body, &line); err != nil {
			return nil, deserializationError(err, body)
		}
		lines = []transit.Line{line}
	} else {
		lines, err = decodeList[transit.Line](body)
		if err != nil {
			return nil, err
		}
	}

	if len(lines) == 0 {
		return nil, apperr.NotFound("Not found: line %s", id)
	}
	return lines, nil
}

func (c *Client) FetchLinesByMode(ctx context.Context, mode string) ([]transit.Line, error) {
	if err := requireID("mode", mode); err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "/Line/Mode/{mode}", "/Line/Mode/"+mode)
	if err != nil {
		return nil, err
	}
	return decodeList[transit.Line](body)
}

func (c *Client) FetchArrivalsByLine(ctx context.Context, lineID string) ([]transit.Prediction, error) {
	if err := requireID("line id", lineID); err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "/Line/{id}/Arrivals", "/Line/"+lineID+"/Arrivals")
	if err != nil {
		return nil, err
	}
	return decodeList[transit.Prediction](body)
}

func (c *Client) FetchArrivalsByLineAtStop(ctx context.Context, lineID, stopID string) ([]transit.Prediction, error) {
	if err := requireID("line id", lineID); err != nil {
		return nil, err
	}
	if err := requireID("stop id", stopID); err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "/Line/{id}/Arrivals/{stopId}", "/Line/"+lineID+"/Arrivals/"+stopID)
	if err != nil {
		return nil, err
	}
	return decodeList[transit.Prediction](body)
}

func (c *Client) FetchDisruptionsByLine(ctx context.Context, lineID string) ([]transit.Disruption, error) {
	if err := requireID("line id", lineID); err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "/Line/{id}/Disruption", "/Line/"+lineID+"/Disruption")
	if err != nil {
		return nil, err
	}
	return decodeList[transit.Disruption](body)
}

func (c *Client) FetchDisruptionsByMode(ctx context.Context, mode string) ([]transit.Disruption, error) {
	if err := requireID("mode", mode); err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "/Line/Mode/{mode}/Disruption", "/Line/Mode/"+mode+"/Disruption")
	if err != nil {
		return nil, err
	}
	return decodeList[transit.Disruption](body)
}

// HealthCheck verifies the API is reachable. Any HTTP response, whatever
// its status, counts as reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// get issues one authenticated GET and returns the 2xx body. endpoint is
// the path template used for logs and metric labels.
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	start := time.Now()
	body, status, err := c.do(ctx, path)
	elapsed := time.Since(start)

	event := c.logger.Debug()
	if err != nil {
		event = c.logger.Warn().Err(err)
	}
	event.
		Str("endpoint", endpoint).
		Str("path", path).
		Int("status", status).
		Dur("duration", elapsed).
		Msg("tfl request")

	if c.metrics != nil {
		statusLabel := "error"
		if status > 0 {
			statusLabel = metrics.StatusClass(status)
		}
		c.metrics.UpstreamDuration.WithLabelValues(endpoint, statusLabel).Observe(elapsed.Seconds())
		if err != nil {
			c.metrics.UpstreamErrors.WithLabelValues(string(apperr.From(err).Kind)).Inc()
		}
	}
	return body, err
}

func (c *Client) do(ctx context.Context, path string) ([]byte, int, error) {
	u, err := c.buildURL(path)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to parse URL: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, apperr.Internal("create request: %v", redact(err, c.appKey))
	}
	req.Header.Set("Accept", "application/json")
	if id := middleware.GetReqID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	if c.metrics != nil {
		c.metrics.UpstreamInFlight.Inc()
		defer c.metrics.UpstreamInFlight.Dec()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, apperr.Transport(redact(err, c.appKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := "Unknown error"
		if b, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize)); readErr == nil {
			text = string(b)
		}
		return nil, resp.StatusCode, apperr.FromUpstreamStatus(resp.StatusCode, text)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, apperr.Transport(redact(err, c.appKey))
	}
	return body, resp.StatusCode, nil
}

// buildURL resolves path against the base URL and appends credentials.
// Identifiers are substituted into path verbatim.
func (c *Client) buildURL(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	u := c.baseURL.ResolveReference(ref)

	q := u.Query()
	q.Set("app_id", c.appID)
	q.Set("app_key", c.appKey)
	u.RawQuery = q.Encode()
	return u, nil
}

func decodeList[T any](body []byte) ([]T, error) {
	var out []T
	if err := pathjson.Unmarshal(body, &out); err != nil {
		return nil, deserializationError(err, body)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func deserializationError(err error, body []byte) error {
	var pe *pathjson.Error
	if errors.As(err, &pe) {
		return apperr.Deserialization(pe.Path, pe.Msg, body)
	}
	return apperr.Internal("decode response: %v", err)
}

func requireID(what, id string) error {
	if id == "" {
		return apperr.Parse("%s must not be empty", what)
	}
	return nil
}

func isObject(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) > 0 && b[0] == '{'
}

var (
	_ ports.TransitClient = (*Client)(nil)
	_ ports.HealthChecker = (*Client)(nil)
)
