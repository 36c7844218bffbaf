package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/client/metrics"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

const DefaultTimeout = 10 * time.Second

// envelope is the wrapper around every backend response. Older endpoints
// report status ("SUCCESS", "FAIL", "ERROR"), newer ones success.
type envelope struct {
	Success *bool           `json:"success"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) failed() bool {
	if e.Success != nil && !*e.Success {
		return true
	}
	switch strings.ToUpper(e.Status) {
	case "FAIL", "FAILURE", "ERROR":
		return true
	}
	return false
}

func (e *envelope) isEnvelope() bool {
	return e.Success != nil || e.Status != "" || e.Data != nil
}

type APIClient struct {
	baseURL     string
	http        *http.Client
	coordinator *refreshCoordinator
	expired     *listeners
	log         logging.Logger
}

type options struct {
	timeout time.Duration
	base    http.RoundTripper
	metrics *metrics.Metrics
	log     logging.Logger
}

type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport replaces http.DefaultTransport under the auth layer.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewAPIClient builds a client for the API rooted at baseURL (server URL plus
// prefix, e.g. http://127.0.0.1:8080/api). Until UseRefresher is called a
// 401 ends the session without trying to refresh.
func NewAPIClient(baseURL string, store TokenStore, opts ...Option) *APIClient {
	o := options{
		timeout: DefaultTimeout,
		base:    http.DefaultTransport,
		log:     logging.Discard(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	expired := &listeners{}
	coordinator := &refreshCoordinator{
		store:   store,
		expired: expired,
		timeout: o.timeout,
		log:     o.log,
		metrics: o.metrics,
	}

	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: o.timeout,
			Transport: &authTransport{
				base:        o.base,
				store:       store,
				coordinator: coordinator,
				log:         o.log,
				metrics:     o.metrics,
			},
		},
		coordinator: coordinator,
		expired:     expired,
		log:         o.log,
	}
}

// UseRefresher sets what renews the access token after a 401.
func (c *APIClient) UseRefresher(r Refresher) {
	c.coordinator.setRefresher(r)
}

// OnSessionExpired registers fn to run whenever the session is cleared
// because its tokens could not be renewed. Call the returned function to
// unsubscribe.
func (c *APIClient) OnSessionExpired(fn SessionExpiredFunc) (unsubscribe func()) {
	return c.expired.add(fn)
}

// RefreshSession renews the access token through the same single-flight
// path the transport uses.
func (c *APIClient) RefreshSession(ctx context.Context) (string, error) {
	return c.coordinator.Refresh(ctx)
}

func (c *APIClient) RefreshState() RefreshState {
	return c.coordinator.State()
}

// Do sends body as JSON to path and decodes the envelope's data into out.
// body and out may be nil. Failures are *APIError or wrap ErrNetwork or
// ErrUnauthorized.
func (c *APIClient) Do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return asNetworkError(err)
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return asNetworkError(err)
	}

	var env envelope
	parseErr := errors.New("empty body")
	if len(bytes.TrimSpace(raw)) > 0 {
		parseErr = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if parseErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Kind: kindForStatus(resp.StatusCode)}
	}

	if parseErr != nil {
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		return &APIError{Status: resp.StatusCode, Message: "malformed response body", Kind: ErrServer}
	}

	if env.failed() {
		return &APIError{Status: resp.StatusCode, Message: env.Message, Kind: ErrValidation}
	}

	if out == nil {
		return nil
	}

	data := raw
	if env.isEnvelope() {
		data = env.Data
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "unexpected response data: " + err.Error(), Kind: ErrServer}
	}
	return nil
}
