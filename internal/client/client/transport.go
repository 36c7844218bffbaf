package client

import (
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/coffeedia/internal/client/metrics"
	"github.com/dmitrijs2005/coffeedia/internal/common"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

// Endpoints that establish or renew a session. They never carry a bearer
// token and a 401 from them is returned as is.
var exemptPaths = []string{"/auth/login", "/auth/signup", "/auth/refresh"}

func isExempt(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, p := range exemptPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// authTransport attaches the stored access token to outgoing requests and
// answers a 401 with one refresh and one retry.
type authTransport struct {
	base        http.RoundTripper
	store       TokenStore
	coordinator *refreshCoordinator
	log         logging.Logger
	metrics     *metrics.Metrics
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	reqID := req.Header.Get(common.RequestIDHeaderName)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	log := t.log.With("request_id", reqID, "method", req.Method, "path", req.URL.Path)

	out := req.Clone(ctx)
	out.Header.Set(common.RequestIDHeaderName, reqID)

	exempt := isExempt(req.URL.Path)

	var sent string
	if !exempt {
		if tok, ok := t.store.AccessToken(ctx); ok {
			out.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
			sent = tok
		}
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		log.Debug(ctx, "request failed", "error", err)
		return nil, err
	}
	if exempt || resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		log.Warn(ctx, "401 on a request whose body cannot be replayed")
		return resp, nil
	}

	// Another caller may have refreshed while this request was in flight.
	token, ok := t.store.AccessToken(ctx)
	if !ok || token == sent {
		log.Debug(ctx, "401 received, refreshing access token")
		token, err = t.coordinator.Refresh(ctx)
		if err != nil {
			drain(resp)
			return nil, err
		}
	}
	drain(resp)

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set(common.RequestIDHeaderName, reqID)
	retry.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	t.metrics.IncRetried()
	log.Debug(ctx, "retrying with renewed access token")
	return t.base.RoundTrip(retry)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
