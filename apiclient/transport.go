package apiclient

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sensor-dashboard/internal/metrics"
	"github.com/jrsteele09/go-sensor-dashboard/token"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-ID"

// Refresher exchanges the stored refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// RefresherFunc adapts a plain function to Refresher.
type RefresherFunc func(ctx context.Context) (string, error)

func (f RefresherFunc) Refresh(ctx context.Context) (string, error) { return f(ctx) }

// Invalidator is implemented by refreshers that track session state. The
// transport calls Invalidate after it clears the store.
type Invalidator interface {
	Invalidate()
}

type retriedKey struct{}

// Retried reports whether the request carrying ctx is already the one permitted retry.
func Retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func baseOrDefault(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}

// BearerTransport attaches the stored access token to every request. With no
// token stored the request goes out unauthenticated.
type BearerTransport struct {
	Base  http.RoundTripper
	Store token.Store
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	pair, ok := t.Store.Get()
	if !ok {
		return baseOrDefault(t.Base).RoundTrip(req)
	}
	authed := req.Clone(req.Context())
	pair.OAuth2Token().SetAuthHeader(authed)
	return baseOrDefault(t.Base).RoundTrip(authed)
}

// RefreshTransport recovers from one expired access token per logical call:
// a 401 triggers a single refresh and a single reissue of the request. If the
// refresh fails the store is cleared and the original 401 is returned. A 401
// on the reissued request also clears the store and is returned as is.
type RefreshTransport struct {
	Base  http.RoundTripper
	Store token.Store

	mu        sync.RWMutex
	refresher Refresher
}

func (t *RefreshTransport) SetRefresher(r Refresher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresher = r
}

func (t *RefreshTransport) getRefresher() Refresher {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.refresher
}

func (t *RefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := baseOrDefault(t.Base).RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || Retried(req.Context()) {
		return resp, err
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		log.Warn().Str("method", req.Method).Str("path", req.URL.Path).Msg("401 on a request whose body cannot be replayed, not retrying")
		return resp, nil
	}

	ctx := markRetried(req.Context())
	if err := t.refresh(ctx); err != nil {
		log.Err(err).Str("path", req.URL.Path).Msg("Token refresh failed, clearing session")
		t.clearSession()
		return resp, nil
	}
	drainAndClose(resp)

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	resp, err = baseOrDefault(t.Base).RoundTrip(retry)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		log.Warn().Str("path", req.URL.Path).Msg("Refreshed token rejected, clearing session")
		t.clearSession()
	}
	return resp, err
}

func (t *RefreshTransport) clearSession() {
	t.Store.Clear()
	if inv, ok := t.getRefresher().(Invalidator); ok {
		inv.Invalidate()
	}
}

func (t *RefreshTransport) refresh(ctx context.Context) error {
	refresher := t.getRefresher()
	if refresher == nil {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return errNoRefresher
	}
	if _, err := refresher.Refresh(ctx); err != nil {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return err
	}
	metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.CopyN(io.Discard, resp.Body, 4096)
	_ = resp.Body.Close()
}

// LoggingTransport tags each attempt with a request ID, logs it at debug level
// and counts it.
type LoggingTransport struct {
	Base http.RoundTripper
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tagged := req.Clone(req.Context())
	requestID := tagged.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
		tagged.Header.Set(RequestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := baseOrDefault(t.Base).RoundTrip(tagged)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	metrics.ObserveRequest(req.Method, status)

	event := log.Debug()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", status).
		Bool("retry", Retried(req.Context())).
		Dur("elapsed", time.Since(start)).
		Msg("api request")
	return resp, err
}
