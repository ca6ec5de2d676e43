package transport

// Package transport provides the authorizing http.RoundTripper used for
// every call to the HR backend. It attaches the bearer credential from the
// token store and implements the 401 refresh protocol: a burst of
// concurrent 401s triggers at most one refresh round-trip, with every
// affected request retried once against the new token, or failed together
// when the refresh fails.

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hrdesk/hrdesk-client/internal/tokenstore"
)

// RefreshFunc rotates the token pair and returns the new access token.
// The session manager supplies this; the transport never mutates tokens.
type RefreshFunc func(ctx context.Context) (string, error)

// Options groups dependencies for the RoundTripper.
type Options struct {
	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// Tokens is the shared in-memory token holder (read-only here).
	Tokens *tokenstore.Store

	// Refresh is invoked on a 401 to rotate the token pair.
	Refresh RefreshFunc

	// OnAuthLost fires once per failed refresh so the application can
	// route the user back to the login entry point.
	OnAuthLost func()

	Logger *slog.Logger

	// ExemptPaths are URL path suffixes excluded from the 401 retry
	// protocol (the auth endpoints themselves). Defaults to
	// /auth/login, /auth/refresh and /auth/logout.
	ExemptPaths []string
}

// /auth/logout must stay exempt: a failed refresh tears the session down
// through it, and retrying that request would re-enter the refresh flight
// it came from.
var defaultExemptPaths = []string{"/auth/login", "/auth/refresh", "/auth/logout"}

// RoundTripper implements http.RoundTripper with bearer injection and
// serialized token refresh.
type RoundTripper struct {
	base       http.RoundTripper
	tokens     *tokenstore.Store
	refresh    RefreshFunc
	onAuthLost func()
	logger     *slog.Logger
	exempt     []string

	group singleflight.Group
}

// New constructs the authorizing RoundTripper.
func New(opts Options) *RoundTripper {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exempt := opts.ExemptPaths
	if exempt == nil {
		exempt = defaultExemptPaths
	}
	return &RoundTripper{
		base:       base,
		tokens:     opts.Tokens,
		refresh:    opts.Refresh,
		onAuthLost: opts.OnAuthLost,
		logger:     logger,
		exempt:     exempt,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(t.authorize(req, t.accessToken()))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !t.canRetry(req) {
		return resp, nil
	}

	// Serialize refresh: every request in the same 401 burst shares the
	// outcome of a single round-trip. The refresh context is detached so
	// one canceled caller cannot abort the shared rotation.
	v, refreshErr, _ := t.group.Do("refresh", func() (any, error) {
		tok, err := t.refresh(context.WithoutCancel(req.Context()))
		if err != nil {
			// Inside the flight so the burst reports the loss once.
			t.logger.Warn("token refresh failed", "error", err)
			if t.onAuthLost != nil {
				t.onAuthLost()
			}
			return nil, err
		}
		return tok, nil
	})
	if refreshErr != nil {
		// Surface the original 401 to the caller.
		return resp, nil
	}
	newToken, _ := v.(string)

	drain(resp)

	retry := t.authorize(req, newToken)
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, bodyErr
		}
		retry.Body = body
	}
	return t.base.RoundTrip(retry)
}

// authorize clones the request with the bearer credential and a request ID.
func (t *RoundTripper) authorize(req *http.Request, access string) *http.Request {
	out := req.Clone(req.Context())
	if access != "" {
		out.Header.Set("Authorization", "Bearer "+access)
	}
	if out.Header.Get("X-Request-Id") == "" {
		out.Header.Set("X-Request-Id", uuid.NewString())
	}
	return out
}

// canRetry reports whether a 401 response to this request may enter the
// refresh protocol.
func (t *RoundTripper) canRetry(req *http.Request) bool {
	if t.refresh == nil || t.tokens == nil || t.tokens.Refresh() == "" {
		return false
	}
	// A consumed, non-replayable body cannot be retried.
	if req.Body != nil && req.GetBody == nil {
		return false
	}
	for _, suffix := range t.exempt {
		if strings.HasSuffix(req.URL.Path, suffix) {
			return false
		}
	}
	return true
}

func (t *RoundTripper) accessToken() string {
	if t.tokens == nil {
		return ""
	}
	return t.tokens.Access()
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
