package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/hrdesk-client/internal/tokenstore"
)

func newClient(rt *RoundTripper) *http.Client {
	return &http.Client{Transport: rt, Timeout: 5 * time.Second}
}

func TestRoundTripAttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tokens := tokenstore.New()
	tokens.Set("at-1", "rt-1")
	client := newClient(New(Options{Tokens: tokens}))

	resp, err := client.Get(srv.URL + "/employees")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer at-1", gotAuth)
	assert.NotEmpty(t, gotReqID)
}

func TestRoundTripWithoutTokenSendsNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := newClient(New(Options{Tokens: tokenstore.New()}))
	resp, err := client.Get(srv.URL + "/auth/login")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, gotAuth)
}

func TestRetryAfter401WithRefreshedToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer at-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	tokens := tokenstore.New()
	tokens.Set("at-1", "rt-1")

	var refreshes atomic.Int32
	rt := New(Options{
		Tokens: tokens,
		Refresh: func(context.Context) (string, error) {
			refreshes.Add(1)
			tokens.Set("at-2", "rt-2")
			return "at-2", nil
		},
	})

	resp, err := newClient(rt).Get(srv.URL + "/leaves")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestConcurrent401BurstSharesOneRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tokens := tokenstore.New()
	tokens.Set("at-1", "rt-1")

	var refreshes atomic.Int32
	rt := New(Options{
		Tokens: tokens,
		Refresh: func(context.Context) (string, error) {
			refreshes.Add(1)
			time.Sleep(30 * time.Millisecond)
			tokens.Set("at-2", "rt-2")
			return "at-2", nil
		},
	})
	client := newClient(rt)

	const workers = 5
	var wg sync.WaitGroup
	statuses := make(chan int, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(srv.URL + "/dashboard")
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestFailedRefreshSurfacesOriginal401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := tokenstore.New()
	tokens.Set("at-1", "rt-1")

	authLost := false
	rt := New(Options{
		Tokens: tokens,
		Refresh: func(context.Context) (string, error) {
			return "", errors.New("refresh token expired")
		},
		OnAuthLost: func() { authLost = true },
	})

	resp, err := newClient(rt).Get(srv.URL + "/profile")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.True(t, authLost)
}

func TestFailedRefreshReportsAuthLossOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := tokenstore.New()
	tokens.Set("at-1", "rt-1")

	var authLost atomic.Int32
	rt := New(Options{
		Tokens: tokens,
		Refresh: func(context.Context) (string, error) {
			time.Sleep(30 * time.Millisecond)
			return "", errors.New("refresh token expired")
		},
		OnAuthLost: func() { authLost.Add(1) },
	})
	client := newClient(rt)

	// Every waiter in the burst shares the failed flight, so the loss
	// callback fires for the flight, not per request.
	const workers = 5
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(srv.URL + "/dashboard")
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), authLost.Load())
}

func TestAuthEndpointsExemptFromRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := tokenstore.New()
	tokens.Set("at-1", "rt-1")

	var refreshes atomic.Int32
	rt := New(Options{
		Tokens: tokens,
		Refresh: func(context.Context) (string, error) {
			refreshes.Add(1)
			return "at-2", nil
		},
	})
	client := newClient(rt)

	for _, path := range []string{"/auth/login", "/auth/refresh", "/auth/logout"} {
		resp, err := client.Post(srv.URL+path, "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	assert.Equal(t, int32(0), refreshes.Load())
}

func TestNoRetryWithoutRefreshToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	rt := New(Options{
		Tokens: tokenstore.New(),
		Refresh: func(context.Context) (string, error) {
			t.Fatal("refresh must not run without a refresh token")
			return "", nil
		},
	})

	resp, err := newClient(rt).Get(srv.URL + "/dashboard")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryReplaysRequestBody(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if r.Header.Get("Authorization") != "Bearer at-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tokens := tokenstore.New()
	tokens.Set("at-1", "rt-1")
	rt := New(Options{
		Tokens: tokens,
		Refresh: func(context.Context) (string, error) {
			tokens.Set("at-2", "rt-2")
			return "at-2", nil
		},
	})

	// strings.Reader bodies are replayable; http sets GetBody for them.
	resp, err := newClient(rt).Post(srv.URL+"/profile", "application/json", strings.NewReader(`{"phone":"123"}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
}
