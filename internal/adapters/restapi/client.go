package restapi

// Package restapi implements ports.AuthAPI against the HR backend's REST
// surface. Authorization headers and 401 handling are the transport's job;
// this client only speaks the endpoint contracts.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	errs "github.com/hrdesk/hrdesk-client/internal/errors"
	"github.com/hrdesk/hrdesk-client/internal/ports"
)

const (
	pathLogin          = "/auth/login"
	pathRefresh        = "/auth/refresh"
	pathLogout         = "/auth/logout"
	pathValidate       = "/auth/validate"
	pathMe             = "/auth/me"
	pathChangePassword = "/auth/change-password"
)

const defaultTimeout = 10 * time.Second

// Options groups dependencies for the Client.
type Options struct {
	// BaseURL is the API root, e.g. "http://localhost:8080/api/v1".
	BaseURL string

	// HTTPClient should carry the authorizing transport. A default
	// client is used when nil (unauthenticated calls only).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is the REST implementation of ports.AuthAPI.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

var _ ports.AuthAPI = (*Client)(nil)

// New constructs a Client.
func New(opts Options) *Client {
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpc:   httpc,
		logger:  logger,
	}
}

// Login exchanges credentials for a token grant.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (ports.TokenGrant, error) {
	var grant ports.TokenGrant
	if err := c.do(ctx, http.MethodPost, pathLogin, creds, &grant); err != nil {
		return ports.TokenGrant{}, err
	}
	return grant, nil
}

// Refresh exchanges a refresh token for a rotated token grant.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (ports.TokenGrant, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var grant ports.TokenGrant
	if err := c.do(ctx, http.MethodPost, pathRefresh, body, &grant); err != nil {
		return ports.TokenGrant{}, err
	}
	return grant, nil
}

// Logout asks the backend to invalidate the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, nil)
}

// Me returns the authenticated user. Any error means not authenticated.
func (c *Client) Me(ctx context.Context) (domainsession.User, error) {
	var user domainsession.User
	if err := c.do(ctx, http.MethodGet, pathMe, nil, &user); err != nil {
		return domainsession.User{}, err
	}
	return user, nil
}

// Validate checks the current access token server-side.
func (c *Client) Validate(ctx context.Context) (ports.ValidationResult, error) {
	var result ports.ValidationResult
	if err := c.do(ctx, http.MethodPost, pathValidate, nil, &result); err != nil {
		return ports.ValidationResult{}, err
	}
	return result, nil
}

// ChangePassword submits a password change for the authenticated user.
func (c *Client) ChangePassword(ctx context.Context, req ports.PasswordChange) (ports.PasswordChangeResult, error) {
	var result ports.PasswordChangeResult
	if err := c.do(ctx, http.MethodPost, pathChangePassword, req, &result); err != nil {
		return ports.PasswordChangeResult{}, err
	}
	return result, nil
}

// apiErrorBody is the backend's error envelope.
type apiErrorBody struct {
	Message     string            `json:"message"`
	Status      int               `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Path        string            `json:"path,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Buffer
	if in != nil {
		body = &bytes.Buffer{}
		if err := json.NewEncoder(body).Encode(in); err != nil {
			return errs.Wrapf(err, errs.ErrCodeInternal, "encode %s request", path)
		}
	}

	url := c.baseURL + path
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return errs.Wrapf(err, errs.ErrCodeInternal, "build %s request", path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errs.FromTransport(err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "close response body", "path", path, "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrapf(err, errs.ErrCodeInternal, "decode %s response", path)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response, path string) error {
	var eb apiErrorBody
	// Best effort: a non-JSON error body still classifies by status.
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
		eb = apiErrorBody{}
	}

	appErr := errs.FromStatus(resp.StatusCode, eb.Message)
	appErr.FieldErrors = eb.FieldErrors
	if appErr.Cause == nil {
		appErr.Cause = fmt.Errorf("%s %s: status %d", resp.Request.Method, path, resp.StatusCode)
	}
	return appErr
}
