package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	errs "github.com/hrdesk/hrdesk-client/internal/errors"
	"github.com/hrdesk/hrdesk-client/internal/ports"
)

func newTestClient(srvURL string) *Client {
	return New(Options{BaseURL: srvURL + "/api/v1/"})
}

func TestLoginDecodesGrant(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":        "at-1",
			"refreshToken":       "rt-1",
			"tokenType":          "Bearer",
			"expiresIn":          3600,
			"userId":             7,
			"username":           "alima",
			"role":               "HR",
			"firstLogin":         true,
			"canManageEmployees": true,
		})
	}))
	defer srv.Close()

	grant, err := newTestClient(srv.URL).Login(context.Background(), ports.Credentials{
		Identifier: "alima",
		Password:   "secret",
		RememberMe: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/auth/login", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "alima", gotBody["identifier"])
	assert.Equal(t, true, gotBody["rememberMe"])

	assert.Equal(t, "at-1", grant.AccessToken)
	assert.Equal(t, int64(3600), grant.ExpiresIn)
	assert.Equal(t, domainsession.RoleHR, grant.Role)
	assert.True(t, grant.FirstLogin)
	assert.True(t, grant.CanManageEmployees)
}

func TestLoginErrorCarriesFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "validation failed",
			"status":  400,
			"fieldErrors": map[string]string{
				"password": "must not be blank",
			},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Login(context.Background(), ports.Credentials{Identifier: "x"})
	require.Error(t, err)

	var appErr *errs.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errs.ErrCodeValidation, appErr.Code)
	assert.Equal(t, "validation failed", appErr.Message)
	assert.Equal(t, "must not be blank", appErr.FieldErrors["password"])
}

func TestErrorStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   errs.ErrorCode
	}{
		{http.StatusUnauthorized, errs.ErrCodeUnauthorized},
		{http.StatusForbidden, errs.ErrCodeForbidden},
		{http.StatusNotFound, errs.ErrCodeNotFound},
		{http.StatusConflict, errs.ErrCodeConflict},
		{http.StatusInternalServerError, errs.ErrCodeInternal},
	}

	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			io.WriteString(w, "not json")
		}))
		_, err := newTestClient(srv.URL).Me(context.Background())
		srv.Close()

		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, tc.want, errs.GetCode(err), "status %d", tc.status)
	}
}

func TestRefreshSendsToken(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/refresh", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "at-2",
			"refreshToken": "rt-2",
			"expiresIn":    3600,
		})
	}))
	defer srv.Close()

	grant, err := newTestClient(srv.URL).Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "rt-1", gotBody["refreshToken"])
	assert.Equal(t, "at-2", grant.AccessToken)
}

func TestLogoutIgnoresResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/logout", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(srv.URL).Logout(context.Background()))
}

func TestMeDecodesUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/me", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(map[string]any{
			"id":       7,
			"username": "alima",
			"fullName": "Adriana Lima",
			"role":     "HR",
			"enabled":  true,
		})
	}))
	defer srv.Close()

	user, err := newTestClient(srv.URL).Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, domainsession.RoleHR, user.Role)
	assert.True(t, user.Enabled)
}

func TestValidateDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"valid":     true,
			"expiresIn": 120,
			"userInfo":  map[string]any{"id": 7},
		})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, int64(120), res.ExpiresIn)
	require.NotNil(t, res.UserInfo)
	assert.Equal(t, int64(7), res.UserInfo.ID)
}

func TestChangePassword(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/change-password", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"message": "password changed"})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).ChangePassword(context.Background(), ports.PasswordChange{
		CurrentPassword: "old",
		NewPassword:     "new",
		ConfirmPassword: "new",
	})
	require.NoError(t, err)
	assert.Equal(t, "old", gotBody["currentPassword"])
	assert.Equal(t, "password changed", res.Message)
}

func TestUnreachableBackendMapsToNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestClient(srv.URL).Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeNetwork, errs.GetCode(err))
}

func TestSlowBackendMapsToTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(Options{
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Timeout: 20 * time.Millisecond},
	})
	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeTimeout, errs.GetCode(err))
}
