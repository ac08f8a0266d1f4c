package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundops/internal/domain/auth"
	"groundops/internal/platform/apperror"
)

type authenticatorFunc func(ctx context.Context, token string) (auth.UserContext, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (auth.UserContext, error) {
	return f(ctx, token)
}

func captureUser(t *testing.T, seen *auth.UserContext, present *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, *present = GetUser(r.Context())
	})
}

func TestAuthMiddlewareSetsUser(t *testing.T) {
	authn := authenticatorFunc(func(ctx context.Context, token string) (auth.UserContext, error) {
		assert.Equal(t, "tok-1", token)
		return auth.UserContext{UserID: "u1", EmployeeID: "e1", RoleName: "manager", Department: "Ramp Operations"}, nil
	})
	var user auth.UserContext
	var ok bool
	handler := Auth(authn, time.Second)(captureUser(t, &user, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, ok)
	assert.Equal(t, "u1", user.UserID)
	assert.Equal(t, "Ramp Operations", user.Actor().Department)
}

func TestAuthMiddlewareMissingOrMalformedToken(t *testing.T) {
	called := false
	authn := authenticatorFunc(func(ctx context.Context, token string) (auth.UserContext, error) {
		called = true
		return auth.UserContext{}, nil
	})
	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer a b"} {
		var ok bool
		var user auth.UserContext
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		Auth(authn, time.Second)(captureUser(t, &user, &ok)).ServeHTTP(httptest.NewRecorder(), req)
		assert.False(t, ok, header)
	}
	assert.False(t, called)
}

func TestAuthMiddlewareRejectedToken(t *testing.T) {
	authn := authenticatorFunc(func(ctx context.Context, token string) (auth.UserContext, error) {
		return auth.UserContext{}, apperror.Auth(apperror.ReasonUnauthenticated)
	})
	var ok bool
	var user auth.UserContext
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer revoked")
	Auth(authn, time.Second)(captureUser(t, &user, &ok)).ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, ok)
}

func TestAuthMiddlewareTimesOutToNoUser(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	authn := authenticatorFunc(func(ctx context.Context, token string) (auth.UserContext, error) {
		<-release
		return auth.UserContext{UserID: "late"}, nil
	})

	var ok bool
	var user auth.UserContext
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer slow")

	start := time.Now()
	Auth(authn, 30*time.Millisecond)(captureUser(t, &user, &ok)).ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRequireUser(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	RequireUser(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: "u1", RoleName: "employee"}))
	RequireUser(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guard := RequirePermission(auth.PermEmployeesWrite, auth.StaticPermissions{})

	cases := []struct {
		role string
		want int
	}{
		{"admin", http.StatusNoContent},
		{"Admin", http.StatusNoContent},
		{"manager", http.StatusForbidden},
		{"employee", http.StatusForbidden},
		{"auditor", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: "u1", RoleName: tc.role}))
		rec := httptest.NewRecorder()
		guard(next).ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.role)
	}

	rec := httptest.NewRecorder()
	guard(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
