package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"groundops/internal/domain/auth"
	"groundops/internal/platform/apperror"
	"groundops/internal/platform/logging"
	"groundops/internal/transport/http/api"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// Authenticator resolves a bearer token into the acting user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.UserContext, error)
}

// Auth resolves the bearer token into a user. The identity check is bounded by
// timeout; when it fails or does not answer in time the request continues
// without a user and RequireUser turns that into a 401.
func Auth(authn Authenticator, timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" || authn == nil {
				next.ServeHTTP(w, r)
				return
			}
			user, ok := resolveUser(r.Context(), authn, token, timeout)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func resolveUser(ctx context.Context, authn Authenticator, token string, timeout time.Duration) (auth.UserContext, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		user auth.UserContext
		err  error
	}
	done := make(chan result, 1)
	go func() {
		user, err := authn.Authenticate(ctx, token)
		done <- result{user: user, err: err}
	}()

	logger := logging.FromContext(ctx)
	select {
	case res := <-done:
		if res.err != nil {
			if !apperror.Is(res.err, apperror.KindAuth) {
				logger.Warn("identity check failed", zap.Error(res.err))
			}
			return auth.UserContext{}, false
		}
		return res.user, true
	case <-ctx.Done():
		logger.Warn("identity check timed out, continuing without user", zap.Duration("timeout", timeout))
		return auth.UserContext{}, false
	}
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}

// RequireUser rejects requests that carry no authenticated user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.FailErr(w, r, apperror.Auth(apperror.ReasonUnauthenticated))
			return
		}
		next.ServeHTTP(w, r)
	})
}
