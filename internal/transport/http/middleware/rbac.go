package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"groundops/internal/platform/apperror"
	"groundops/internal/platform/logging"
	"groundops/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, role, permission string) (bool, error)
}

func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.FailErr(w, r, apperror.Auth(apperror.ReasonUnauthenticated))
				return
			}

			allowed, err := store.HasPermission(r.Context(), user.RoleName, permission)
			if err != nil {
				logging.FromContext(r.Context()).Error("permission check failed",
					zap.String("role", user.RoleName), zap.String("permission", permission), zap.Error(err))
				appErr := apperror.Configuration("authorization is misconfigured for this account")
				appErr.Code = "authorization_misconfigured"
				api.FailErr(w, r, appErr)
				return
			}
			if !allowed {
				api.FailErr(w, r, apperror.Forbidden("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
