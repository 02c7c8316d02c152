package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/employee-attendance/internal"
	"github.com/frahmantamala/employee-attendance/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

// RequireRole lets the request through only when the caller holds role.
func (ra *RBACAuthorization) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				ra.Logger.Warn("authorization check failed: user not found in context")
				ra.WriteAppError(w, internal.NewUnauthorizedError("unauthorized", internal.ErrCodeUnauthorizedAccess))
				return
			}

			if user.Role != role {
				ra.Logger.WarnContext(r.Context(), "access denied: role required",
					"user_id", user.ID,
					"required_role", role,
					"user_role", user.Role)
				if role == RoleManager {
					ra.WriteAppError(w, internal.ErrManagerRoleRequired())
				} else {
					ra.WriteAppError(w, internal.NewForbiddenError("insufficient role", internal.ErrCodeUnauthorizedAccess))
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireManager() func(http.Handler) http.Handler {
	return ra.RequireRole(RoleManager)
}
