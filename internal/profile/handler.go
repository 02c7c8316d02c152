package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/employee-attendance/internal"
	"github.com/frahmantamala/employee-attendance/internal/auth"
	"github.com/frahmantamala/employee-attendance/internal/transport"
	"github.com/frahmantamala/employee-attendance/pkg/logger"
)

type ServiceAPI interface {
	Me(ctx context.Context, userID string) (*MeResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Timeout time.Duration
}

func NewHandler(svc ServiceAPI, timeout time.Duration) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Timeout:     timeout,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("GetCurrentUser: user not found in context")
		h.WriteAppError(w, internal.NewUnauthorizedError("unauthorized", internal.ErrCodeUnauthorizedAccess))
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	me, err := h.Service.Me(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			h.WriteAppError(w, internal.ErrProfileNotFound())
			return
		}
		h.Logger.Error("GetCurrentUser: failed to load profile", "user_id", user.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, me)
}
