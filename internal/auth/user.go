package auth

import (
	"context"

	"github.com/frahmantamala/employee-attendance/internal"
)

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
)

// User is the authenticated caller attached to a request.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

func (u *User) IsManager() bool {
	return u != nil && u.Role == RoleManager
}

type contextKey string

const ContextUserKey contextKey = "auth_user"

func UserFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(ContextUserKey).(*User)
	return user, ok
}

// ContextWithUser attaches user and its id to ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	ctx = internal.ContextWithUserID(ctx, user.ID)
	return context.WithValue(ctx, ContextUserKey, user)
}
