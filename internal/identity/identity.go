// Package identity verifies bearer tokens issued by the external identity
// provider and publishes session lifecycle events.
package identity

import (
	"context"
	"errors"
	"time"
)

type Identity struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EventKind string

const (
	SignedIn       EventKind = "signed_in"
	SignedOut      EventKind = "signed_out"
	TokenRefreshed EventKind = "token_refreshed"
)

// SessionEvent reports a change of the signed-in user. Seq grows with every
// event a provider emits; Identity is nil after sign-out.
type SessionEvent struct {
	Seq      uint64
	Kind     EventKind
	Identity *Identity
}

type Provider interface {
	CurrentUser() (Identity, bool)
	// OnSessionChange registers fn and returns a func that removes it.
	OnSessionChange(fn func(SessionEvent)) func()
	SignOut(ctx context.Context) error
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrNotSignedIn  = errors.New("not signed in")
)
