package identity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frahmantamala/employee-attendance/internal/core/events"
)

type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}

// TokenProvider holds a bearer token session and announces every change on
// the event bus.
type TokenProvider struct {
	verifier TokenVerifier
	bus      *events.EventBus
	logger   *slog.Logger

	mu      sync.RWMutex
	current *Identity
	seq     uint64
}

func NewTokenProvider(verifier TokenVerifier, bus *events.EventBus, logger *slog.Logger) *TokenProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenProvider{
		verifier: verifier,
		bus:      bus,
		logger:   logger,
	}
}

func (p *TokenProvider) CurrentUser() (Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return Identity{}, false
	}
	return *p.current, true
}

func (p *TokenProvider) SignIn(ctx context.Context, token string) (*Identity, error) {
	id, err := p.verifier.Verify(token)
	if err != nil {
		p.logger.Warn("sign in rejected", "error", err)
		return nil, err
	}
	p.transition(ctx, SignedIn, id)
	return id, nil
}

// Refresh swaps in a new token. A token for another user counts as a new sign-in.
func (p *TokenProvider) Refresh(ctx context.Context, token string) (*Identity, error) {
	id, err := p.verifier.Verify(token)
	if err != nil {
		p.logger.Warn("token refresh rejected", "error", err)
		return nil, err
	}

	kind := TokenRefreshed
	if current, ok := p.CurrentUser(); !ok || current.UserID != id.UserID {
		kind = SignedIn
	}
	p.transition(ctx, kind, id)
	return id, nil
}

func (p *TokenProvider) SignOut(ctx context.Context) error {
	if _, ok := p.CurrentUser(); !ok {
		return ErrNotSignedIn
	}
	p.transition(ctx, SignedOut, nil)
	return nil
}

func (p *TokenProvider) transition(ctx context.Context, kind EventKind, id *Identity) {
	p.mu.Lock()
	p.current = id
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	var userID, email string
	if id != nil {
		userID, email = id.UserID, id.Email
	}
	p.logger.Info("session changed", "kind", kind, "seq", seq, "user_id", userID)

	// published outside the lock: subscribers may call CurrentUser
	if err := p.bus.PublishSync(ctx, events.NewSessionChangedEvent(seq, string(kind), userID, email)); err != nil {
		p.logger.Warn("session change handler failed", "error", err, "seq", seq)
	}
}

func (p *TokenProvider) OnSessionChange(fn func(SessionEvent)) func() {
	return p.bus.Subscribe(events.EventTypeSessionChanged, func(ctx context.Context, event events.Event) error {
		changed, ok := event.(*events.SessionChangedEvent)
		if !ok {
			return nil
		}
		ev := SessionEvent{Seq: changed.Seq, Kind: EventKind(changed.Kind)}
		if changed.UserID != "" {
			ev.Identity = &Identity{UserID: changed.UserID, Email: changed.Email}
		}
		fn(ev)
		return nil
	})
}
