// Package session keeps the signed-in user together with their profile and
// role, following the identity provider's session events.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/frahmantamala/employee-attendance/internal/identity"
	"github.com/frahmantamala/employee-attendance/internal/profile"
)

var ErrAlreadyInitialized = errors.New("session context already initialized")

// ProfileLoader fetches the profile and role of a user in one call.
type ProfileLoader interface {
	Me(ctx context.Context, userID string) (*profile.MeResponse, error)
}

// Snapshot is a copy of the session state at one point in time.
type Snapshot struct {
	User    *identity.Identity
	Profile *profile.Profile
	Role    profile.Role
	// Loading is true until the profile of the latest event has been fetched.
	Loading bool
	// Seq is the provider sequence number of the last applied event.
	Seq uint64
	Err error
}

func (s Snapshot) SignedIn() bool {
	return s.User != nil
}

func (s Snapshot) IsManager() bool {
	return s.Role == profile.RoleManager
}

type Context struct {
	provider identity.Provider
	loader   ProfileLoader
	logger   *slog.Logger

	mu          sync.Mutex
	state       Snapshot
	gen         uint64
	cancelFetch context.CancelFunc
	changed     chan struct{}
	base        context.Context
	unsubscribe func()
	wg          sync.WaitGroup
}

func New(provider identity.Provider, loader ProfileLoader, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		provider: provider,
		loader:   loader,
		logger:   logger,
		state:    Snapshot{Loading: true},
		changed:  make(chan struct{}),
	}
}

// Init subscribes to session changes and loads whoever is already signed in.
// Fetches run under ctx until Dispose is called.
func (c *Context) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.base = ctx
	c.unsubscribe = func() {}
	c.mu.Unlock()

	unsubscribe := c.provider.OnSessionChange(c.handle)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribe = unsubscribe

	// an event delivered while subscribing is newer than the bootstrap read
	if c.state.Seq > 0 {
		return nil
	}

	user, ok := c.provider.CurrentUser()
	if !ok {
		c.state.Loading = false
		c.broadcastLocked()
		return nil
	}
	c.applyLocked(&user, 0)
	return nil
}

// Dispose unsubscribes and waits for in-flight fetches to stop. It is safe
// to call more than once.
func (c *Context) Dispose() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.gen++
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.wg.Wait()
}

func (c *Context) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until the latest event's profile fetch has finished.
func (c *Context) Wait(ctx context.Context) (Snapshot, error) {
	for {
		c.mu.Lock()
		state, changed := c.state, c.changed
		c.mu.Unlock()

		if !state.Loading {
			return state, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// SignOut signs out at the provider and clears the local state.
func (c *Context) SignOut(ctx context.Context) error {
	if err := c.provider.SignOut(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.User != nil {
		c.applyLocked(nil, c.state.Seq)
	}
	return nil
}

func (c *Context) handle(ev identity.SessionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubscribe == nil {
		return
	}
	if ev.Seq <= c.state.Seq {
		c.logger.Debug("ignoring stale session event", "seq", ev.Seq, "applied_seq", c.state.Seq)
		return
	}

	c.logger.Info("session event", "kind", ev.Kind, "seq", ev.Seq)
	c.applyLocked(ev.Identity, ev.Seq)
}

// applyLocked switches to user and starts its profile fetch, cancelling the
// previous one. Results of earlier generations are dropped.
func (c *Context) applyLocked(user *identity.Identity, seq uint64) {
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.gen++

	previous := c.state
	c.state = Snapshot{User: user, Seq: seq}

	if user == nil {
		c.broadcastLocked()
		return
	}

	if previous.User != nil && previous.User.UserID == user.UserID {
		c.state.Profile, c.state.Role = previous.Profile, previous.Role
	}
	c.state.Loading = true
	c.broadcastLocked()

	base := c.base
	if base == nil {
		base = context.Background()
	}
	fetchCtx, cancel := context.WithCancel(base)
	c.cancelFetch = cancel

	c.wg.Add(1)
	go c.fetch(fetchCtx, c.gen, user.UserID)
}

func (c *Context) fetch(ctx context.Context, gen uint64, userID string) {
	defer c.wg.Done()

	me, err := c.loader.Me(ctx, userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.logger.Debug("discarding superseded profile fetch", "user_id", userID)
		return
	}
	c.cancelFetch = nil
	c.state.Loading = false

	if err != nil {
		c.logger.Warn("failed to load profile", "error", err, "user_id", userID)
		c.state.Profile, c.state.Role, c.state.Err = nil, "", err
	} else if me != nil {
		c.state.Profile, c.state.Role, c.state.Err = me.Profile, me.Role, nil
	}
	c.broadcastLocked()
}

func (c *Context) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
