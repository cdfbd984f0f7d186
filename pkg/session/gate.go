// Package session gates the admin editor behind an identity provider.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/andrescris/shopfront/pkg/logger"
)

type State string

const (
	StateChecking        State = "checking"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

var ErrNotAuthenticated = errors.New("not signed in")

type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Token string `json:"-"`
}

type IdentityProvider interface {
	// SignIn exchanges credentials for an identity. Failures carry the
	// provider's own message.
	SignIn(ctx context.Context, identifier string, secret []byte) (Identity, error)
	// Verify resolves a token issued by an earlier SignIn.
	Verify(ctx context.Context, token string) (Identity, error)
	SignOut(ctx context.Context, id Identity) error
}

// AuthError is a rejected sign-in. Message is shown to the admin as is.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// Gate tracks whether the current console is signed in.
type Gate struct {
	provider IdentityProvider
	log      *zap.Logger

	mu       sync.RWMutex
	state    State
	identity Identity
}

// NewGate starts in the checking state until Restore is called.
func NewGate(provider IdentityProvider, log *zap.Logger) *Gate {
	return &Gate{provider: provider, log: logger.OrNop(log), state: StateChecking}
}

func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Identity returns the signed in identity, if any.
func (g *Gate) Identity() (Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != StateAuthenticated {
		return Identity{}, false
	}
	return g.identity, true
}

// Actor is the name recorded on writes, empty when nobody is signed in.
func (g *Gate) Actor() string {
	id, ok := g.Identity()
	if !ok {
		return ""
	}
	if id.Email != "" {
		return id.Email
	}
	return id.UID
}

// Restore leaves the checking state using a previously issued token. An
// empty or rejected token ends unauthenticated.
func (g *Gate) Restore(ctx context.Context, token string) State {
	var (
		id  Identity
		err error
	)
	if token != "" {
		id, err = g.provider.Verify(ctx, token)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if token == "" || err != nil {
		if err != nil {
			g.log.Debug("session token rejected", zap.Error(err))
		}
		g.state = StateUnauthenticated
		g.identity = Identity{}
		return g.state
	}
	id.Token = token
	g.state = StateAuthenticated
	g.identity = id
	return g.state
}

// SignIn authenticates with the provider. The secret is zeroed before
// SignIn returns.
func (g *Gate) SignIn(ctx context.Context, identifier string, secret []byte) (Identity, error) {
	defer zero(secret)

	id, err := g.provider.SignIn(ctx, identifier, secret)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.state = StateUnauthenticated
		g.identity = Identity{}
		var aerr *AuthError
		if !errors.As(err, &aerr) {
			err = &AuthError{Message: err.Error(), Err: err}
		}
		g.log.Info("sign-in rejected", zap.String("identifier", identifier), zap.Error(err))
		return Identity{}, err
	}
	g.state = StateAuthenticated
	g.identity = id
	g.log.Info("signed in", zap.String("uid", id.UID))
	return id, nil
}

// SignOut always ends unauthenticated. A provider failure is returned but
// does not keep the console signed in.
func (g *Gate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	id := g.identity
	was := g.state
	g.state = StateUnauthenticated
	g.identity = Identity{}
	g.mu.Unlock()

	if was != StateAuthenticated {
		return nil
	}
	if err := g.provider.SignOut(ctx, id); err != nil {
		g.log.Warn("provider sign-out failed", zap.String("uid", id.UID), zap.Error(err))
		return err
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
