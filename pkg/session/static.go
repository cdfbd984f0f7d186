package session

import (
	"context"
	"crypto/subtle"
	"sync"

	"github.com/google/uuid"
)

// StaticProvider accepts a single configured account. Tokens live in
// process memory. Meant for local runs without Firebase.
type StaticProvider struct {
	email    string
	password []byte

	mu     sync.Mutex
	tokens map[string]Identity
}

func NewStaticProvider(email, password string) *StaticProvider {
	return &StaticProvider{email: email, password: []byte(password), tokens: map[string]Identity{}}
}

func (p *StaticProvider) SignIn(ctx context.Context, identifier string, secret []byte) (Identity, error) {
	if len(p.password) == 0 {
		return Identity{}, &AuthError{Message: "password sign-in is disabled"}
	}
	emailOK := subtle.ConstantTimeCompare([]byte(identifier), []byte(p.email)) == 1
	passOK := subtle.ConstantTimeCompare(secret, p.password) == 1
	if !emailOK || !passOK {
		return Identity{}, &AuthError{Message: "invalid email or password"}
	}
	id := Identity{UID: "static-admin", Email: p.email, Token: uuid.NewString()}
	p.mu.Lock()
	p.tokens[id.Token] = id
	p.mu.Unlock()
	return id, nil
}

func (p *StaticProvider) Verify(ctx context.Context, token string) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.tokens[token]
	if !ok {
		return Identity{}, &AuthError{Message: "session expired"}
	}
	return id, nil
}

func (p *StaticProvider) SignOut(ctx context.Context, id Identity) error {
	p.mu.Lock()
	delete(p.tokens, id.Token)
	p.mu.Unlock()
	return nil
}
