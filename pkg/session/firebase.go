package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/andrescris/shopfront/pkg/logger"
)

const signInEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"

// TokenVerifier is the part of the Firebase auth client the provider uses.
type TokenVerifier interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

var _ TokenVerifier = (*auth.Client)(nil)

// FirebaseProvider signs admins in with email and password through the
// Identity Toolkit REST API and checks tokens with the Admin SDK.
type FirebaseProvider struct {
	verifier TokenVerifier
	apiKey   string
	endpoint string
	timeout  time.Duration
	log      *zap.Logger
}

func NewFirebaseProvider(verifier TokenVerifier, apiKey string, log *zap.Logger) *FirebaseProvider {
	return &FirebaseProvider{
		verifier: verifier,
		apiKey:   apiKey,
		endpoint: signInEndpoint,
		timeout:  10 * time.Second,
		log:      logger.OrNop(log),
	}
}

// WithEndpoint points password sign-in at another Identity Toolkit host,
// such as the auth emulator.
func (p *FirebaseProvider) WithEndpoint(endpoint string) *FirebaseProvider {
	p.endpoint = endpoint
	return p
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken   string `json:"idToken"`
	Email     string `json:"email"`
	LocalID   string `json:"localId"`
	ExpiresIn string `json:"expiresIn"`
	Error     *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) SignIn(ctx context.Context, identifier string, secret []byte) (Identity, error) {
	var (
		resp signInResponse
		code int
	)
	err := gout.POST(p.endpoint).
		WithContext(ctx).
		SetTimeout(p.timeout).
		SetQuery(gout.H{"key": p.apiKey}).
		SetJSON(signInRequest{Email: identifier, Password: string(secret), ReturnSecureToken: true}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil {
		return Identity{}, errors.Wrap(err, "identity toolkit sign-in")
	}
	if resp.Error != nil {
		return Identity{}, &AuthError{Message: resp.Error.Message}
	}
	if code != http.StatusOK || resp.IDToken == "" {
		return Identity{}, &AuthError{Message: fmt.Sprintf("sign-in failed with status %d", code)}
	}
	p.log.Debug("identity toolkit sign-in", zap.String("uid", resp.LocalID), zap.String("expiresIn", resp.ExpiresIn))
	return Identity{UID: resp.LocalID, Email: resp.Email, Token: resp.IDToken}, nil
}

// Verify rejects tokens issued before the user's last sign-out.
func (p *FirebaseProvider) Verify(ctx context.Context, token string) (Identity, error) {
	t, err := p.verifier.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return Identity{}, &AuthError{Message: err.Error(), Err: err}
	}
	email, _ := t.Claims["email"].(string)
	return Identity{UID: t.UID, Email: email, Token: token}, nil
}

// SignOut revokes the user's tokens. ID tokens issued before now stop
// passing Verify.
func (p *FirebaseProvider) SignOut(ctx context.Context, id Identity) error {
	if id.UID == "" {
		return nil
	}
	return errors.Wrapf(p.verifier.RevokeRefreshTokens(ctx, id.UID), "revoke tokens for %s", id.UID)
}
