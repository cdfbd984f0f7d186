package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
)

func TestGate_StartsChecking(t *testing.T) {
	g := NewGate(NewStaticProvider("a@shop.test", "pw"), nil)
	if g.State() != StateChecking {
		t.Fatalf("state = %s", g.State())
	}
	if g.Restore(context.Background(), "") != StateUnauthenticated {
		t.Fatalf("empty token should resolve unauthenticated")
	}
}

func TestGate_SignInAndOut(t *testing.T) {
	p := NewStaticProvider("a@shop.test", "pw")
	g := NewGate(p, nil)
	g.Restore(context.Background(), "")

	secret := []byte("pw")
	id, err := g.SignIn(context.Background(), "a@shop.test", secret)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	for _, b := range secret {
		if b != 0 {
			t.Fatalf("secret not zeroed: %v", secret)
		}
	}
	if g.State() != StateAuthenticated || g.Actor() != "a@shop.test" {
		t.Fatalf("state=%s actor=%q", g.State(), g.Actor())
	}

	// A second console can resume from the issued token.
	other := NewGate(p, nil)
	if other.Restore(context.Background(), id.Token) != StateAuthenticated {
		t.Fatalf("token not accepted")
	}

	if err := g.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if g.State() != StateUnauthenticated {
		t.Fatalf("state = %s", g.State())
	}
	if _, ok := g.Identity(); ok {
		t.Fatalf("identity kept after sign-out")
	}
	if NewGate(p, nil).Restore(context.Background(), id.Token) != StateUnauthenticated {
		t.Fatalf("token still valid after sign-out")
	}
}

func TestGate_RejectedSignIn(t *testing.T) {
	g := NewGate(NewStaticProvider("a@shop.test", "pw"), nil)
	_, err := g.SignIn(context.Background(), "a@shop.test", []byte("wrong"))
	var aerr *AuthError
	if !errors.As(err, &aerr) || aerr.Message != "invalid email or password" {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if g.State() != StateUnauthenticated || g.Actor() != "" {
		t.Fatalf("state=%s actor=%q", g.State(), g.Actor())
	}
}

type fakeVerifier struct {
	revoked []string
}

func (f *fakeVerifier) VerifyIDTokenAndCheckRevoked(ctx context.Context, token string) (*auth.Token, error) {
	if token != "id-token" {
		return nil, errors.New("ID token has invalid signature")
	}
	for _, uid := range f.revoked {
		if uid == "u1" {
			return nil, errors.New("ID token has been revoked")
		}
	}
	return &auth.Token{UID: "u1", Claims: map[string]interface{}{"email": "a@shop.test"}}, nil
}

func (f *fakeVerifier) RevokeRefreshTokens(ctx context.Context, uid string) error {
	f.revoked = append(f.revoked, uid)
	return nil
}

func newToolkit(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "web-key" {
			t.Errorf("api key = %q", r.URL.Query().Get("key"))
		}
		var req signInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if req.Password != "pw" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"idToken":   "id-token",
			"email":     req.Email,
			"localId":   "u1",
			"expiresIn": "3600",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFirebaseProvider_SignIn(t *testing.T) {
	srv := newToolkit(t)
	verifier := &fakeVerifier{}
	g := NewGate(NewFirebaseProvider(verifier, "web-key", nil).WithEndpoint(srv.URL), nil)

	id, err := g.SignIn(context.Background(), "a@shop.test", []byte("pw"))
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if id.UID != "u1" || id.Token != "id-token" || id.Email != "a@shop.test" {
		t.Fatalf("identity = %+v", id)
	}

	if err := g.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if len(verifier.revoked) != 1 || verifier.revoked[0] != "u1" {
		t.Fatalf("revoked = %v", verifier.revoked)
	}
}

func TestFirebaseProvider_ProviderMessageVerbatim(t *testing.T) {
	srv := newToolkit(t)
	g := NewGate(NewFirebaseProvider(&fakeVerifier{}, "web-key", nil).WithEndpoint(srv.URL), nil)

	_, err := g.SignIn(context.Background(), "a@shop.test", []byte("nope"))
	var aerr *AuthError
	if !errors.As(err, &aerr) || aerr.Error() != "INVALID_LOGIN_CREDENTIALS" {
		t.Fatalf("expected provider message, got %v", err)
	}
}

func TestFirebaseProvider_Restore(t *testing.T) {
	p := NewFirebaseProvider(&fakeVerifier{}, "web-key", nil)
	g := NewGate(p, nil)
	if g.Restore(context.Background(), "id-token") != StateAuthenticated {
		t.Fatalf("valid token rejected")
	}
	if g.Actor() != "a@shop.test" {
		t.Fatalf("actor = %q", g.Actor())
	}
	if NewGate(p, nil).Restore(context.Background(), "forged") != StateUnauthenticated {
		t.Fatalf("forged token accepted")
	}
}

func TestFirebaseProvider_TokenRejectedAfterSignOut(t *testing.T) {
	verifier := &fakeVerifier{}
	p := NewFirebaseProvider(verifier, "web-key", nil)

	g := NewGate(p, nil)
	if g.Restore(context.Background(), "id-token") != StateAuthenticated {
		t.Fatalf("valid token rejected")
	}
	if err := g.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if g.State() != StateUnauthenticated {
		t.Fatalf("state after sign-out = %s", g.State())
	}

	if state := NewGate(p, nil).Restore(context.Background(), "id-token"); state != StateUnauthenticated {
		t.Fatalf("token restored after sign-out: state = %s", state)
	}
}
