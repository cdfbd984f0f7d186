package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrescris/shopfront/pkg/catalog"
	"github.com/andrescris/shopfront/pkg/form"
	"github.com/andrescris/shopfront/pkg/models"
	"github.com/andrescris/shopfront/pkg/session"
)

type passthrough struct{}

func (passthrough) ResolveAll(ctx context.Context, images []models.Image, title string) ([]models.Image, error) {
	return images, nil
}

func newTestRegistry(store catalog.Store) (*Registry, *session.StaticProvider) {
	provider := session.NewStaticProvider("admin@shop.test", "pw")
	r := NewRegistry(Deps{
		Store:    store,
		Uploader: passthrough{},
		Defaults: form.Defaults{Category: "Caps"},
		Provider: provider,
	}, time.Minute)
	return r, provider
}

func TestOpen_Unauthenticated(t *testing.T) {
	r, _ := newTestRegistry(catalog.NewMemoryStore())
	c := r.Open(context.Background(), "")
	if c.Gate.State() != session.StateUnauthenticated {
		t.Fatalf("state = %s", c.Gate.State())
	}
	if !errors.Is(c.RequireAuth(), session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated")
	}
	if _, err := c.Save(context.Background()); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("save allowed while signed out: %v", err)
	}
	if c.Products.Running() {
		t.Fatalf("admin list running while signed out")
	}
}

func TestSignIn_FailureStopsAdminList(t *testing.T) {
	r, _ := newTestRegistry(catalog.NewMemoryStore())
	defer r.Stop()
	ctx := context.Background()

	c := r.Open(ctx, "")
	if _, err := c.SignIn(ctx, "admin@shop.test", []byte("pw")); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if !c.Products.Running() {
		t.Fatalf("admin list not started after sign-in")
	}

	if _, err := c.SignIn(ctx, "admin@shop.test", []byte("wrong")); err == nil {
		t.Fatalf("expected sign-in to fail")
	}
	if c.Gate.State() != session.StateUnauthenticated {
		t.Fatalf("state = %s", c.Gate.State())
	}
	if c.Products.Running() {
		t.Fatalf("admin list still running after failed sign-in")
	}
}

func TestSignIn_SavesAsAdmin(t *testing.T) {
	store := catalog.NewMemoryStore()
	r, _ := newTestRegistry(store)
	defer r.Stop()
	ctx := context.Background()

	c := r.Open(ctx, "")
	if _, err := c.SignIn(ctx, "admin@shop.test", []byte("pw")); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if !c.Products.Running() {
		t.Fatalf("admin list not started after sign-in")
	}

	_ = c.Editor.Edit(func(f *form.Form) error { return f.SetField("title", "Cap") })
	out, err := c.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err := store.Get(ctx, out.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.CreatedBy != "admin@shop.test" {
		t.Fatalf("createdBy = %q", p.CreatedBy)
	}

	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if c.Products.Running() {
		t.Fatalf("admin list still running after sign-out")
	}
}

func TestOpen_ResumesToken(t *testing.T) {
	r, provider := newTestRegistry(catalog.NewMemoryStore())
	defer r.Stop()
	id, _ := provider.SignIn(context.Background(), "admin@shop.test", []byte("pw"))

	c := r.Open(context.Background(), id.Token)
	if c.Gate.State() != session.StateAuthenticated || !c.Products.Running() {
		t.Fatalf("token not resumed: %s", c.Gate.State())
	}
}

func TestGetAndClose(t *testing.T) {
	r, _ := newTestRegistry(catalog.NewMemoryStore())
	c := r.Open(context.Background(), "")

	got, err := r.Get(c.ID)
	if err != nil || got != c {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if err := r.Close(c.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.Get(c.ID); !errors.Is(err, ErrUnknownConsole) {
		t.Fatalf("expected ErrUnknownConsole, got %v", err)
	}
	if err := r.Close(c.ID); !errors.Is(err, ErrUnknownConsole) {
		t.Fatalf("expected ErrUnknownConsole, got %v", err)
	}
}

func TestSweep_ClosesIdle(t *testing.T) {
	r, _ := newTestRegistry(catalog.NewMemoryStore())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	stale := r.Open(context.Background(), "")
	now = now.Add(50 * time.Second)
	fresh := r.Open(context.Background(), "")
	now = now.Add(30 * time.Second)

	if n := r.Sweep(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, err := r.Get(stale.ID); !errors.Is(err, ErrUnknownConsole) {
		t.Fatalf("stale console survived")
	}
	if _, err := r.Get(fresh.ID); err != nil {
		t.Fatalf("fresh console swept: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	r, _ := newTestRegistry(catalog.NewMemoryStore())
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Open(context.Background(), "")
	r.Stop()
	if r.Len() != 0 {
		t.Fatalf("consoles left after Stop: %d", r.Len())
	}
}
