package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrescris/shopfront/pkg/models"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func nextWithin(t *testing.T, s Stream) []models.Product {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return snap
}

func TestMemoryStore_CreateStampsServerFields(t *testing.T) {
	m := NewMemoryStore()
	id, err := m.Create(context.Background(), Write{Product: models.Product{Title: "Cap"}, Actor: "a@b.c"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p, err := m.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.ID != id || p.CreatedBy != "a@b.c" || p.UpdatedBy != "a@b.c" {
		t.Fatalf("unexpected product %+v", p)
	}
	if p.CreatedAt.IsZero() || !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("timestamps not set: %v %v", p.CreatedAt, p.UpdatedAt)
	}
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	m := NewMemoryStore()
	err := m.Update(context.Background(), "nope", Write{Product: models.Product{Title: "Cap"}})
	var perr *PersistenceError
	if !errors.As(err, &perr) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected PersistenceError wrapping ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_UpdateKeepsCreation(t *testing.T) {
	m := NewMemoryStore().WithClock(fixedClock())
	ctx := context.Background()
	id, _ := m.Create(ctx, Write{Product: models.Product{Title: "Cap"}, Actor: "first"})
	if err := m.Update(ctx, id, Write{Product: models.Product{Title: "Cap v2"}, Actor: "second"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	p, _ := m.Get(ctx, id)
	if p.Title != "Cap v2" || p.CreatedBy != "first" || p.UpdatedBy != "second" {
		t.Fatalf("unexpected product %+v", p)
	}
	if !p.UpdatedAt.After(p.CreatedAt) {
		t.Fatalf("updatedAt %v not after createdAt %v", p.UpdatedAt, p.CreatedAt)
	}
}

func TestMemoryStore_WatchFiltersAndOrders(t *testing.T) {
	m := NewMemoryStore().WithClock(fixedClock())
	ctx := context.Background()

	pub, err := m.Watch(ctx, StorefrontQuery)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer pub.Stop()
	all, _ := m.Watch(ctx, AdminQuery)
	defer all.Stop()

	if got := nextWithin(t, pub); len(got) != 0 {
		t.Fatalf("initial snapshot = %v", got)
	}
	nextWithin(t, all)

	_, _ = m.Create(ctx, Write{Product: models.Product{Title: "Old", Status: models.StatusPublished}})
	_, _ = m.Create(ctx, Write{Product: models.Product{Title: "Hidden", Status: models.StatusDraft}})
	_, _ = m.Create(ctx, Write{Product: models.Product{Title: "New", Status: models.StatusPublished}})

	got := nextWithin(t, pub)
	if len(got) != 2 || got[0].Title != "New" || got[1].Title != "Old" {
		t.Fatalf("storefront snapshot = %+v", got)
	}
	if got := nextWithin(t, all); len(got) != 3 || got[0].Title != "New" {
		t.Fatalf("admin snapshot = %+v", got)
	}
}

func TestMemoryStore_StopEndsStream(t *testing.T) {
	m := NewMemoryStore()
	s, _ := m.Watch(context.Background(), AdminQuery)
	nextWithin(t, s)
	s.Stop()
	s.Stop()

	if _, err := s.Next(context.Background()); !errors.Is(err, ErrStreamStopped) {
		t.Fatalf("expected ErrStreamStopped, got %v", err)
	}
	// Writes after Stop must not reach the stopped stream.
	_, _ = m.Create(context.Background(), Write{Product: models.Product{Title: "Cap"}})
}

func TestMemoryStore_StoppingOneStreamKeepsOthers(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	a, _ := m.Watch(ctx, AdminQuery)
	b, _ := m.Watch(ctx, AdminQuery)
	defer b.Stop()
	nextWithin(t, a)
	nextWithin(t, b)

	a.Stop()
	_, _ = m.Create(ctx, Write{Product: models.Product{Title: "Cap"}})
	if got := nextWithin(t, b); len(got) != 1 {
		t.Fatalf("snapshot = %+v", got)
	}
}
