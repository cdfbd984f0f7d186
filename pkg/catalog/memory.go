package catalog

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"

	"github.com/andrescris/shopfront/pkg/models"
)

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	bus EventBus.Bus
	now func() time.Time

	mu     sync.RWMutex
	docs   map[string]models.Product
	topics map[string]struct{}
	last   time.Time

	seq atomic.Int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bus:    EventBus.New(),
		now:    time.Now,
		docs:   map[string]models.Product{},
		topics: map[string]struct{}{},
	}
}

// WithClock replaces the time source used for server timestamps.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

// stamp returns a server time strictly after the previous one so that
// updatedAt ordering is total. Callers hold m.mu.
func (m *MemoryStore) stamp() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

func (m *MemoryStore) Get(ctx context.Context, id string) (models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.docs[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryStore) Create(ctx context.Context, w Write) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &PersistenceError{Op: "create", Err: err}
	}
	m.mu.Lock()
	id := uuid.NewString()
	p := w.Product.Clone()
	p.ID = id
	p.CreatedAt = m.stamp()
	p.UpdatedAt = p.CreatedAt
	p.CreatedBy = w.Actor
	p.UpdatedBy = w.Actor
	m.docs[id] = p
	m.mu.Unlock()

	m.publish()
	return id, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, w Write) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "update", ID: id, Err: err}
	}
	m.mu.Lock()
	old, ok := m.docs[id]
	if !ok {
		m.mu.Unlock()
		return &PersistenceError{Op: "update", ID: id, Err: ErrNotFound}
	}
	p := w.Product.Clone()
	p.ID = id
	p.CreatedAt = old.CreatedAt
	p.CreatedBy = old.CreatedBy
	p.UpdatedAt = m.stamp()
	p.UpdatedBy = w.Actor
	m.docs[id] = p
	m.mu.Unlock()

	m.publish()
	return nil
}

func (m *MemoryStore) publish() {
	m.mu.RLock()
	topics := make([]string, 0, len(m.topics))
	for t := range m.topics {
		topics = append(topics, t)
	}
	m.mu.RUnlock()
	for _, t := range topics {
		m.bus.Publish(t)
	}
}

func (m *MemoryStore) snapshot(q Query) []models.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0, len(m.docs))
	for _, p := range m.docs {
		if q.PublishedOnly && !p.Published() {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Watch delivers the current result set immediately and again after every
// write. A slow reader only sees the newest snapshot.
func (m *MemoryStore) Watch(ctx context.Context, q Query) (Stream, error) {
	// EventBus matches handlers by code pointer on Unsubscribe, so every
	// stream listens on a topic of its own.
	topic := "catalog:" + strconv.FormatInt(m.seq.Add(1), 10)
	s := &memoryStream{
		store:   m,
		query:   q,
		topic:   topic,
		pending: make(chan []models.Product, 1),
		done:    make(chan struct{}),
	}
	s.handler = s.refresh
	if err := m.bus.Subscribe(topic, s.handler); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.topics[topic] = struct{}{}
	m.mu.Unlock()

	s.refresh()
	return s, nil
}

type memoryStream struct {
	store   *MemoryStore
	query   Query
	topic   string
	handler func()

	mu      sync.Mutex
	pending chan []models.Product
	done    chan struct{}
	once    sync.Once
}

func (s *memoryStream) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	snap := s.store.snapshot(s.query)
	// Drop an unread snapshot in favour of the newer one.
	select {
	case <-s.pending:
	default:
	}
	s.pending <- snap
}

func (s *memoryStream) Next(ctx context.Context) ([]models.Product, error) {
	select {
	case snap := <-s.pending:
		return snap, nil
	case <-s.done:
		return nil, ErrStreamStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *memoryStream) Stop() {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.topics, s.topic)
		s.store.mu.Unlock()
		_ = s.store.bus.Unsubscribe(s.topic, s.handler)
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
	})
}
