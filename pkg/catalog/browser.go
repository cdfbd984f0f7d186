package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/andrescris/shopfront/pkg/logger"
	"github.com/andrescris/shopfront/pkg/models"
)

var ErrBrowserRunning = errors.New("browser already started")

// Browser keeps the latest result of a live query and hands every new
// snapshot to its listeners. It is started and stopped by whoever owns the
// view it feeds.
type Browser struct {
	store Store
	query Query
	log   *zap.Logger

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	stream    Stream
	done      chan struct{}
	products  []models.Product
	ready     bool
	err       error
	listeners map[int]chan []models.Product
	nextID    int
}

func NewBrowser(store Store, q Query, log *zap.Logger) *Browser {
	return &Browser{
		store:     store,
		query:     q,
		log:       logger.OrNop(log),
		listeners: map[int]chan []models.Product{},
	}
}

// Start opens the subscription. The subscription outlives ctx only until
// ctx is cancelled or Stop is called.
func (b *Browser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return ErrBrowserRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	stream, err := b.store.Watch(runCtx, b.query)
	if err != nil {
		cancel()
		return errors.Wrap(err, "watch catalog")
	}
	b.running = true
	b.cancel = cancel
	b.stream = stream
	b.err = nil
	b.done = make(chan struct{})
	go b.run(runCtx, stream, b.done)
	return nil
}

func (b *Browser) run(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)
	for {
		snap, err := stream.Next(ctx)
		if err != nil {
			if !errors.Is(err, ErrStreamStopped) && ctx.Err() == nil {
				b.log.Error("catalog subscription failed", zap.Error(err))
				b.mu.Lock()
				b.err = err
				b.mu.Unlock()
			}
			return
		}
		b.publish(snap)
	}
}

func (b *Browser) publish(snap []models.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products = snap
	b.ready = true
	for _, ch := range b.listeners {
		offer(ch, snap)
	}
}

// offer replaces any unread snapshot so listeners only ever lag by one.
func offer(ch chan []models.Product, snap []models.Product) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// Stop ends the subscription and closes every listener channel. It is safe
// to call on a browser that is not running.
func (b *Browser) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.cancel()
	b.stream.Stop()
	done := b.done
	for id, ch := range b.listeners {
		close(ch)
		delete(b.listeners, id)
	}
	b.mu.Unlock()
	<-done
}

func (b *Browser) Running() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Products returns the latest snapshot and whether one has arrived yet.
func (b *Browser) Products() ([]models.Product, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Product(nil), b.products...), b.ready
}

// Err is the error that ended the subscription, if any.
func (b *Browser) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// Listen registers for snapshots. The channel receives the current snapshot
// right away when there is one. Call the returned func to unregister.
func (b *Browser) Listen() (<-chan []models.Product, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []models.Product, 1)
	if !b.running {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = ch
	if b.ready {
		ch <- b.products
	}
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.listeners[id]; ok {
			delete(b.listeners, id)
			close(ch)
		}
	}
}

// Filter keeps products whose title contains search, ignoring case, and
// that carry label. Empty search or label matches everything. Order is kept.
func Filter(products []models.Product, search, label string) []models.Product {
	fold := cases.Fold()
	needle := fold.String(search)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if needle != "" && !strings.Contains(fold.String(p.Title), needle) {
			continue
		}
		if label != "" && !p.HasLabel(label) {
			continue
		}
		out = append(out, p)
	}
	return out
}
