// Package console keeps one admin editing session per connected console.
// A console owns its sign-in gate, its form and save state, and the live
// product list it shows.
package console

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/andrescris/shopfront/pkg/catalog"
	"github.com/andrescris/shopfront/pkg/form"
	"github.com/andrescris/shopfront/pkg/logger"
	"github.com/andrescris/shopfront/pkg/session"
)

var ErrUnknownConsole = errors.New("unknown console session")

const sweepSpec = "@every 1m"

type Deps struct {
	Store    catalog.Store
	Uploader catalog.Uploader
	Cleaner  form.Cleaner
	Defaults form.Defaults
	Provider session.IdentityProvider
	Log      *zap.Logger
}

type Console struct {
	ID       string
	Gate     *session.Gate
	Editor   *catalog.Editor
	Products *catalog.Browser

	lastSeen atomic.Int64
	log      *zap.Logger
}

func (c *Console) touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

func (c *Console) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// RequireAuth fails unless the gate is authenticated.
func (c *Console) RequireAuth() error {
	if c.Gate.State() != session.StateAuthenticated {
		return session.ErrNotAuthenticated
	}
	return nil
}

// SignIn starts the admin product list. A failed sign-in leaves the gate
// unauthenticated, so the list is stopped even if an earlier one succeeded.
func (c *Console) SignIn(ctx context.Context, email string, secret []byte) (session.Identity, error) {
	id, err := c.Gate.SignIn(ctx, email, secret)
	if err != nil {
		c.Products.Stop()
		return session.Identity{}, err
	}
	c.startList()
	return id, nil
}

// SignOut stops the product list before leaving the authenticated state.
func (c *Console) SignOut(ctx context.Context) error {
	c.Products.Stop()
	return c.Gate.SignOut(ctx)
}

// Save writes the form as the signed in admin.
func (c *Console) Save(ctx context.Context) (catalog.Outcome, error) {
	if err := c.RequireAuth(); err != nil {
		return catalog.Outcome{}, err
	}
	return c.Editor.Save(ctx, c.Gate.Actor())
}

func (c *Console) startList() {
	// The list lives as long as the console, not the request that signed in.
	err := c.Products.Start(context.Background())
	if err != nil && !errors.Is(err, catalog.ErrBrowserRunning) {
		c.log.Warn("admin product list not started", zap.String("console", c.ID), zap.Error(err))
	}
}

func (c *Console) close() {
	c.Products.Stop()
}

type Registry struct {
	deps Deps
	ttl  time.Duration
	log  *zap.Logger
	now  func() time.Time

	mu       sync.RWMutex
	consoles map[string]*Console

	cron *cron.Cron
}

func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	return &Registry{
		deps:     deps,
		ttl:      ttl,
		log:      logger.OrNop(deps.Log),
		now:      time.Now,
		consoles: map[string]*Console{},
		cron:     cron.New(),
	}
}

// Start schedules the idle sweep.
func (r *Registry) Start() error {
	if _, err := r.cron.AddFunc(sweepSpec, func() { r.Sweep() }); err != nil {
		return errors.Wrap(err, "schedule console sweep")
	}
	r.cron.Start()
	return nil
}

// Stop halts the sweep and closes every console.
func (r *Registry) Stop() {
	<-r.cron.Stop().Done()
	r.mu.Lock()
	consoles := r.consoles
	r.consoles = map[string]*Console{}
	r.mu.Unlock()
	for _, c := range consoles {
		c.close()
	}
}

// Open creates a console. A non-empty token resumes an earlier sign-in.
func (r *Registry) Open(ctx context.Context, token string) *Console {
	id := uuid.NewString()
	log := r.log.With(zap.String("console", id))
	f := form.New(r.deps.Defaults, r.deps.Cleaner)
	c := &Console{
		ID:       id,
		Gate:     session.NewGate(r.deps.Provider, log),
		Editor:   catalog.NewEditor(r.deps.Store, r.deps.Uploader, f, log),
		Products: catalog.NewBrowser(r.deps.Store, catalog.AdminQuery, log),
		log:      log,
	}
	c.touch(r.now())

	if c.Gate.Restore(ctx, token) == session.StateAuthenticated {
		c.startList()
	}

	r.mu.Lock()
	r.consoles[id] = c
	r.mu.Unlock()
	log.Debug("console opened", zap.String("state", string(c.Gate.State())))
	return c
}

// Get returns the console and marks it active.
func (r *Registry) Get(id string) (*Console, error) {
	r.mu.RLock()
	c, ok := r.consoles[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownConsole
	}
	c.touch(r.now())
	return c, nil
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	c, ok := r.consoles[id]
	delete(r.consoles, id)
	r.mu.Unlock()
	if !ok {
		return ErrUnknownConsole
	}
	c.close()
	r.log.Debug("console closed", zap.String("console", id))
	return nil
}

// Sweep closes consoles idle for longer than the ttl and reports how many.
// A console with a save in flight is kept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	var idle []*Console
	r.mu.Lock()
	for id, c := range r.consoles {
		if c.LastSeen().Before(cutoff) && c.Editor.State() != catalog.StateSaving {
			idle = append(idle, c)
			delete(r.consoles, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.close()
	}
	if len(idle) > 0 {
		r.log.Info("idle consoles closed", zap.Int("count", len(idle)))
	}
	return len(idle)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.consoles)
}
