package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/andrescris/shopfront/pkg/form"
	"github.com/andrescris/shopfront/pkg/logger"
	"github.com/andrescris/shopfront/pkg/models"
)

var ErrSaveInProgress = errors.New("a save is already in progress")

type SaveState string

const (
	StateIdle    SaveState = "idle"
	StateSaving  SaveState = "saving"
	StateSuccess SaveState = "success"
	StateFailed  SaveState = "failed"
)

// Outcome describes the last finished save.
type Outcome struct {
	State   SaveState `json:"state"`
	ID      string    `json:"id,omitempty"`
	Message string    `json:"message,omitempty"`
	Err     error     `json:"-"`
	At      time.Time `json:"at,omitempty"`
}

// Uploader resolves pending images into persisted references.
type Uploader interface {
	ResolveAll(ctx context.Context, images []models.Image, title string) ([]models.Image, error)
}

// Editor saves the form into the catalog. Only one save runs at a time and
// the form cannot be edited while it runs.
type Editor struct {
	store    Store
	uploader Uploader
	form     *form.Form
	log      *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	state SaveState
	last  Outcome
}

func NewEditor(store Store, uploader Uploader, f *form.Form, log *zap.Logger) *Editor {
	return &Editor{
		store:    store,
		uploader: uploader,
		form:     f,
		log:      logger.OrNop(log),
		now:      time.Now,
		state:    StateIdle,
		last:     Outcome{State: StateIdle},
	}
}

func (e *Editor) State() SaveState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) Last() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Acknowledge moves a finished save back to idle.
func (e *Editor) Acknowledge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateSuccess || e.state == StateFailed {
		e.state = StateIdle
	}
}

// Draft returns a copy of the form contents. Reading is allowed during a save.
func (e *Editor) Draft() models.Draft {
	return e.form.Draft()
}

func (e *Editor) DerivedTags() []string {
	return e.form.DerivedTags()
}

// Edit runs fn against the form unless a save is in flight.
func (e *Editor) Edit(fn func(f *form.Form) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateSaving {
		return ErrSaveInProgress
	}
	return fn(e.form)
}

// Load puts the stored product id into the form for editing.
func (e *Editor) Load(ctx context.Context, id string) error {
	p, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return e.Edit(func(f *form.Form) error {
		f.Initialize(&p)
		return nil
	})
}

// Save validates the form, uploads pending images and writes the product.
// A validation failure returns before any I/O and leaves the state alone.
// The save itself is not cancelled when ctx is.
func (e *Editor) Save(ctx context.Context, actor string) (Outcome, error) {
	e.mu.Lock()
	if e.state == StateSaving {
		e.mu.Unlock()
		return Outcome{State: StateSaving}, ErrSaveInProgress
	}
	draft := e.form.Draft()
	if err := draft.Validate(e.form.StandardLabels()...); err != nil {
		e.mu.Unlock()
		return Outcome{State: e.state, Message: err.Error(), Err: err}, err
	}
	e.state = StateSaving
	e.mu.Unlock()

	if actor == "" {
		actor = models.FallbackActor
	}
	id, err := e.persist(context.WithoutCancel(ctx), draft, actor)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.log.Warn("product save failed", zap.String("title", draft.Title), zap.Error(err))
		e.state = StateFailed
		e.last = Outcome{State: StateFailed, ID: draft.ID, Message: err.Error(), Err: err, At: e.now()}
		return e.last, err
	}
	e.form.Reset()
	e.state = StateSuccess
	e.last = Outcome{
		State:   StateSuccess,
		ID:      id,
		Message: fmt.Sprintf("%s saved successfully.", draft.Title),
		At:      e.now(),
	}
	e.log.Info("product saved", zap.String("id", id), zap.String("actor", actor))
	return e.last, nil
}

// persist uploads before writing. If the write then fails the uploaded
// objects stay in the asset store unreferenced.
func (e *Editor) persist(ctx context.Context, draft models.Draft, actor string) (string, error) {
	images, err := e.uploader.ResolveAll(ctx, draft.Images, draft.Title)
	if err != nil {
		return "", err
	}
	draft.Images = images
	w := Write{Product: draft.Coerce(), Actor: actor}

	if draft.ID != "" {
		if err := e.store.Update(ctx, draft.ID, w); err != nil {
			return "", asPersistence("update", draft.ID, err)
		}
		return draft.ID, nil
	}
	id, err := e.store.Create(ctx, w)
	if err != nil {
		return "", asPersistence("create", "", err)
	}
	return id, nil
}

func asPersistence(op, id string, err error) error {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return &PersistenceError{Op: op, ID: id, Err: err}
}
