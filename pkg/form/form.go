// Package form holds the product draft an admin is editing.
package form

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/andrescris/shopfront/config"
	"github.com/andrescris/shopfront/pkg/models"
)

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrUnknownLabel = errors.New("not a standard label")
)

// Cleaner deletes a remote object that the draft no longer references.
// It must not block and its outcome is ignored.
type Cleaner interface {
	Discard(storagePath string)
}

// Defaults seed a blank draft. StandardLabels is the label vocabulary; an
// empty one accepts any label.
type Defaults struct {
	Category       string
	Labels         []string
	WebURL         string
	StandardLabels []string
}

func DefaultsFrom(c config.CatalogConfig) Defaults {
	d := Defaults{
		Labels:         append([]string{}, c.DefaultLabels...),
		WebURL:         c.DefaultWebURL,
		StandardLabels: append([]string{}, c.StandardLabels...),
	}
	if len(c.DefaultCategories) > 0 {
		d.Category = c.DefaultCategories[0]
	}
	return d
}

type Form struct {
	defaults Defaults
	cleaner  Cleaner

	mu    sync.RWMutex
	draft models.Draft
}

func New(defaults Defaults, cleaner Cleaner) *Form {
	f := &Form{defaults: defaults, cleaner: cleaner}
	f.draft = f.blank()
	return f
}

func (f *Form) blank() models.Draft {
	return models.Draft{
		Category: f.defaults.Category,
		Labels:   append([]string{}, f.defaults.Labels...),
		WebURL:   f.defaults.WebURL,
		Status:   models.StatusDraft,
		Images:   []models.Image{},
	}
}

// Initialize replaces the draft with existing, or with a blank draft when
// existing is nil.
func (f *Form) Initialize(existing *models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing == nil {
		f.draft = f.blank()
		return
	}
	f.draft = models.DraftFrom(*existing)
}

func (f *Form) Reset() {
	f.Initialize(nil)
}

// SetField stores value as typed. Nothing is validated here.
func (f *Form) SetField(name, value string) error {
	set, ok := setters[name]
	if !ok {
		return errors.Wrap(ErrUnknownField, name)
	}
	f.mu.Lock()
	set(&f.draft, value)
	f.mu.Unlock()
	return nil
}

// SetFields applies every entry or none of them.
func (f *Form) SetFields(values map[string]string) error {
	for name := range values {
		if _, ok := setters[name]; !ok {
			return errors.Wrap(ErrUnknownField, name)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, value := range values {
		setters[name](&f.draft, value)
	}
	return nil
}

// ToggleLabel removes label when the draft has it and adds it otherwise.
// Only standard labels can be added.
func (f *Form) ToggleLabel(label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.draft.Labels {
		if l == label {
			f.draft.Labels = append(f.draft.Labels[:i], f.draft.Labels[i+1:]...)
			return nil
		}
	}
	if !f.standard(label) {
		return errors.Wrap(ErrUnknownLabel, label)
	}
	f.draft.Labels = append(f.draft.Labels, label)
	return nil
}

func (f *Form) standard(label string) bool {
	if len(f.defaults.StandardLabels) == 0 {
		return true
	}
	for _, l := range f.defaults.StandardLabels {
		if l == label {
			return true
		}
	}
	return false
}

func (f *Form) StandardLabels() []string {
	return append([]string{}, f.defaults.StandardLabels...)
}

// DerivedTags is recomputed from the tags text on every call.
func (f *Form) DerivedTags() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return models.SplitTags(f.draft.TagsText)
}

func (f *Form) AddPickedImages(images ...models.Image) {
	f.mu.Lock()
	f.draft.Images = append(f.draft.Images, images...)
	f.mu.Unlock()
}

// RemoveImage drops the image at index. A persisted image is also handed to
// the cleaner. Panics when index is out of range.
func (f *Form) RemoveImage(index int) {
	f.mu.Lock()
	if index < 0 || index >= len(f.draft.Images) {
		n := len(f.draft.Images)
		f.mu.Unlock()
		panic(fmt.Sprintf("form: image index %d out of range [0,%d)", index, n))
	}
	removed := f.draft.Images[index]
	f.draft.Images = append(f.draft.Images[:index:index], f.draft.Images[index+1:]...)
	f.mu.Unlock()

	if removed.StoragePath != "" && f.cleaner != nil {
		f.cleaner.Discard(removed.StoragePath)
	}
}

func (f *Form) ImageCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.draft.Images)
}

// Draft returns a copy the caller may keep.
func (f *Form) Draft() models.Draft {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.draft.Clone()
}

// Editing reports whether the draft targets an existing product.
func (f *Form) Editing() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.draft.ID != ""
}

var setters = map[string]func(d *models.Draft, v string){
	"title":             func(d *models.Draft, v string) { d.Title = v },
	"subtitle":          func(d *models.Draft, v string) { d.Subtitle = v },
	"description":       func(d *models.Draft, v string) { d.Description = v },
	"category":          func(d *models.Draft, v string) { d.Category = v },
	"tagsText":          func(d *models.Draft, v string) { d.TagsText = v },
	"priceZAR":          func(d *models.Draft, v string) { d.PriceZAR = v },
	"priceEUR":          func(d *models.Draft, v string) { d.PriceEUR = v },
	"compareAtPriceZAR": func(d *models.Draft, v string) { d.CompareAtPriceZAR = v },
	"compareAtPriceEUR": func(d *models.Draft, v string) { d.CompareAtPriceEUR = v },
	"sku":               func(d *models.Draft, v string) { d.SKU = v },
	"barcode":           func(d *models.Draft, v string) { d.Barcode = v },
	"stock":             func(d *models.Draft, v string) { d.Stock = v },
	"weight":            func(d *models.Draft, v string) { d.Weight = v },
	"dimensions.length": func(d *models.Draft, v string) { d.Dimensions.Length = v },
	"dimensions.width":  func(d *models.Draft, v string) { d.Dimensions.Width = v },
	"dimensions.height": func(d *models.Draft, v string) { d.Dimensions.Height = v },
	"materials":         func(d *models.Draft, v string) { d.Materials = v },
	"careInstructions":  func(d *models.Draft, v string) { d.CareInstructions = v },
	"fitNotes":          func(d *models.Draft, v string) { d.FitNotes = v },
	"sizeGuideUrl":      func(d *models.Draft, v string) { d.SizeGuideURL = v },
	"webUrl":            func(d *models.Draft, v string) { d.WebURL = v },
	"status":            func(d *models.Draft, v string) { d.Status = models.Status(v) },
}

// Fields lists the names SetField accepts.
func Fields() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	return names
}
