package assets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andrescris/shopfront/pkg/logger"
	"github.com/andrescris/shopfront/pkg/models"
)

const (
	DefaultPrefix = "products/"
	defaultName   = "asset"
)

// UploadError aborts a save: one image in the batch could not be stored.
type UploadError struct {
	Index int
	URI   string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload image %d (%s): %v", e.Index, e.URI, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

type Options struct {
	// Prefix namespaces every uploaded object, "products/" by default.
	Prefix string
	// Brand is the alt text used when the product has no title.
	Brand string
}

// Pipeline turns local pending images into persisted references.
type Pipeline struct {
	store  Store
	source Source
	opts   Options
	log    *zap.Logger

	newID func() (string, error)
	now   func() time.Time
}

func NewPipeline(store Store, source Source, opts Options, log *zap.Logger) *Pipeline {
	if source == nil {
		source = FileSource{}
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	return &Pipeline{
		store:  store,
		source: source,
		opts:   opts,
		log:    logger.OrNop(log),
		newID: func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
		now: time.Now,
	}
}

// Resolve uploads img unless it is already persisted, in which case it is
// returned untouched.
func (p *Pipeline) Resolve(ctx context.Context, img models.Image, title string) (models.Image, error) {
	if img.Persisted() {
		return img, nil
	}
	if img.URI == "" {
		return models.Image{}, errors.New("image has neither url nor local uri")
	}

	r, err := p.source.Open(img.URI)
	if err != nil {
		return models.Image{}, err
	}
	defer r.Close()

	storagePath := p.opts.Prefix + p.fileName(img)
	if err := p.store.Put(ctx, storagePath, r); err != nil {
		return models.Image{}, err
	}
	url, err := p.store.URL(ctx, storagePath)
	if err != nil {
		return models.Image{}, err
	}
	p.log.Debug("image uploaded", zap.String("uri", img.URI), zap.String("path", storagePath))

	return models.Image{URL: url, StoragePath: storagePath, Alt: p.altText(img, title)}, nil
}

// ResolveAll uploads every pending image concurrently. The result keeps the
// input order. Any single failure fails the whole batch and no partial result
// is returned.
func (p *Pipeline) ResolveAll(ctx context.Context, images []models.Image, title string) ([]models.Image, error) {
	out := make([]models.Image, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			resolved, err := p.Resolve(gctx, img, title)
			if err != nil {
				return &UploadError{Index: i, URI: img.URI, Err: err}
			}
			out[i] = resolved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) fileName(img models.Image) string {
	id, err := p.newID()
	if err != nil {
		id = strconv.FormatInt(p.now().UnixMilli(), 10)
	}
	name := strings.ReplaceAll(strings.TrimSpace(img.Name), "/", "_")
	if name == "" {
		name = defaultName
	}
	return id + "-" + name
}

func (p *Pipeline) altText(img models.Image, title string) string {
	if img.Alt != "" {
		return img.Alt
	}
	if title != "" {
		return title
	}
	return p.opts.Brand
}
