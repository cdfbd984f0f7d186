package assets

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/andrescris/shopfront/pkg/logger"
)

const deleteTimeout = 30 * time.Second

// Janitor deletes objects that are no longer referenced. Deletes run on a
// bounded pool and their failures are only logged.
type Janitor struct {
	store Store
	pool  *ants.Pool
	log   *zap.Logger
	wg    sync.WaitGroup
}

func NewJanitor(store Store, workers int, log *zap.Logger) (*Janitor, error) {
	log = logger.OrNop(log)
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v interface{}) {
		log.Error("asset cleanup panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, err
	}
	return &Janitor{store: store, pool: pool, log: log}, nil
}

// Discard schedules path for deletion and returns immediately.
func (j *Janitor) Discard(path string) {
	if path == "" {
		return
	}
	j.wg.Add(1)
	err := j.pool.Submit(func() {
		defer j.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()
		if err := j.store.Delete(ctx, path); err != nil {
			j.log.Debug("asset cleanup failed", zap.String("path", path), zap.Error(err))
		}
	})
	if err != nil {
		j.wg.Done()
		j.log.Debug("asset cleanup not scheduled", zap.String("path", path), zap.Error(err))
	}
}

// Wait blocks until every scheduled delete has finished.
func (j *Janitor) Wait() {
	j.wg.Wait()
}

func (j *Janitor) Release() {
	j.Wait()
	j.pool.Release()
}
