// Package assets moves product images from local staging into the asset
// store and cleans up objects that are no longer referenced.
package assets

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Store is the binary object store holding product images.
type Store interface {
	Put(ctx context.Context, path string, r io.Reader) error
	// URL returns a durable, fetchable URL for an object already stored.
	URL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// Source opens the bytes behind a local pending image URI.
type Source interface {
	Open(uri string) (io.ReadCloser, error)
}

// FileSource reads file:// URIs and bare paths from the local filesystem.
type FileSource struct{}

func (FileSource) Open(uri string) (io.ReadCloser, error) {
	path := uri
	if strings.HasPrefix(uri, "file://") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, errors.Wrapf(err, "parse image uri %q", uri)
		}
		path = u.Path
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open image %q", uri)
	}
	return f, nil
}

var ErrObjectNotFound = errors.New("asset not found")

// MemoryStore keeps objects in process. URLs point at BaseURL, which the
// HTTP server maps back to Get.
type MemoryStore struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: strings.TrimSuffix(baseURL, "/"), objects: map[string][]byte{}}
}

func (m *MemoryStore) Put(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	m.mu.Lock()
	m.objects[path] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) URL(ctx context.Context, path string) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return "", errors.Wrap(ErrObjectNotFound, path)
	}
	return m.BaseURL + "/" + path, nil
}

func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return errors.Wrap(ErrObjectNotFound, path)
	}
	delete(m.objects, path)
	return nil
}

func (m *MemoryStore) Get(path string) (io.Reader, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, false
	}
	return bytes.NewReader(data), true
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
