// Package catalog reads and writes product documents and keeps live views
// of the catalog for the storefront and the admin console.
package catalog

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/andrescris/shopfront/pkg/models"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrStreamStopped = errors.New("catalog stream stopped")
)

// Query selects the products a stream delivers. Results are always ordered
// by updatedAt, newest first.
type Query struct {
	PublishedOnly bool
}

var (
	StorefrontQuery = Query{PublishedOnly: true}
	AdminQuery      = Query{}
)

// Write is a product payload plus the identity that performs it.
// Timestamps are assigned by the store.
type Write struct {
	Product models.Product
	Actor   string
}

// Stream delivers the full result set of a query each time it changes.
type Stream interface {
	// Next blocks until a new snapshot is available.
	Next(ctx context.Context) ([]models.Product, error)
	Stop()
}

type Store interface {
	Watch(ctx context.Context, q Query) (Stream, error)
	Get(ctx context.Context, id string) (models.Product, error)
	// Create returns the id assigned to the new document.
	Create(ctx context.Context, w Write) (string, error)
	// Update merges w into the document id. A missing id is ErrNotFound.
	Update(ctx context.Context, id string, w Write) error
}

// PersistenceError is a failed create or update.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s product: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s product %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
