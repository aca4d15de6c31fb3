// Package store defines the remote document store contract the client core is
// built on: per-collection CRUD plus equality-filtered listing.
package store

import (
	"context"
	"fmt"
	"time"
)

// Collection names.
const (
	Requirements = "requirements"
	Tasks        = "tasks"
)

// Fields is a partial document keyed by wire field name.
type Fields = map[string]any

// Filter is a single field equality predicate.
type Filter struct {
	Field string
	Value any
}

// Eq builds a filter matching documents whose field equals value.
func Eq(field string, value any) *Filter {
	return &Filter{Field: field, Value: value}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s == %v", f.Field, f.Value)
}

// Document is implemented by every type stored in a collection.
type Document interface {
	GetID() string
	SetID(id string)
	GetVersion() int64
	SetVersion(v int64)
	GetCreatedAt() time.Time
	SetCreatedAt(t time.Time)
}

// Collection is the per-collection contract of the remote store.
type Collection[T any] interface {
	// Create stores doc and returns its server assigned id. Server assigned
	// fields (id, version, created_at) are written back into doc.
	Create(ctx context.Context, doc *T) (string, error)

	// Get returns the document, or nil when it does not exist.
	Get(ctx context.Context, id string) (*T, error)

	// List returns the documents matching filter, or all visible documents when filter is nil.
	List(ctx context.Context, filter *Filter) ([]T, error)

	// Update merges fields into the document and returns its new version.
	Update(ctx context.Context, id string, fields Fields, opts ...UpdateOption) (int64, error)

	// Delete removes the document.
	Delete(ctx context.Context, id string) error
}

// UpdateOptions holds the preconditions of an update.
type UpdateOptions struct {
	IfVersion int64
}

type UpdateOption func(*UpdateOptions)

// IfVersion makes the update fail with ErrConflict unless the stored version equals v.
func IfVersion(v int64) UpdateOption {
	return func(o *UpdateOptions) {
		o.IfVersion = v
	}
}

// ApplyUpdateOptions folds opts into an UpdateOptions value.
func ApplyUpdateOptions(opts ...UpdateOption) UpdateOptions {
	var o UpdateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
