// Package gormstore implements store.Collection on top of GORM.
package gormstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/yukikurage/consultant-worklog/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// immutableFields are never taken from an update payload.
var immutableFields = []string{"id", "version"}

// Collection stores documents of type T in the table GORM derives for T.
type Collection[T any, PT interface {
	*T
	store.Document
}] struct {
	db     *gorm.DB
	name   string
	schema *schema.Schema
}

// New returns the collection called name backed by db.
func New[T any, PT interface {
	*T
	store.Document
}](db *gorm.DB, name string) (*Collection[T, PT], error) {
	s, err := schema.Parse(new(T), &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema for %s: %w", name, err)
	}
	return &Collection[T, PT]{db: db, name: name, schema: s}, nil
}

// Name returns the collection name.
func (c *Collection[T, PT]) Name() string {
	return c.name
}

func (c *Collection[T, PT]) Create(ctx context.Context, doc *T) (string, error) {
	d := PT(doc)
	if d.GetID() == "" {
		d.SetID(uuid.NewString())
	}
	d.SetVersion(1)
	if err := c.db.WithContext(ctx).Create(doc).Error; err != nil {
		return "", c.translate("create", d.GetID(), err)
	}
	return d.GetID(), nil
}

func (c *Collection[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	var doc T
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, c.translate("get", id, err)
	}
	return &doc, nil
}

func (c *Collection[T, PT]) List(ctx context.Context, filter *store.Filter) ([]T, error) {
	query := c.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		field := c.schema.LookUpField(filter.Field)
		if field == nil || field.DBName == "" {
			return nil, store.NewError(store.KindInvalidArgument, "list", c.name, "",
				fmt.Errorf("%w: unknown field %q", store.ErrInvalidArgument, filter.Field))
		}
		query = query.Where(clause.Eq{Column: clause.Column{Name: field.DBName}, Value: filter.Value})
	}

	docs := []T{}
	if err := query.Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, c.translate("list", "", err)
	}
	return docs, nil
}

// Update merges fields into the stored document inside a transaction and bumps
// its version. With store.IfVersion the write fails with store.ErrConflict when
// the stored version differs.
func (c *Collection[T, PT]) Update(ctx context.Context, id string, fields store.Fields, opts ...store.UpdateOption) (int64, error) {
	o := store.ApplyUpdateOptions(opts...)

	var next int64
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc T
		if err := tx.Where("id = ?", id).First(&doc).Error; err != nil {
			return err
		}
		d := PT(&doc)
		current := d.GetVersion()
		if o.IfVersion != 0 && o.IfVersion != current {
			return store.NewError(store.KindConflict, "update", c.name, id,
				fmt.Errorf("%w: expected version %d, found %d", store.ErrConflict, o.IfVersion, current))
		}

		if err := merge(&doc, fields); err != nil {
			return store.NewError(store.KindInvalidArgument, "update", c.name, id,
				fmt.Errorf("%w: %v", store.ErrInvalidArgument, err))
		}
		d.SetID(id)
		d.SetVersion(current + 1)

		result := tx.Model(&doc).Where("version = ?", current).Select("*").Updates(&doc)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.NewError(store.KindConflict, "update", c.name, id, nil)
		}
		next = current + 1
		return nil
	})
	if err != nil {
		return 0, c.translate("update", id, err)
	}
	return next, nil
}

func (c *Collection[T, PT]) Delete(ctx context.Context, id string) error {
	result := c.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if result.Error != nil {
		return c.translate("delete", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return store.NewError(store.KindNotFound, "delete", c.name, id, nil)
	}
	return nil
}

// merge overlays the wire fields onto doc using the document's JSON mapping.
func merge(doc any, fields store.Fields) error {
	patch := make(store.Fields, len(fields))
	for k, v := range fields {
		patch[k] = v
	}
	for _, k := range immutableFields {
		delete(patch, k)
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return fmt.Errorf("failed to apply fields: %w", err)
	}
	return nil
}

// translate maps driver and GORM failures onto the store error taxonomy.
func (c *Collection[T, PT]) translate(op, id string, err error) error {
	var se *store.Error
	if errors.As(err, &se) {
		return se
	}

	var netErr net.Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.NewError(store.KindNotFound, op, c.name, id, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.NewError(store.KindConflict, op, c.name, id, err)
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		return store.NewError(store.KindUnavailable, op, c.name, id, err)
	default:
		return store.NewError(store.KindUnknown, op, c.name, id, err)
	}
}
