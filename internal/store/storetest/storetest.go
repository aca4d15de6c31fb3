// Package storetest provides collections for tests: gorm-backed collections
// over in-memory sqlite, and a wrapper that counts calls and injects failures.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/store"
	"github.com/yukikurage/consultant-worklog/internal/store/gormstore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Operation names accepted by FailNext and Calls.
const (
	OpCreate = "create"
	OpGet    = "get"
	OpList   = "list"
	OpUpdate = "update"
	OpDelete = "delete"
)

// OpenSQLite opens a migrated in-memory database closed at the end of the test.
func OpenSQLite(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(tb, err)

	sqlDB, err := db.DB()
	require.NoError(tb, err)
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(tb, db.AutoMigrate(&models.User{}, &models.Requirement{}, &models.Task{}))
	return db
}

// Collections returns wrapped requirement and task collections sharing one database.
func Collections(tb testing.TB) (*Collection[models.Requirement], *Collection[models.Task]) {
	tb.Helper()

	db := OpenSQLite(tb)
	reqs, err := gormstore.New[models.Requirement](db, store.Requirements)
	require.NoError(tb, err)
	tasks, err := gormstore.New[models.Task](db, store.Tasks)
	require.NoError(tb, err)
	return Wrap[models.Requirement](reqs), Wrap[models.Task](tasks)
}

// Collection decorates a store.Collection with call counting and queued failures.
type Collection[T any] struct {
	inner store.Collection[T]

	mu       sync.Mutex
	calls    map[string]int
	failures map[string][]error
}

var _ store.Collection[models.Task] = (*Collection[models.Task])(nil)

func Wrap[T any](inner store.Collection[T]) *Collection[T] {
	return &Collection[T]{
		inner:    inner,
		calls:    make(map[string]int),
		failures: make(map[string][]error),
	}
}

// FailNext queues errs to be returned, in order, by the next calls of op.
func (c *Collection[T]) FailNext(op string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = append(c.failures[op], errs...)
}

// Calls returns how many times op was invoked.
func (c *Collection[T]) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// TotalCalls returns the number of invocations across all operations.
func (c *Collection[T]) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func (c *Collection[T]) record(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
	queue := c.failures[op]
	if len(queue) == 0 {
		return nil
	}
	c.failures[op] = queue[1:]
	return queue[0]
}

func (c *Collection[T]) Create(ctx context.Context, doc *T) (string, error) {
	if err := c.record(OpCreate); err != nil {
		return "", err
	}
	return c.inner.Create(ctx, doc)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := c.record(OpGet); err != nil {
		return nil, err
	}
	return c.inner.Get(ctx, id)
}

func (c *Collection[T]) List(ctx context.Context, filter *store.Filter) ([]T, error) {
	if err := c.record(OpList); err != nil {
		return nil, err
	}
	return c.inner.List(ctx, filter)
}

func (c *Collection[T]) Update(ctx context.Context, id string, fields store.Fields, opts ...store.UpdateOption) (int64, error) {
	if err := c.record(OpUpdate); err != nil {
		return 0, err
	}
	return c.inner.Update(ctx, id, fields, opts...)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.record(OpDelete); err != nil {
		return err
	}
	return c.inner.Delete(ctx, id)
}

// Unavailable returns a transient failure for collection.
func Unavailable(collection string) error {
	return store.NewError(store.KindUnavailable, "test", collection, "", nil)
}

// PermissionDenied returns a terminal permission failure for collection.
func PermissionDenied(collection string) error {
	return store.NewError(store.KindPermissionDenied, "test", collection, "", nil)
}
