// Package repository binds one record type to its database manager
// and hybrid cache, so entity modules call methods instead of
// threading both through every read and write. Writes delegate to the
// lifecycle orchestrators and then invalidate what the write made
// stale. With a nil cache a repository runs in database-only mode:
// reads go straight to the engine and writes skip invalidation.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/substratehq/substrate/pkg/cache"
	"github.com/substratehq/substrate/pkg/db"
	"github.com/substratehq/substrate/pkg/model"
	"github.com/substratehq/substrate/pkg/query"
)

// Repository is the bound accessor for one record type.
type Repository[M any, PM model.Record[M]] struct {
	manager *db.Manager
	cache   *cache.Cache
}

// New binds a record type to a database manager and cache. A nil
// cache selects database-only mode.
func New[M any, PM model.Record[M]](manager *db.Manager, c *cache.Cache) (*Repository[M, PM], error) {
	if manager == nil {
		return nil, fmt.Errorf("repository: database manager is required")
	}
	return &Repository[M, PM]{manager: manager, cache: c}, nil
}

// ByID fetches one record by primary key, through the cache when one
// is bound. model.ErrNotFound when absent.
func (r *Repository[M, PM]) ByID(ctx context.Context, id int64) (PM, error) {
	if r.cache == nil {
		return model.ByID[M, PM](ctx, r.manager, id)
	}
	return model.ByIDCached[M, PM](ctx, r.cache, r.manager, id)
}

// ByIDOptional collapses the missing-row case to nil.
func (r *Repository[M, PM]) ByIDOptional(ctx context.Context, id int64) (PM, error) {
	if r.cache == nil {
		return model.ByIDOptional[M, PM](ctx, r.manager, id)
	}
	return model.ByIDOptionalCached[M, PM](ctx, r.cache, r.manager, id)
}

// Exists reports whether a row with id exists. Always uncached:
// callers use it to validate references right before a write.
func (r *Repository[M, PM]) Exists(ctx context.Context, id int64) (bool, error) {
	return model.Exists[M, PM](ctx, r.manager, id)
}

// Count returns the number of rows in the record's table.
func (r *Repository[M, PM]) Count(ctx context.Context) (int64, error) {
	stmt := fmt.Sprintf("SELECT count(*) FROM %s", model.TableOf[M, PM]())

	var n int64
	if err := r.manager.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", model.TableOf[M, PM](), err)
	}
	return n, nil
}

// Ref wraps an id as a lazy typed reference to this repository's
// record type.
func (r *Repository[M, PM]) Ref(id int64) model.Ref[M, PM] {
	return model.NewRef[M, PM](id)
}

// Query runs a read statement and decodes every row.
func (r *Repository[M, PM]) Query(ctx context.Context, stmt string, args ...interface{}) ([]M, error) {
	return model.Query[M, PM](ctx, r.manager, stmt, args...)
}

// QueryCached is Query through the cache for the given TTL. Without a
// bound cache it degrades to a direct read.
func (r *Repository[M, PM]) QueryCached(ctx context.Context, ttl time.Duration, stmt string, args ...interface{}) ([]M, error) {
	if r.cache == nil {
		return model.Query[M, PM](ctx, r.manager, stmt, args...)
	}
	return model.QueryCached[M, PM](ctx, r.cache, r.manager, ttl, stmt, args...)
}

// Create inserts a new record through the lifecycle orchestrator. The
// whole type namespace is invalidated afterwards: the new id is not
// known up front, and a cached absent probe for it must not outlive
// the insert.
func (r *Repository[M, PM]) Create(ctx context.Context, apply func(b *query.InsertBuilder) error) (PM, error) {
	record, err := model.Create[M, PM](ctx, r.manager, apply)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		// Best effort: the read TTL bounds staleness if the shared
		// layer is unreachable.
		_ = model.InvalidateAll[M, PM](ctx, r.cache)
	}
	return record, nil
}

// Update modifies one record by id through the lifecycle orchestrator
// and invalidates its cached row plus the type's cached query
// results.
func (r *Repository[M, PM]) Update(ctx context.Context, id int64, apply func(b *query.UpdateBuilder) error) (PM, error) {
	record, err := model.Update[M, PM](ctx, r.manager, id, apply)
	if err != nil {
		return nil, err
	}
	r.invalidateRow(ctx, id)
	return record, nil
}

// Delete removes one record by id through the lifecycle orchestrator
// and invalidates its cached row plus the type's cached query
// results.
func (r *Repository[M, PM]) Delete(ctx context.Context, id int64) error {
	if err := model.Delete[M, PM](ctx, r.manager, id); err != nil {
		return err
	}
	r.invalidateRow(ctx, id)
	return nil
}

// InvalidateAll drops every cached row and cached query result for
// the record type.
func (r *Repository[M, PM]) InvalidateAll(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return model.InvalidateAll[M, PM](ctx, r.cache)
}

func (r *Repository[M, PM]) invalidateRow(ctx context.Context, id int64) {
	if r.cache == nil {
		return
	}
	// Best effort: the read TTL bounds staleness if the shared layer
	// is unreachable.
	_ = model.Invalidate[M, PM](ctx, r.cache, id)
	_ = model.InvalidateQueries[M, PM](ctx, r.cache)
}
