package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/substratehq/substrate/pkg/cache"
	"github.com/substratehq/substrate/pkg/query"
)

// DefaultByIDTTL bounds how stale a cached identity read may be.
// Write paths invalidate eagerly; the TTL only caps the window for
// writes this process never saw.
const DefaultByIDTTL = 10 * time.Second

// CacheKey returns the cache key holding one record's row.
func CacheKey[M any, PM Record[M]](id int64) string {
	return fmt.Sprintf("%s::%d", TableOf[M, PM](), id)
}

// ByID fetches one record by primary key, ErrNotFound when absent.
func ByID[M any, PM Record[M]](ctx context.Context, q query.Querier, id int64) (PM, error) {
	record := PM(new(M))
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1",
		columnList(record.Columns("")), record.Table())

	if err := record.ScanRow(q.QueryRowContext(ctx, stmt, id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &DecodeError{Table: record.Table(), err: err}
	}
	return record, nil
}

// ByIDOptional collapses the missing-row case to nil.
func ByIDOptional[M any, PM Record[M]](ctx context.Context, q query.Querier, id int64) (PM, error) {
	record, err := ByID[M, PM](ctx, q, id)
	if IsNotFound(err) {
		return nil, nil
	}
	return record, err
}

// optionalRow is the cached envelope for identity reads. Present and
// absent rows share one representation so the plain and optional
// cached variants read the same key, and absence is itself cached for
// the TTL.
type optionalRow[M any] struct {
	Present bool `msgpack:"present"`
	Value   M    `msgpack:"value"`
}

func cachedRow[M any, PM Record[M]](ctx context.Context, c *cache.Cache, q query.Querier, id int64) (optionalRow[M], error) {
	return cache.Cached(ctx, c, CacheKey[M, PM](id), DefaultByIDTTL,
		func(ctx context.Context) (optionalRow[M], error) {
			record, err := ByIDOptional[M, PM](ctx, q, id)
			if err != nil {
				return optionalRow[M]{}, err
			}
			if record == nil {
				return optionalRow[M]{}, nil
			}
			return optionalRow[M]{Present: true, Value: *record}, nil
		})
}

// ByIDCached is ByID through the hybrid cache with DefaultByIDTTL.
// Absence is cached too: a record created elsewhere can stay invisible
// to this lookup until the entry expires or a write invalidates it.
func ByIDCached[M any, PM Record[M]](ctx context.Context, c *cache.Cache, q query.Querier, id int64) (PM, error) {
	row, err := cachedRow[M, PM](ctx, c, q, id)
	if err != nil {
		return nil, err
	}
	if !row.Present {
		return nil, ErrNotFound
	}
	return &row.Value, nil
}

// ByIDOptionalCached is ByIDOptional through the hybrid cache.
func ByIDOptionalCached[M any, PM Record[M]](ctx context.Context, c *cache.Cache, q query.Querier, id int64) (PM, error) {
	row, err := cachedRow[M, PM](ctx, c, q, id)
	if err != nil {
		return nil, err
	}
	if !row.Present {
		return nil, nil
	}
	return &row.Value, nil
}

// Exists reports whether a row with id exists in the record's table.
// Entity modules use it to verify referenced ids before a write.
func Exists[M any, PM Record[M]](ctx context.Context, q query.Querier, id int64) (bool, error) {
	stmt := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", TableOf[M, PM]())

	var exists bool
	if err := q.QueryRowContext(ctx, stmt, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Invalidate drops one record's cached row, typically right after a
// write commits.
func Invalidate[M any, PM Record[M]](ctx context.Context, c *cache.Cache, id int64) error {
	return c.Invalidate(ctx, CacheKey[M, PM](id))
}

// InvalidateAll drops every cached row and cached query result in the
// record type's namespace.
func InvalidateAll[M any, PM Record[M]](ctx context.Context, c *cache.Cache) error {
	return c.InvalidatePrefix(ctx, TableOf[M, PM]()+"::")
}
