package model

import (
	"context"
	"time"

	"github.com/substratehq/substrate/pkg/cache"
	"github.com/substratehq/substrate/pkg/query"
)

// Query runs a read statement and decodes every row into records. The
// statement's select list must match the order Columns declares.
func Query[M any, PM Record[M]](ctx context.Context, q query.Querier, stmt string, args ...interface{}) ([]M, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []M
	for rows.Next() {
		record := PM(new(M))
		if err := record.ScanRow(rows); err != nil {
			return nil, &DecodeError{Table: record.Table(), err: err}
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// QueryCached is Query through the hybrid cache, keyed by a digest of
// the statement and its arguments under the record type's namespace,
// so InvalidateAll sweeps cached list reads along with cached rows.
func QueryCached[M any, PM Record[M]](ctx context.Context, c *cache.Cache, q query.Querier, ttl time.Duration, stmt string, args ...interface{}) ([]M, error) {
	parts := make([]interface{}, 0, len(args)+1)
	parts = append(parts, stmt)
	parts = append(parts, args...)
	key := cache.DeriveKey(TableOf[M, PM]()+"::q", parts...)

	return cache.Cached(ctx, c, key, ttl, func(ctx context.Context) ([]M, error) {
		return Query[M, PM](ctx, q, stmt, args...)
	})
}

// InvalidateQueries drops every cached query result in the record
// type's namespace, leaving cached rows in place. Write paths call it
// when they know which row changed and have already invalidated it.
func InvalidateQueries[M any, PM Record[M]](ctx context.Context, c *cache.Cache) error {
	return c.InvalidatePrefix(ctx, TableOf[M, PM]()+"::q::")
}
