package model

import (
	"context"

	"github.com/substratehq/substrate/pkg/cache"
	"github.com/substratehq/substrate/pkg/query"
)

// Ref is a lazy typed reference to another record: an id plus the
// referenced type, no loaded data. Holding one costs nothing; nothing
// is fetched until a Resolve call asks for it.
type Ref[M any, PM Record[M]] struct {
	id int64
}

// NewRef wraps an id as a typed reference.
func NewRef[M any, PM Record[M]](id int64) Ref[M, PM] {
	return Ref[M, PM]{id: id}
}

// ID returns the referenced id without resolving it.
func (r Ref[M, PM]) ID() int64 {
	return r.id
}

// Resolve fetches the referenced record, ErrNotFound when the id
// dangles.
func (r Ref[M, PM]) Resolve(ctx context.Context, q query.Querier) (PM, error) {
	return ByID[M, PM](ctx, q, r.id)
}

// ResolveOptional collapses a dangling id to nil.
func (r Ref[M, PM]) ResolveOptional(ctx context.Context, q query.Querier) (PM, error) {
	return ByIDOptional[M, PM](ctx, q, r.id)
}

// ResolveCached is Resolve through the hybrid cache.
func (r Ref[M, PM]) ResolveCached(ctx context.Context, c *cache.Cache, q query.Querier) (PM, error) {
	return ByIDCached[M, PM](ctx, c, q, r.id)
}

// ResolveOptionalCached is ResolveOptional through the hybrid cache.
func (r Ref[M, PM]) ResolveOptionalCached(ctx context.Context, c *cache.Cache, q query.Querier) (PM, error) {
	return ByIDOptionalCached[M, PM](ctx, c, q, r.id)
}
