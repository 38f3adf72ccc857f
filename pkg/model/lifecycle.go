package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/substratehq/substrate/pkg/db"
	"github.com/substratehq/substrate/pkg/hooks"
	"github.com/substratehq/substrate/pkg/query"
)

// CreateEvent is what create hooks receive: the open transaction and
// the in-flight insert builder. A hook may stage its own columns
// (first write wins against the module's later ones), run reads and
// writes on the same transaction, or fail the whole operation.
type CreateEvent struct {
	Tx      *db.Tx
	Builder *query.InsertBuilder
}

// UpdateEvent is what update hooks receive.
type UpdateEvent struct {
	Tx      *db.Tx
	Builder *query.UpdateBuilder
	ID      int64
}

// DeleteEvent is what delete hooks receive. The row still exists while
// delete hooks run, so they can read it or reparent dependents on the
// same transaction.
type DeleteEvent struct {
	Tx *db.Tx
	ID int64
}

// Per-type hook registries, created lazily on first access. One lock
// guards all three maps, and racing first accesses settle on a single
// shared registry.
var (
	registryMu       sync.RWMutex
	createRegistries = map[reflect.Type]*hooks.Registry[CreateEvent]{}
	updateRegistries = map[reflect.Type]*hooks.Registry[UpdateEvent]{}
	deleteRegistries = map[reflect.Type]*hooks.Registry[DeleteEvent]{}
)

func typeKey[M any]() reflect.Type {
	return reflect.TypeOf((*M)(nil)).Elem()
}

func registryFor[A any](registries map[reflect.Type]*hooks.Registry[A], key reflect.Type) *hooks.Registry[A] {
	registryMu.RLock()
	reg, ok := registries[key]
	registryMu.RUnlock()
	if ok {
		return reg
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if reg, ok := registries[key]; ok {
		return reg
	}
	reg = hooks.NewRegistry[A]()
	registries[key] = reg
	return reg
}

// OnCreate attaches fn to every create of the record type, letting a
// module hook another module's lifecycle without that module knowing
// about it. Deregister the returned handle to detach.
func OnCreate[M any](p hooks.Priority, fn hooks.Callback[CreateEvent]) hooks.Handle {
	return registryFor(createRegistries, typeKey[M]()).Register(p, fn)
}

// OnUpdate attaches fn to every update of the record type.
func OnUpdate[M any](p hooks.Priority, fn hooks.Callback[UpdateEvent]) hooks.Handle {
	return registryFor(updateRegistries, typeKey[M]()).Register(p, fn)
}

// OnDelete attaches fn to every delete of the record type.
func OnDelete[M any](p hooks.Priority, fn hooks.Callback[DeleteEvent]) hooks.Handle {
	return registryFor(deleteRegistries, typeKey[M]()).Register(p, fn)
}

// Create inserts a new record: it opens a transaction, runs the
// type's create hooks in priority order, lets apply stage the
// module's own columns, executes the insert, and decodes the stored
// row from RETURNING. Any hook, apply, or execution failure rolls the
// whole transaction back.
func Create[M any, PM Record[M]](ctx context.Context, manager *db.Manager, apply func(b *query.InsertBuilder) error) (PM, error) {
	record := PM(new(M))
	builder := query.NewInsert(record.Table())

	err := manager.Transaction(ctx, func(tx *db.Tx) error {
		if err := registryFor(createRegistries, typeKey[M]()).Run(ctx, CreateEvent{Tx: tx, Builder: builder}); err != nil {
			return err
		}
		if err := apply(builder); err != nil {
			return err
		}

		builder.Returning(columnNames(record.Columns(""))...)
		row, err := builder.QueryRow(ctx, tx)
		if err != nil {
			return err
		}
		return scanReturned(record.Table(), record, row)
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", record.Table(), err)
	}
	return record, nil
}

// Update modifies one record by id with the same envelope as Create:
// transaction, hooks, module writes, execute, RETURNING decode. It
// fails with ErrNotFound when the id matches no row and with
// query.ErrNoFieldsSet when neither hooks nor apply staged a field.
func Update[M any, PM Record[M]](ctx context.Context, manager *db.Manager, id int64, apply func(b *query.UpdateBuilder) error) (PM, error) {
	record := PM(new(M))
	builder := query.NewUpdate(record.Table())
	builder.WhereEq("id", id)

	err := manager.Transaction(ctx, func(tx *db.Tx) error {
		if err := registryFor(updateRegistries, typeKey[M]()).Run(ctx, UpdateEvent{Tx: tx, Builder: builder, ID: id}); err != nil {
			return err
		}
		if err := apply(builder); err != nil {
			return err
		}

		builder.Returning(columnNames(record.Columns(""))...)
		row, err := builder.QueryRow(ctx, tx)
		if err != nil {
			return err
		}
		return scanReturned(record.Table(), record, row)
	})
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", record.Table(), id, err)
	}
	return record, nil
}

// Delete removes one record by id inside the same envelope: delete
// hooks run first on the open transaction, then the row goes.
// ErrNotFound when the id matches no row.
func Delete[M any, PM Record[M]](ctx context.Context, manager *db.Manager, id int64) error {
	table := TableOf[M, PM]()

	err := manager.Transaction(ctx, func(tx *db.Tx) error {
		if err := registryFor(deleteRegistries, typeKey[M]()).Run(ctx, DeleteEvent{Tx: tx, ID: id}); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	return nil
}

// scanReturned decodes a RETURNING row. Execution errors surface here
// rather than at statement time, so constraint classification happens
// on the scan error.
func scanReturned(table string, s Scanner, row *sql.Row) error {
	err := s.ScanRow(row)
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if classified := db.Classify(err); db.IsConstraint(classified) {
		return classified
	}
	return &DecodeError{Table: table, err: err}
}
