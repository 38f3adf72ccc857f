// Package model is the contract layer entity modules build on. A
// record type declares its table, its column mapping, and a row
// decoder; in return it gets identity lookup (plain and cached), lazy
// typed references, cached list reads, and generic create/update/
// delete orchestration that runs the type's lifecycle hooks inside
// one transaction with the module's own writes.
package model

import (
	"fmt"
	"strings"
)

// Row is the scan surface a decoder reads from. Both *sql.Row and
// *sql.Rows satisfy it.
type Row interface {
	Scan(dest ...interface{}) error
}

// Column pairs a physical column with the alias it scans under when
// the type is embedded in a wider join.
type Column struct {
	Name  string
	Alias string
}

// Model declares a record type's table identity and column mapping.
// The table name is stable: it doubles as the type's cache-key
// namespace, so renaming it orphans cached entries.
type Model interface {
	// Table returns the physical table name.
	Table() string

	// Columns returns the type's columns, qualified under prefix when
	// the type is selected as part of a join.
	Columns(prefix string) []Column
}

// Scanner decodes one row into the receiver, in the order Columns
// declares.
type Scanner interface {
	ScanRow(r Row) error
}

// Record ties a model type to its pointer side: *M carries the
// contract and the decoder.
type Record[M any] interface {
	*M
	Model
	Scanner
}

// Cols builds a column list for a type whose columns scan under their
// own names. With a prefix, column "id" becomes "p.id" aliased
// "p_id", so two embedded types never collide in one row.
func Cols(prefix string, names ...string) []Column {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		if prefix == "" {
			cols = append(cols, Column{Name: name, Alias: name})
			continue
		}
		cols = append(cols, Column{
			Name:  prefix + "." + name,
			Alias: prefix + "_" + name,
		})
	}
	return cols
}

// TableOf returns the table a record type declares.
func TableOf[M any, PM Record[M]]() string {
	var m M
	return PM(&m).Table()
}

// columnList renders a SELECT list from a column mapping.
func columnList(cols []Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		if c.Alias == "" || c.Alias == c.Name {
			parts[i] = c.Name
		} else {
			parts[i] = fmt.Sprintf("%s AS %s", c.Name, c.Alias)
		}
	}
	return strings.Join(parts, ", ")
}

// columnNames extracts the physical names for a RETURNING clause.
func columnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
