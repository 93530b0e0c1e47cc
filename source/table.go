// Package source provides the tabular sources vocabularies are built from.
//
// A Source exposes named tables. Each table has a header of (field, language)
// columns parsed from "field" or "field@lang" header cells, and a forward-only
// row cursor:
//
//	tbl, err := src.Open(ctx, "schemes")
//	if errors.Is(err, source.ErrTableNotFound) {
//	    // stage skipped
//	}
//	defer tbl.Close()
//	for tbl.Next() {
//	    row := tbl.Row()
//	    id := row.Text("id")
//	}
//	if err := tbl.Err(); err != nil { ... }
package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors.
var (
	// ErrTableNotFound is returned by Open when the source has no such table.
	ErrTableNotFound = errors.New("source: table not found")

	// ErrInvalidTable is returned when a table exists but cannot be read as a
	// table (no header, missing required columns).
	ErrInvalidTable = errors.New("source: invalid table")
)

// DefaultSeparator joins multiple values inside one cell.
const DefaultSeparator = ","

// Source is a collection of named tables.
type Source interface {
	// Open returns a cursor over the named table. Returns ErrTableNotFound
	// if the table does not exist.
	Open(ctx context.Context, name string) (Table, error)

	// Tables lists the table names in a stable order.
	Tables(ctx context.Context) ([]string, error)
}

// Table is a forward-only cursor over the rows of one table.
type Table interface {
	Name() string
	Header() Header
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// Column is one header cell: a field name and an optional language tag.
type Column struct {
	Field    string
	Language string
}

// ParseColumn splits a header cell of the form "field" or "field@lang".
func ParseColumn(cell string) Column {
	cell = strings.TrimSpace(cell)
	if i := strings.LastIndex(cell, "@"); i > 0 && i < len(cell)-1 {
		return Column{Field: cell[:i], Language: cell[i+1:]}
	}
	return Column{Field: cell}
}

// String renders the column back into header form.
func (c Column) String() string {
	if c.Language == "" {
		return c.Field
	}
	return c.Field + "@" + c.Language
}

// Header is the ordered list of columns of a table.
type Header []Column

// ParseHeader parses raw header cells.
func ParseHeader(cells []string) Header {
	h := make(Header, len(cells))
	for i, c := range cells {
		h[i] = ParseColumn(c)
	}
	return h
}

// Has reports whether any column carries the field.
func (h Header) Has(field string) bool {
	for _, c := range h {
		if c.Field == field {
			return true
		}
	}
	return false
}

// Require returns ErrInvalidTable naming the first missing field.
func (h Header) Require(fields ...string) error {
	for _, f := range fields {
		if !h.Has(f) {
			return fmt.Errorf("%w: missing column %q", ErrInvalidTable, f)
		}
	}
	return nil
}

// Fields returns the distinct field names in header order.
func (h Header) Fields() []string {
	seen := make(map[string]bool, len(h))
	out := make([]string, 0, len(h))
	for _, c := range h {
		if !seen[c.Field] {
			seen[c.Field] = true
			out = append(out, c.Field)
		}
	}
	return out
}

// Languages returns the language tags declared for field, in header order.
// An untagged column contributes "".
func (h Header) Languages(field string) []string {
	var out []string
	for _, c := range h {
		if c.Field == field {
			out = append(out, c.Language)
		}
	}
	return out
}

// Row is one record of a table, keyed by column.
type Row struct {
	number    int
	header    Header
	cells     map[Column]string
	separator string
}

// NewRow builds a row from positional values. Missing trailing values are
// treated as empty; extra values are ignored.
func NewRow(header Header, values []string, number int, separator string) Row {
	if separator == "" {
		separator = DefaultSeparator
	}
	cells := make(map[Column]string, len(header))
	for i, c := range header {
		if i < len(values) {
			cells[c] = values[i]
		}
	}
	return Row{number: number, header: header, cells: cells, separator: separator}
}

// Number is the 1-based data row number (header excluded).
func (r Row) Number() int { return r.number }

// Header returns the header the row was read with.
func (r Row) Header() Header { return r.header }

// Text returns the trimmed cell of the untagged column for field.
func (r Row) Text(field string) string {
	return r.TextLang(field, "")
}

// TextLang returns the trimmed cell for (field, lang).
func (r Row) TextLang(field, lang string) string {
	return strings.TrimSpace(r.cells[Column{Field: field, Language: lang}])
}

// Raw returns the untrimmed cell for (field, lang).
func (r Row) Raw(field, lang string) string {
	return r.cells[Column{Field: field, Language: lang}]
}

// Values splits the untagged cell for field on the row separator and drops
// blank parts.
func (r Row) Values(field string) []string {
	return SplitValues(r.Text(field), r.separator)
}

// Bool parses the untagged cell for field as a boolean. present is false for
// a blank cell. Accepts true/false, yes/no, y/n, 1/0 and x (checked).
func (r Row) Bool(field string) (value, present bool, err error) {
	raw := strings.ToLower(r.Text(field))
	switch raw {
	case "":
		return false, false, nil
	case "yes", "y", "x":
		return true, true, nil
	case "no", "n":
		return false, true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, true, fmt.Errorf("field %q: invalid boolean %q", field, raw)
	}
	return v, true, nil
}

// SplitValues splits a joined cell into trimmed, non-blank parts.
func SplitValues(cell, separator string) []string {
	if separator == "" {
		separator = DefaultSeparator
	}
	parts := strings.Split(cell, separator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
