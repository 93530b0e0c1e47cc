package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Source, used for tests and programmatic input.
type Memory struct {
	mu        sync.RWMutex
	tables    map[string]memoryTable
	separator string
}

type memoryTable struct {
	header Header
	rows   [][]string
}

// NewMemory creates an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]memoryTable), separator: DefaultSeparator}
}

// WithSeparator sets the multi-value separator used by rows of this source.
func (m *Memory) WithSeparator(sep string) *Memory {
	m.separator = sep
	return m
}

// Add registers a table with raw header cells and positional rows,
// replacing any table with the same name.
func (m *Memory) Add(name string, header []string, rows ...[]string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = memoryTable{header: ParseHeader(header), rows: rows}
	return m
}

// Open returns a cursor over the named table.
func (m *Memory) Open(_ context.Context, name string) (Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if len(t.header) == 0 {
		return nil, fmt.Errorf("%w: %s has no header", ErrInvalidTable, name)
	}
	return &memoryCursor{name: name, table: t, pos: -1, separator: m.separator}, nil
}

// Tables lists the registered table names, sorted.
func (m *Memory) Tables(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type memoryCursor struct {
	name      string
	table     memoryTable
	pos       int
	separator string
	closed    bool
}

func (c *memoryCursor) Name() string   { return c.name }
func (c *memoryCursor) Header() Header { return c.table.header }
func (c *memoryCursor) Err() error     { return nil }

func (c *memoryCursor) Next() bool {
	if c.closed || c.pos+1 >= len(c.table.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *memoryCursor) Row() Row {
	return NewRow(c.table.header, c.table.rows[c.pos], c.pos+1, c.separator)
}

func (c *memoryCursor) Close() error {
	c.closed = true
	return nil
}
