package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"db-mirror/internal/engine"
	"db-mirror/internal/schema"
)

var errDiskFull = errors.New("disk full")

// memDB is an in-memory database implementing every engine capability.
type memDB struct {
	mu     sync.Mutex
	rows   map[string][]schema.Row
	events []string // "open:<table>" and "close:<table>" in call order

	failAt    map[string]int // table -> 1-based upsert that fails
	readErr   map[string]error
	lookupErr map[string]error
	upserts   map[string]int
}

func newMemDB() *memDB {
	return &memDB{
		rows:      make(map[string][]schema.Row),
		failAt:    make(map[string]int),
		readErr:   make(map[string]error),
		lookupErr: make(map[string]error),
		upserts:   make(map[string]int),
	}
}

func (m *memDB) insert(table string, cols []string, values ...[]any) {
	for _, v := range values {
		m.rows[table] = append(m.rows[table], schema.NewRow(cols, v))
	}
}

func (m *memDB) record(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *memDB) ReadRows(ctx context.Context, t *schema.Table) (engine.RowIterator, error) {
	if err := m.readErr[t.Name]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	rows := append([]schema.Row(nil), m.rows[t.Name]...)
	m.mu.Unlock()
	return &sliceIter{rows: rows}, nil
}

func (m *memDB) OpenTable(ctx context.Context, t *schema.Table) (engine.TableWriter, error) {
	m.record("open:" + t.Name)
	return &memWriter{db: m, table: t}, nil
}

func (m *memDB) LookupRows(ctx context.Context, t *schema.Table, key schema.Row) ([]schema.Row, error) {
	if err := m.lookupErr[t.Name]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []schema.Row
	for _, r := range m.rows[t.Name] {
		if sameKey(r, key) {
			out = append(out, r.Project(t.ColumnNames()))
		}
	}
	return out, nil
}

func sameKey(r, key schema.Row) bool {
	for i, c := range key.Columns {
		v, _ := r.Get(c)
		if fmt.Sprint(v) != fmt.Sprint(key.Values[i]) {
			return false
		}
	}
	return true
}

type memWriter struct {
	db    *memDB
	table *schema.Table
}

func (w *memWriter) Upsert(ctx context.Context, row schema.Row) error {
	m := w.db
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts[w.table.Name]++
	if n := m.failAt[w.table.Name]; n > 0 && m.upserts[w.table.Name] == n {
		return errDiskFull
	}

	rows := m.rows[w.table.Name]
	if w.table.HasPrimaryKey() {
		key := row.Project(w.table.PrimaryKey)
		for i, r := range rows {
			if sameKey(r, key) {
				rows[i] = row
				return nil
			}
		}
	}
	m.rows[w.table.Name] = append(rows, row)
	return nil
}

func (w *memWriter) Close() error {
	w.db.record("close:" + w.table.Name)
	return nil
}

type sliceIter struct {
	rows []schema.Row
	pos  int
}

func (it *sliceIter) Next() bool {
	if it.pos >= len(it.rows) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIter) Row() schema.Row { return it.rows[it.pos-1] }
func (it *sliceIter) Err() error      { return nil }
func (it *sliceIter) Close() error    { return nil }

// table builds a table whose key columns are integers and other columns text.
func table(name string, pk []string, cols []string, refs ...string) *schema.Table {
	t := &schema.Table{Name: name, PrimaryKey: pk}
	isKey := make(map[string]bool)
	for _, k := range pk {
		isKey[k] = true
	}
	for _, c := range cols {
		col := &schema.Column{Name: c, Type: schema.TypeText, Nullable: true}
		if isKey[c] {
			col.Type = schema.TypeInteger
			col.Nullable = false
			col.PrimaryKey = true
		}
		t.Columns = append(t.Columns, col)
	}
	for _, ref := range refs {
		t.ForeignKeys = append(t.ForeignKeys, &schema.ForeignKey{Columns: []string{ref + "_id"}, RefTable: ref, RefColumns: []string{"id"}})
	}
	return t
}
