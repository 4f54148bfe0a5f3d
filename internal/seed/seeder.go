// Package seed fills a database with generated rows so a migration can be
// rehearsed against a populated source.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"db-mirror/internal/engine"
	"db-mirror/internal/schema"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// Store is what Fill needs from a database.
type Store interface {
	engine.RowReader
	engine.RowWriter
}

type Options struct {
	Count    int // rows per table
	Seed     int64
	Progress engine.ProgressFunc
	Logger   logrus.FieldLogger
}

type Status string

const (
	StatusOK      Status = "OK"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// Result is the fill outcome of one table.
type Result struct {
	Table    string
	Target   int
	Inserted int
	Err      error
}

func (r Result) Status() Status {
	switch {
	case r.Inserted == 0 && r.Target > 0:
		return StatusFailed
	case r.Inserted < r.Target:
		return StatusPartial
	default:
		return StatusOK
	}
}

// Fill inserts opts.Count generated rows into every planned table, in plan
// order, so foreign key columns can draw from rows of referenced tables.
func Fill(ctx context.Context, plan *schema.Plan, db Store, opts Options) []Result {
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	s := &seeder{
		db:       db,
		gen:      NewGenerator(opts.Seed),
		pool:     make(map[string][]schema.Row),
		progress: opts.Progress,
		log:      log,
	}

	results := make([]Result, 0, plan.Len())
	for _, t := range plan.Tables {
		res := s.fillTable(ctx, t, opts.Count)
		if res.Err != nil {
			log.WithField("table", t.Name).WithError(res.Err).Warn("seed incomplete")
		}
		results = append(results, res)

		// FK pool for the tables that follow
		rows, err := s.readAll(ctx, t)
		if err != nil {
			log.WithField("table", t.Name).WithError(err).Warn("failed to load key pool")
			continue
		}
		s.pool[t.Name] = rows
	}
	return results
}

type seeder struct {
	db       Store
	gen      *Generator
	pool     map[string][]schema.Row
	progress engine.ProgressFunc
	log      logrus.FieldLogger
}

func (s *seeder) readAll(ctx context.Context, t *schema.Table) ([]schema.Row, error) {
	it, err := s.db.ReadRows(ctx, t)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var rows []schema.Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	return rows, it.Err()
}

func (s *seeder) fillTable(ctx context.Context, t *schema.Table, count int) Result {
	log := s.log.WithField("table", t.Name)
	res := Result{Table: t.Name, Target: count}

	existing, err := s.readAll(ctx, t)
	if err != nil {
		res.Err = fmt.Errorf("read %s: %w", t.Name, err)
		return res
	}

	// sequential keys continue after the highest existing one
	seqCol := sequenceColumn(t)
	var next int64 = 1
	if seqCol != "" {
		for _, r := range existing {
			v, _ := r.Get(seqCol)
			if n, err := cast.ToInt64E(textOf(v)); err == nil && n >= next {
				next = n + 1
			}
		}
		if c := t.Column(seqCol); c.AutoIncrement {
			if limit := identityLimit(c.RawType); int64(count) > int64(limit)-next+1 {
				res.Target = max(0, limit-int(next)+1)
				log.Infof("identity column %s (%s) limits rows to %d", c.Name, c.RawType, res.Target)
			}
		}
	}

	uniq := newUniqueSets(t)
	for _, r := range existing {
		uniq.admit(r)
	}

	w, err := s.db.OpenTable(ctx, t)
	if err != nil {
		res.Err = fmt.Errorf("open %s: %w", t.Name, err)
		return res
	}

	var failures int
	for attempt := 0; res.Inserted < res.Target && attempt < res.Target*10; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		row := s.generateRow(t, attempt, seqCol, next)
		if !uniq.admit(row) {
			continue
		}
		if seqCol != "" {
			next++
		}
		if err := w.Upsert(ctx, row); err != nil {
			failures++
			if failures <= 3 {
				log.WithError(err).Debugf("insert attempt %d failed", attempt+1)
			}
			res.Err = err
			continue
		}
		res.Inserted++
		if s.progress != nil {
			s.progress(t.Name, int64(res.Inserted))
		}
	}
	if res.Inserted == res.Target && ctx.Err() == nil {
		res.Err = nil // retried collisions
	}
	if err := w.Close(); err != nil {
		res.Err = errors.Join(res.Err, err)
	}
	log.WithField("rows", res.Inserted).Debug("table seeded")
	return res
}

func (s *seeder) generateRow(t *schema.Table, index int, seqCol string, next int64) schema.Row {
	cols := t.ColumnNames()
	values := make([]any, len(cols))
	bound := make(map[string]bool)

	keyed := make(map[string]bool)
	for _, k := range t.PrimaryKey {
		keyed[k] = true
	}
	for _, idx := range t.Indexes {
		if idx.Unique {
			for _, c := range idx.Columns {
				keyed[c] = true
			}
		}
	}

	row := schema.NewRow(cols, values)
	for _, fk := range t.ForeignKeys {
		pool := s.pool[fk.RefTable]
		if fk.RefTable == t.Name || len(pool) == 0 {
			// Referenced rows unknown (self reference or cycle): NULL when
			// allowed, otherwise assume the referenced table has id 1.
			for _, c := range fk.Columns {
				if col := t.Column(c); col != nil && !col.Nullable {
					set(row, c, 1)
				}
				bound[c] = true
			}
			continue
		}

		pick := index % len(pool)
		if !anyKeyed(fk.Columns, keyed) {
			pick = s.gen.faker.Number(0, len(pool)-1)
		}
		for i, c := range fk.Columns {
			v, _ := pool[pick].Get(fk.RefColumns[i])
			set(row, c, v)
			bound[c] = true
		}
	}

	for i, c := range t.Columns {
		switch {
		case bound[c.Name]:
		case c.Name == seqCol:
			values[i] = next
		default:
			values[i] = s.gen.Value(c)
		}
	}
	return row
}

func set(r schema.Row, col string, v any) {
	for i, c := range r.Columns {
		if c == col {
			r.Values[i] = v
		}
	}
}

func anyKeyed(cols []string, keyed map[string]bool) bool {
	for _, c := range cols {
		if keyed[c] {
			return true
		}
	}
	return false
}

// sequenceColumn is the integer column numbered sequentially: the identity
// column, or a single integer primary key not bound by a foreign key.
func sequenceColumn(t *schema.Table) string {
	if id := t.IdentityColumn(); id != "" {
		return id
	}
	if len(t.PrimaryKey) != 1 {
		return ""
	}
	c := t.Column(t.PrimaryKey[0])
	if c == nil || c.Type != schema.TypeInteger {
		return ""
	}
	for _, fk := range t.ForeignKeys {
		for _, fc := range fk.Columns {
			if fc == c.Name {
				return ""
			}
		}
	}
	return c.Name
}

// uniqueSets tracks the values taken by the primary key and each unique index.
type uniqueSets struct {
	keys [][]string
	seen []map[string]bool
}

func newUniqueSets(t *schema.Table) *uniqueSets {
	u := &uniqueSets{}
	if t.HasPrimaryKey() {
		u.add(t.PrimaryKey)
	}
	for _, idx := range t.Indexes {
		if idx.Unique {
			u.add(idx.Columns)
		}
	}
	return u
}

func (u *uniqueSets) add(cols []string) {
	u.keys = append(u.keys, cols)
	u.seen = append(u.seen, make(map[string]bool))
}

// admit reports whether row collides with no earlier row and records it.
func (u *uniqueSets) admit(row schema.Row) bool {
	sigs := make([]string, len(u.keys))
	for i, cols := range u.keys {
		sig := signature(row.Project(cols))
		if u.seen[i][sig] {
			return false
		}
		sigs[i] = sig
	}
	for i, sig := range sigs {
		u.seen[i][sig] = true
	}
	return true
}

func signature(r schema.Row) string {
	parts := make([]string, len(r.Values))
	for i, v := range r.Values {
		parts[i] = fmt.Sprint(textOf(v))
	}
	return strings.Join(parts, "|")
}

func textOf(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
