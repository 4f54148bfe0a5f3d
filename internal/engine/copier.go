package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"db-mirror/internal/schema"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type TableStatus string

const (
	StatusCopied TableStatus = "COPIED"
	StatusFailed TableStatus = "FAILED"
)

// TableResult is the copy outcome of one table.
type TableResult struct {
	Table  string
	Status TableStatus
	Rows   int64 // rows upserted, including those before a failure
	Err    error
}

// CopyReport lists one result per planned table, in plan order.
type CopyReport struct {
	Results []TableResult
}

func (r *CopyReport) Failed() []TableResult {
	var failed []TableResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r *CopyReport) RowsCopied() int64 {
	var total int64
	for _, res := range r.Results {
		total += res.Rows
	}
	return total
}

// Err summarizes failed tables, nil when every table was copied.
func (r *CopyReport) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, f := range failed {
		names[i] = f.Table
	}
	return fmt.Errorf("%d table(s) failed to copy: %s", len(failed), strings.Join(names, ", "))
}

type CopyOptions struct {
	// Workers > 1 copies independent tables concurrently.
	Workers  int
	Progress ProgressFunc
	Logger   logrus.FieldLogger
}

// Copy upserts every row of every planned table from src into dst.
//
// A failing table is recorded and the run moves on; the caller inspects the
// report. With one worker tables are copied strictly in plan order. With more,
// a table starts once all tables it references have finished.
func Copy(ctx context.Context, plan *schema.Plan, src RowReader, dst RowWriter, opts CopyOptions) *CopyReport {
	c := &copier{src: src, dst: dst, progress: opts.Progress, log: loggerOr(opts.Logger)}
	if opts.Workers <= 1 {
		return c.sequential(ctx, plan)
	}
	return c.parallel(ctx, plan, opts.Workers)
}

type copier struct {
	src      RowReader
	dst      RowWriter
	progress ProgressFunc
	log      logrus.FieldLogger
}

func (c *copier) sequential(ctx context.Context, plan *schema.Plan) *CopyReport {
	report := &CopyReport{}
	for _, t := range plan.Tables {
		report.Results = append(report.Results, c.copyTable(ctx, t))
	}
	return report
}

func (c *copier) parallel(ctx context.Context, plan *schema.Plan, workers int) *CopyReport {
	n := plan.Len()
	results := make([]TableResult, n)

	// remaining[i] counts unfinished planned tables that table i references.
	remaining := make([]int, n)
	dependents := make([][]int, n)
	for i, t := range plan.Tables {
		for _, dep := range t.Dependencies() {
			if j := plan.Index(dep); j >= 0 {
				remaining[i]++
				dependents[j] = append(dependents[j], i)
			}
		}
	}

	var ready []int
	for i := range plan.Tables {
		if remaining[i] == 0 {
			ready = append(ready, i)
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	done := make(chan int, n)
	started := make([]bool, n)
	running := 0

	for {
		for len(ready) > 0 && ctx.Err() == nil {
			i := ready[0]
			ready = ready[1:]
			started[i] = true
			running++
			g.Go(func() error {
				results[i] = c.copyTable(ctx, plan.Tables[i])
				done <- i
				return nil
			})
		}
		if running == 0 {
			break
		}
		i := <-done
		running--
		for _, dep := range dependents[i] {
			remaining[dep]--
			if remaining[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	_ = g.Wait()

	for i, t := range plan.Tables {
		if !started[i] {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("dependencies of %s never finished", t.Name)
			}
			results[i] = TableResult{Table: t.Name, Status: StatusFailed, Err: err}
		}
	}
	return &CopyReport{Results: results}
}

func (c *copier) copyTable(ctx context.Context, t *schema.Table) TableResult {
	log := c.log.WithField("table", t.Name)
	res := TableResult{Table: t.Name, Status: StatusFailed}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	log.Info("Importing table")

	it, err := c.src.ReadRows(ctx, t)
	if err != nil {
		res.Err = fmt.Errorf("read %s: %w", t.Name, err)
		log.WithError(res.Err).Error("Table copy failed")
		return res
	}
	defer it.Close()

	w, err := c.dst.OpenTable(ctx, t)
	if err != nil {
		res.Err = fmt.Errorf("open %s: %w", t.Name, err)
		log.WithError(res.Err).Error("Table copy failed")
		return res
	}

	for it.Next() {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		row := it.Row()
		var key schema.Row
		if t.HasPrimaryKey() {
			key = row.Project(t.PrimaryKey)
			log.Tracef("Import row %s", key)
		}
		if err := w.Upsert(ctx, row); err != nil {
			res.Err = &WriteError{Table: t.Name, Key: key, Err: err}
			break
		}
		res.Rows++
		if c.progress != nil {
			c.progress(t.Name, res.Rows)
		}
	}
	if res.Err == nil {
		if err := it.Err(); err != nil {
			res.Err = fmt.Errorf("read %s: %w", t.Name, err)
		}
	}
	if err := w.Close(); err != nil && res.Err == nil {
		res.Err = fmt.Errorf("close %s: %w", t.Name, err)
	}

	if res.Err != nil {
		log.WithError(res.Err).WithField("rows", res.Rows).Error("Table copy failed")
		return res
	}
	res.Status = StatusCopied
	log.WithField("rows", res.Rows).Info("Table copied")
	return res
}

func loggerOr(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}
