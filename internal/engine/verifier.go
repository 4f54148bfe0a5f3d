package engine

import (
	"context"

	"db-mirror/internal/schema"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type VerifyOptions struct {
	// Workers > 1 compares the data of several tables concurrently.
	Workers int
	Logger  logrus.FieldLogger
}

// Verify checks that dst holds every table, column and row of src.
//
// The structural pass stops at the first missing table or column and returns
// an OutcomeFatal report with that single finding. Otherwise every source row
// of every keyed table is looked up in the destination by its full primary
// key and its non-key columns are compared; all differences are collected.
// A failing query aborts verification with a *QueryError.
func Verify(ctx context.Context, src, dst *schema.Schema, srcRows RowReader, dstRows KeyLookup, opts VerifyOptions) (*Report, error) {
	log := loggerOr(opts.Logger)
	report := &Report{}

	if f, ok := checkStructure(src, dst, log); !ok {
		report.Findings = append(report.Findings, f)
		report.finish()
		return report, nil
	}

	var keyed []*schema.Table
	for _, t := range src.Tables() {
		if !t.HasPrimaryKey() {
			log.WithField("table", t.Name).Warnf("Cannot verify the contents of `%s` as it has no primary key.", t.Name)
			report.Skipped = append(report.Skipped, t.Name)
			continue
		}
		keyed = append(keyed, t)
	}

	results := make([]tableCheck, len(keyed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Workers))
	for i, t := range keyed {
		i, t := i, t
		g.Go(func() error {
			res, err := verifyTable(gctx, t, srcRows, dstRows, log.WithField("table", t.Name))
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		report.Findings = append(report.Findings, res.findings...)
		report.Tables = append(report.Tables, res.summary)
	}
	report.finish()
	return report, nil
}

// checkStructure returns the first source table or column absent from dst.
func checkStructure(src, dst *schema.Schema, log logrus.FieldLogger) (Finding, bool) {
	for _, t := range src.Tables() {
		log.Debugf("Validating table `%s`.", t.Name)
		dt := dst.Table(t.Name)
		if dt == nil {
			log.Errorf("Verification FAILED: destination table `%s` missing.", t.Name)
			return Finding{Kind: FindingMissingTable, Table: t.Name}, false
		}
		for _, c := range t.Columns {
			log.WithField("column", c.Name).Tracef("Validating column `%s` on table `%s`.", c.Name, t.Name)
			if dt.Column(c.Name) == nil {
				log.Errorf("Verification FAILED: destination column `%s` is missing from table `%s`.", c.Name, t.Name)
				return Finding{Kind: FindingMissingColumn, Table: t.Name, Column: c.Name}, false
			}
		}
	}
	return Finding{}, true
}

type tableCheck struct {
	findings []Finding
	summary  TableSummary
}

func verifyTable(ctx context.Context, t *schema.Table, srcRows RowReader, dstRows KeyLookup, log logrus.FieldLogger) (tableCheck, error) {
	res := tableCheck{summary: TableSummary{Table: t.Name}}
	log.Infof("Verifying the contents of table `%s`.", t.Name)

	isKey := make(map[string]bool, len(t.PrimaryKey))
	for _, k := range t.PrimaryKey {
		isKey[k] = true
	}

	it, err := srcRows.ReadRows(ctx, t)
	if err != nil {
		return res, &QueryError{Table: t.Name, Err: err}
	}
	defer it.Close()

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row := it.Row()
		key := row.Project(t.PrimaryKey)
		res.summary.Rows++

		matches, err := dstRows.LookupRows(ctx, t, key)
		if err != nil {
			return res, &QueryError{Table: t.Name, Err: err}
		}
		if len(matches) != 1 {
			f := Finding{Kind: FindingMissingRow, Table: t.Name, Key: key, Matches: len(matches)}
			if len(matches) > 1 {
				f.Kind = FindingDuplicateRow
			}
			log.Errorf("Verification FAILED: %s", f)
			res.findings = append(res.findings, f)
			continue
		}
		dest := matches[0]

		mismatch := false
		for _, col := range t.Columns {
			if isKey[col.Name] {
				continue
			}
			sv, _ := row.Get(col.Name)
			dv, _ := dest.Get(col.Name)
			if ValuesEqual(col.Type, sv, dv) {
				continue
			}
			if !mismatch {
				log.Error("Verification FAILED: source row / dest row mismatch.")
			}
			mismatch = true
			f := Finding{Kind: FindingValueMismatch, Table: t.Name, Column: col.Name, Key: key, Source: sv, Dest: dv, Matches: 1}
			log.Errorf("SOURCE Table: %s %s Column: %s, Value: %v", t.Name, key, col.Name, sv)
			log.Errorf("DEST   Table: %s %s Column: %s, Value: %v", t.Name, key, col.Name, dv)
			res.findings = append(res.findings, f)
		}
		if !mismatch {
			res.summary.Verified++
		}
	}
	if err := it.Err(); err != nil {
		return res, &QueryError{Table: t.Name, Err: err}
	}

	log.Infof("%d rows out of %d verified identical in source and destination table %s.",
		res.summary.Verified, res.summary.Rows, t.Name)
	return res, nil
}
