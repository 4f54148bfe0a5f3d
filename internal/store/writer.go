package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"db-mirror/internal/engine"
	"db-mirror/internal/schema"
)

// OpenTable pins one connection for the table so session settings made by
// the dialect hooks (IDENTITY_INSERT, FOREIGN_KEY_CHECKS) apply to every row.
func (s *Store) OpenTable(ctx context.Context, t *schema.Table) (engine.TableWriter, error) {
	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	identity := t.IdentityColumn()
	if err := s.Dialect.BeforeTable(ctx, conn, t.Name, identity); err != nil {
		conn.Close()
		return nil, fmt.Errorf("before table hook: %w", err)
	}

	cols := t.ColumnNames()
	query := s.Dialect.InsertQuery(t.Name, cols)
	if t.HasPrimaryKey() {
		query = s.Dialect.UpsertQuery(t.Name, cols, t.PrimaryKey)
	}
	s.Log.WithField("table", t.Name).Trace(query)

	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		s.Dialect.AfterTable(context.WithoutCancel(ctx), conn, t.Name, identity)
		conn.Close()
		return nil, fmt.Errorf("prepare upsert: %w", err)
	}

	return &tableWriter{
		store:    s,
		conn:     conn,
		stmt:     stmt,
		table:    t,
		cols:     cols,
		identity: identity,
	}, nil
}

type tableWriter struct {
	store    *Store
	conn     *sql.Conn
	stmt     *sql.Stmt
	table    *schema.Table
	cols     []string
	identity string
}

func (w *tableWriter) Upsert(ctx context.Context, row schema.Row) error {
	args := row.Project(w.cols).Values
	_, err := w.stmt.ExecContext(ctx, args...)
	return err
}

// Close runs the after-table hook even when the copy was cancelled, so
// session state is restored before the connection goes back to the pool.
func (w *tableWriter) Close() error {
	ctx := context.Background()
	hookErr := w.store.Dialect.AfterTable(ctx, w.conn, w.table.Name, w.identity)
	if hookErr != nil {
		hookErr = fmt.Errorf("after table hook: %w", hookErr)
	}
	return errors.Join(hookErr, w.stmt.Close(), w.conn.Close())
}
