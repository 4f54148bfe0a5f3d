package seed_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"db-mirror/internal/dialect"
	"db-mirror/internal/schema"
	"db-mirror/internal/seed"
	"db-mirror/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const storeDDL = `
CREATE TABLE store (
	store_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(45) NOT NULL
);
CREATE TABLE staff (
	staff_id INTEGER PRIMARY KEY AUTOINCREMENT,
	store_id INTEGER NOT NULL REFERENCES store(store_id),
	manager_id INTEGER REFERENCES staff(staff_id),
	email VARCHAR(50),
	active BOOLEAN NOT NULL
);
CREATE TABLE rental_item (
	rental_id INTEGER NOT NULL,
	line_no INTEGER NOT NULL,
	amount DECIMAL(5,2),
	PRIMARY KEY (rental_id, line_no)
);
CREATE TABLE rental_note (
	rental_id INTEGER NOT NULL,
	line_no INTEGER NOT NULL,
	note TEXT,
	FOREIGN KEY (rental_id, line_no) REFERENCES rental_item
);
CREATE UNIQUE INDEX idx_store_name ON store (name);
`

func setup(t *testing.T) (*store.Store, *schema.Plan) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(storeDDL)
	require.NoError(t, err)

	st := store.New(db, dialect.GetDialect("sqlite"), nil)
	s, err := st.Reflect(context.Background())
	require.NoError(t, err)
	plan, err := schema.Resolve(s)
	require.NoError(t, err)
	return st, plan
}

func scalar(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.QueryRow(query).Scan(&n))
	return n
}

func TestFill(t *testing.T) {
	st, plan := setup(t)

	var progressed int64
	results := seed.Fill(context.Background(), plan, st, seed.Options{
		Count:    8,
		Seed:     1,
		Progress: func(table string, rows int64) { progressed++ },
	})

	require.Len(t, results, plan.Len())
	for i, res := range results {
		assert.Equal(t, plan.Tables[i].Name, res.Table)
		assert.Equal(t, seed.StatusOK, res.Status(), "%s: %v", res.Table, res.Err)
		assert.NoError(t, res.Err)
		assert.Equal(t, 8, res.Inserted)
	}
	assert.EqualValues(t, 8*plan.Len(), progressed)

	for _, name := range plan.Names() {
		n, err := st.CountRows(context.Background(), name)
		require.NoError(t, err)
		assert.EqualValues(t, 8, n, name)
	}

	// every foreign key points at an existing row
	assert.Zero(t, scalar(t, st.DB, `SELECT COUNT(*) FROM staff WHERE store_id NOT IN (SELECT store_id FROM store)`))
	assert.Zero(t, scalar(t, st.DB, `SELECT COUNT(*) FROM rental_note n
		WHERE NOT EXISTS (SELECT 1 FROM rental_item i WHERE i.rental_id = n.rental_id AND i.line_no = n.line_no)`))
}

func TestFill_ContinuesAfterExistingRows(t *testing.T) {
	st, plan := setup(t)
	ctx := context.Background()

	seed.Fill(ctx, plan, st, seed.Options{Count: 3, Seed: 1})
	results := seed.Fill(ctx, plan, st, seed.Options{Count: 3, Seed: 2})

	for _, res := range results {
		assert.Equal(t, 3, res.Inserted, res.Table)
	}
	n, err := st.CountRows(ctx, "store")
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
	assert.EqualValues(t, 6, scalar(t, st.DB, `SELECT MAX(store_id) FROM store`))
}

func TestFill_Cancelled(t *testing.T) {
	st, plan := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := seed.Fill(ctx, plan, st, seed.Options{Count: 5})

	for _, res := range results {
		assert.Equal(t, seed.StatusFailed, res.Status())
		assert.Error(t, res.Err)
	}
}

func TestResultStatus(t *testing.T) {
	assert.Equal(t, seed.StatusOK, seed.Result{Target: 5, Inserted: 5}.Status())
	assert.Equal(t, seed.StatusPartial, seed.Result{Target: 5, Inserted: 2}.Status())
	assert.Equal(t, seed.StatusFailed, seed.Result{Target: 5}.Status())
	assert.Equal(t, seed.StatusOK, seed.Result{}.Status())
}
