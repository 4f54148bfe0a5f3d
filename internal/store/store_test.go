package store_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"db-mirror/internal/dialect"
	"db-mirror/internal/engine"
	"db-mirror/internal/schema"
	"db-mirror/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const rentalDDL = `
CREATE TABLE store (
	store_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(45) NOT NULL
);
CREATE TABLE staff (
	staff_id INTEGER PRIMARY KEY AUTOINCREMENT,
	store_id INTEGER NOT NULL REFERENCES store(store_id),
	manager_id INTEGER REFERENCES staff(staff_id),
	email VARCHAR(50),
	active BOOLEAN NOT NULL,
	picture BLOB
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
CREATE INDEX idx_staff_email ON staff (email);
CREATE UNIQUE INDEX idx_store_name ON store (name);

INSERT INTO store (store_id, name) VALUES (1, 'main'), (2, 'branch');
INSERT INTO staff (staff_id, store_id, manager_id, email, active, picture) VALUES
	(1, 1, NULL, 'mike@example.com', 1, X'0102'),
	(2, 1, 1, 'jon@example.com', 0, NULL),
	(3, 2, 1, NULL, 1, X'FF');
INSERT INTO rental_item (rental_id, line_no, amount) VALUES (1, 1, 9.99), (1, 2, 5.00), (2, 1, 3.50);
INSERT INTO rental_note (rental_id, line_no, note) VALUES (1, 1, 'late'), (2, 1, 'damaged');
`

func openStore(t *testing.T, ddl string) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	if ddl != "" {
		_, err = db.Exec(ddl)
		require.NoError(t, err)
	}
	return store.New(db, dialect.GetDialect("sqlite"), nil)
}

// migrate runs the create and copy steps of a migration and returns the
// reflected source schema.
func migrate(t *testing.T, src, dst *store.Store) *schema.Schema {
	t.Helper()
	ctx := context.Background()

	srcSchema, err := src.Reflect(ctx)
	require.NoError(t, err)
	plan, err := schema.Resolve(srcSchema)
	require.NoError(t, err)

	require.NoError(t, dst.CheckCreate(plan))
	existing, err := dst.Reflect(ctx)
	require.NoError(t, err)
	_, err = dst.CreateTables(ctx, plan, existing)
	require.NoError(t, err)

	report := engine.Copy(ctx, plan, src, dst, engine.CopyOptions{})
	require.NoError(t, report.Err())
	return srcSchema
}

func verify(t *testing.T, srcSchema *schema.Schema, src, dst *store.Store) *engine.Report {
	t.Helper()
	dstSchema, err := dst.Reflect(context.Background())
	require.NoError(t, err)
	report, err := engine.Verify(context.Background(), srcSchema, dstSchema, src, dst, engine.VerifyOptions{})
	require.NoError(t, err)
	return report
}

func count(t *testing.T, s *store.Store, table string) int64 {
	t.Helper()
	n, err := s.CountRows(context.Background(), table)
	require.NoError(t, err)
	return n
}

func TestMigrate_SQLite(t *testing.T) {
	src := openStore(t, rentalDDL)
	dst := openStore(t, "")

	srcSchema := migrate(t, src, dst)

	assert.EqualValues(t, 2, count(t, dst, "store"))
	assert.EqualValues(t, 3, count(t, dst, "staff"))
	assert.EqualValues(t, 3, count(t, dst, "rental_item"))
	assert.EqualValues(t, 2, count(t, dst, "rental_note"))

	report := verify(t, srcSchema, src, dst)
	assert.Equal(t, engine.OutcomeSuccess, report.Outcome)
	assert.Empty(t, report.Findings)
	assert.Equal(t, []string{"rental_note"}, report.Skipped)
	for _, ts := range report.Tables {
		assert.Equal(t, ts.Rows, ts.Verified, ts.Table)
	}

	dstSchema, err := dst.Reflect(context.Background())
	require.NoError(t, err)
	staff := dstSchema.Table("staff")
	require.NotNil(t, staff)
	assert.Equal(t, "staff_id", staff.IdentityColumn())
	assert.Equal(t, schema.TypeBinary, staff.Column("picture").Type)
	require.Len(t, staff.Indexes, 1)
	assert.Equal(t, "idx_staff_email", staff.Indexes[0].Name)
}

func TestMigrate_RerunUpdatesInPlace(t *testing.T) {
	src := openStore(t, rentalDDL)
	dst := openStore(t, "")
	srcSchema := migrate(t, src, dst)

	_, err := dst.DB.Exec(`UPDATE staff SET email = 'stale@example.com' WHERE staff_id = 2`)
	require.NoError(t, err)

	// second run: tables exist, keyed rows are overwritten instead of duplicated
	migrate(t, src, dst)

	assert.EqualValues(t, 3, count(t, dst, "staff"))
	assert.EqualValues(t, 3, count(t, dst, "rental_item"))
	report := verify(t, srcSchema, src, dst)
	assert.Equal(t, engine.OutcomeSuccess, report.Outcome)
}

func TestVerify_MissingCompositeKeyRow(t *testing.T) {
	src := openStore(t, rentalDDL)
	dst := openStore(t, "")
	srcSchema := migrate(t, src, dst)

	_, err := dst.DB.Exec(`DELETE FROM rental_item WHERE rental_id = 1 AND line_no = 2`)
	require.NoError(t, err)

	report := verify(t, srcSchema, src, dst)
	assert.Equal(t, engine.OutcomeDataMismatch, report.Outcome)
	require.Len(t, report.Findings, 1)
	f := report.Findings[0]
	assert.Equal(t, engine.FindingMissingRow, f.Kind)
	assert.Equal(t, "rental_item", f.Table)
	assert.Equal(t, []string{"rental_id", "line_no"}, f.Key.Columns)
	assert.EqualValues(t, []any{int64(1), int64(2)}, f.Key.Values)
}

func TestVerify_ValueMismatches(t *testing.T) {
	src := openStore(t, rentalDDL)
	dst := openStore(t, "")
	srcSchema := migrate(t, src, dst)

	_, err := dst.DB.Exec(`UPDATE staff SET email = 'changed@example.com', active = 1 WHERE staff_id = 2`)
	require.NoError(t, err)
	_, err = dst.DB.Exec(`UPDATE store SET name = 'moved' WHERE store_id = 2`)
	require.NoError(t, err)

	report := verify(t, srcSchema, src, dst)
	assert.Equal(t, engine.OutcomeDataMismatch, report.Outcome)
	require.Len(t, report.Findings, 3)

	// tables in name order, columns in ordinal order
	assert.Equal(t, "staff", report.Findings[0].Table)
	assert.Equal(t, "email", report.Findings[0].Column)
	assert.Equal(t, "jon@example.com", report.Findings[0].Source)
	assert.Equal(t, "changed@example.com", report.Findings[0].Dest)
	assert.Equal(t, "active", report.Findings[1].Column)
	assert.Equal(t, "store", report.Findings[2].Table)
	assert.Equal(t, "name", report.Findings[2].Column)
}

func TestVerify_MissingColumnIsFatal(t *testing.T) {
	src := openStore(t, `CREATE TABLE film (film_id INTEGER PRIMARY KEY, title TEXT, rating TEXT);
INSERT INTO film VALUES (1, 'ACADEMY DINOSAUR', 'PG');`)
	dst := openStore(t, `CREATE TABLE film (film_id INTEGER PRIMARY KEY, title TEXT);`)

	srcSchema, err := src.Reflect(context.Background())
	require.NoError(t, err)

	report := verify(t, srcSchema, src, dst)
	assert.Equal(t, engine.OutcomeFatal, report.Outcome)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, engine.FindingMissingColumn, report.Findings[0].Kind)
	assert.Equal(t, "rating", report.Findings[0].Column)
}

func TestCreateTables_SkipsExisting(t *testing.T) {
	src := openStore(t, rentalDDL)
	dst := openStore(t, `CREATE TABLE store (store_id INTEGER PRIMARY KEY, name VARCHAR(45) NOT NULL);`)
	ctx := context.Background()

	srcSchema, err := src.Reflect(ctx)
	require.NoError(t, err)
	plan, err := schema.Resolve(srcSchema)
	require.NoError(t, err)
	existing, err := dst.Reflect(ctx)
	require.NoError(t, err)

	created, err := dst.CreateTables(ctx, plan, existing)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staff", "rental_item", "rental_note"}, created)
}

func TestCreateTables_DuplicateCreateFails(t *testing.T) {
	dst := openStore(t, `CREATE TABLE payment (payment_id INTEGER PRIMARY KEY);`)
	plan := &schema.Plan{Tables: []*schema.Table{{
		Name:    "payment",
		Columns: []*schema.Column{{Name: "payment_id", Type: schema.TypeInteger}},
	}}}

	created, err := dst.CreateTables(context.Background(), plan, nil)

	var ddlErr *store.DDLError
	require.ErrorAs(t, err, &ddlErr)
	assert.Equal(t, "payment", ddlErr.Table)
	assert.Contains(t, ddlErr.Statement, "CREATE TABLE")
	assert.Empty(t, created)
}

func TestLookupRows_MissingColumnFails(t *testing.T) {
	s := openStore(t, rentalDDL)
	tbl := &schema.Table{
		Name: "store",
		Columns: []*schema.Column{
			{Name: "store_id", Type: schema.TypeInteger},
			{Name: "no_such_column", Type: schema.TypeText},
		},
		PrimaryKey: []string{"store_id"},
	}
	key := schema.Row{Columns: []string{"store_id"}, Values: []any{int64(1)}}

	_, err := s.LookupRows(context.Background(), tbl, key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_column")

	_, err = s.ReadRows(context.Background(), tbl)
	require.Error(t, err)
}

func TestCreateTables_DDLError(t *testing.T) {
	dst := openStore(t, "")
	plan := &schema.Plan{Tables: []*schema.Table{{
		Name:    "payment",
		Columns: []*schema.Column{{Name: "payment_id", Type: schema.TypeInteger}},
		Indexes: []*schema.Index{{Name: "idx_payment", Columns: []string{"no_such_column"}}},
	}}}

	created, err := dst.CreateTables(context.Background(), plan, nil)

	var ddlErr *store.DDLError
	require.ErrorAs(t, err, &ddlErr)
	assert.Equal(t, "payment", ddlErr.Table)
	assert.Contains(t, ddlErr.Statement, "CREATE INDEX")
	assert.Empty(t, created)
}

func TestCheckCreate_IndexNames(t *testing.T) {
	plan := &schema.Plan{Tables: []*schema.Table{
		{Name: "actor", Indexes: []*schema.Index{{Name: "idx_last_update", Columns: []string{"last_update"}}}},
		{Name: "film", Indexes: []*schema.Index{{Name: "idx_last_update", Columns: []string{"last_update"}}}},
	}}

	sqlite := store.New(nil, dialect.GetDialect("sqlite"), nil)
	err := sqlite.CheckCreate(plan)
	require.ErrorIs(t, err, store.ErrInvalidDestination)
	assert.Contains(t, err.Error(), "idx_last_update")

	// MySQL scopes index names per table
	mysql := store.New(nil, dialect.GetDialect("mysql"), nil)
	assert.NoError(t, mysql.CheckCreate(plan))
}

func TestClean(t *testing.T) {
	src := openStore(t, rentalDDL)
	dst := openStore(t, "")
	srcSchema := migrate(t, src, dst)

	plan, err := schema.Resolve(srcSchema)
	require.NoError(t, err)
	dst.Clean(context.Background(), plan)

	for _, name := range plan.Names() {
		assert.Zero(t, count(t, dst, name), name)
	}
}
