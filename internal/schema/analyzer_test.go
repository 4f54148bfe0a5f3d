package schema_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"db-mirror/internal/dialect"
	"db-mirror/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const sakilaLite = `
CREATE TABLE store (
	store_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(45) NOT NULL
);
CREATE TABLE staff (
	staff_id INTEGER PRIMARY KEY AUTOINCREMENT,
	store_id INTEGER NOT NULL REFERENCES store(store_id),
	manager_id INTEGER REFERENCES staff(staff_id),
	email VARCHAR(50),
	active BOOLEAN NOT NULL DEFAULT 1,
	picture BLOB,
	last_update DATETIME
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
INSERT INTO store (name) VALUES ('main');
`

func openSQLite(t *testing.T, ddl string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return db
}

func TestAnalyze_SQLite(t *testing.T) {
	db := openSQLite(t, sakilaLite)

	s, err := schema.Analyze(context.Background(), db, dialect.GetDialect("sqlite"), "")
	require.NoError(t, err)

	// AUTOINCREMENT creates sqlite_sequence, which must not be modeled
	assert.Equal(t, []string{"rental_item", "rental_note", "staff", "store"}, s.Names())

	staff := s.Table("staff")
	require.NotNil(t, staff)
	assert.Equal(t, []string{"staff_id", "store_id", "manager_id", "email", "active", "picture", "last_update"}, staff.ColumnNames())
	assert.Equal(t, []string{"staff_id"}, staff.PrimaryKey)
	assert.Equal(t, "staff_id", staff.IdentityColumn())
	assert.Equal(t, schema.TypeText, staff.Column("email").Type)
	assert.Equal(t, schema.TypeBoolean, staff.Column("active").Type)
	assert.Equal(t, schema.TypeBinary, staff.Column("picture").Type)
	assert.Equal(t, schema.TypeDatetime, staff.Column("last_update").Type)
	assert.True(t, staff.Column("email").Nullable)
	assert.False(t, staff.Column("store_id").Nullable)

	require.Len(t, staff.ForeignKeys, 2)
	assert.ElementsMatch(t, []string{"store"}, staff.Dependencies())

	require.Len(t, staff.Indexes, 1)
	assert.Equal(t, "idx_staff_email", staff.Indexes[0].Name)
	assert.False(t, staff.Indexes[0].Unique)
	assert.True(t, s.Table("store").Indexes[0].Unique)

	item := s.Table("rental_item")
	assert.Equal(t, []string{"rental_id", "line_no"}, item.PrimaryKey)
	assert.Equal(t, schema.TypeDecimal, item.Column("amount").Type)
	assert.Empty(t, item.IdentityColumn())

	note := s.Table("rental_note")
	assert.False(t, note.HasPrimaryKey())
	require.Len(t, note.ForeignKeys, 1)
	assert.Equal(t, []string{"rental_id", "line_no"}, note.ForeignKeys[0].Columns)
	assert.Equal(t, []string{"rental_id", "line_no"}, note.ForeignKeys[0].RefColumns)
	assert.Equal(t, "rental_item", note.ForeignKeys[0].RefTable)
}

func TestAnalyze_ReflectionError(t *testing.T) {
	db := openSQLite(t, "CREATE TABLE x (id INTEGER)")
	require.NoError(t, db.Close())

	_, err := schema.Analyze(context.Background(), db, dialect.GetDialect("sqlite"), "")

	var reflErr *schema.ReflectionError
	require.ErrorAs(t, err, &reflErr)
	assert.Equal(t, "tables", reflErr.Step)
}
