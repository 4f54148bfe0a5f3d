// Internal test package: the assertions decode the unexported reportFile and outcomeError.
package cmd

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"db-mirror/internal/engine"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

const filmDDL = `
CREATE TABLE language (
	language_id INTEGER PRIMARY KEY,
	name VARCHAR(20) NOT NULL
);
CREATE TABLE film (
	film_id INTEGER PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	language_id INTEGER NOT NULL REFERENCES language(language_id),
	rental_rate DECIMAL(4,2) NOT NULL
);
INSERT INTO language VALUES (1, 'English'), (2, 'Italian');
INSERT INTO film VALUES (1, 'ACADEMY DINOSAUR', 1, 0.99), (2, 'ACE GOLDFINGER', 2, 4.99);
`

func sqliteFile(t *testing.T, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return path
}

func run(args ...string) error {
	RootCmd.SetArgs(args)
	return RootCmd.ExecuteContext(context.Background())
}

func TestMigrateThenVerify(t *testing.T) {
	src := sqliteFile(t, filmDDL)
	dst := filepath.Join(t.TempDir(), "dest.db")
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	require.NoError(t, run("migrate", "--source", src, "--dest", dst, "--report", reportPath))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report reportFile
	require.NoError(t, yaml.Unmarshal(data, &report))
	assert.Equal(t, "success", report.Outcome)
	assert.Equal(t, 0, report.ExitCode)
	require.Len(t, report.Copied, 2)
	assert.Equal(t, "language", report.Copied[0].Table)
	assert.EqualValues(t, 2, report.Copied[1].Rows)

	db, err := sql.Open("sqlite", dst)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE film SET title = 'ACADEMY DINOSAUR II' WHERE film_id = 1`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = run("verify", "--source", src, "--dest", dst)
	var oe *outcomeError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, engine.OutcomeDataMismatch, oe.outcome)
	assert.Equal(t, 3, oe.outcome.ExitCode())
}

func TestOutcomeErr(t *testing.T) {
	assert.NoError(t, outcomeErr(engine.OutcomeSuccess))
	assert.EqualError(t, outcomeErr(engine.OutcomeFatal), "verification fatal")
}

func TestGetActiveDBConfig(t *testing.T) {
	viper.Set("databases", []map[string]any{
		{"name": "sakila", "role": "source", "driver": "mysql", "dsn": "root:root@tcp(127.0.0.1:3306)/sakila", "active": true},
		{"name": "old", "role": "source", "driver": "mysql", "dsn": "x", "active": false},
		{"name": "pg", "role": "destination", "driver": "postgres", "dsn": "postgres://localhost/sakila", "active": true},
		{"name": "pg2", "role": "destination", "driver": "postgres", "dsn": "postgres://localhost/other", "active": true},
	})
	t.Cleanup(func() { viper.Set("databases", nil) })

	cfg, err := GetActiveDBConfig(roleSource)
	require.NoError(t, err)
	assert.Equal(t, "sakila", cfg.Name)
	assert.Equal(t, "mysql", cfg.Driver)

	_, err = GetActiveDBConfig(roleDestination)
	assert.ErrorContains(t, err, "multiple active destination databases")
}
