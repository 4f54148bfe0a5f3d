package cmd

import (
	"context"
	"fmt"

	"db-mirror/internal/schema"
	"db-mirror/internal/store"

	"github.com/spf13/viper"
)

const (
	roleSource      = "source"
	roleDestination = "destination"
)

// DBConfig is one entry of the databases list in the config file.
type DBConfig struct {
	Name   string `mapstructure:"name"`
	Role   string `mapstructure:"role"` // source or destination
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	Active bool   `mapstructure:"active"`
}

// GetActiveDBConfig returns the active databases entry for role.
func GetActiveDBConfig(role string) (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active && configs[i].Role == role {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active %s database found in config (set role: %s and active: true)", role, role)
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active %s databases found (only one can be active)", role)
	}

	return activeConfig, nil
}

// endpoint resolves the connection for role: flags, env and the role's own
// config section first, then the active databases entry.
func endpoint(role string) (*DBConfig, error) {
	if dsn := viper.GetString(role + ".dsn"); dsn != "" {
		return &DBConfig{
			Name:   role,
			Role:   role,
			Driver: viper.GetString(role + ".driver"),
			DSN:    dsn,
			Schema: viper.GetString(role + ".schema"),
			Active: true,
		}, nil
	}
	cfg, err := GetActiveDBConfig(role)
	if err != nil {
		return nil, fmt.Errorf("%s database is required (via flag, env or config): %w", role, err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, role string) (*store.Store, error) {
	cfg, err := endpoint(role)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Driver, cfg.DSN, log.WithField("db", role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", role, err)
	}
	if cfg.Schema != "" {
		st.SchemaName = cfg.Schema
	}
	log.Infof("🦅 Connected to %s %s via %s", role, cfg.Name, st.Dialect.Name())
	return st, nil
}

// selectTables applies the include/exclude settings to a resolved plan.
func selectTables(plan *schema.Plan) (*schema.Plan, error) {
	include := viper.GetStringSlice("settings.tables")
	exclude := viper.GetStringSlice("settings.exclude")
	selected := plan.Filter(include, exclude)
	if selected.Len() == 0 && len(include) > 0 {
		return nil, fmt.Errorf("no matching tables found for inputs: %v", include)
	}
	return selected, nil
}

// subset restricts s to the planned tables.
func subset(s *schema.Schema, plan *schema.Plan) (*schema.Schema, error) {
	if plan.Len() == s.Len() {
		return s, nil
	}
	return schema.NewSchema(plan.Tables...)
}
