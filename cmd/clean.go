package cmd

import (
	"errors"
	"fmt"

	"db-mirror/internal/schema"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete all rows from the tables of a database, dependents first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		role, _ := cmd.Flags().GetString("target")
		if role != roleSource && role != roleDestination {
			return fmt.Errorf("--target must be %s or %s", roleSource, roleDestination)
		}
		db, err := openStore(ctx, role)
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.Reflect(ctx)
		if err != nil {
			return err
		}
		plan, err := schema.Resolve(s)
		if errors.Is(err, schema.ErrCycle) {
			log.WithError(err).Warn("No dependency order, cleaning in name order")
			plan, err = &schema.Plan{Tables: s.Tables()}, nil
		}
		if err != nil {
			return err
		}
		if plan, err = selectTables(plan); err != nil {
			return err
		}

		log.Infof("Cleaning %d tables...", plan.Len())
		db.Clean(ctx, plan)
		log.Info("Database Cleaned Successfully!")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().String("target", roleDestination, "Database to clean: source or destination")
}
