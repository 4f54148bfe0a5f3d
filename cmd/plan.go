package cmd

import (
	"errors"
	"fmt"
	"strings"

	"db-mirror/internal/schema"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the order in which tables would be migrated, without writing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		src, err := openStore(ctx, roleSource)
		if err != nil {
			return err
		}
		defer src.Close()

		log.Info("Analyzing schema...")
		s, err := src.Reflect(ctx)
		if err != nil {
			return err
		}

		plan, err := schema.Resolve(s)
		var cycle *schema.CycleError
		if errors.As(err, &cycle) {
			fmt.Printf("⛔ Circular foreign keys, no migration order exists: %s\n", strings.Join(cycle.Tables, ", "))
		}
		if err != nil {
			return err
		}
		if plan, err = selectTables(plan); err != nil {
			return err
		}

		fmt.Printf("🔍 Migration Plan (%d tables):\n", plan.Len())
		for i, t := range plan.Tables {
			deps := "-"
			if d := t.Dependencies(); len(d) > 0 {
				deps = strings.Join(d, ", ")
			}
			key := "(no primary key, rows cannot be verified)"
			if t.HasPrimaryKey() {
				key = "PK(" + strings.Join(t.PrimaryKey, ", ") + ")"
			}
			fmt.Printf("[%02d] %-24s %2d columns  %s  depends on: %s\n", i+1, t.Name, len(t.Columns), key, deps)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(planCmd)
}
