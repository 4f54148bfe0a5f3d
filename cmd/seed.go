package cmd

import (
	"fmt"
	"time"

	"db-mirror/internal/schema"
	"db-mirror/internal/seed"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a database with generated rows to rehearse a migration",
	PreRunE: bindFlags(map[string]string{
		"settings.default_count": "count",
		"settings.clean":         "clean",
	}),
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

		log.Info("Analyzing schema...")
		s, err := db.Reflect(ctx)
		if err != nil {
			return err
		}
		plan, err := schema.Resolve(s)
		if err != nil {
			return err
		}
		if plan, err = selectTables(plan); err != nil {
			return err
		}

		// Clean if requested
		if viper.GetBool("settings.clean") {
			db.Clean(ctx, plan)
		}

		count := viper.GetInt("settings.default_count")
		seedValue, _ := cmd.Flags().GetInt64("seed")
		if seedValue == 0 {
			seedValue = time.Now().UnixNano()
		}
		log.Infof("Starting seed with count=%d per table...", count)
		start := time.Now()

		opts := seed.Options{Count: count, Seed: seedValue, Logger: log}
		if verbosity == 0 {
			progress := uiprogress.New()
			bar := progress.AddBar(max(count*plan.Len(), 1)).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return "Processing: "
			})
			progress.Start()
			defer progress.Stop()
			opts.Progress = func(string, int64) { bar.Incr() }
		}

		results := seed.Fill(ctx, plan, db, opts)

		fmt.Println("\n📊 Summary Report (Dependency Order):")
		total := 0
		for i, r := range results {
			icon := "✓"
			if r.Status() != seed.StatusOK {
				icon = "!"
			}
			fmt.Printf("[%s] [%02d/%02d] %-24s : %d rows (Target: %d) - %s\n",
				icon, i+1, len(results), r.Table, r.Inserted, r.Target, r.Status())
			if r.Err != nil {
				fmt.Printf("    └ Error: %v\n", r.Err)
			}
			total += r.Inserted
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Total Rows: %d\n", total)
		log.Infof("Seed Done! Time Elapsed: %s", time.Since(start))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int("count", 100, "Number of rows to generate per table")
	seedCmd.Flags().Bool("clean", false, "Clean tables before filling")
	seedCmd.Flags().Int64("seed", 0, "Random seed (0 picks one from the clock)")
	seedCmd.Flags().String("target", roleSource, "Database to fill: source or destination")

	viper.SetDefault("settings.default_count", 100)
}
