package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"db-mirror/internal/engine"
	"db-mirror/internal/schema"
	"db-mirror/internal/store"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the source tables in the destination, copy every row and verify the copy",
	PreRunE: bindFlags(map[string]string{
		"settings.skip_create": "skip-create",
		"settings.clean":       "clean",
		"settings.report":      "report",
	}),
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := openStore(ctx, roleSource)
	if err != nil {
		return err
	}
	defer src.Close()

	log.Info("Analyzing source schema...")
	srcSchema, err := src.Reflect(ctx)
	if err != nil {
		return err
	}
	if srcSchema.Len() == 0 {
		log.Info("No tables found in source database, exiting.")
		return nil
	}

	// The whole schema is resolved so references to excluded tables are not dangling.
	plan, err := schema.Resolve(srcSchema)
	if err != nil {
		return err
	}
	if plan, err = selectTables(plan); err != nil {
		return err
	}

	dst, err := openStore(ctx, roleDestination)
	if err != nil {
		return err
	}
	defer dst.Close()

	if !viper.GetBool("settings.skip_create") {
		if err := dst.CheckCreate(plan); err != nil {
			return err
		}
		existing, err := dst.Reflect(ctx)
		if err != nil {
			return err
		}
		log.Infof("Creating %d tables in dest database.", plan.Len())
		if _, err := dst.CreateTables(ctx, plan, existing); err != nil {
			// verification reports the missing table as fatal
			log.WithError(err).Error("Failed to create destination table")
		}
	}

	if viper.GetBool("settings.clean") {
		log.Info("Cleaning destination tables...")
		dst.Clean(ctx, plan)
	}

	start := time.Now()
	copyReport := copyWithProgress(ctx, plan, src, dst)
	printCopySummary(copyReport, time.Since(start))

	report, err := verifyPlan(ctx, srcSchema, plan, src, dst, copyReport)
	if err != nil {
		return err
	}
	if report.Outcome == engine.OutcomeSuccess && copyReport.Err() != nil {
		return copyReport.Err()
	}
	return outcomeErr(report.Outcome)
}

func copyWithProgress(ctx context.Context, plan *schema.Plan, src, dst *store.Store) *engine.CopyReport {
	opts := engine.CopyOptions{
		Workers: viper.GetInt("settings.workers"),
		Logger:  log,
	}

	// Bars only at the default level; debug output would tear them.
	if verbosity == 0 {
		progress := uiprogress.New()
		progress.SetOut(os.Stderr)
		bars := make(map[string]*uiprogress.Bar, plan.Len())
		for _, t := range plan.Tables {
			total, err := src.CountRows(ctx, t.Name)
			if err != nil {
				log.WithError(err).Warnf("Failed to count rows of %s", t.Name)
			}
			name := t.Name
			bar := progress.AddBar(int(max(total, 1))).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return fmt.Sprintf("%-24s", name)
			})
			bars[name] = bar
		}
		progress.Start()
		defer progress.Stop()

		opts.Progress = func(table string, rows int64) {
			bars[table].Set(int(rows))
		}
	}

	return engine.Copy(ctx, plan, src, dst, opts)
}

func printCopySummary(report *engine.CopyReport, elapsed time.Duration) {
	fmt.Println("\n📊 Copy Report (Dependency Order):")
	for i, r := range report.Results {
		icon := "✓"
		if r.Status != engine.StatusCopied {
			icon = "!"
		}
		fmt.Printf("[%s] [%02d/%02d] %-24s : %d rows - %s\n",
			icon, i+1, len(report.Results), r.Table, r.Rows, r.Status)
		if r.Err != nil {
			fmt.Printf("    └ Error: %v\n", r.Err)
		}
	}
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Total Rows: %d\n", report.RowsCopied())
	log.Infof("Copy Done! Time Elapsed: %s", elapsed)
}

func init() {
	RootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("skip-create", false, "Do not create missing tables in the destination")
	migrateCmd.Flags().Bool("clean", false, "Empty destination tables before copying")
	migrateCmd.Flags().String("report", "", "Write the verification report to this YAML file")
}
