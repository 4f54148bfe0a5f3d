package cmd

import (
	"context"
	"fmt"

	"db-mirror/internal/engine"
	"db-mirror/internal/schema"
	"db-mirror/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Only check that the destination holds every table, column and row of the source",
	PreRunE: bindFlags(map[string]string{
		"settings.report": "report",
	}),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := openStore(ctx, roleSource)
	if err != nil {
		return err
	}
	defer src.Close()

	srcSchema, err := src.Reflect(ctx)
	if err != nil {
		return err
	}
	if srcSchema.Len() == 0 {
		log.Info("No tables found in source database, exiting.")
		return nil
	}

	// Verification needs no dependency order; cyclic schemas can be checked.
	plan, err := selectTables(&schema.Plan{Tables: srcSchema.Tables()})
	if err != nil {
		return err
	}

	dst, err := openStore(ctx, roleDestination)
	if err != nil {
		return err
	}
	defer dst.Close()

	report, err := verifyPlan(ctx, srcSchema, plan, src, dst, nil)
	if err != nil {
		return err
	}
	return outcomeErr(report.Outcome)
}

// verifyPlan verifies the planned tables and prints the outcome message.
func verifyPlan(ctx context.Context, srcSchema *schema.Schema, plan *schema.Plan, src, dst *store.Store, copied *engine.CopyReport) (*engine.Report, error) {
	selected, err := subset(srcSchema, plan)
	if err != nil {
		return nil, err
	}
	dstSchema, err := dst.Reflect(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("Verifying destination database...")
	report, err := engine.Verify(ctx, selected, dstSchema, src, dst, engine.VerifyOptions{
		Workers: viper.GetInt("settings.workers"),
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	if path := viper.GetString("settings.report"); path != "" {
		if err := writeReport(path, report, copied); err != nil {
			return nil, err
		}
		log.Infof("Report written to %s", path)
	}

	fmt.Println(report.Outcome.Message())
	return report, nil
}

func init() {
	RootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("report", "", "Write the verification report to this YAML file")
}
