package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridline-data/catalog-cli/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the reconciliation chain once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, rl, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		chain := pipeline.New(st, initFetcher(), cfg.Pipeline, rl)

		report, runErr := chain.Run(ctx)
		if report != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				zap.L().Warn("failed to print report", zap.Error(encErr))
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "pipeline run")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
