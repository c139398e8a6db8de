package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gridline-data/catalog-cli/internal/model"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs with their stage breakdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, rl, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := rl.ListRuns(ctx, runsLimit)
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		type runWithStages struct {
			model.Run
			Stages []model.RunStage `json:"stages"`
		}

		out := make([]runWithStages, 0, len(runs))
		for _, r := range runs {
			stages, err := rl.ListStages(ctx, r.ID)
			if err != nil {
				return eris.Wrapf(err, "list stages for %s", r.ID)
			}
			out = append(out, runWithStages{Run: r, Stages: stages})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to list")
	rootCmd.AddCommand(runsCmd)
}
