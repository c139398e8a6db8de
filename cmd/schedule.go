package main

import (
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridline-data/catalog-cli/internal/pipeline"
)

var scheduleSpec string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Trigger reconciliation runs on a cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, rl, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		chain := pipeline.New(st, initFetcher(), cfg.Pipeline, rl)

		spec := scheduleSpec
		if spec == "" {
			spec = cfg.Schedule.Cron
		}

		// Runs over the same catalog must be serialized: when a run is
		// still in flight at the next tick, the tick is dropped.
		var inFlight sync.Mutex

		c := cron.New()
		_, err = c.AddFunc(spec, func() {
			if !inFlight.TryLock() {
				zap.L().Warn("previous run still in flight, skipping tick")
				return
			}
			defer inFlight.Unlock()

			if _, err := chain.Run(ctx); err != nil {
				zap.L().Error("scheduled run failed", zap.Error(err))
			}
		})
		if err != nil {
			return eris.Wrapf(err, "parse cron spec %q", spec)
		}

		zap.L().Info("scheduler started", zap.String("cron", spec))
		c.Start()

		<-ctx.Done()
		zap.L().Info("stopping scheduler")
		<-c.Stop().Done()

		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "", "cron spec (default from config)")
	rootCmd.AddCommand(scheduleCmd)
}
