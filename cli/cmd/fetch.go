package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

func handleRatesSave(ctx context.Context, app *App, logger log.Logger) error {
	recordsMap, err := app.Archive.Save(ctx, app.Bases)
	if err != nil {
		return err
	}

	for storage, records := range recordsMap {
		_ = level.Info(logger).Log("msg", "rates archived", "storage", storage, "records", len(records))

		for i, record := range records {
			_ = level.Debug(logger).Log(
				"n", i,
				"storage", storage,
				"base", record.Base,
				"quote", record.Quote,
				"rate", record.Rate,
				"id", record.ID,
			)
		}
	}

	return nil
}

func fetchCobraCommand(s *state, standalone *bool, after *time.Duration) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger := log.With(s.logger, "command", "fetch")

		if *standalone && *after <= 0 {
			return fmt.Errorf("%w: --after must be positive, got %s", currency.ErrValidation, *after)
		}

		if err := handleRatesSave(ctx, s.app, logger); err != nil {
			if !*standalone {
				return err
			}

			_ = level.Error(logger).Log("msg", "archiving rates", "err", err)
		}

		if !*standalone {
			return nil
		}

		ticker := time.NewTicker(*after)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := handleRatesSave(ctx, s.app, logger); err != nil {
					_ = level.Error(logger).Log("msg", "archiving rates", "err", err)
				}
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func fetch(s *state) *cobra.Command {
	var standalone bool
	var after time.Duration

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Archive the latest rates of the configured bases in every storage",
	}

	fetchCmd.RunE = fetchCobraCommand(s, &standalone, &after)
	fetchCmd.Flags().BoolVar(&standalone, "standalone", false, "Start up a long running fetching service")
	fetchCmd.Flags().DurationVar(&after, "after", time.Hour, "Fetching interval for standalone process")

	return fetchCmd
}
