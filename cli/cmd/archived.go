package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

func archived(s *state) *cobra.Command {
	var (
		base, quote   string
		page, perPage int64
	)

	archivedCmd := &cobra.Command{
		Use:   "archived",
		Short: "List archived rates of a currency pair, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(s.app.Storages) == 0 {
				return fmt.Errorf("%w: no storage configured", currency.ErrConfiguration)
			}

			records, err := s.app.Storages[0].Get(cmd.Context(), base, quote, page, perPage)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), records)
		},
	}

	archivedCmd.Flags().StringVar(&base, "base", "EUR", "Base currency")
	archivedCmd.Flags().StringVar(&quote, "quote", "USD", "Quote currency")
	archivedCmd.Flags().Int64Var(&page, "page", 1, "Page number")
	archivedCmd.Flags().Int64Var(&perPage, "per-page", 10, "Records per page")

	return archivedCmd
}
