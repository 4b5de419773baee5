package cmd

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

func parseDate(flag, value string) (time.Time, error) {
	date, err := time.Parse(currency.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --%s must be YYYY-MM-DD, got %q", currency.ErrValidation, flag, value)
	}

	return date, nil
}

func latest(s *state) *cobra.Command {
	var base string

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the latest rates for a base currency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := s.app.Provider.GetLatestExchangeRates(cmd.Context(), base)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), snapshot)
		},
	}

	latestCmd.Flags().StringVar(&base, "base", "EUR", "Base currency")

	return latestCmd
}

func convert(s *state) *cobra.Command {
	var from, to, amount string

	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an amount between two currencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("%w: --amount %q is not a number", currency.ErrValidation, amount)
			}

			converted, err := s.app.Provider.ConvertCurrency(cmd.Context(), from, to, value)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), currency.NewConversionResult(from, to, value, converted))
		},
	}

	convertCmd.Flags().StringVar(&from, "from", "EUR", "Source currency")
	convertCmd.Flags().StringVar(&to, "to", "USD", "Target currency")
	convertCmd.Flags().StringVar(&amount, "amount", "1", "Amount in the source currency")

	return convertCmd
}

func history(s *state) *cobra.Command {
	var (
		base, start, end string
		page, pageSize   int
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print one page of historical rates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			startDate, err := parseDate("start", start)
			if err != nil {
				return err
			}

			endDate, err := parseDate("end", end)
			if err != nil {
				return err
			}

			window, err := s.app.Provider.GetHistoricalExchangeRates(cmd.Context(), base, startDate, endDate, page, pageSize)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), window)
		},
	}

	historyCmd.Flags().StringVar(&base, "base", "EUR", "Base currency")
	historyCmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD")
	historyCmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD")
	historyCmd.Flags().IntVar(&page, "page", 1, "Page number")
	historyCmd.Flags().IntVar(&pageSize, "page-size", 10, "Days per page")
	_ = historyCmd.MarkFlagRequired("start")
	_ = historyCmd.MarkFlagRequired("end")

	return historyCmd
}
