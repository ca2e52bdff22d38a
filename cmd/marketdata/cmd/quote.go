package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newQuoteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Print quotes from the configured source as JSON",
		Example: `  marketdata quote AAPL
  QUOTE_SOURCE=sqlite marketdata quote AAPL MSFT IBM`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			batch, err := a.service.GetQuotes(ctx, args, 1, 0)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(batch.Quotes); err != nil {
				return fmt.Errorf("encode quotes: %w", err)
			}
			return nil
		},
	}
}
