package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"StockFeed/internal/symbols"
)

func newSymbolsCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "Print the normalized symbol list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := newSymbolSource(ro.cfg, nil)
			list, err := symbols.Load(cmd.Context(), src)
			if err != nil {
				return err
			}
			for _, s := range list {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}
