package cli

import (
	"github.com/spf13/cobra"
)

var priceCmd = &cobra.Command{
	Use:   "price SYMBOL [SYMBOL...]",
	Short: "Resolve current price snapshots for one or more symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Price(cmd.Context(), args)
	},
}
