package cli

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline on the configured interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context())
	},
}
