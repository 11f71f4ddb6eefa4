package cli

import (
	"github.com/spf13/cobra"

	"github.com/peterbitar/holdingswatch/internal/app"
)

var (
	runQuery     string
	runLimit     int
	runCSVPath   string
	runChartPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline pass over fresh candidate items",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{
			Query:     runQuery,
			Limit:     runLimit,
			CSVPath:   runCSVPath,
			ChartPath: runChartPath,
		}
		return getApp().Run(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().StringVar(&runQuery, "query", "", "Ticker query for the news source (defaults to tracked symbols)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "Maximum candidate items to fetch (defaults to config)")
	runCmd.Flags().StringVar(&runCSVPath, "csv", "", "Path to export enriched items as CSV")
	runCmd.Flags().StringVar(&runChartPath, "png", "", "Path to write PNG chart of price moves")
}
