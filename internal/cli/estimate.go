package cli

import (
	"github.com/spf13/cobra"

	"spotwatch/internal/app"
)

var (
	estimateMonth    string
	estimateProduced float64
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate household energy economics",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.EstimateOptions{
			Month:       estimateMonth,
			ProducedKWh: estimateProduced,
		}
		return getApp().Estimate(cmd.Context(), opts)
	},
}

func init() {
	estimateCmd.Flags().StringVar(&estimateMonth, "month", "", "Price grid sales for a month (YYYY-MM) from stored samples")
	estimateCmd.Flags().Float64Var(&estimateProduced, "produced-kwh", 1, "Surplus production sold per hour (kWh)")
}
