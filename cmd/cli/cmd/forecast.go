// Package cmd - price forecast command
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"agrimarket/core/output"
	"agrimarket/core/types"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast <crop>",
	Short: "Project prices for the coming week",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		fc, err := a.Forecaster.Forecast(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd, forecastView{fc})
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd)
}

type forecastView struct {
	*types.Forecast
}

func (v forecastView) Table() output.Table {
	t := output.Table{
		Title:   "Forecast for " + v.Commodity,
		Headers: []string{"DATE", "PRICE", "CONFIDENCE"},
		Notes: []string{
			fmt.Sprintf("trend: %s (%+.2f/day) from %d days of history", v.Trend, v.TrendValue, v.BasedOnDays),
		},
	}
	for _, p := range v.Predictions {
		t.Rows = append(t.Rows, []string{p.Date, output.Money(p.PredictedPrice), fmt.Sprintf("%.0f%%", p.Confidence)})
	}
	return t
}
