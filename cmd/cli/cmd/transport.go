// Package cmd - transport estimate command
package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agrimarket/core/output"
	"agrimarket/core/transport"
	apperrors "agrimarket/internal/errors"
)

var (
	transportCrop     string
	transportQuantity float64
	transportFrom     string
	transportTo       string
	transportFarmer   string
)

var transportCmd = &cobra.Command{
	Use:   "transport",
	Short: "Estimate the net profit of selling a load at a market",
	Long: `Estimate gross revenue, haulage, commission and net profit for taking
a load of a crop from a farm to a market.

Examples:
  agrimarket transport --crop Wheat --quantity 10 --from 18.52,73.86 --to MH002`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, lon, err := parseLatLon(transportFrom)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		est, err := a.Estimator.Estimate(cmd.Context(), transport.Request{
			Commodity:           transportCrop,
			Quantity:            transportQuantity,
			SourceLat:           lat,
			SourceLon:           lon,
			DestinationMarketID: transportTo,
			FarmerID:            transportFarmer,
		})
		if err != nil {
			return err
		}
		return render(cmd, estimateView{est})
	},
}

func init() {
	rootCmd.AddCommand(transportCmd)

	transportCmd.Flags().StringVarP(&transportCrop, "crop", "c", "", "crop name [REQUIRED]")
	transportCmd.Flags().Float64VarP(&transportQuantity, "quantity", "q", 0, "load in quintals [REQUIRED]")
	transportCmd.Flags().StringVar(&transportFrom, "from", "", "farm location as lat,lon [REQUIRED]")
	transportCmd.Flags().StringVar(&transportTo, "to", "", "destination mandi id [REQUIRED]")
	transportCmd.Flags().StringVar(&transportFarmer, "farmer", "", "farmer id recorded with the estimate")

	transportCmd.MarkFlagRequired("crop")
	transportCmd.MarkFlagRequired("quantity")
	transportCmd.MarkFlagRequired("from")
	transportCmd.MarkFlagRequired("to")
}

// parseLatLon reads "lat,lon"
func parseLatLon(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, apperrors.Validationf("from", "expected lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, apperrors.Validationf("from", "bad latitude %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, apperrors.Validationf("from", "bad longitude %q", parts[1])
	}
	return lat, lon, nil
}

func contextWithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

type estimateView struct {
	*transport.Estimate
}

func (v estimateView) Table() output.Table {
	return output.Table{
		Title:   fmt.Sprintf("%g quintals of %s to %s (%s)", v.Quantity, v.Commodity, v.Destination.Name, v.Destination.ID),
		Headers: []string{"ITEM", "AMOUNT"},
		Rows: [][]string{
			{"Distance", output.Float(v.DistanceKm) + " km"},
			{"Price per quintal", output.Money(v.PricePerQuintal) + " (" + v.PriceSource.String() + ")"},
			{"Gross revenue", output.Money(v.GrossRevenue)},
			{"Transport cost", "-" + output.Money(v.TransportCost)},
			{fmt.Sprintf("Commission (%.1f%%)", v.CommissionRate*100), "-" + output.Money(v.Commission)},
			{"Net profit", output.Money(v.NetProfit)},
			{"Margin", fmt.Sprintf("%.0f%%", v.ProfitMarginPercent)},
		},
	}
}
