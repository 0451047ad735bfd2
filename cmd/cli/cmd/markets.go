// Package cmd - market catalog commands
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"agrimarket/core/market"
	"agrimarket/core/output"
	"agrimarket/core/types"
)

var (
	marketsRegion string
	nearbyLat     float64
	nearbyLon     float64
	nearbyCrop    string
	nearbyLimit   int
)

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "Browse the market catalog",
}

var marketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog markets",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		markets := a.Catalog.All()
		if marketsRegion != "" {
			markets = a.Catalog.ByRegion(marketsRegion)
		}
		return render(cmd, marketsView(markets))
	},
}

var marketsNearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Rank markets by distance from a point",
	Long: `Rank markets by great-circle distance from a point.

With --crop, each market is enriched with its latest price, falling back to
the highest recent price in its state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Resolver.Nearest(cmd.Context(), market.NearestRequest{
			Lat:       nearbyLat,
			Lon:       nearbyLon,
			Commodity: nearbyCrop,
			Limit:     nearbyLimit,
		})
		if err != nil {
			return err
		}
		return render(cmd, nearbyView{result})
	},
}

func init() {
	rootCmd.AddCommand(marketsCmd)
	marketsCmd.AddCommand(marketsListCmd)
	marketsCmd.AddCommand(marketsNearbyCmd)

	marketsListCmd.Flags().StringVarP(&marketsRegion, "state", "s", "", "only list markets in this state")

	marketsNearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "latitude in degrees [REQUIRED]")
	marketsNearbyCmd.Flags().Float64Var(&nearbyLon, "lon", 0, "longitude in degrees [REQUIRED]")
	marketsNearbyCmd.Flags().StringVarP(&nearbyCrop, "crop", "c", "", "crop to attach prices for")
	marketsNearbyCmd.Flags().IntVarP(&nearbyLimit, "limit", "n", 0, "number of markets (default from config)")
	marketsNearbyCmd.MarkFlagRequired("lat")
	marketsNearbyCmd.MarkFlagRequired("lon")
}

type marketsView []types.Market

func (v marketsView) Table() output.Table {
	t := output.Table{
		Title:   fmt.Sprintf("%d markets", len(v)),
		Headers: []string{"ID", "NAME", "DISTRICT", "STATE", "LAT", "LON"},
	}
	for _, m := range v {
		t.Rows = append(t.Rows, []string{
			m.ID, m.Name, m.District, m.Region,
			strconv.FormatFloat(m.Coordinates.Lat, 'f', 4, 64),
			strconv.FormatFloat(m.Coordinates.Lon, 'f', 4, 64),
		})
	}
	return t
}

type nearbyView struct {
	*market.NearestResult
}

func (v nearbyView) Table() output.Table {
	t := output.Table{
		Title:   fmt.Sprintf("Markets nearest to %.4f, %.4f", v.QueryPoint.Lat, v.QueryPoint.Lon),
		Headers: []string{"#", "ID", "NAME", "STATE", "DISTANCE"},
	}
	if v.Commodity != nil {
		t.Title += " for " + *v.Commodity
		t.Headers = append(t.Headers, "PRICE", "SOURCE")
	}
	for i, m := range v.Markets {
		row := []string{strconv.Itoa(i + 1), m.ID, m.Name, m.Region, m.Distance}
		if v.Commodity != nil {
			if m.CropPrice != nil {
				row = append(row, output.Money(m.CropPrice.Price)+"/"+m.CropPrice.Unit.String(), m.CropPrice.Source.String())
			} else {
				row = append(row, "-", "no data")
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
