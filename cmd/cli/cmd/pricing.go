// Package cmd - price data commands
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agrimarket/core/output"
	"agrimarket/core/pricing"
	"agrimarket/core/types"
	"agrimarket/db/ingestion"
	apperrors "agrimarket/internal/errors"
)

var (
	pricesSeed       uint64
	pricesReplace    bool
	pricesConfirm    bool
	pricesTimeout    time.Duration
	pricesLookback   int
	pricesDays       int
	pricesRegion     string
	pricesLocalState string
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Price data management and queries",
}

var pricesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the store with synthetic prices",
	Long: `Generate 30 days of synthetic prices for every catalog market and store them.

The same --seed always produces the same prices. With --replace, existing
prices are deleted first.`,
	RunE: runPricesSeed,
}

var pricesHighestCmd = &cobra.Command{
	Use:   "highest <crop>",
	Short: "Show the highest recent price for a crop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		obs, err := a.Prices.FindHighest(cmd.Context(), pricing.Criteria{
			Commodity: args[0],
			Since:     pricing.Window(time.Now(), pricesLookback),
		})
		if err != nil {
			return err
		}
		if obs == nil {
			return apperrors.NotFound("price data", args[0])
		}
		return render(cmd, observationView{obs})
	},
}

var pricesRegionsCmd = &cobra.Command{
	Use:   "regions <crop>",
	Short: "Show the highest recent price per state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		highs, err := a.Store.HighestPerRegion(cmd.Context(), args[0], pricing.Window(time.Now(), pricesLookback))
		if err != nil {
			return err
		}
		return render(cmd, regionsView(highs))
	},
}

var pricesHistoryCmd = &cobra.Command{
	Use:   "history <crop>",
	Short: "Show daily price statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Store.DailyHistory(cmd.Context(), args[0], pricesRegion, pricing.Window(time.Now(), pricesDays))
		if err != nil {
			return err
		}
		return render(cmd, historyView(stats))
	},
}

var pricesLocalCmd = &cobra.Command{
	Use:   "local <crop> --state <state>",
	Short: "Show the latest day's prices in one state, best first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(pricesLocalState) == "" {
			return apperrors.Validation("state", "--state is required")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		prices, err := a.Store.LatestDay(cmd.Context(), args[0], pricesLocalState)
		if err != nil {
			return err
		}
		if len(prices) == 0 {
			return apperrors.NotFound("price data", args[0]+" in "+pricesLocalState)
		}
		return render(cmd, localView(prices))
	},
}

var pricesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count stored price observations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Store.CountPrices(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d price observations (%s store)\n", n, a.Config.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.AddCommand(pricesSeedCmd)
	pricesCmd.AddCommand(pricesHighestCmd)
	pricesCmd.AddCommand(pricesRegionsCmd)
	pricesCmd.AddCommand(pricesHistoryCmd)
	pricesCmd.AddCommand(pricesLocalCmd)
	pricesCmd.AddCommand(pricesCountCmd)

	pricesSeedCmd.Flags().Uint64Var(&pricesSeed, "seed", 0, "random seed (0 = random)")
	pricesSeedCmd.Flags().BoolVar(&pricesReplace, "replace", false, "delete existing prices first")
	pricesSeedCmd.Flags().BoolVar(&pricesConfirm, "confirm", false, "skip the confirmation prompt for --replace")
	pricesSeedCmd.Flags().DurationVar(&pricesTimeout, "timeout", 5*time.Minute, "timeout for the pipeline")

	pricesHighestCmd.Flags().IntVar(&pricesLookback, "days", 7, "lookback window in days")
	pricesRegionsCmd.Flags().IntVar(&pricesLookback, "days", 7, "lookback window in days")

	pricesHistoryCmd.Flags().IntVar(&pricesDays, "days", 30, "history window in days")
	pricesHistoryCmd.Flags().StringVarP(&pricesRegion, "state", "s", "", "only include this state")

	pricesLocalCmd.Flags().StringVarP(&pricesLocalState, "state", "s", "", "state to look up (required)")
}

func runPricesSeed(cmd *cobra.Command, args []string) error {
	if pricesReplace && !pricesConfirm {
		fmt.Fprintln(cmd.OutOrStdout(), "This deletes every stored price before seeding.")
		fmt.Fprint(cmd.OutOrStdout(), "Type 'yes' to confirm: ")

		reader := bufio.NewReader(cmd.InOrStdin())
		input, _ := reader.ReadString('\n')
		if strings.TrimSpace(strings.ToLower(input)) != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if pricesTimeout > 0 {
		var cancel func()
		ctx, cancel = contextWithTimeout(ctx, pricesTimeout)
		defer cancel()
	}

	report, err := a.Seed(ctx, pricesSeed, pricesReplace)
	if err != nil {
		return err
	}
	return render(cmd, reportView{report})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type observationView struct {
	*types.PriceObservation
}

func (v observationView) Table() output.Table {
	return output.Table{
		Title:   "Highest price for " + v.Commodity,
		Headers: []string{"MANDI", "STATE", "PRICE", "DATE"},
		Rows: [][]string{{
			v.Market, v.Region,
			output.Money(v.Price) + "/" + v.Unit.String(),
			v.ObservedAt.Format(types.DateLayout),
		}},
	}
}

type regionsView []types.RegionHigh

func (v regionsView) Table() output.Table {
	t := output.Table{
		Title:   "Highest price by state",
		Headers: []string{"STATE", "MANDI", "PRICE", "DATE"},
	}
	for _, h := range v {
		t.Rows = append(t.Rows, []string{
			h.Region, h.Market,
			output.Money(h.HighestPrice) + "/" + h.Unit.String(),
			h.ObservedAt.Format(types.DateLayout),
		})
	}
	return t
}

type historyView []types.DailyStat

func (v historyView) Table() output.Table {
	t := output.Table{
		Title:   "Daily prices",
		Headers: []string{"DATE", "AVG", "MIN", "MAX", "COUNT"},
	}
	for _, s := range v {
		t.Rows = append(t.Rows, []string{
			s.Date, output.Float(s.AvgPrice), output.Money(s.MinPrice), output.Money(s.MaxPrice), strconv.Itoa(s.Count),
		})
	}
	return t
}

type localView []types.PriceObservation

func (v localView) Table() output.Table {
	t := output.Table{
		Headers: []string{"MANDI", "PRICE", "DATE"},
	}
	if len(v) > 0 {
		t.Title = "Latest " + v[0].Commodity + " prices in " + v[0].Region
	}
	for _, o := range v {
		t.Rows = append(t.Rows, []string{
			o.Market,
			output.Money(o.Price) + "/" + o.Unit.String(),
			o.ObservedAt.Format(types.DateLayout),
		})
	}
	return t
}

type reportView struct {
	*ingestion.Report
}

func (v reportView) Table() output.Table {
	return output.Table{
		Title:   "Ingestion " + v.BatchID,
		Headers: []string{"SOURCE", "FETCHED", "REJECTED", "INSERTED", "DURATION"},
		Rows: [][]string{{
			v.Source,
			strconv.Itoa(v.Fetched),
			strconv.Itoa(v.Rejected),
			strconv.Itoa(v.Inserted),
			v.Duration.Round(time.Millisecond).String(),
		}},
	}
}
