package pricing

import (
	"math"
	"sort"

	"agrimarket/core/types"
)

// DailyStats buckets observations by UTC calendar day, ascending.
// AvgPrice is rounded to two decimals.
func DailyStats(obs []types.PriceObservation) []types.DailyStat {
	type acc struct {
		sum, min, max float64
		n             int
	}
	days := make(map[string]*acc)
	for _, o := range obs {
		d := o.ObservedAt.UTC().Format(types.DateLayout)
		a, ok := days[d]
		if !ok {
			a = &acc{min: o.Price, max: o.Price}
			days[d] = a
		}
		a.sum += o.Price
		a.n++
		a.min = math.Min(a.min, o.Price)
		a.max = math.Max(a.max, o.Price)
	}

	result := make([]types.DailyStat, 0, len(days))
	for d, a := range days {
		result = append(result, types.DailyStat{
			Date:     d,
			AvgPrice: math.Round(a.sum/float64(a.n)*100) / 100,
			MinPrice: a.min,
			MaxPrice: a.max,
			Count:    a.n,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}

// DailyMeans buckets observations by UTC calendar day and averages each bucket, ascending
func DailyMeans(obs []types.PriceObservation) []types.DailyPrice {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, o := range obs {
		d := o.ObservedAt.UTC().Format(types.DateLayout)
		sums[d] += o.Price
		counts[d]++
	}

	result := make([]types.DailyPrice, 0, len(sums))
	for d, s := range sums {
		result = append(result, types.DailyPrice{Date: d, MeanPrice: s / float64(counts[d])})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}

// RegionHighs keeps the highest observation per region, price descending then region ascending
func RegionHighs(obs []types.PriceObservation) []types.RegionHigh {
	best := make(map[string]types.PriceObservation)
	for _, o := range obs {
		k := Key(o.Region)
		if cur, ok := best[k]; !ok || o.Price > cur.Price {
			best[k] = o
		}
	}

	result := make([]types.RegionHigh, 0, len(best))
	for _, o := range best {
		result = append(result, types.RegionHigh{
			Region:       o.Region,
			HighestPrice: o.Price,
			Market:       o.Market,
			Unit:         o.Unit,
			ObservedAt:   o.ObservedAt,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].HighestPrice != result[j].HighestPrice {
			return result[i].HighestPrice > result[j].HighestPrice
		}
		return result[i].Region < result[j].Region
	})
	return result
}

// LatestDay keeps the observations on the most recent UTC calendar day,
// price descending then newest first
func LatestDay(obs []types.PriceObservation) []types.PriceObservation {
	latest := ""
	for _, o := range obs {
		if d := o.ObservedAt.UTC().Format(types.DateLayout); d > latest {
			latest = d
		}
	}

	var result []types.PriceObservation
	for _, o := range obs {
		if o.ObservedAt.UTC().Format(types.DateLayout) == latest {
			result = append(result, o)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Price != result[j].Price {
			return result[i].Price > result[j].Price
		}
		return result[i].ObservedAt.After(result[j].ObservedAt)
	})
	return result
}
