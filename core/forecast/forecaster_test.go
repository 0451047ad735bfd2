package forecast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/core/pricing"
	"agrimarket/core/types"
	apperrors "agrimarket/internal/errors"
	"agrimarket/internal/logging"
)

type stubHistory struct {
	series []types.DailyPrice
	err    error

	gotCommodity string
	gotSince     time.Time
}

func (s *stubHistory) FindLatest(ctx context.Context, c pricing.Criteria) (*types.PriceObservation, error) {
	return nil, nil
}

func (s *stubHistory) FindHighest(ctx context.Context, c pricing.Criteria) (*types.PriceObservation, error) {
	return nil, nil
}

func (s *stubHistory) AggregateDaily(ctx context.Context, commodity string, since time.Time) ([]types.DailyPrice, error) {
	s.gotCommodity = commodity
	s.gotSince = since
	return s.series, s.err
}

func series(means ...float64) []types.DailyPrice {
	out := make([]types.DailyPrice, len(means))
	for i, m := range means {
		out[i] = types.DailyPrice{Date: time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC).Format(types.DateLayout), MeanPrice: m}
	}
	return out
}

var fixedNow = time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

func newForecaster(q pricing.Query, noise NoiseSource) *Forecaster {
	f := New(q, noise, DefaultConfig(), logging.Nop())
	f.now = func() time.Time { return fixedNow }
	return f
}

func TestForecast_EmptyHistory(t *testing.T) {
	f := newForecaster(&stubHistory{}, NewSource(42))

	fc, err := f.Forecast(context.Background(), "Saffron")
	require.NoError(t, err)

	assert.Equal(t, "Saffron", fc.Commodity)
	assert.Equal(t, 0, fc.BasedOnDays)
	assert.Equal(t, types.TrendStable, fc.Trend)
	assert.Equal(t, 0.0, fc.TrendValue)
	require.Len(t, fc.Predictions, 7)

	for i, p := range fc.Predictions {
		assert.GreaterOrEqual(t, p.PredictedPrice, 1940.0)
		assert.LessOrEqual(t, p.PredictedPrice, 2060.0)
		assert.Equal(t, 85-3*float64(i+1), p.Confidence)
	}
	assert.Equal(t, "2026-04-11", fc.Predictions[0].Date)
	assert.Equal(t, "2026-04-17", fc.Predictions[6].Date)
}

func TestForecast_NoiseBoundsAcrossSeeds(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		f := newForecaster(&stubHistory{series: series(3000)}, NewSource(seed))
		fc, err := f.Forecast(context.Background(), "Rice")
		require.NoError(t, err)
		for _, p := range fc.Predictions {
			assert.GreaterOrEqual(t, p.PredictedPrice, 2910.0)
			assert.LessOrEqual(t, p.PredictedPrice, 3090.0)
		}
	}
}

func TestForecast_RisingTrend(t *testing.T) {
	f := newForecaster(&stubHistory{series: series(1000, 1100, 1200)}, FixedSource(0.5))

	fc, err := f.Forecast(context.Background(), "Wheat")
	require.NoError(t, err)

	assert.Equal(t, 3, fc.BasedOnDays)
	assert.Equal(t, types.TrendRising, fc.Trend)
	assert.Equal(t, 100.0, fc.TrendValue)
	for i, p := range fc.Predictions {
		assert.Equal(t, 1200+100*float64(i+1), p.PredictedPrice)
	}
}

func TestForecast_FallingTrendRespectsFloor(t *testing.T) {
	f := newForecaster(&stubHistory{series: series(1000, 600)}, FixedSource(0.5))

	fc, err := f.Forecast(context.Background(), "Tomato")
	require.NoError(t, err)

	assert.Equal(t, types.TrendFalling, fc.Trend)
	assert.Equal(t, -400.0, fc.TrendValue)
	for _, p := range fc.Predictions {
		assert.Equal(t, 500.0, p.PredictedPrice)
	}
}

func TestForecast_SinglePointIsStable(t *testing.T) {
	f := newForecaster(&stubHistory{series: series(4100)}, FixedSource(0.5))

	fc, err := f.Forecast(context.Background(), "Soybean")
	require.NoError(t, err)

	assert.Equal(t, 1, fc.BasedOnDays)
	assert.Equal(t, types.TrendStable, fc.Trend)
	for _, p := range fc.Predictions {
		assert.Equal(t, 4100.0, p.PredictedPrice)
	}
}

func TestForecast_ConfidenceDecaysAndClamps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HorizonDays = 40
	f := New(&stubHistory{}, FixedSource(0.5), cfg, logging.Nop())

	fc, err := f.Forecast(context.Background(), "Wheat")
	require.NoError(t, err)
	require.Len(t, fc.Predictions, 40)

	for i := 1; i < len(fc.Predictions); i++ {
		prev, cur := fc.Predictions[i-1].Confidence, fc.Predictions[i].Confidence
		if prev >= 3 {
			assert.Equal(t, prev-3, cur, "day %d", i+1)
		}
		assert.GreaterOrEqual(t, cur, 0.0)
		assert.LessOrEqual(t, cur, prev)
	}
	assert.Equal(t, 82.0, fc.Predictions[0].Confidence)
	assert.Equal(t, 1.0, fc.Predictions[27].Confidence)
	assert.Equal(t, 0.0, fc.Predictions[28].Confidence)
}

func TestForecast_QueriesHistoryWindow(t *testing.T) {
	stub := &stubHistory{}
	f := newForecaster(stub, FixedSource(0.5))

	_, err := f.Forecast(context.Background(), "  Maize ")
	require.NoError(t, err)

	assert.Equal(t, "Maize", stub.gotCommodity)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), stub.gotSince)
}

func TestForecast_StoreErrorDegradesToDefault(t *testing.T) {
	f := newForecaster(&stubHistory{series: series(5000, 6000), err: errors.New("down")}, FixedSource(0.5))

	fc, err := f.Forecast(context.Background(), "Cotton")
	require.NoError(t, err)
	assert.Equal(t, 0, fc.BasedOnDays)
	assert.Equal(t, 2000.0, fc.Predictions[0].PredictedPrice)
}

func TestForecast_EmptyCommodity(t *testing.T) {
	f := newForecaster(&stubHistory{}, FixedSource(0.5))

	_, err := f.Forecast(context.Background(), " ")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))
}

func TestForecast_ConcurrentCallsShareSource(t *testing.T) {
	f := newForecaster(&stubHistory{series: series(2000, 2100)}, NewSource(7))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fc, err := f.Forecast(context.Background(), "Wheat")
			assert.NoError(t, err)
			assert.Len(t, fc.Predictions, 7)
		}()
	}
	wg.Wait()
}

func TestSlope(t *testing.T) {
	assert.Equal(t, 0.0, Slope(nil))
	assert.Equal(t, 0.0, Slope([]float64{5}))
	assert.InDelta(t, 2.0, Slope([]float64{1, 3, 5, 7}), 1e-9)
	assert.InDelta(t, -0.5, Slope([]float64{2, 1.5, 1}), 1e-9)
	assert.InDelta(t, 0.0, Slope([]float64{4, 4, 4}), 1e-9)
	// y = 1, 2, 2, 3  -> slope 0.6
	assert.InDelta(t, 0.6, Slope([]float64{1, 2, 2, 3}), 1e-9)
}

func TestNewSource_Deterministic(t *testing.T) {
	a, b := NewSource(99), NewSource(99)
	for i := 0; i < 10; i++ {
		va := a.Float64()
		assert.Equal(t, va, b.Float64())
		assert.GreaterOrEqual(t, va, 0.0)
		assert.Less(t, va, 1.0)
	}
}
