package types

// ForecastPoint is one projected day
type ForecastPoint struct {
	Date           string  `json:"date"`
	PredictedPrice float64 `json:"predictedPrice"`
	Confidence     float64 `json:"confidence"`
}

// Forecast is a short-horizon price projection for one commodity
type Forecast struct {
	Commodity string `json:"cropName"`

	// BasedOnDays is the number of daily history points used
	BasedOnDays int `json:"basedOnDays"`

	Trend Trend `json:"trend"`

	// TrendValue is the slope per day, rounded to two decimals
	TrendValue float64 `json:"trendValue"`

	Predictions []ForecastPoint `json:"predictions"`
}
