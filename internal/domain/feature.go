package domain

import (
	"math"
	"time"
)

// FeatureNames is the column order every model artifact is trained on.
var FeatureNames = []string{"day_of_year", "month", "year", "week_of_year", "lag_7d", "lag_30d"}

// FeatureRow holds the calendar and lag features for one target date. Lag
// fields are nil when the lag date has no known value.
type FeatureRow struct {
	Date       time.Time `json:"date"`
	DayOfYear  int       `json:"day_of_year"`
	Month      int       `json:"month"`
	Year       int       `json:"year"`
	WeekOfYear int       `json:"week_of_year"`
	Lag7D      *float64  `json:"lag_7d"`
	Lag30D     *float64  `json:"lag_30d"`
}

// Valid reports whether both lag features are defined.
func (r FeatureRow) Valid() bool {
	return r.Lag7D != nil && r.Lag30D != nil
}

// Vector returns the features in FeatureNames order. Undefined lags are
// returned as NaN so tree models can route them down their default branch.
func (r FeatureRow) Vector() []float64 {
	return []float64{
		float64(r.DayOfYear),
		float64(r.Month),
		float64(r.Year),
		float64(r.WeekOfYear),
		valueOrNaN(r.Lag7D),
		valueOrNaN(r.Lag30D),
	}
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// ForecastPoint is one predicted day.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ForecastResult is a contiguous run of predicted days following the last
// historical date.
type ForecastResult struct {
	Points []ForecastPoint `json:"points"`
}

// Len returns the number of forecast days.
func (f ForecastResult) Len() int { return len(f.Points) }
