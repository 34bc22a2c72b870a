// Package forecast projects a well history forward one day at a time with a
// trained regressor.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/features"
)

// Regressor maps a complete feature row to a predicted level.
type Regressor interface {
	Predict(row domain.FeatureRow) float64
}

// ErrNonFinite is returned when the model predicts NaN or an infinity.
var ErrNonFinite = errors.New("model produced a non-finite value")

// Forecast predicts horizonDays consecutive days after the last observation
// in series. Each day's prediction is added to the lag index before the next
// day is featurized, so lags past the end of history resolve to earlier
// predictions.
func Forecast(ctx context.Context, series domain.TimeSeries, model Regressor, horizonDays int) (domain.ForecastResult, error) {
	if horizonDays <= 0 {
		return domain.ForecastResult{}, fmt.Errorf("%w: %d days", domain.ErrInvalidHorizon, horizonDays)
	}
	if series.Len() < domain.MinHistory {
		return domain.ForecastResult{}, fmt.Errorf("%w: have %d observations, need %d",
			domain.ErrInsufficientHistory, series.Len(), domain.MinHistory)
	}
	if !series.IsSorted() {
		return domain.ForecastResult{}, fmt.Errorf("%w: series is not sorted by date", domain.ErrInsufficientHistory)
	}

	idx := features.NewIndex(series)
	dates := features.HorizonDates(series.Last().Date, horizonDays)
	points := make([]domain.ForecastPoint, 0, horizonDays)

	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return domain.ForecastResult{}, err
		}
		row := idx.Row(date)
		if !row.Valid() {
			return domain.ForecastResult{}, fmt.Errorf("%w: day %d (%s) has no value %d or %d days earlier",
				domain.ErrIncompleteFeatureRow, i+1, date.Format("2006-01-02"), features.Lag7, features.Lag30)
		}
		value := model.Predict(row)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return domain.ForecastResult{}, fmt.Errorf("%w: day %d (%s): %v",
				ErrNonFinite, i+1, date.Format("2006-01-02"), value)
		}
		idx.Set(date, value)
		points = append(points, domain.ForecastPoint{Date: date, Value: value})
	}

	return domain.ForecastResult{Points: points}, nil
}
