// Package analytics computes the historical chart series for a well: summary
// statistics, a 30-day rolling average, an OLS trend line, yearly averages,
// and a monthly profile.
package analytics

import (
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// RollingWindow is the number of observations in the rolling average.
const RollingWindow = 30

// statPlaces is the number of decimal places reported for summary values.
const statPlaces = 3

// Summary holds headline statistics for a series.
type Summary struct {
	Count     int       `json:"count"`
	FirstDate time.Time `json:"first_date"`
	LastDate  time.Time `json:"last_date"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Mean      float64   `json:"mean"`
	StdDev    float64   `json:"std_dev"`
	Latest    float64   `json:"latest"`
}

// Point is one row of the trend chart.
type Point struct {
	Date         time.Time `json:"date"`
	Value        float64   `json:"value"`
	Year         int       `json:"year"`
	Month        string    `json:"month"`
	DayOfYear    int       `json:"day_of_year"`
	RollingAvg30 *float64  `json:"rolling_avg_30d"`
	Trend        float64   `json:"trend"`
}

// Trend is an ordinary least squares fit of value against days elapsed since
// the first observation.
type Trend struct {
	Intercept   float64 `json:"intercept"`
	SlopePerDay float64 `json:"slope_per_day"`
	SlopeYear   float64 `json:"slope_per_year"`
	RSquared    float64 `json:"r_squared"`
}

// YearAverage is the mean level for one calendar year.
type YearAverage struct {
	Year  int     `json:"year"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// MonthProfile aggregates every observation that fell in one calendar month.
type MonthProfile struct {
	Month string  `json:"month"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Report is everything the analytics views draw from.
type Report struct {
	Summary Summary        `json:"summary"`
	Points  []Point        `json:"points"`
	Trend   Trend          `json:"trend"`
	Yearly  []YearAverage  `json:"yearly"`
	Monthly []MonthProfile `json:"monthly"`
}

// Build computes a Report. An empty series yields an empty report.
func Build(series domain.TimeSeries) Report {
	if series.Len() == 0 {
		return Report{}
	}

	values := series.Values()
	days := elapsedDays(series)
	tr := fitTrend(days, values)
	rolling := RollingMean(values, RollingWindow)

	points := make([]Point, series.Len())
	for i := range points {
		o := series.At(i)
		points[i] = Point{
			Date:         o.Date,
			Value:        o.Value,
			Year:         o.Date.Year(),
			Month:        o.Date.Month().String(),
			DayOfYear:    o.Date.YearDay(),
			RollingAvg30: rolling[i],
			Trend:        tr.Intercept + tr.SlopePerDay*days[i],
		}
	}

	return Report{
		Summary: summarize(series, values),
		Points:  points,
		Trend:   tr,
		Yearly:  yearly(series),
		Monthly: monthly(series),
	}
}

// RollingMean returns the trailing simple moving average of window values
// for each index. The first window-1 entries are nil.
func RollingMean(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	sma := trend.NewSmaWithPeriod[float64](window)
	means := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	offset := len(values) - len(means)
	for i := range means {
		v := means[i]
		out[offset+i] = &v
	}
	return out
}

func summarize(series domain.TimeSeries, values []float64) Summary {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}
	return Summary{
		Count:     series.Len(),
		FirstDate: series.First().Date,
		LastDate:  series.Last().Date,
		Min:       round(lo),
		Max:       round(hi),
		Mean:      round(mean),
		StdDev:    round(std),
		Latest:    round(series.Last().Value),
	}
}

func fitTrend(days, values []float64) Trend {
	if len(values) < 2 {
		return Trend{Intercept: values[0]}
	}
	alpha, beta := stat.LinearRegression(days, values, nil, false)
	r2 := stat.RSquared(days, values, nil, alpha, beta)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}
	return Trend{
		Intercept:   alpha,
		SlopePerDay: beta,
		SlopeYear:   round(beta * 365.25),
		RSquared:    round(r2),
	}
}

func elapsedDays(series domain.TimeSeries) []float64 {
	origin := domain.DayNumber(series.First().Date)
	out := make([]float64, series.Len())
	for i := range out {
		out[i] = float64(domain.DayNumber(series.At(i).Date) - origin)
	}
	return out
}

func yearly(series domain.TimeSeries) []YearAverage {
	var out []YearAverage
	for i := 0; i < series.Len(); i++ {
		o := series.At(i)
		if n := len(out); n == 0 || out[n-1].Year != o.Date.Year() {
			out = append(out, YearAverage{Year: o.Date.Year()})
		}
		ya := &out[len(out)-1]
		ya.Mean += o.Value
		ya.Count++
	}
	for i := range out {
		out[i].Mean = round(out[i].Mean / float64(out[i].Count))
	}
	return out
}

func monthly(series domain.TimeSeries) []MonthProfile {
	var acc [12]MonthProfile
	for i := range acc {
		acc[i] = MonthProfile{Month: time.Month(i + 1).String(), Min: math.Inf(1), Max: math.Inf(-1)}
	}
	for i := 0; i < series.Len(); i++ {
		o := series.At(i)
		m := &acc[o.Date.Month()-1]
		m.Mean += o.Value
		m.Min = math.Min(m.Min, o.Value)
		m.Max = math.Max(m.Max, o.Value)
		m.Count++
	}
	out := make([]MonthProfile, 0, 12)
	for _, m := range acc {
		if m.Count == 0 {
			continue
		}
		m.Mean = round(m.Mean / float64(m.Count))
		m.Min = round(m.Min)
		m.Max = round(m.Max)
		out = append(out, m)
	}
	return out
}

func round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(statPlaces).InexactFloat64()
}
