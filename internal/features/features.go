// Package features derives calendar and lag features from a well history.
package features

import (
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
)

// Lag offsets in calendar days.
const (
	Lag7  = 7
	Lag30 = 30
)

// Index is a day-keyed view of a series that can grow as forecast values are
// produced. The forecast engine appends predictions to it so later rows can
// resolve lags against earlier predictions.
type Index struct {
	values map[int64]float64
}

// NewIndex builds an Index over every observation in series.
func NewIndex(series domain.TimeSeries) *Index {
	idx := &Index{values: make(map[int64]float64, series.Len())}
	for i := 0; i < series.Len(); i++ {
		o := series.At(i)
		idx.values[domain.DayNumber(o.Date)] = o.Value
	}
	return idx
}

// Set records value for the calendar day of date, replacing any prior value.
func (x *Index) Set(date time.Time, value float64) {
	x.values[domain.DayNumber(date)] = value
}

// Lookup returns the value recorded for date's calendar day.
func (x *Index) Lookup(date time.Time) (float64, bool) {
	v, ok := x.values[domain.DayNumber(date)]
	return v, ok
}

// Row builds the feature row for date against the current index contents.
func (x *Index) Row(date time.Time) domain.FeatureRow {
	date = domain.Day(date)
	_, week := date.ISOWeek()
	row := domain.FeatureRow{
		Date:       date,
		DayOfYear:  date.YearDay(),
		Month:      int(date.Month()),
		Year:       date.Year(),
		WeekOfYear: week,
	}
	if v, ok := x.Lookup(domain.AddDays(date, -Lag7)); ok {
		row.Lag7D = &v
	}
	if v, ok := x.Lookup(domain.AddDays(date, -Lag30)); ok {
		row.Lag30D = &v
	}
	return row
}

// BuildFeatures returns one feature row per date, in input order. Dates may
// lie past the end of series; their lags resolve only if the lag date is in
// series. It has no side effects.
func BuildFeatures(series domain.TimeSeries, dates []time.Time) []domain.FeatureRow {
	idx := NewIndex(series)
	rows := make([]domain.FeatureRow, len(dates))
	for i, d := range dates {
		rows[i] = idx.Row(d)
	}
	return rows
}

// TrainingRow pairs a valid feature row with the observed value for its date.
type TrainingRow struct {
	Features domain.FeatureRow
	Target   float64
}

// TrainingRows builds a row for every observation and drops the ones with an
// unresolved lag. This is the row set model artifacts are trained on.
func TrainingRows(series domain.TimeSeries) []TrainingRow {
	idx := NewIndex(series)
	rows := make([]TrainingRow, 0, series.Len())
	for i := 0; i < series.Len(); i++ {
		o := series.At(i)
		row := idx.Row(o.Date)
		if !row.Valid() {
			continue
		}
		rows = append(rows, TrainingRow{Features: row, Target: o.Value})
	}
	return rows
}

// HorizonDates returns the n consecutive days following last.
func HorizonDates(last time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = domain.AddDays(last, i+1)
	}
	return dates
}
