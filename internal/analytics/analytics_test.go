package analytics_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/analytics"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func linearSeries(start time.Time, n int, intercept, slope float64) domain.TimeSeries {
	obs := make([]domain.Observation, n)
	for i := range obs {
		obs[i] = domain.Observation{Date: domain.AddDays(start, i), Value: intercept + slope*float64(i)}
	}
	return domain.NewTimeSeries(obs)
}

func TestBuild_Empty(t *testing.T) {
	r := analytics.Build(domain.TimeSeries{})
	assert.Empty(t, r.Points)
	assert.Zero(t, r.Summary.Count)
}

func TestBuild_Summary(t *testing.T) {
	s := domain.NewTimeSeries([]domain.Observation{
		{Date: date(2020, 1, 1), Value: 4},
		{Date: date(2020, 1, 2), Value: 2},
		{Date: date(2020, 1, 3), Value: 6},
		{Date: date(2020, 1, 4), Value: 1.23456},
	})

	sum := analytics.Build(s).Summary

	assert.Equal(t, 4, sum.Count)
	assert.Equal(t, date(2020, 1, 1), sum.FirstDate)
	assert.Equal(t, date(2020, 1, 4), sum.LastDate)
	assert.Equal(t, 1.235, sum.Min)
	assert.Equal(t, 6.0, sum.Max)
	assert.Equal(t, 3.309, sum.Mean)
	assert.Equal(t, 1.235, sum.Latest)
	assert.Greater(t, sum.StdDev, 0.0)
}

func TestBuild_TrendRecoversLine(t *testing.T) {
	s := linearSeries(date(2019, 1, 1), 100, 12.5, -0.02)

	r := analytics.Build(s)

	assert.InDelta(t, 12.5, r.Trend.Intercept, 1e-9)
	assert.InDelta(t, -0.02, r.Trend.SlopePerDay, 1e-9)
	assert.InDelta(t, -7.305, r.Trend.SlopeYear, 1e-9)
	assert.Equal(t, 1.0, r.Trend.RSquared)
	assert.InDelta(t, 12.5-0.02*99, r.Points[99].Trend, 1e-9)
}

func TestBuild_ConstantSeriesTrend(t *testing.T) {
	r := analytics.Build(linearSeries(date(2020, 1, 1), 10, 5, 0))
	assert.InDelta(t, 5, r.Trend.Intercept, 1e-9)
	assert.InDelta(t, 0, r.Trend.SlopePerDay, 1e-9)
	assert.Equal(t, 0.0, r.Trend.RSquared)
}

func TestBuild_Points(t *testing.T) {
	s := linearSeries(date(2020, 12, 30), 3, 1, 1)

	pts := analytics.Build(s).Points

	require.Len(t, pts, 3)
	assert.Equal(t, "December", pts[0].Month)
	assert.Equal(t, 365, pts[0].DayOfYear)
	assert.Equal(t, 2020, pts[1].Year)
	assert.Equal(t, 366, pts[1].DayOfYear)
	assert.Equal(t, "January", pts[2].Month)
	assert.Equal(t, 2021, pts[2].Year)
	assert.Equal(t, 1, pts[2].DayOfYear)
}

func TestRollingMean(t *testing.T) {
	values := make([]float64, 35)
	for i := range values {
		values[i] = float64(i)
	}

	out := analytics.RollingMean(values, 30)

	require.Len(t, out, 35)
	for i := 0; i < 29; i++ {
		assert.Nil(t, out[i], "index %d", i)
	}
	require.NotNil(t, out[29])
	assert.InDelta(t, 14.5, *out[29], 1e-9)
	assert.InDelta(t, 19.5, *out[34], 1e-9)
}

func TestRollingMean_ShortInput(t *testing.T) {
	out := analytics.RollingMean([]float64{1, 2, 3}, 30)
	assert.Equal(t, []*float64{nil, nil, nil}, out)
}

func TestBuild_YearlyAndMonthly(t *testing.T) {
	s := domain.NewTimeSeries([]domain.Observation{
		{Date: date(2020, 1, 5), Value: 1},
		{Date: date(2020, 1, 20), Value: 3},
		{Date: date(2020, 6, 1), Value: 8},
		{Date: date(2021, 1, 5), Value: 5},
	})

	r := analytics.Build(s)

	assert.Equal(t, []analytics.YearAverage{
		{Year: 2020, Mean: 4, Count: 3},
		{Year: 2021, Mean: 5, Count: 1},
	}, r.Yearly)

	require.Len(t, r.Monthly, 2)
	assert.Equal(t, analytics.MonthProfile{Month: "January", Mean: 3, Min: 1, Max: 5, Count: 3}, r.Monthly[0])
	assert.Equal(t, analytics.MonthProfile{Month: "June", Mean: 8, Min: 8, Max: 8, Count: 1}, r.Monthly[1])
}
