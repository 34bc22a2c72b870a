package features_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/features"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailySeries returns n days starting at start with value = day index.
func dailySeries(start time.Time, n int) domain.TimeSeries {
	obs := make([]domain.Observation, n)
	for i := range obs {
		obs[i] = domain.Observation{Date: domain.AddDays(start, i), Value: float64(i)}
	}
	return domain.NewTimeSeries(obs)
}

func TestBuildFeatures_CalendarFields(t *testing.T) {
	rows := features.BuildFeatures(domain.TimeSeries{}, []time.Time{
		date(2020, 12, 31),
		date(2021, 1, 1),
		date(2021, 3, 15),
	})

	require.Len(t, rows, 3)

	// 2020 is a leap year.
	assert.Equal(t, 366, rows[0].DayOfYear)
	assert.Equal(t, 12, rows[0].Month)
	assert.Equal(t, 2020, rows[0].Year)
	assert.Equal(t, 53, rows[0].WeekOfYear)

	// 2021-01-01 belongs to ISO week 53 of 2020.
	assert.Equal(t, 1, rows[1].DayOfYear)
	assert.Equal(t, 1, rows[1].Month)
	assert.Equal(t, 2021, rows[1].Year)
	assert.Equal(t, 53, rows[1].WeekOfYear)

	assert.Equal(t, 74, rows[2].DayOfYear)
	assert.Equal(t, 3, rows[2].Month)
	assert.Equal(t, 11, rows[2].WeekOfYear)
}

func TestBuildFeatures_Lags(t *testing.T) {
	start := date(2020, 1, 1)
	series := dailySeries(start, 40)

	rows := features.BuildFeatures(series, []time.Time{
		domain.AddDays(start, 35),
		domain.AddDays(start, 10),
		domain.AddDays(start, 3),
	})

	require.Len(t, rows, 3)

	require.True(t, rows[0].Valid())
	assert.Equal(t, 28.0, *rows[0].Lag7D)
	assert.Equal(t, 5.0, *rows[0].Lag30D)

	require.NotNil(t, rows[1].Lag7D)
	assert.Equal(t, 3.0, *rows[1].Lag7D)
	assert.Nil(t, rows[1].Lag30D)
	assert.False(t, rows[1].Valid())

	assert.Nil(t, rows[2].Lag7D)
	assert.Nil(t, rows[2].Lag30D)
}

func TestBuildFeatures_PreservesInputOrder(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 60)
	dates := []time.Time{date(2020, 2, 20), date(2020, 2, 1), date(2020, 2, 10)}

	rows := features.BuildFeatures(series, dates)

	require.Len(t, rows, len(dates))
	for i := range dates {
		assert.Equal(t, dates[i], rows[i].Date)
	}
}

func TestBuildFeatures_FutureDatesUseCalendarLags(t *testing.T) {
	start := date(2020, 1, 1)
	series := dailySeries(start, 30)
	last := series.Last().Date

	rows := features.BuildFeatures(series, features.HorizonDates(last, 8))

	// Day 1..7 resolve lag_7d from history; day 8 points at day 1 of the
	// horizon, which is not part of the series.
	for i := 0; i < 7; i++ {
		require.NotNil(t, rows[i].Lag7D, "day %d", i+1)
	}
	assert.Nil(t, rows[7].Lag7D)
}

func TestBuildFeatures_Deterministic(t *testing.T) {
	series := dailySeries(date(2019, 6, 1), 120)
	dates := features.HorizonDates(series.Last().Date, 45)

	first := features.BuildFeatures(series, dates)
	second := features.BuildFeatures(series, dates)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("BuildFeatures is not deterministic (-first +second):\n%s", diff)
	}
}

func TestIndex_SetExtendsLookups(t *testing.T) {
	start := date(2020, 1, 1)
	idx := features.NewIndex(dailySeries(start, 30))
	future := domain.AddDays(start, 30)

	before := idx.Row(domain.AddDays(future, 7))
	assert.Nil(t, before.Lag7D)

	idx.Set(future, 99)

	after := idx.Row(domain.AddDays(future, 7))
	require.NotNil(t, after.Lag7D)
	assert.Equal(t, 99.0, *after.Lag7D)

	v, ok := idx.Lookup(future)
	assert.True(t, ok)
	assert.Equal(t, 99.0, v)
}

func TestTrainingRows_DropsRowsWithoutLags(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 45)

	rows := features.TrainingRows(series)

	require.Len(t, rows, 15)
	assert.Equal(t, date(2020, 1, 31), rows[0].Features.Date)
	assert.Equal(t, 30.0, rows[0].Target)
	assert.Equal(t, 23.0, *rows[0].Features.Lag7D)
	assert.Equal(t, 0.0, *rows[0].Features.Lag30D)
	for _, r := range rows {
		assert.True(t, r.Features.Valid())
	}
}

func TestTrainingRows_GapsUseCalendarDays(t *testing.T) {
	obs := []domain.Observation{}
	start := date(2020, 1, 1)
	for i := 0; i < 40; i++ {
		if i == 33 {
			continue
		}
		obs = append(obs, domain.Observation{Date: domain.AddDays(start, i), Value: float64(i)})
	}

	rows := features.TrainingRows(domain.NewTimeSeries(obs))

	// Day 33 has no observation, so it yields no row. Days 30..39 otherwise
	// resolve both lags.
	for _, r := range rows {
		assert.NotEqual(t, domain.AddDays(start, 33), r.Features.Date)
	}
	assert.Len(t, rows, 9)
}

func TestHorizonDates(t *testing.T) {
	dates := features.HorizonDates(date(2020, 12, 30), 3)
	assert.Equal(t, []time.Time{date(2020, 12, 31), date(2021, 1, 1), date(2021, 1, 2)}, dates)
	assert.Nil(t, features.HorizonDates(date(2020, 1, 1), 0))
}
