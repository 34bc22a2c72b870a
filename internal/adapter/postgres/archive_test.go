package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestArchive_SaveSeries(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	series := domain.NewTimeSeries([]domain.Observation{
		{Date: day(2024, 1, 2), Value: 7.5},
		{Date: day(2024, 1, 1), Value: 7.25},
	})
	fetched := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	mockPool.ExpectExec("INSERT INTO well_observations").
		WithArgs("W-1",
			[]time.Time{day(2024, 1, 1), day(2024, 1, 2)},
			[]float64{7.25, 7.5},
			fetched,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	a := NewArchive(mockPool)
	require.NoError(t, a.SaveSeries(context.Background(), "W-1", series, fetched))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestArchive_SaveSeries_EmptyIsNoop(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	a := NewArchive(mockPool)
	require.NoError(t, a.SaveSeries(context.Background(), "W-1", domain.NewTimeSeries(nil), time.Now()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestArchive_SaveSeries_Error(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("INSERT INTO well_observations").WillReturnError(assert.AnError)

	a := NewArchive(mockPool)
	series := domain.NewTimeSeries([]domain.Observation{{Date: day(2024, 1, 1), Value: 1}})
	err = a.SaveSeries(context.Background(), "W-1", series, time.Now())
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "W-1")
}

func TestArchive_LoadSeries(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT obs_date, value").
		WithArgs("W-1").
		WillReturnRows(pgxmock.NewRows([]string{"obs_date", "value"}).
			AddRow(day(2024, 1, 1), 3.0).
			AddRow(day(2024, 1, 2), 3.5))

	a := NewArchive(mockPool)
	series, err := a.LoadSeries(context.Background(), "W-1")
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 3.5, series.Last().Value)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestArchive_LoadSeries_Empty(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT obs_date, value").
		WithArgs("W-9").
		WillReturnRows(pgxmock.NewRows([]string{"obs_date", "value"}))

	a := NewArchive(mockPool)
	_, err = a.LoadSeries(context.Background(), "W-9")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArchive_SaveForecastRun(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	run := domain.ForecastRun{
		ID:          "5b1f3c0e-8f5e-4d38-9a52-0f5d8f1f0c11",
		WellID:      "W-1",
		HorizonDays: 1,
		Model:       "linear",
		GeneratedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Points:      []domain.ForecastPoint{{Date: day(2024, 2, 2), Value: 4.25}},
	}
	points, err := json.Marshal(run.Points)
	require.NoError(t, err)

	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO forecast_runs (id, well_id, horizon_days, model, generated_at, points)")).
		WithArgs(run.ID, "W-1", 1, "linear", run.GeneratedAt, points).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	a := NewArchive(mockPool)
	require.NoError(t, a.SaveForecastRun(context.Background(), run))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS well_observations").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, Migrate(context.Background(), mockPool))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMigrate_Error(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("CREATE TABLE").WillReturnError(assert.AnError)

	err = Migrate(context.Background(), mockPool)
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "001_init.sql")
}

func TestArchive_Ping(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing()
	a := NewArchive(mockPool)
	require.NoError(t, a.Ping(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
