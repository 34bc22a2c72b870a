package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
)

// Archive implements dashboard.Archive on Postgres.
type Archive struct {
	db DBPool
}

// NewArchive creates an Archive over db. Call Migrate first.
func NewArchive(db DBPool) *Archive {
	return &Archive{db: db}
}

const upsertObservations = `
INSERT INTO well_observations (well_id, obs_date, value, fetched_at)
SELECT $1, t.obs_date, t.value, $4
FROM unnest($2::date[], $3::double precision[]) AS t(obs_date, value)
ON CONFLICT (well_id, obs_date)
DO UPDATE SET value = EXCLUDED.value, fetched_at = EXCLUDED.fetched_at`

// SaveSeries upserts every observation of series. Re-fetching a well
// overwrites values that the upstream API has revised.
func (a *Archive) SaveSeries(ctx context.Context, wellID string, series domain.TimeSeries, fetchedAt time.Time) error {
	if series.Len() == 0 {
		return nil
	}
	dates := make([]time.Time, series.Len())
	values := make([]float64, series.Len())
	for i, o := range series.Observations() {
		dates[i] = o.Date
		values[i] = o.Value
	}
	if _, err := a.db.Exec(ctx, upsertObservations, wellID, dates, values, fetchedAt); err != nil {
		return fmt.Errorf("save observations for %s: %w", wellID, err)
	}
	return nil
}

const selectObservations = `
SELECT obs_date, value
FROM well_observations
WHERE well_id = $1
ORDER BY obs_date`

// LoadSeries returns every archived observation for wellID.
func (a *Archive) LoadSeries(ctx context.Context, wellID string) (domain.TimeSeries, error) {
	rows, err := a.db.Query(ctx, selectObservations, wellID)
	if err != nil {
		return domain.TimeSeries{}, fmt.Errorf("load observations for %s: %w", wellID, err)
	}
	defer rows.Close()

	var obs []domain.Observation
	for rows.Next() {
		var o domain.Observation
		if err := rows.Scan(&o.Date, &o.Value); err != nil {
			return domain.TimeSeries{}, fmt.Errorf("scan observation: %w", err)
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return domain.TimeSeries{}, fmt.Errorf("load observations for %s: %w", wellID, err)
	}
	if len(obs) == 0 {
		return domain.TimeSeries{}, fmt.Errorf("%w: no archived observations for %s", domain.ErrNotFound, wellID)
	}
	return domain.NewTimeSeries(obs), nil
}

const insertForecastRun = `
INSERT INTO forecast_runs (id, well_id, horizon_days, model, generated_at, points)
VALUES ($1, $2, $3, $4, $5, $6)`

// SaveForecastRun records one forecast run with its points as JSON.
func (a *Archive) SaveForecastRun(ctx context.Context, run domain.ForecastRun) error {
	points, err := json.Marshal(run.Points)
	if err != nil {
		return fmt.Errorf("encode forecast points: %w", err)
	}
	if _, err := a.db.Exec(ctx, insertForecastRun,
		run.ID, run.WellID, run.HorizonDays, run.Model, run.GeneratedAt, points,
	); err != nil {
		return fmt.Errorf("save forecast run %s: %w", run.ID, err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (a *Archive) Ping(ctx context.Context) error {
	return a.db.Ping(ctx)
}
