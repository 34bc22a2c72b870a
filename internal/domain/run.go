package domain

import "time"

// ForecastRun records one successful forecast for archiving and publishing.
type ForecastRun struct {
	ID          string          `json:"id"`
	WellID      string          `json:"well_id"`
	HorizonDays int             `json:"horizon_days"`
	Model       string          `json:"model"`
	GeneratedAt time.Time       `json:"generated_at"`
	Points      []ForecastPoint `json:"points"`
}
