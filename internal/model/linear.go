package model

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
)

const linearFormat = "linear"

// Linear is a linear regression over the feature vector.
type Linear struct {
	Format       string       `json:"format"`
	Features     []string     `json:"features"`
	Intercept    float64      `json:"intercept"`
	Coefficients []float64    `json:"coefficients"`
	TrainedAt    time.Time    `json:"trained_at"`
	Metrics      TrainMetrics `json:"metrics"`
}

// TrainMetrics records how the artifact scored on its holdout split.
type TrainMetrics struct {
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
	MAE       float64 `json:"mae"`
	R2        float64 `json:"r2"`
}

// NewLinear builds a linear artifact over domain.FeatureNames.
func NewLinear(intercept float64, coefficients []float64) *Linear {
	return &Linear{
		Format:       linearFormat,
		Features:     append([]string(nil), domain.FeatureNames...),
		Intercept:    intercept,
		Coefficients: coefficients,
	}
}

// Name implements Regressor.
func (m *Linear) Name() string { return "linear" }

// Predict implements Regressor.
func (m *Linear) Predict(row domain.FeatureRow) float64 {
	y := m.Intercept
	for i, x := range row.Vector() {
		y += m.Coefficients[i] * x
	}
	return y
}

// Save writes the artifact as indented JSON.
func (m *Linear) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode linear model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func parseLinear(data []byte) (*Linear, error) {
	var m Linear
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode linear model: %w", err)
	}
	if len(m.Features) == 0 {
		return nil, fmt.Errorf("linear model lists no features")
	}
	if err := checkFeatureNames(m.Features); err != nil {
		return nil, err
	}
	if len(m.Coefficients) != len(domain.FeatureNames) {
		return nil, fmt.Errorf("linear model has %d coefficients, want %d", len(m.Coefficients), len(domain.FeatureNames))
	}
	return &m, nil
}
