// Package model loads trained level regressors from disk.
//
// Two artifact formats are understood, both JSON:
//
//   - XGBoost boosters saved with Booster.save_model("<name>.json"). Only
//     gbtree boosters with an identity-link regression objective are
//     accepted. Python joblib pickles cannot be read; export them first.
//   - Linear artifacts written by cmd/train.
//
// Either way the model must have been trained on domain.FeatureNames in
// that order.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
)

// Regressor is a loaded, immutable model. It is safe for concurrent use.
type Regressor interface {
	Predict(row domain.FeatureRow) float64
	// Name describes the artifact for logs and forecast records.
	Name() string
}

// Load reads the artifact at path. A missing or unreadable artifact returns
// an error wrapping domain.ErrModelUnavailable.
func Load(path string) (Regressor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", domain.ErrModelUnavailable, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrModelUnavailable, path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrModelUnavailable, path, err)
	}
	return m, nil
}

// Parse decodes an artifact, detecting its format from the JSON shape.
func Parse(data []byte) (Regressor, error) {
	var probe struct {
		Format  string          `json:"format"`
		Learner json.RawMessage `json:"learner"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	switch {
	case len(probe.Learner) > 0:
		return parseXGBoost(data)
	case probe.Format == linearFormat:
		return parseLinear(data)
	default:
		return nil, errors.New("unrecognized model format")
	}
}

func checkFeatureNames(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != len(domain.FeatureNames) {
		return fmt.Errorf("model has %d features, want %d", len(names), len(domain.FeatureNames))
	}
	for i, n := range names {
		if n != domain.FeatureNames[i] {
			return fmt.Errorf("feature %d is %q, want %q", i, n, domain.FeatureNames[i])
		}
	}
	return nil
}
