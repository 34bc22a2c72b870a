package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/features"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewRows is returned when a split leaves nothing to fit or score.
var ErrTooFewRows = errors.New("too few training rows")

// SplitChronological splits rows into the leading trainFrac and the rest,
// keeping date order so the holdout is strictly in the future.
func SplitChronological(rows []features.TrainingRow, trainFrac float64) (train, test []features.TrainingRow) {
	// The test share is floored; the epsilon absorbs 1-0.8 landing just
	// under 0.2.
	testSize := int(math.Floor(float64(len(rows))*(1-trainFrac) + 1e-9))
	cut := len(rows) - max(0, min(testSize, len(rows)))
	return rows[:cut], rows[cut:]
}

// FitLinear fits a ridge regression of target on the feature vector.
// Columns are standardized before solving so lambda acts uniformly; the
// returned coefficients are on the original scale.
func FitLinear(rows []features.TrainingRow, lambda float64) (*Linear, error) {
	p := len(domain.FeatureNames)
	n := len(rows)
	if n < p+1 {
		return nil, fmt.Errorf("%w: have %d, need at least %d", ErrTooFewRows, n, p+1)
	}

	raw := make([][]float64, n)
	y := make([]float64, n)
	for i, r := range rows {
		raw[i] = r.Features.Vector()
		y[i] = r.Target
	}

	means := make([]float64, p)
	sds := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range raw {
			col[i] = raw[i][j]
		}
		means[j], sds[j] = stat.MeanStdDev(col, nil)
	}
	yMean := stat.Mean(y, nil)

	x := mat.NewDense(n, p, nil)
	for i := range raw {
		for j := 0; j < p; j++ {
			if sds[j] > 0 {
				x.Set(i, j, (raw[i][j]-means[j])/sds[j])
			}
		}
	}
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-yMean)
	}

	xtx := mat.NewSymDense(p, nil)
	xtx.SymOuterK(1, x.T())
	for j := 0; j < p; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+lambda)
	}
	xty := mat.NewVecDense(p, nil)
	xty.MulVec(x.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(xtx); !ok {
		return nil, fmt.Errorf("normal equations are not positive definite; increase lambda")
	}
	beta := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(beta, xty); err != nil {
		return nil, fmt.Errorf("solve normal equations: %w", err)
	}

	coef := make([]float64, p)
	intercept := yMean
	for j := 0; j < p; j++ {
		if sds[j] == 0 {
			continue
		}
		coef[j] = beta.AtVec(j) / sds[j]
		intercept -= coef[j] * means[j]
	}
	return NewLinear(intercept, coef), nil
}

// Evaluate scores a regressor on rows, returning mean absolute error and R².
func Evaluate(m Regressor, rows []features.TrainingRow) (mae, r2 float64, err error) {
	if len(rows) == 0 {
		return 0, 0, fmt.Errorf("%w: nothing to evaluate", ErrTooFewRows)
	}
	pred := make([]float64, len(rows))
	obs := make([]float64, len(rows))
	for i, r := range rows {
		pred[i] = m.Predict(r.Features)
		obs[i] = r.Target
		mae += math.Abs(pred[i] - obs[i])
	}
	mae /= float64(len(rows))
	r2 = stat.RSquaredFrom(pred, obs, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}
	return mae, r2, nil
}
