package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
)

// identityObjectives are the XGBoost objectives whose margin is the
// prediction itself.
var identityObjectives = map[string]bool{
	"reg:squarederror":     true,
	"reg:squaredlogerror":  true,
	"reg:absoluteerror":    true,
	"reg:pseudohubererror": true,
}

// TreeEnsemble is a gradient-boosted regression tree model.
type TreeEnsemble struct {
	baseScore float64
	trees     []tree
	objective string
}

type tree struct {
	left        []int
	right       []int
	feature     []int
	threshold   []float64
	defaultLeft []bool
}

// Name implements Regressor.
func (m *TreeEnsemble) Name() string {
	return fmt.Sprintf("xgboost(%s, %d trees)", m.objective, len(m.trees))
}

// Predict implements Regressor.
func (m *TreeEnsemble) Predict(row domain.FeatureRow) float64 {
	x := row.Vector()
	sum := m.baseScore
	for i := range m.trees {
		sum += m.trees[i].leaf(x)
	}
	return sum
}

func (t *tree) leaf(x []float64) float64 {
	n := 0
	for t.left[n] != -1 {
		v := x[t.feature[n]]
		switch {
		case math.IsNaN(v):
			if t.defaultLeft[n] {
				n = t.left[n]
			} else {
				n = t.right[n]
			}
		case float32(v) < float32(t.threshold[n]):
			n = t.left[n]
		default:
			n = t.right[n]
		}
	}
	// Leaf weights live in split_conditions.
	return t.threshold[n]
}

// XGBoost JSON model schema, trimmed to what inference needs.

type xgbModel struct {
	Learner struct {
		Attributes struct {
			BestIteration string `json:"best_iteration"`
		} `json:"attributes"`
		FeatureNames     []string `json:"feature_names"`
		LearnerModelParam struct {
			BaseScore string `json:"base_score"`
			NumTarget string `json:"num_target"`
		} `json:"learner_model_param"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Param struct {
					NumParallelTree string `json:"num_parallel_tree"`
				} `json:"gbtree_model_param"`
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int      `json:"left_children"`
	RightChildren   []int      `json:"right_children"`
	SplitIndices    []int      `json:"split_indices"`
	SplitConditions []float64  `json:"split_conditions"`
	DefaultLeft     []flexBool `json:"default_left"`
}

// flexBool accepts both JSON booleans and 0/1 integers; XGBoost releases
// have written default_left either way.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "true", "1":
		*b = true
	case "false", "0":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

func parseXGBoost(data []byte) (*TreeEnsemble, error) {
	var raw xgbModel
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode xgboost model: %w", err)
	}
	l := raw.Learner

	if name := l.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("unsupported booster %q", name)
	}
	if !identityObjectives[l.Objective.Name] {
		return nil, fmt.Errorf("unsupported objective %q", l.Objective.Name)
	}
	if nt := l.LearnerModelParam.NumTarget; nt != "" && nt != "1" {
		return nil, fmt.Errorf("multi-target models are not supported (num_target=%s)", nt)
	}
	if err := checkFeatureNames(l.FeatureNames); err != nil {
		return nil, err
	}

	base, err := parseBaseScore(l.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}

	raws, err := boostedRounds(l.GradientBooster.Model.Trees,
		l.Attributes.BestIteration, l.GradientBooster.Model.Param.NumParallelTree)
	if err != nil {
		return nil, err
	}

	trees := make([]tree, len(raws))
	for i, rt := range raws {
		t, err := convertTree(rt)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = t
	}

	return &TreeEnsemble{baseScore: base, trees: trees, objective: l.Objective.Name}, nil
}

// boostedRounds keeps the trees of rounds 0..best_iteration. Early-stopped
// models still store the rounds trained after the best one.
func boostedRounds(trees []xgbTree, bestIteration, parallel string) ([]xgbTree, error) {
	if bestIteration == "" {
		return trees, nil
	}
	best, err := strconv.Atoi(strings.TrimSpace(bestIteration))
	if err != nil || best < 0 {
		return nil, fmt.Errorf("invalid best_iteration %q", bestIteration)
	}
	perRound := 1
	if parallel != "" {
		perRound, err = strconv.Atoi(strings.TrimSpace(parallel))
		if err != nil || perRound < 1 {
			return nil, fmt.Errorf("invalid num_parallel_tree %q", parallel)
		}
	}
	if keep := (best + 1) * perRound; keep < len(trees) {
		return trees[:keep], nil
	}
	return trees, nil
}

// parseBaseScore handles both "5E-1" and the bracketed "[5E-1]" written by
// newer releases.
func parseBaseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if s == "" {
		return 0, errors.New("missing base_score")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid base_score %q: %w", s, err)
	}
	return v, nil
}

func convertTree(rt xgbTree) (tree, error) {
	n := len(rt.LeftChildren)
	if n == 0 {
		return tree{}, errors.New("empty tree")
	}
	if len(rt.RightChildren) != n || len(rt.SplitIndices) != n ||
		len(rt.SplitConditions) != n || len(rt.DefaultLeft) != n {
		return tree{}, errors.New("node arrays have different lengths")
	}

	t := tree{
		left:        rt.LeftChildren,
		right:       rt.RightChildren,
		feature:     rt.SplitIndices,
		threshold:   rt.SplitConditions,
		defaultLeft: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		t.defaultLeft[i] = bool(rt.DefaultLeft[i])
		if t.left[i] == -1 {
			continue
		}
		// Children always follow their parent, which also rules out cycles.
		if t.left[i] <= i || t.left[i] >= n || t.right[i] <= i || t.right[i] >= n {
			return tree{}, fmt.Errorf("node %d has invalid children", i)
		}
		if t.feature[i] < 0 || t.feature[i] >= len(domain.FeatureNames) {
			return tree{}, fmt.Errorf("node %d splits on unknown feature %d", i, t.feature[i])
		}
	}
	return t, nil
}
