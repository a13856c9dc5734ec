package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"slices"
	"strings"

	"trgemu/domain/core"
	"trgemu/ports"

	"github.com/klauspost/compress/zstd"
)

// Objectives understood by the ensemble
const (
	ObjectiveRegression = "regression"
	ObjectiveBinary     = "binary"
)

// Node is one node of a regression tree. Internal nodes send x[Feature] <
// Threshold to Left; NaN follows DefaultLeft.
type Node struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	DefaultLeft bool    `json:"default_left"`
	IsLeaf      bool    `json:"is_leaf"`
	Leaf        float64 `json:"leaf"`
}

// Tree is stored flat with the root at index 0
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Ensemble is an additive tree model exported by the external trainer.
// The margin is BaseScore plus the sum of leaf values; binary models map the
// margin through the logistic function.
type Ensemble struct {
	FeatureNames []string `json:"features"`
	BaseScore    float64  `json:"base_score"`
	Objective    string   `json:"objective"`
	Trees        []Tree   `json:"trees"`
}

var (
	_ ports.Regressor  = (*Ensemble)(nil)
	_ ports.Classifier = (*Ensemble)(nil)
)

// Load reads a model from a .json or .json.zst file
func Load(path string) (*Ensemble, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: oracle %v", core.ErrConfiguration, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}

	var m Ensemble
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: malformed oracle %s: %v", core.ErrConfiguration, path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("oracle %s: %w", path, err)
	}
	log.Printf("[Oracle] Loaded %s model from %s (%d trees, %d features)", m.Objective, path, len(m.Trees), len(m.FeatureNames))
	return &m, nil
}

// Validate checks the objective and the tree topology. Children always
// follow their parent, which rules out cycles.
func (m *Ensemble) Validate() error {
	if m.Objective != ObjectiveRegression && m.Objective != ObjectiveBinary {
		return fmt.Errorf("%w: unknown objective %q", core.ErrConfiguration, m.Objective)
	}
	if len(m.FeatureNames) == 0 {
		return fmt.Errorf("%w: oracle declares no features", core.ErrConfiguration)
	}
	for t, tree := range m.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d is empty", core.ErrConfiguration, t)
		}
		for i, n := range tree.Nodes {
			if n.IsLeaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= len(m.FeatureNames) {
				return fmt.Errorf("%w: tree %d node %d uses feature %d", core.ErrConfiguration, t, i, n.Feature)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= i || child >= len(tree.Nodes) {
					return fmt.Errorf("%w: tree %d node %d has child %d", core.ErrConfiguration, t, i, child)
				}
			}
		}
	}
	return nil
}

// Features returns the feature order the model was trained with
func (m *Ensemble) Features() []string { return m.FeatureNames }

// IsClassifier reports whether PredictProba is meaningful
func (m *Ensemble) IsClassifier() bool { return m.Objective == ObjectiveBinary }

// CheckFeatures fails unless want matches the model feature order exactly
func CheckFeatures(o ports.Oracle, want []string) error {
	if !slices.Equal(o.Features(), want) {
		return fmt.Errorf("%w: model expects %v, emulation provides %v", core.ErrFeatureMismatch, o.Features(), want)
	}
	return nil
}

func (t Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf {
			return n.Leaf
		}
		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.DefaultLeft {
				i = n.Left
			} else {
				i = n.Right
			}
		case v < n.Threshold:
			i = n.Left
		default:
			i = n.Right
		}
	}
}

func (m *Ensemble) margins(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for r, x := range X {
		if len(x) != len(m.FeatureNames) {
			return nil, fmt.Errorf("%w: row %d has %d features, model expects %d", core.ErrShapeMismatch, r, len(x), len(m.FeatureNames))
		}
		sum := m.BaseScore
		for _, t := range m.Trees {
			sum += t.eval(x)
		}
		out[r] = sum
	}
	return out, nil
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Predict returns the regression value per row, or the 0/1 class for binary models
func (m *Ensemble) Predict(X [][]float64) ([]float64, error) {
	out, err := m.margins(X)
	if err != nil {
		return nil, err
	}
	if m.IsClassifier() {
		for i, v := range out {
			if sigmoid(v) >= 0.5 {
				out[i] = 1
			} else {
				out[i] = 0
			}
		}
	}
	return out, nil
}

// PredictProba returns [P(0), P(1)] per row
func (m *Ensemble) PredictProba(X [][]float64) ([][]float64, error) {
	if !m.IsClassifier() {
		return nil, fmt.Errorf("%w: %s model has no class probabilities", core.ErrConfiguration, m.Objective)
	}
	margins, err := m.margins(X)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(margins))
	for i, v := range margins {
		p := sigmoid(v)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}
