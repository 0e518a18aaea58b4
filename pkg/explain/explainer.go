// Package explain decomposes a single churn prediction into per-feature
// contribution values using path attribution over the fitted trees: walking
// a row down each tree, the change in the node's would-be output at every
// split is credited to the split feature. The base value plus all
// contributions reproduces the model's margin output.
package explain

import (
	"fmt"
	"math"
	"sort"

	"github.com/retailpulse/churnrisk/pkg/models"
	"github.com/retailpulse/churnrisk/pkg/training"
)

// Explainer is the serializable explanation artifact. It embeds a copy of
// the trees it is bound to, so a persisted explainer stays consistent with
// the persisted model it was built from.
type Explainer struct {
	Columns       []string        `json:"columns"`
	Trees         []training.Tree `json:"trees"`
	BestIteration int             `json:"best_iteration"`
	BaseValue     float64         `json:"base_value"`
}

// New builds an explainer bound to the fitted model.
func New(model *training.GBM) *Explainer {
	base := model.BaseScore
	for i := 0; i < model.BestIteration; i++ {
		base += model.Trees[i].Nodes[0].Value
	}
	return &Explainer{
		Columns:       model.Columns,
		Trees:         model.Trees,
		BestIteration: model.BestIteration,
		BaseValue:     base,
	}
}

// Contributions returns one real-valued contribution per feature for a row.
// BaseValue plus the sum of contributions equals the model margin.
func (e *Explainer) Contributions(x []float64) ([]float64, error) {
	if len(x) != len(e.Columns) {
		return nil, fmt.Errorf("feature vector has %d values, explainer expects %d", len(x), len(e.Columns))
	}

	contribs := make([]float64, len(e.Columns))
	for i := 0; i < e.BestIteration; i++ {
		nodes := e.Trees[i].Nodes
		if len(nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", i)
		}
		j := 0
		for !nodes[j].IsLeaf() {
			n := &nodes[j]
			if n.Feature < 0 || n.Feature >= len(x) {
				return nil, fmt.Errorf("tree %d references feature %d outside the schema", i, n.Feature)
			}
			var next int
			if x[n.Feature] <= n.Threshold {
				next = n.Left
			} else {
				next = n.Right
			}
			if next < 0 || next >= len(nodes) {
				return nil, fmt.Errorf("tree %d has a dangling child index", i)
			}
			contribs[n.Feature] += nodes[next].Value - n.Value
			j = next
		}
	}
	return contribs, nil
}

// TopDrivers ranks contributions by absolute magnitude descending and
// returns at most k, fewer when the feature set is smaller.
func (e *Explainer) TopDrivers(x []float64, k int) ([]models.Contribution, error) {
	contribs, err := e.Contributions(x)
	if err != nil {
		return nil, err
	}

	ranked := make([]models.Contribution, len(contribs))
	for i, v := range contribs {
		ranked[i] = models.Contribution{Feature: e.Columns[i], Value: v}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return math.Abs(ranked[a].Value) > math.Abs(ranked[b].Value)
	})
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked, nil
}
