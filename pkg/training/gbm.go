package training

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Config holds the boosting hyperparameters.
type Config struct {
	LearningRate        float64 `json:"learning_rate"`
	MaxDepth            int     `json:"max_depth"`
	MinChildSamples     int     `json:"min_child_samples"`
	LambdaL1            float64 `json:"lambda_l1"`
	LambdaL2            float64 `json:"lambda_l2"`
	SubsampleRows       float64 `json:"subsample_rows"`
	SubsampleCols       float64 `json:"subsample_cols"`
	MaxRounds           int     `json:"max_rounds"`
	EarlyStoppingRounds int     `json:"early_stopping_rounds"`
	Seed                int64   `json:"seed"`
}

// DefaultConfig returns the production hyperparameters for the churn model.
func DefaultConfig() Config {
	return Config{
		LearningRate:        0.02,
		MaxDepth:            9,
		MinChildSamples:     20,
		LambdaL1:            1.0,
		LambdaL2:            1.0,
		SubsampleRows:       0.8,
		SubsampleCols:       0.8,
		MaxRounds:           5000,
		EarlyStoppingRounds: 200,
		Seed:                42,
	}
}

// TreeNode is one node of a regression tree. Left/Right index into the
// owning tree's node slice; -1 marks a leaf. Value is the node's output
// (learning rate already applied): for leaves it is the prediction, for
// internal nodes the output the node would emit if it were a leaf, which the
// explainer uses for path attribution. Cover is the hessian mass that
// reached the node during fitting.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Cover     float64 `json:"cover"`
}

// IsLeaf reports whether the node is a leaf.
func (n *TreeNode) IsLeaf() bool { return n.Left < 0 }

// Tree is a single fitted regression tree.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Score returns the tree's output for a feature vector.
func (t *Tree) Score(x []float64) float64 {
	i := 0
	for !t.Nodes[i].IsLeaf() {
		if x[t.Nodes[i].Feature] <= t.Nodes[i].Threshold {
			i = t.Nodes[i].Left
		} else {
			i = t.Nodes[i].Right
		}
	}
	return t.Nodes[i].Value
}

// GBM is a gradient-boosted binary classifier trained with second-order
// logistic boosting. It is bound to the exact ordered feature column list
// used at fit time; column order and identity must match at inference.
type GBM struct {
	Trees         []Tree   `json:"trees"`
	BaseScore     float64  `json:"base_score"`
	Columns       []string `json:"columns"`
	BestIteration int      `json:"best_iteration"`
	Config        Config   `json:"config"`
}

// Margin returns the raw additive score (log odds) for a feature vector,
// using trees up to the best iteration found by early stopping.
func (m *GBM) Margin(x []float64) float64 {
	if len(x) != len(m.Columns) {
		// Callers must project rows onto the training schema first.
		panic(fmt.Sprintf("feature vector has %d values, model expects %d", len(x), len(m.Columns)))
	}
	margin := m.BaseScore
	for i := 0; i < m.BestIteration; i++ {
		margin += m.Trees[i].Score(x)
	}
	return margin
}

// PredictProbability returns the churn probability in [0, 1].
func (m *GBM) PredictProbability(x []float64) float64 {
	return sigmoid(m.Margin(x))
}

func sigmoid(z float64) float64 {
	if z < -500 {
		return 0
	}
	if z > 500 {
		return 1
	}
	return 1 / (1 + math.Exp(-z))
}

// fitGBM runs the boosting loop. Sample weights fold in the positive-class
// weight; validation AUC drives early stopping.
func fitGBM(cfg Config, columns []string, trainX [][]float64, trainY, weights []float64, valX [][]float64, valY []float64) (*GBM, int, error) {
	if len(trainX) == 0 {
		return nil, 0, fmt.Errorf("no training rows")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	// Boost from the weighted class prior.
	var sumPos, sumNeg float64
	for i, y := range trainY {
		if y > 0.5 {
			sumPos += weights[i]
		} else {
			sumNeg += weights[i]
		}
	}
	if sumPos == 0 || sumNeg == 0 {
		return nil, 0, fmt.Errorf("training split has a single class")
	}
	base := math.Log(sumPos / sumNeg)

	model := &GBM{
		BaseScore: base,
		Columns:   columns,
		Config:    cfg,
	}

	trainMargin := make([]float64, len(trainX))
	valMargin := make([]float64, len(valX))
	for i := range trainMargin {
		trainMargin[i] = base
	}
	for i := range valMargin {
		valMargin[i] = base
	}

	grad := make([]float64, len(trainX))
	hess := make([]float64, len(trainX))
	valScores := make([]float64, len(valX))

	bestAUC := math.Inf(-1)
	bestRound := 0
	stale := 0

	for round := 0; round < cfg.MaxRounds; round++ {
		for i := range trainX {
			p := sigmoid(trainMargin[i])
			grad[i] = (p - trainY[i]) * weights[i]
			hess[i] = math.Max(p*(1-p), 1e-16) * weights[i]
		}

		rows := sampleIndices(rng, len(trainX), cfg.SubsampleRows)
		cols := sampleIndices(rng, len(columns), cfg.SubsampleCols)

		tree := growTree(cfg, trainX, grad, hess, rows, cols)
		model.Trees = append(model.Trees, tree)

		for i, x := range trainX {
			trainMargin[i] += tree.Score(x)
		}
		for i, x := range valX {
			valMargin[i] += tree.Score(x)
			valScores[i] = sigmoid(valMargin[i])
		}

		auc := RocAUC(valScores, valY)
		if auc > bestAUC {
			bestAUC = auc
			bestRound = round + 1
			stale = 0
		} else {
			stale++
			if cfg.EarlyStoppingRounds > 0 && stale >= cfg.EarlyStoppingRounds {
				break
			}
		}
	}

	if bestRound == 0 {
		bestRound = len(model.Trees)
	}
	model.BestIteration = bestRound
	return model, len(model.Trees), nil
}

// sampleIndices draws a sorted fraction of [0, n) without replacement.
func sampleIndices(rng *rand.Rand, n int, fraction float64) []int {
	k := int(math.Round(float64(n) * fraction))
	if k < 1 {
		k = 1
	}
	if k >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

// growTree builds one regression tree on the sampled rows and columns.
func growTree(cfg Config, X [][]float64, grad, hess []float64, rows, cols []int) Tree {
	t := Tree{}
	t.build(cfg, X, grad, hess, rows, cols, 0)
	return t
}

// build appends the subtree for rows and returns its node index.
func (t *Tree) build(cfg Config, X [][]float64, grad, hess []float64, rows, cols []int, depth int) int {
	var sumG, sumH float64
	for _, i := range rows {
		sumG += grad[i]
		sumH += hess[i]
	}
	value := leafValue(cfg, sumG, sumH)

	node := TreeNode{
		Left:  -1,
		Right: -1,
		Value: value,
		Cover: sumH,
	}
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, node)

	if depth >= cfg.MaxDepth || len(rows) < 2*cfg.MinChildSamples {
		return idx
	}

	feature, threshold, gain := bestSplit(cfg, X, grad, hess, rows, cols, sumG, sumH)
	if gain <= 0 {
		return idx
	}

	var left, right []int
	for _, i := range rows {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	t.Nodes[idx].Feature = feature
	t.Nodes[idx].Threshold = threshold
	leftIdx := t.build(cfg, X, grad, hess, left, cols, depth+1)
	rightIdx := t.build(cfg, X, grad, hess, right, cols, depth+1)
	t.Nodes[idx].Left = leftIdx
	t.Nodes[idx].Right = rightIdx
	return idx
}

// bestSplit scans every candidate feature for the split with the highest
// regularized gain. Candidates sit between distinct sorted feature values.
func bestSplit(cfg Config, X [][]float64, grad, hess []float64, rows, cols []int, sumG, sumH float64) (int, float64, float64) {
	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0
	parentScore := splitScore(cfg, sumG, sumH)

	type entry struct {
		v, g, h float64
	}
	entries := make([]entry, len(rows))

	for _, f := range cols {
		for j, i := range rows {
			entries[j] = entry{v: X[i][f], g: grad[i], h: hess[i]}
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].v < entries[b].v })

		var gl, hl float64
		for j := 0; j < len(entries)-1; j++ {
			gl += entries[j].g
			hl += entries[j].h
			if entries[j].v == entries[j+1].v {
				continue
			}
			if j+1 < cfg.MinChildSamples || len(entries)-j-1 < cfg.MinChildSamples {
				continue
			}
			gain := splitScore(cfg, gl, hl) + splitScore(cfg, sumG-gl, sumH-hl) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = entries[j].v
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

// splitScore is the structure score 0.5 * G'^2 / (H + lambda2) with the L1
// soft threshold applied to the gradient sum.
func splitScore(cfg Config, g, h float64) float64 {
	gs := softThreshold(g, cfg.LambdaL1)
	return 0.5 * gs * gs / (h + cfg.LambdaL2)
}

// leafValue is the regularized Newton step for a node, learning rate applied.
func leafValue(cfg Config, g, h float64) float64 {
	return -cfg.LearningRate * softThreshold(g, cfg.LambdaL1) / (h + cfg.LambdaL2)
}

func softThreshold(g, lambda float64) float64 {
	if g > lambda {
		return g - lambda
	}
	if g < -lambda {
		return g + lambda
	}
	return 0
}
