// Package scoring turns a customer's engineered feature row into a churn
// probability and a discrete risk tier.
package scoring

import (
	"math/rand"
	"sync"

	"github.com/retailpulse/churnrisk/pkg/models"
	"github.com/retailpulse/churnrisk/pkg/training"
)

// DampenWindowDays is the recency threshold below which raw probabilities
// are scaled down: customers active in the last 30 days should not be
// flagged as high risk purely from a historical pattern.
const DampenWindowDays = 30

// jitterBand bounds the optional random addition to the dampening scale.
// It is heuristic smoothing carried over from the original scoring rule,
// not a statistically justified correction; it is off by default.
const jitterBand = 0.05

// Scorer scores customers against a fitted model and its feature table.
// Rows are projected onto the model's stored training schema before
// prediction, so a feature table with extra or missing indicator columns
// still scores: unknown model columns read as zero.
type Scorer struct {
	model    *training.GBM
	features *models.FeatureSet
	colIndex map[string]int // feature-table column -> position

	jitter bool
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewScorer creates a scorer bound to a model and feature table.
func NewScorer(model *training.GBM, fs *models.FeatureSet) *Scorer {
	colIndex := make(map[string]int, len(fs.Columns))
	for i, c := range fs.Columns {
		colIndex[c] = i
	}
	return &Scorer{
		model:    model,
		features: fs,
		colIndex: colIndex,
	}
}

// EnableJitter turns on the random tolerance band in the recency dampening.
func (s *Scorer) EnableJitter(seed int64) {
	s.jitter = true
	s.rng = rand.New(rand.NewSource(seed))
}

// Score looks up the customer's feature row and produces a churn probability
// and risk tier.
func (s *Scorer) Score(customerID string) (*models.RiskScore, error) {
	row, err := s.features.Row(customerID)
	if err != nil {
		return nil, err
	}

	x := s.Project(row)
	raw := s.model.PredictProbability(x)

	recency := 0.0
	if i, ok := s.colIndex[models.ColRecency]; ok {
		recency = row.Values[i]
	}

	prob := raw
	if recency < DampenWindowDays {
		scale := recency / DampenWindowDays
		if s.jitter {
			s.mu.Lock()
			scale += s.rng.Float64() * jitterBand
			s.mu.Unlock()
		}
		prob = raw * scale
		if prob > 1 {
			prob = 1
		}
	}

	return &models.RiskScore{
		CustomerID:     customerID,
		Probability:    prob,
		RawProbability: raw,
		Tier:           models.TierForProbability(prob),
		RecencyDays:    recency,
	}, nil
}

// Project maps a feature-table row onto the model's training schema, in
// training column order. Columns the table does not carry (an unseen one-hot
// payment indicator, for instance) are zero.
func (s *Scorer) Project(row *models.CustomerRow) []float64 {
	x := make([]float64, len(s.model.Columns))
	for i, col := range s.model.Columns {
		if j, ok := s.colIndex[col]; ok && j < len(row.Values) {
			x[i] = row.Values[j]
		}
	}
	return x
}
