package models

import "time"

// RiskTier is the discrete churn risk bucket derived from probability.
type RiskTier string

const (
	TierSafe         RiskTier = "SAFE"
	TierMonitor      RiskTier = "MONITOR"
	TierHighRisk     RiskTier = "HIGH RISK"
	TierVeryHighRisk RiskTier = "VERY HIGH RISK"
)

// TierForProbability maps a churn probability to its risk tier. Boundaries
// are closed on the lower end and exclusive on the upper end; the last tier
// is unbounded above.
func TierForProbability(p float64) RiskTier {
	switch {
	case p >= 0.8:
		return TierVeryHighRisk
	case p >= 0.6:
		return TierHighRisk
	case p >= 0.4:
		return TierMonitor
	default:
		return TierSafe
	}
}

// RiskScore is the scorer's output for one customer.
type RiskScore struct {
	CustomerID     string   `json:"customer_unique_id"`
	Probability    float64  `json:"probability"`     // after recency dampening
	RawProbability float64  `json:"raw_probability"` // model output
	Tier           RiskTier `json:"tier"`
	RecencyDays    float64  `json:"recency_days"`
}

// Contribution is one feature's contribution to a single prediction.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// RiskReport is the full per-customer answer exposed to the UI collaborator:
// score, tier, summary stats, and the ranked top drivers. Warning is set when
// explanation computation failed; the score is still valid in that case.
type RiskReport struct {
	CustomerID  string         `json:"customer_unique_id"`
	Probability float64        `json:"probability"`
	Tier        RiskTier       `json:"tier"`
	NumOrders   int            `json:"num_orders"`
	RecencyDays int            `json:"recency_days"`
	TotalSpent  float64        `json:"total_spent"`
	Drivers     []Contribution `json:"drivers,omitempty"`
	Warning     string         `json:"warning,omitempty"`
}

// TrainingMetrics summarizes one training run. AUC is diagnostic only:
// training never fails on a low value, but it is logged and persisted so an
// operator can inspect it.
type TrainingMetrics struct {
	RunID          string    `json:"run_id"`
	AUC            float64   `json:"auc"`
	BestIteration  int       `json:"best_iteration"`
	Rounds         int       `json:"rounds"`
	TrainRows      int       `json:"train_rows"`
	TestRows       int       `json:"test_rows"`
	TrainPositives int       `json:"train_positives"`
	TestPositives  int       `json:"test_positives"`
	FeatureCount   int       `json:"feature_count"`
	TrainedAt      time.Time `json:"trained_at"`
}
