// Package churn exposes the customer-facing query surface: candidate lookup
// by partial id and the per-customer risk report. Rendering is the UI
// collaborator's concern; this service only answers queries.
package churn

import (
	"context"
	"strings"

	"github.com/retailpulse/churnrisk/pkg/artifacts"
	"github.com/retailpulse/churnrisk/pkg/models"
	"github.com/retailpulse/churnrisk/pkg/scoring"
	"github.com/retailpulse/churnrisk/utils"
)

// MaxSearchResults caps candidate lists for partial-id searches.
const MaxSearchResults = 20

// TopDriverCount is how many ranked feature contributions a report carries.
const TopDriverCount = 10

// Service answers churn risk queries against the current artifact snapshot.
type Service struct {
	store  *artifacts.Store
	jitter bool
	logger *utils.ComponentLogger
}

// NewService creates a churn query service backed by the artifact store.
func NewService(store *artifacts.Store) *Service {
	return &Service{
		store:  store,
		logger: utils.GetLogger().WithComponent("churn-service"),
	}
}

// EnableJitter turns on the random tolerance band in recency dampening for
// all subsequent scores.
func (s *Service) EnableJitter() {
	s.jitter = true
}

// SearchCustomers returns customer ids containing the query as a
// case-insensitive substring, capped at MaxSearchResults. An empty query
// matches nothing.
func (s *Service) SearchCustomers(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return nil, nil
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var matches []string
	for i := range snap.Features.Customers {
		id := snap.Features.Customers[i].CustomerID
		if strings.Contains(strings.ToLower(id), needle) {
			matches = append(matches, id)
			if len(matches) == MaxSearchResults {
				break
			}
		}
	}
	return matches, nil
}

// CustomerCount returns the number of customers in the feature table.
func (s *Service) CustomerCount(ctx context.Context) (int, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return snap.Features.Len(), nil
}

// GetRiskReport scores one customer and assembles the full report:
// probability, tier, summary stats, and the ranked top churn drivers.
// Explanation failures are soft: the report still carries the score, with a
// warning in place of the drivers.
func (s *Service) GetRiskReport(ctx context.Context, customerID string) (*models.RiskReport, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	scorer := scoring.NewScorer(snap.Model, snap.Features)
	if s.jitter {
		scorer.EnableJitter(snap.LoadedAt.UnixNano())
	}

	score, err := scorer.Score(customerID)
	if err != nil {
		return nil, err
	}
	row, err := snap.Features.Row(customerID)
	if err != nil {
		return nil, err
	}

	report := &models.RiskReport{
		CustomerID:  customerID,
		Probability: score.Probability,
		Tier:        score.Tier,
		RecencyDays: int(score.RecencyDays),
	}
	if v, err := snap.Features.Value(row, models.ColNumOrders); err == nil {
		report.NumOrders = int(v)
	}
	if v, err := snap.Features.Value(row, models.ColTotalSpent); err == nil {
		report.TotalSpent = v
	}

	drivers, err := snap.Explainer.TopDrivers(scorer.Project(row), TopDriverCount)
	if err != nil {
		expErr := &models.ExplanationError{CustomerID: customerID, Err: err}
		s.logger.Warn("explanation failed, omitting drivers", utils.Error(expErr))
		report.Warning = expErr.Error()
		return report, nil
	}
	report.Drivers = drivers
	return report, nil
}
