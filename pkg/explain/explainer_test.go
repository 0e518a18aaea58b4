package explain_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailpulse/churnrisk/pkg/explain"
	"github.com/retailpulse/churnrisk/pkg/models"
	"github.com/retailpulse/churnrisk/pkg/training"
)

func trainedModel(t *testing.T, nFeatures int) (*training.GBM, *models.FeatureSet) {
	t.Helper()

	rng := rand.New(rand.NewSource(11))
	columns := make([]string, nFeatures)
	for i := range columns {
		columns[i] = fmt.Sprintf("f%d", i)
	}

	fs := &models.FeatureSet{Columns: columns}
	for i := 0; i < 240; i++ {
		values := make([]float64, nFeatures)
		for j := range values {
			values[j] = rng.Float64()
		}
		churn := 0
		if values[0]+0.3*values[1] > 0.65 {
			churn = 1
		}
		fs.Customers = append(fs.Customers, models.CustomerRow{
			CustomerID: fmt.Sprintf("cust-%03d", i),
			Values:     values,
			Churn:      churn,
		})
	}
	fs.Reindex()

	cfg := training.DefaultConfig()
	cfg.MaxRounds = 40
	cfg.EarlyStoppingRounds = 15
	cfg.MaxDepth = 4
	cfg.MinChildSamples = 5

	model, _, err := training.Train(fs, cfg)
	require.NoError(t, err)
	return model, fs
}

func TestContributionsSumToMargin(t *testing.T) {
	model, fs := trainedModel(t, 4)
	explainer := explain.New(model)

	for _, c := range fs.Customers[:20] {
		contribs, err := explainer.Contributions(c.Values)
		require.NoError(t, err)
		require.Len(t, contribs, 4)

		sum := explainer.BaseValue
		for _, v := range contribs {
			sum += v
		}
		assert.InDelta(t, model.Margin(c.Values), sum, 1e-9)
	}
}

func TestTopDriversRanking(t *testing.T) {
	model, fs := trainedModel(t, 14)
	explainer := explain.New(model)

	drivers, err := explainer.TopDrivers(fs.Customers[0].Values, 10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(drivers), 10)

	for i := 1; i < len(drivers); i++ {
		assert.GreaterOrEqual(t,
			math.Abs(drivers[i-1].Value), math.Abs(drivers[i].Value),
			"drivers must be sorted by descending absolute contribution")
	}
}

func TestTopDriversSmallFeatureSet(t *testing.T) {
	model, fs := trainedModel(t, 3)
	explainer := explain.New(model)

	drivers, err := explainer.TopDrivers(fs.Customers[0].Values, 10)
	require.NoError(t, err)
	assert.Len(t, drivers, 3)
}

func TestContributionsBadVector(t *testing.T) {
	model, _ := trainedModel(t, 4)
	explainer := explain.New(model)

	_, err := explainer.Contributions([]float64{1, 2})
	assert.Error(t, err)
}
