package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailpulse/churnrisk/pkg/models"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func metricsAt(trainedAt time.Time, auc float64) *models.TrainingMetrics {
	return &models.TrainingMetrics{
		RunID:          uuid.New().String(),
		AUC:            auc,
		BestIteration:  120,
		Rounds:         200,
		TrainRows:      800,
		TestRows:       200,
		TrainPositives: 240,
		TestPositives:  60,
		FeatureCount:   18,
		TrainedAt:      trainedAt,
	}
}

func TestRecordAndLatestRun(t *testing.T) {
	r := testRegistry(t)

	latest, err := r.LatestRun()
	require.NoError(t, err)
	assert.Nil(t, latest)

	older := metricsAt(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), 0.81)
	newer := metricsAt(time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC), 0.84)
	require.NoError(t, r.RecordRun(older))
	require.NoError(t, r.RecordRun(newer))

	latest, err = r.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.RunID, latest.RunID)
	assert.InDelta(t, 0.84, latest.AUC, 1e-9)
	assert.Equal(t, 120, latest.BestIteration)
}

func TestListRunsNewestFirst(t *testing.T) {
	r := testRegistry(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		m := metricsAt(base.Add(time.Duration(i)*time.Hour), 0.8)
		ids = append(ids, m.RunID)
		require.NoError(t, r.RecordRun(m))
	}

	runs, err := r.ListRuns(3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[4], runs[0].RunID)
	assert.Equal(t, ids[3], runs[1].RunID)
	assert.Equal(t, ids[2], runs[2].RunID)
}

func TestRecordRunUpsert(t *testing.T) {
	r := testRegistry(t)

	m := metricsAt(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), 0.80)
	require.NoError(t, r.RecordRun(m))
	m.AUC = 0.85
	require.NoError(t, r.RecordRun(m))

	runs, err := r.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.InDelta(t, 0.85, runs[0].AUC, 1e-9)
}
