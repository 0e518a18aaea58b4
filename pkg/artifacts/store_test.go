package artifacts_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailpulse/churnrisk/pkg/artifacts"
	"github.com/retailpulse/churnrisk/pkg/blobstore"
	"github.com/retailpulse/churnrisk/pkg/models"
	"github.com/retailpulse/churnrisk/pkg/training"
)

var baseDate = time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC)

func syntheticOrder(customer, orderID string, daysBeforeRef int, price float64) models.OrderItem {
	purchase := baseDate.AddDate(0, 0, -daysBeforeRef)
	return models.OrderItem{
		OrderID:          orderID,
		CustomerUniqueID: customer,
		Status:           models.OrderStatusDelivered,
		PurchaseDate:     purchase,
		DeliveredDate:    purchase.AddDate(0, 0, 5),
		Price:            price,
		FreightValue:     12,
		PaymentType:      "credit_card",
		ReviewScore:      4,
	}
}

// syntheticLedger builds a ledger with a clean churned/active split: churned
// customers stop buying 150+ days before the reference date, active ones come
// back within the last two weeks.
func syntheticLedger() []models.OrderItem {
	orders := []models.OrderItem{syntheticOrder("anchor", "o-anchor", 0, 50)}
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("churned-%03d", i)
		orders = append(orders,
			syntheticOrder(id, fmt.Sprintf("%s-o1", id), 150+i%30, 40+float64(i)))
	}
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("active-%03d", i)
		orders = append(orders,
			syntheticOrder(id, fmt.Sprintf("%s-o1", id), 120+i%30, 60+float64(i)),
			syntheticOrder(id, fmt.Sprintf("%s-o2", id), 5+i%10, 80+float64(i)))
	}
	return orders
}

func testTrainConfig() training.Config {
	cfg := training.DefaultConfig()
	cfg.MaxRounds = 60
	cfg.EarlyStoppingRounds = 20
	cfg.MaxDepth = 4
	cfg.MinChildSamples = 5
	return cfg
}

func newTestStore(t *testing.T, dir string, loader artifacts.OrdersLoader) *artifacts.Store {
	t.Helper()
	blobs, err := blobstore.NewFilesystemStore(dir)
	require.NoError(t, err)
	keys := artifacts.Keys{
		Model:     "models/churn_model.json",
		Explainer: "models/churn_explainer.json",
		Features:  "models/churn_features.json",
	}
	return artifacts.NewStore(blobs, keys, loader, nil, testTrainConfig(), time.Hour)
}

func ledgerLoader(calls *int) artifacts.OrdersLoader {
	return func(ctx context.Context) ([]models.OrderItem, error) {
		*calls++
		return syntheticLedger(), nil
	}
}

func TestRetrainPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	var calls int
	store := newTestStore(t, dir, ledgerLoader(&calls))

	snap, err := store.Retrain(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Metrics)
	assert.Greater(t, snap.Metrics.AUC, 0.9)

	// A fresh store over the same directory must load the stored artifacts
	// without touching the ledger.
	reload := newTestStore(t, dir, func(ctx context.Context) ([]models.OrderItem, error) {
		return nil, errors.New("ledger must not be read")
	})
	got, err := reload.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got.Metrics)
	assert.Equal(t, snap.Features.Len(), got.Features.Len())

	// Identical predictions prove the model round-tripped bit-for-bit.
	row, err := got.Features.Row("churned-000")
	require.NoError(t, err)
	assert.Equal(t,
		snap.Model.PredictProbability(row.Values),
		got.Model.PredictProbability(row.Values))
}

func TestSnapshotTrainsOnceAndCaches(t *testing.T) {
	var calls int
	store := newTestStore(t, t.TempDir(), ledgerLoader(&calls))

	first, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	second, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "cached snapshot must not rebuild")
	assert.Same(t, first, second)
}

func TestRefreshPrefersStoredArtifacts(t *testing.T) {
	var calls int
	store := newTestStore(t, t.TempDir(), ledgerLoader(&calls))

	_, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// Refresh drops the cache but finds intact artifacts in storage, so no
	// retrain happens.
	_, err = store.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCorruptArtifactTriggersRetrain(t *testing.T) {
	dir := t.TempDir()
	var calls int
	store := newTestStore(t, dir, ledgerLoader(&calls))

	_, err := store.Retrain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	blobs, err := blobstore.NewFilesystemStore(dir)
	require.NoError(t, err)
	require.NoError(t, blobs.Put(context.Background(), "models/churn_model.json", []byte("{broken")))

	store.Invalidate()
	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "corrupt blob must fall back to a retrain")
	assert.NotNil(t, snap.Metrics)
}

func TestRetrainSurfacesLedgerFailure(t *testing.T) {
	store := newTestStore(t, t.TempDir(), func(ctx context.Context) ([]models.OrderItem, error) {
		return nil, errors.New("bucket unreachable")
	})

	_, err := store.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")
}
