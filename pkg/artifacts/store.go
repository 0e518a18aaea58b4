// Package artifacts is the model/feature store: it persists the trained
// model, its explainer, and the full featurized customer table as three
// durable blobs, loads them back on cold start, and falls back to a full
// retrain when any artifact is missing or unreadable.
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/retailpulse/churnrisk/pkg/blobstore"
	"github.com/retailpulse/churnrisk/pkg/explain"
	"github.com/retailpulse/churnrisk/pkg/features"
	"github.com/retailpulse/churnrisk/pkg/models"
	"github.com/retailpulse/churnrisk/pkg/registry"
	"github.com/retailpulse/churnrisk/pkg/training"
	"github.com/retailpulse/churnrisk/utils"
)

// Keys names the three artifact blobs in durable storage.
type Keys struct {
	Model     string
	Explainer string
	Features  string
}

// OrdersLoader supplies the raw order ledger when a retrain is needed. It is
// the data-loading collaborator boundary.
type OrdersLoader func(ctx context.Context) ([]models.OrderItem, error)

// Snapshot is one immutable generation of loaded artifacts. Metrics is only
// set when the snapshot was produced by a training run in this process.
type Snapshot struct {
	Model     *training.GBM
	Explainer *explain.Explainer
	Features  *models.FeatureSet
	Metrics   *models.TrainingMetrics
	LoadedAt  time.Time
}

// Store loads or trains the churn artifacts and caches the result
// process-wide with a TTL. Concurrent requests during a cache miss may race
// to rebuild; that duplicates work but never corrupts stored artifacts,
// because every blob is published atomically.
type Store struct {
	blobs      blobstore.BlobStore
	keys       Keys
	loadOrders OrdersLoader
	registry   *registry.Registry
	trainCfg   training.Config
	ttl        time.Duration
	logger     *utils.ComponentLogger

	cache cache[*Snapshot]
}

// NewStore creates a model/feature store. The registry is optional; pass nil
// to skip run bookkeeping.
func NewStore(blobs blobstore.BlobStore, keys Keys, loader OrdersLoader, reg *registry.Registry, trainCfg training.Config, ttl time.Duration) *Store {
	return &Store{
		blobs:      blobs,
		keys:       keys,
		loadOrders: loader,
		registry:   reg,
		trainCfg:   trainCfg,
		ttl:        ttl,
		logger:     utils.GetLogger().WithComponent("artifact-store"),
	}
}

// Snapshot returns the cached snapshot, loading or training one when the
// cache is empty or its TTL has expired.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap, ok := s.cache.get(); ok {
		return snap, nil
	}
	snap, err := s.LoadOrTrain(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.set(snap, s.ttl)
	return snap, nil
}

// Invalidate drops the cached snapshot; the next request re-checks durable
// storage.
func (s *Store) Invalidate() {
	s.cache.invalidate()
}

// Refresh drops the cache and loads a fresh snapshot.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	s.cache.invalidate()
	return s.Snapshot(ctx)
}

// LoadOrTrain fetches all three artifacts from durable storage, or rebuilds
// them from the raw ledger when any is absent or unreadable. Dataset and
// training failures abort and surface to the operator; load failures only
// trigger the retrain fallback.
func (s *Store) LoadOrTrain(ctx context.Context) (*Snapshot, error) {
	snap, err := s.loadStored(ctx)
	if err == nil && snap != nil {
		s.logger.Info("loaded churn artifacts from storage",
			utils.Int("customers", snap.Features.Len()),
			utils.Int("features", len(snap.Features.Columns)))
		return snap, nil
	}
	if err != nil {
		s.logger.Warn("stored artifacts unusable, retraining", utils.Error(err))
	}
	return s.Retrain(ctx)
}

// Retrain rebuilds the feature table, fits a fresh model, and persists all
// three artifacts before returning them.
func (s *Store) Retrain(ctx context.Context) (*Snapshot, error) {
	orders, err := s.loadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw orders: %w", err)
	}

	fs, err := features.Build(orders)
	if err != nil {
		return nil, err
	}

	model, metrics, err := training.Train(fs, s.trainCfg)
	if err != nil {
		return nil, err
	}
	explainer := explain.New(model)

	if err := s.persist(ctx, model, explainer, fs); err != nil {
		return nil, fmt.Errorf("failed to persist artifacts: %w", err)
	}
	if s.registry != nil {
		if err := s.registry.RecordRun(metrics); err != nil {
			s.logger.Warn("failed to record training run", utils.Error(err))
		}
	}

	snap := &Snapshot{
		Model:     model,
		Explainer: explainer,
		Features:  fs,
		Metrics:   metrics,
		LoadedAt:  time.Now().UTC(),
	}
	s.cache.set(snap, s.ttl)
	return snap, nil
}

// loadStored returns (nil, nil) when any artifact is absent, a snapshot when
// all three load cleanly, and an ArtifactLoadError when a fetch or decode
// fails.
func (s *Store) loadStored(ctx context.Context) (*Snapshot, error) {
	for _, key := range []string{s.keys.Model, s.keys.Explainer, s.keys.Features} {
		ok, err := s.blobs.Exists(ctx, key)
		if err != nil {
			return nil, &models.ArtifactLoadError{Key: key, Err: err}
		}
		if !ok {
			return nil, nil
		}
	}

	var model training.GBM
	if err := s.fetch(ctx, s.keys.Model, &model); err != nil {
		return nil, err
	}
	var explainer explain.Explainer
	if err := s.fetch(ctx, s.keys.Explainer, &explainer); err != nil {
		return nil, err
	}
	var fs models.FeatureSet
	if err := s.fetch(ctx, s.keys.Features, &fs); err != nil {
		return nil, err
	}
	fs.Reindex()

	return &Snapshot{
		Model:     &model,
		Explainer: &explainer,
		Features:  &fs,
		LoadedAt:  time.Now().UTC(),
	}, nil
}

func (s *Store) fetch(ctx context.Context, key string, out any) error {
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return &models.ArtifactLoadError{Key: key, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &models.ArtifactLoadError{Key: key, Err: err}
	}
	return nil
}

func (s *Store) persist(ctx context.Context, model *training.GBM, explainer *explain.Explainer, fs *models.FeatureSet) error {
	artifacts := []struct {
		key   string
		value any
	}{
		{s.keys.Model, model},
		{s.keys.Explainer, explainer},
		{s.keys.Features, fs},
	}
	for _, a := range artifacts {
		data, err := json.Marshal(a.value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", a.key, err)
		}
		if err := s.blobs.Put(ctx, a.key, data); err != nil {
			return err
		}
	}
	return nil
}
