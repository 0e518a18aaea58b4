// Package training fits the gradient-boosted churn classifier. The split is
// stratified on the label with a fixed seed so runs are reproducible, and the
// positive class is up-weighted by the negative/positive ratio of the
// training split to counter class imbalance.
package training

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/retailpulse/churnrisk/pkg/models"
	"github.com/retailpulse/churnrisk/utils"
)

const testFraction = 0.2

// Train fits the churn model on the featurized customer table and evaluates
// discrimination on a held-out split. The returned AUC is diagnostic only:
// training never fails on a low value.
func Train(fs *models.FeatureSet, cfg Config) (*GBM, *models.TrainingMetrics, error) {
	logger := utils.GetLogger().WithComponent("trainer")

	X := make([][]float64, fs.Len())
	y := make([]float64, fs.Len())
	for i := range fs.Customers {
		X[i] = fs.Customers[i].Values
		y[i] = float64(fs.Customers[i].Churn)
	}

	trainIdx, testIdx, err := stratifiedSplit(y, testFraction, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}

	trainX := make([][]float64, len(trainIdx))
	trainY := make([]float64, len(trainIdx))
	for i, j := range trainIdx {
		trainX[i] = X[j]
		trainY[i] = y[j]
	}
	testX := make([][]float64, len(testIdx))
	testY := make([]float64, len(testIdx))
	for i, j := range testIdx {
		testX[i] = X[j]
		testY[i] = y[j]
	}

	var trainPos, testPos int
	for _, v := range trainY {
		if v > 0.5 {
			trainPos++
		}
	}
	for _, v := range testY {
		if v > 0.5 {
			testPos++
		}
	}

	// scale_pos_weight: negatives over positives in the training split.
	posWeight := float64(len(trainY)-trainPos) / float64(trainPos)
	weights := make([]float64, len(trainY))
	for i, v := range trainY {
		if v > 0.5 {
			weights[i] = posWeight
		} else {
			weights[i] = 1
		}
	}

	logger.Info("training churn model",
		utils.Int("train_rows", len(trainY)),
		utils.Int("test_rows", len(testY)),
		utils.Int("features", len(fs.Columns)),
		utils.Float("pos_weight", posWeight))

	model, rounds, err := fitGBM(cfg, fs.Columns, trainX, trainY, weights, testX, testY)
	if err != nil {
		return nil, nil, err
	}

	scores := make([]float64, len(testX))
	for i, x := range testX {
		scores[i] = model.PredictProbability(x)
	}
	auc := RocAUC(scores, testY)

	metrics := &models.TrainingMetrics{
		RunID:          uuid.New().String(),
		AUC:            auc,
		BestIteration:  model.BestIteration,
		Rounds:         rounds,
		TrainRows:      len(trainY),
		TestRows:       len(testY),
		TrainPositives: trainPos,
		TestPositives:  testPos,
		FeatureCount:   len(fs.Columns),
		TrainedAt:      time.Now().UTC(),
	}

	logger.Info("training complete",
		utils.String("run_id", metrics.RunID),
		utils.Float("auc", auc),
		utils.Int("best_iteration", model.BestIteration),
		utils.Int("rounds", rounds))

	return model, metrics, nil
}

// stratifiedSplit partitions row indices into train and test sets keeping
// the label ratio, shuffling within each class with the given seed. Returns
// TrainingDataInsufficientError when either class ends up empty on either
// side.
func stratifiedSplit(y []float64, testFrac float64, seed int64) ([]int, []int, error) {
	var pos, neg []int
	for i, v := range y {
		if v > 0.5 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	if len(pos) == 0 || len(neg) == 0 {
		return nil, nil, &models.TrainingDataInsufficientError{Positives: len(pos), Negatives: len(neg)}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	rng.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })

	posTest := int(float64(len(pos)) * testFrac)
	negTest := int(float64(len(neg)) * testFrac)
	if posTest == 0 || negTest == 0 || posTest == len(pos) || negTest == len(neg) {
		return nil, nil, &models.TrainingDataInsufficientError{Positives: len(pos), Negatives: len(neg)}
	}

	test := append(append([]int{}, pos[:posTest]...), neg[:negTest]...)
	train := append(append([]int{}, pos[posTest:]...), neg[negTest:]...)
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// RocAUC computes the area under the ROC curve with the rank statistic,
// averaging ranks across tied scores.
func RocAUC(scores, labels []float64) float64 {
	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, len(scores))
	for i := range scores {
		pairs[i] = pair{scores[i], labels[i]}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].score < pairs[b].score })

	var nPos, nNeg float64
	var sumPosRanks float64
	i := 0
	for i < len(pairs) {
		j := i
		for j < len(pairs) && pairs[j].score == pairs[i].score {
			j++
		}
		// 1-based average rank of the tie group.
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if pairs[k].label > 0.5 {
				nPos++
				sumPosRanks += avgRank
			} else {
				nNeg++
			}
		}
		i = j
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (sumPosRanks - nPos*(nPos+1)/2) / (nPos * nNeg)
}
