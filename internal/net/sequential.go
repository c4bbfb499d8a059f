package net

import (
	"math/rand"

	"github.com/patternlab/patternet/internal/layer"
	"github.com/patternlab/patternet/internal/loss"
	"github.com/patternlab/patternet/internal/opt"
)

// Sequential is a high-level wrapper around Network with a Keras-like API.
type Sequential struct {
	*Network
}

// NewSequential creates a new Sequential model.
func NewSequential(layers ...layer.Layer) *Sequential {
	return &Sequential{
		Network: &Network{
			layers: layers,
		},
	}
}

// Compile configures the model for training.
func (s *Sequential) Compile(optimizer opt.Optimizer, lossFn loss.Loss) {
	s.loss = lossFn
	s.setOptimizer(optimizer)
}

// Predict performs a forward pass and returns a copy of the output.
// The network's internal output buffers are reused between passes, so
// callers that keep predictions need the copy.
func (s *Sequential) Predict(x []float64) []float64 {
	out := s.Forward(x)
	res := make([]float64, len(out))
	copy(res, out)
	return res
}

// FitConfig controls a Fit run.
type FitConfig struct {
	Epochs    int
	BatchSize int
	Shuffle   bool
	Seed      int64
	Callbacks []Callback
}

// Fit trains the model on the dataset for the configured number of
// epochs and returns the per-epoch mean losses.
func (s *Sequential) Fit(x, y [][]float64, cfg FitConfig) []float64 {
	if cfg.Epochs <= 0 {
		cfg.Epochs = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	history := make([]float64, 0, cfg.Epochs)
	for _, cb := range cfg.Callbacks {
		cb.OnTrainBegin(s.Network)
	}

	batchX := make([][]float64, 0, cfg.BatchSize)
	batchY := make([][]float64, 0, cfg.BatchSize)

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for _, cb := range cfg.Callbacks {
			cb.OnEpochBegin(epoch, s.Network)
		}
		if cfg.Shuffle {
			rng.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		var epochLoss float64
		var batches int
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			batchX = batchX[:0]
			batchY = batchY[:0]
			for _, idx := range order[start:end] {
				batchX = append(batchX, x[idx])
				batchY = append(batchY, y[idx])
			}

			for _, cb := range cfg.Callbacks {
				cb.OnBatchBegin(batches, s.Network)
			}
			batchLoss := s.TrainBatch(batchX, batchY)
			for _, cb := range cfg.Callbacks {
				cb.OnBatchEnd(batches, batchLoss, s.Network)
			}
			epochLoss += batchLoss
			batches++
		}
		if batches > 0 {
			epochLoss /= float64(batches)
		}
		history = append(history, epochLoss)

		stopped := false
		for _, cb := range cfg.Callbacks {
			cb.OnEpochEnd(epoch, epochLoss, s.Network)
			if es, ok := cb.(*EarlyStopping); ok && es.Stopped {
				stopped = true
			}
		}
		if stopped {
			break
		}
	}

	for _, cb := range cfg.Callbacks {
		cb.OnTrainEnd(s.Network)
	}
	return history
}

// Evaluate calculates the average loss on a dataset.
func (s *Sequential) Evaluate(x, y [][]float64) float64 {
	var totalLoss float64
	for i := range x {
		pred := s.Forward(x[i])
		totalLoss += s.loss.Forward(pred, y[i])
	}
	return totalLoss / float64(len(x))
}

// Accuracy computes argmax classification accuracy on one-hot targets.
func (s *Sequential) Accuracy(x, y [][]float64) float64 {
	if len(x) == 0 {
		return 0
	}
	correct := 0
	for i := range x {
		pred := s.Forward(x[i])
		if argmax(pred) == argmax(y[i]) {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
