// Package net provides the network container and training loop.
package net

import (
	"github.com/patternlab/patternet/internal/layer"
	"github.com/patternlab/patternet/internal/loss"
	"github.com/patternlab/patternet/internal/opt"
)

// Network is a collection of layers that can be forwarded and backwarded.
type Network struct {
	layers []layer.Layer
	loss   loss.Loss

	// One optimizer per layer; stateful optimizers are cloned so
	// moment estimates never mix between layers.
	opts []opt.Optimizer

	// Pre-allocated gradient buffer for training to avoid
	// allocations in the training loop.
	lossGradBuf []float64

	// Per-layer gradient accumulators for batched training.
	batchGrads [][]float64
}

// New creates a new neural network with the given layers.
func New(layers []layer.Layer, lossFn loss.Loss, optimizer opt.Optimizer) *Network {
	n := &Network{
		layers: layers,
		loss:   lossFn,
	}
	n.setOptimizer(optimizer)
	return n
}

func (n *Network) setOptimizer(optimizer opt.Optimizer) {
	if optimizer == nil {
		n.opts = nil
		return
	}
	n.opts = make([]opt.Optimizer, len(n.layers))
	for i := range n.layers {
		if c, ok := optimizer.(opt.Cloneable); ok {
			n.opts[i] = c.Clone()
		} else {
			n.opts[i] = optimizer
		}
	}
}

// Forward performs a forward pass through all layers.
func (n *Network) Forward(x []float64) []float64 {
	curr := x
	for i := range n.layers {
		curr = n.layers[i].Forward(curr)
	}
	return curr
}

// Backward performs a backward pass through all layers.
func (n *Network) Backward(grad []float64) []float64 {
	curr := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		curr = n.layers[i].Backward(curr)
	}
	return curr
}

// Step performs one optimization step with each layer's optimizer.
func (n *Network) Step() {
	for i, l := range n.layers {
		n.stepLayer(i, l.Gradients())
	}
}

func (n *Network) stepLayer(i int, gradients []float64) {
	if len(gradients) == 0 {
		return
	}
	params := n.layers[i].Params()
	n.opts[i].StepInPlace(params, gradients)
	n.layers[i].SetParams(params)
}

// Train performs a training step on a single sample and returns the loss.
func (n *Network) Train(x []float64, y []float64) float64 {
	yPred := n.Forward(x)
	l := n.loss.Forward(yPred, y)

	grad := n.lossGrad(yPred, y)
	_ = n.Backward(grad)
	n.Step()

	return l
}

// lossGrad computes the loss gradient into the reusable buffer.
func (n *Network) lossGrad(yPred, y []float64) []float64 {
	if cap(n.lossGradBuf) < len(yPred) {
		n.lossGradBuf = make([]float64, len(yPred))
	}
	grad := n.lossGradBuf[:len(yPred)]

	if inPlace, ok := n.loss.(loss.BackwardInPlacer); ok {
		inPlace.BackwardInPlace(yPred, y, grad)
	} else {
		grad = n.loss.Backward(yPred, y)
	}
	return grad
}

// TrainBatch trains on a batch of samples: per-sample gradients are
// accumulated, averaged, and applied in a single optimization step.
// Returns the mean loss over the batch.
func (n *Network) TrainBatch(batchX [][]float64, batchY [][]float64) float64 {
	batchSize := len(batchX)
	if batchSize == 0 {
		return 0
	}

	if n.batchGrads == nil {
		n.batchGrads = make([][]float64, len(n.layers))
	}
	for i, l := range n.layers {
		size := len(l.Gradients())
		if len(n.batchGrads[i]) != size {
			n.batchGrads[i] = make([]float64, size)
		} else {
			for j := range n.batchGrads[i] {
				n.batchGrads[i][j] = 0
			}
		}
	}

	var totalLoss float64
	for s := range batchX {
		yPred := n.Forward(batchX[s])
		totalLoss += n.loss.Forward(yPred, batchY[s])

		grad := n.lossGrad(yPred, batchY[s])
		_ = n.Backward(grad)

		for i, l := range n.layers {
			for j, g := range l.Gradients() {
				n.batchGrads[i][j] += g
			}
		}
	}

	inv := 1 / float64(batchSize)
	for i := range n.batchGrads {
		for j := range n.batchGrads[i] {
			n.batchGrads[i][j] *= inv
		}
		n.stepLayer(i, n.batchGrads[i])
	}

	return totalLoss * inv
}

// Params returns all network parameters flattened (copy).
func (n *Network) Params() []float64 {
	var params []float64
	for _, l := range n.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// Layers returns the network's layers slice.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// Loss returns the configured loss function.
func (n *Network) Loss() loss.Loss {
	return n.loss
}
