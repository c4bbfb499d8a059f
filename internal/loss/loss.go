// Package loss provides loss functions with gradients.
package loss

import (
	"math"

	"github.com/patternlab/patternet/internal/activations"
)

// BackwardInPlacer is an optional interface for loss functions that
// support in-place gradient computation to avoid allocations.
type BackwardInPlacer interface {
	BackwardInPlace(yPred, yTrue, grad []float64)
}

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float64) float64

	// Backward computes the gradient of the loss w.r.t. prediction.
	Backward(yPred, yTrue []float64) []float64
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
func (m MSE) Forward(yPred, yTrue []float64) float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("MSE: prediction and target must have same length")
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yPred[i] - yTrue[i]
		sum += diff * diff
	}
	return sum / float64(n)
}

// Backward computes gradient: dL/dy_pred = (2/n) * (y_pred - y_true)
func (m MSE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	m.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes the gradient into a pre-allocated slice.
func (m MSE) BackwardInPlace(yPred, yTrue, grad []float64) {
	n := len(yPred)
	if n != len(yTrue) || n != len(grad) {
		panic("MSE: slices must have same length")
	}

	factor := 2.0 / float64(n)
	for i := 0; i < n; i++ {
		grad[i] = factor * (yPred[i] - yTrue[i])
	}
}

// CrossEntropy loss over probability vectors.
type CrossEntropy struct{}

// Forward computes cross entropy: -sum(y_true * log(y_pred + eps))
func (c CrossEntropy) Forward(yPred, yTrue []float64) float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("CrossEntropy: prediction and target must have same length")
	}

	const eps = 1e-10
	var sum float64
	for i := 0; i < n; i++ {
		pred := yPred[i]
		if pred < eps {
			pred = eps
		}
		sum -= yTrue[i] * math.Log(pred)
	}
	return sum / float64(n)
}

// Backward computes the simplified softmax + cross entropy gradient
// (y_pred - y_true); valid when predictions are already probabilities
// produced by a softmax.
func (c CrossEntropy) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	c.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes the gradient into a pre-allocated slice.
func (c CrossEntropy) BackwardInPlace(yPred, yTrue, grad []float64) {
	n := len(yPred)
	if n != len(yTrue) || n != len(grad) {
		panic("CrossEntropy: slices must have same length")
	}

	for i := 0; i < n; i++ {
		grad[i] = yPred[i] - yTrue[i]
	}
}

// SoftmaxCrossEntropy is categorical cross entropy over raw logits:
// the softmax lives inside the loss, so the model itself can end in a
// linear layer. Attribution analyses then run on the softmax-free
// model while training still optimizes class probabilities.
type SoftmaxCrossEntropy struct {
	probBuf []float64
}

// NewSoftmaxCrossEntropy creates the loss with its probability buffer.
func NewSoftmaxCrossEntropy() *SoftmaxCrossEntropy {
	return &SoftmaxCrossEntropy{}
}

func (s *SoftmaxCrossEntropy) probs(logits []float64) []float64 {
	if len(s.probBuf) < len(logits) {
		s.probBuf = make([]float64, len(logits))
	}
	p := s.probBuf[:len(logits)]
	activations.SoftmaxVec(p, logits)
	return p
}

// Forward computes -sum(y_true * log softmax(logits)).
func (s *SoftmaxCrossEntropy) Forward(yPred, yTrue []float64) float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("SoftmaxCrossEntropy: prediction and target must have same length")
	}

	const eps = 1e-10
	p := s.probs(yPred)
	var sum float64
	for i := 0; i < n; i++ {
		pi := p[i]
		if pi < eps {
			pi = eps
		}
		sum -= yTrue[i] * math.Log(pi)
	}
	return sum
}

// Backward computes softmax(logits) - y_true.
func (s *SoftmaxCrossEntropy) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	s.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes the gradient into a pre-allocated slice.
func (s *SoftmaxCrossEntropy) BackwardInPlace(yPred, yTrue, grad []float64) {
	n := len(yPred)
	if n != len(yTrue) || n != len(grad) {
		panic("SoftmaxCrossEntropy: slices must have same length")
	}

	p := s.probs(yPred)
	for i := 0; i < n; i++ {
		grad[i] = p[i] - yTrue[i]
	}
}
