// Package activations provides activation functions with derivatives.
package activations

import "math"

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x)
	Derivative(x float64) float64
}

// Namer is implemented by activations that report a stable name,
// used for model persistence and for selecting the pattern regime.
type Namer interface {
	Name() string
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func (r ReLU) Name() string { return "ReLU" }

// Linear is the identity activation, used for regression outputs and
// for layers whose non-linearity is folded into the loss.
type Linear struct{}

// Activate returns x unchanged.
func (l Linear) Activate(x float64) float64 { return x }

// Derivative returns 1.
func (l Linear) Derivative(x float64) float64 { return 1 }

func (l Linear) Name() string { return "Linear" }

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

func (s Sigmoid) Name() string { return "Sigmoid" }

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

func (t Tanh) Name() string { return "Tanh" }

// SoftmaxVec writes softmax(src) into dst. dst and src may alias.
// Uses the max-subtraction trick for numerical stability.
func SoftmaxVec(dst, src []float64) {
	if len(dst) != len(src) {
		panic("SoftmaxVec: dst and src must have same length")
	}
	max := src[0]
	for _, v := range src[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for i, v := range src {
		e := math.Exp(v - max)
		dst[i] = e
		sum += e
	}
	for i := range dst {
		dst[i] /= sum
	}
}
