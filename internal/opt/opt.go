// Package opt provides optimization algorithms.
package opt

import "math"

// Optimizer updates network parameters based on gradients.
type Optimizer interface {
	// Step computes updated parameters and returns a new slice.
	Step(params, gradients []float64) []float64

	// StepInPlace updates params in-place to avoid allocations.
	StepInPlace(params, gradients []float64)
}

// Cloneable is implemented by stateful optimizers. The network clones
// the configured optimizer once per layer so that moment estimates
// never mix between layers.
type Cloneable interface {
	Clone() Optimizer
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LearningRate float64
}

// Step computes updated parameters: params - lr * gradients
func (s SGD) Step(params, gradients []float64) []float64 {
	result := make([]float64, len(params))
	for i := range params {
		result[i] = params[i] - s.LearningRate*gradients[i]
	}
	return result
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s SGD) StepInPlace(params, gradients []float64) {
	for i := range params {
		params[i] -= s.LearningRate * gradients[i]
	}
}

// Adam optimizer with bias-corrected first and second moment estimates.
// Moment state is keyed by parameter count, so one Adam instance can
// drive several layers of different sizes.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	state map[int]*adamState
}

type adamState struct {
	m []float64
	v []float64
	t int
}

// NewAdam creates a new Adam optimizer with the usual defaults.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		state:        make(map[int]*adamState),
	}
}

// Clone returns a fresh Adam with the same hyperparameters and no
// accumulated state.
func (a *Adam) Clone() Optimizer {
	return &Adam{
		LearningRate: a.LearningRate,
		Beta1:        a.Beta1,
		Beta2:        a.Beta2,
		Epsilon:      a.Epsilon,
		state:        make(map[int]*adamState),
	}
}

func (a *Adam) stateFor(n int) *adamState {
	if a.state == nil {
		a.state = make(map[int]*adamState)
	}
	st, ok := a.state[n]
	if !ok {
		st = &adamState{m: make([]float64, n), v: make([]float64, n)}
		a.state[n] = st
	}
	return st
}

// Step computes updated parameters using Adam.
func (a *Adam) Step(params, gradients []float64) []float64 {
	result := make([]float64, len(params))
	copy(result, params)
	a.StepInPlace(result, gradients)
	return result
}

// StepInPlace updates params in-place using Adam.
func (a *Adam) StepInPlace(params, gradients []float64) {
	st := a.stateFor(len(params))
	st.t++
	c1 := 1 - math.Pow(a.Beta1, float64(st.t))
	c2 := 1 - math.Pow(a.Beta2, float64(st.t))
	for i := range params {
		g := gradients[i]
		st.m[i] = a.Beta1*st.m[i] + (1-a.Beta1)*g
		st.v[i] = a.Beta2*st.v[i] + (1-a.Beta2)*g*g
		mHat := st.m[i] / c1
		vHat := st.v[i] / c2
		params[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

// RMSprop optimizer: scales updates by a moving average of squared
// gradients.
type RMSprop struct {
	LearningRate float64
	Rho          float64
	Epsilon      float64

	state map[int][]float64
}

// NewRMSprop creates a new RMSprop optimizer with the usual defaults.
func NewRMSprop(learningRate float64) *RMSprop {
	return &RMSprop{
		LearningRate: learningRate,
		Rho:          0.9,
		Epsilon:      1e-7,
		state:        make(map[int][]float64),
	}
}

// Clone returns a fresh RMSprop with the same hyperparameters and no
// accumulated state.
func (r *RMSprop) Clone() Optimizer {
	return &RMSprop{
		LearningRate: r.LearningRate,
		Rho:          r.Rho,
		Epsilon:      r.Epsilon,
		state:        make(map[int][]float64),
	}
}

func (r *RMSprop) cacheFor(n int) []float64 {
	if r.state == nil {
		r.state = make(map[int][]float64)
	}
	c, ok := r.state[n]
	if !ok {
		c = make([]float64, n)
		r.state[n] = c
	}
	return c
}

// Step computes updated parameters using RMSprop.
func (r *RMSprop) Step(params, gradients []float64) []float64 {
	result := make([]float64, len(params))
	copy(result, params)
	r.StepInPlace(result, gradients)
	return result
}

// StepInPlace updates params in-place using RMSprop.
func (r *RMSprop) StepInPlace(params, gradients []float64) {
	cache := r.cacheFor(len(params))
	for i := range params {
		g := gradients[i]
		cache[i] = r.Rho*cache[i] + (1-r.Rho)*g*g
		params[i] -= r.LearningRate * g / (math.Sqrt(cache[i]) + r.Epsilon)
	}
}
