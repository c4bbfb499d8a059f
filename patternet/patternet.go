// Package patternet is the public surface of the library: model
// building, training, persistence, and pattern-based analysis.
package patternet

import (
	"github.com/patternlab/patternet/internal/activations"
	"github.com/patternlab/patternet/internal/layer"
	"github.com/patternlab/patternet/internal/loss"
	"github.com/patternlab/patternet/internal/net"
	"github.com/patternlab/patternet/internal/opt"
	"github.com/patternlab/patternet/pattern"
)

// Re-export common types and functions for easier access
type (
	Model     = net.Sequential
	Layer     = layer.Layer
	Optimizer = opt.Optimizer
	Loss      = loss.Loss
	FitConfig = net.FitConfig

	Analyzer    = pattern.Analyzer
	PatternType = pattern.Type
)

// Model creation
func NewSequential(layers ...Layer) *Model {
	return net.NewSequential(layers...)
}

// SeedWeights resets the weight initialization stream, making model
// construction reproducible.
func SeedWeights(seed int64) {
	layer.SeedInit(seed)
}

// Activations
var (
	ReLU    = activations.ReLU{}
	Sigmoid = activations.Sigmoid{}
	Tanh    = activations.Tanh{}
	Linear  = activations.Linear{}
)

// Layers
func Dense(in, out int, act activations.Activation) Layer {
	return layer.NewDense(in, out, act)
}

func Conv2D(inChannels, outChannels, kernelSize, stride, padding int, act activations.Activation) Layer {
	return layer.NewConv2D(inChannels, outChannels, kernelSize, stride, padding, act)
}

func MaxPool2D(channels, kernelSize, stride int) Layer {
	return layer.NewMaxPool2D(channels, kernelSize, stride)
}

func Flatten() Layer {
	return layer.NewFlatten()
}

// Optimizers
func SGD(lr float64) Optimizer {
	return opt.SGD{LearningRate: lr}
}

func Adam(lr float64) Optimizer {
	return opt.NewAdam(lr)
}

func RMSprop(lr float64) Optimizer {
	return opt.NewRMSprop(lr)
}

// Callbacks
type Callback = net.Callback

func Logger(interval int) net.Logger {
	return net.Logger{Interval: interval}
}

func ModelCheckpoint(filename string) net.Callback {
	return net.NewModelCheckpoint(filename)
}

func EarlyStopping(patience int, threshold float64) *net.EarlyStopping {
	return net.NewEarlyStopping(patience, threshold)
}

// Losses
var (
	MSE          = loss.MSE{}
	CrossEntropy = loss.CrossEntropy{}
)

func SoftmaxCrossEntropy() Loss {
	return loss.NewSoftmaxCrossEntropy()
}

// Pattern analysis
const (
	PatternDummy        = pattern.Dummy
	PatternLinear       = pattern.Linear
	PatternReLUPositive = pattern.ReLUPositive
	PatternReLUNegative = pattern.ReLUNegative
)

func NewAnalyzer(name string, model *Model, opts ...pattern.Option) (Analyzer, error) {
	return pattern.NewAnalyzer(name, model, opts...)
}

func WithPatternType(t PatternType) pattern.Option {
	return pattern.WithPatternType(t)
}

func WithParallel(parallel bool) pattern.Option {
	return pattern.WithParallel(parallel)
}

func WithBatchSize(n int) pattern.Option {
	return pattern.WithBatchSize(n)
}

// Model Persistence
func Load(filename string) (*Model, Loss, error) {
	n, l, err := net.Load(filename)
	if err != nil {
		return nil, nil, err
	}
	return &net.Sequential{Network: n}, l, nil
}
