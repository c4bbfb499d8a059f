package net

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/patternlab/patternet/internal/activations"
	"github.com/patternlab/patternet/internal/layer"
	"github.com/patternlab/patternet/internal/loss"
	"github.com/patternlab/patternet/internal/opt"
)

// LayerConfig holds the configuration needed to reconstruct a layer.
type LayerConfig struct {
	Type       string
	InSize     int
	OutSize    int
	Activation string

	// Convolution / pooling geometry
	Channels   int
	Kernel     int
	Stride     int
	Padding    int
	InputH     int
	InputW     int

	Params []float64
}

// ExtractLayerConfig extracts the configuration from a layer.
func ExtractLayerConfig(l layer.Layer) (LayerConfig, error) {
	switch v := l.(type) {
	case *layer.Dense:
		return LayerConfig{
			Type:       "Dense",
			InSize:     v.InSize(),
			OutSize:    v.OutSize(),
			Activation: activationName(v.Activation()),
			Params:     v.Params(),
		}, nil
	case *layer.Conv2D:
		h, w := v.InputDimensions()
		return LayerConfig{
			Type:       "Conv2D",
			InSize:     v.InChannels(),
			OutSize:    v.OutChannels(),
			Activation: activationName(v.Activation()),
			Kernel:     v.KernelSize(),
			Stride:     v.Stride(),
			Padding:    v.Padding(),
			InputH:     h,
			InputW:     w,
			Params:     v.Params(),
		}, nil
	case *layer.Flatten:
		return LayerConfig{Type: "Flatten"}, nil
	case *layer.MaxPool2D:
		h, w := v.InputDimensions()
		return LayerConfig{
			Type:     "MaxPool2D",
			Channels: v.Channels(),
			Kernel:   v.KernelSize(),
			Stride:   v.Stride(),
			InputH:   h,
			InputW:   w,
		}, nil
	default:
		return LayerConfig{}, fmt.Errorf("unsupported layer type %T", l)
	}
}

// CreateLayer creates a new layer from the configuration.
func (c *LayerConfig) CreateLayer() (layer.Layer, error) {
	switch c.Type {
	case "Dense":
		d := layer.NewDense(c.InSize, c.OutSize, activationByName(c.Activation))
		d.SetParams(c.Params)
		return d, nil
	case "Conv2D":
		conv := layer.NewConv2D(c.InSize, c.OutSize, c.Kernel, c.Stride, c.Padding,
			activationByName(c.Activation))
		if c.InputH > 0 {
			conv.SetInputDimensions(c.InputH, c.InputW)
		}
		conv.SetParams(c.Params)
		return conv, nil
	case "Flatten":
		return layer.NewFlatten(), nil
	case "MaxPool2D":
		pool := layer.NewMaxPool2D(c.Channels, c.Kernel, c.Stride)
		if c.InputH > 0 {
			pool.SetInputDimensions(c.InputH, c.InputW)
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("unsupported layer type: %s", c.Type)
	}
}

func activationName(act activations.Activation) string {
	if n, ok := act.(activations.Namer); ok {
		return n.Name()
	}
	return "Linear"
}

func activationByName(name string) activations.Activation {
	switch name {
	case "ReLU":
		return activations.ReLU{}
	case "Sigmoid":
		return activations.Sigmoid{}
	case "Tanh":
		return activations.Tanh{}
	default:
		return activations.Linear{}
	}
}

// Save saves the network to a file using gob encoding.
// Optimizer state is not saved.
func (n *Network) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return n.Encode(file)
}

// Encode writes the network to an io.Writer using gob encoding.
func (n *Network) Encode(w io.Writer) error {
	encoder := gob.NewEncoder(w)

	if err := encoder.Encode(int32(len(n.layers))); err != nil {
		return fmt.Errorf("failed to encode layer count: %w", err)
	}

	var lossType string
	switch n.loss.(type) {
	case loss.CrossEntropy:
		lossType = "CrossEntropy"
	case *loss.SoftmaxCrossEntropy:
		lossType = "SoftmaxCrossEntropy"
	default:
		lossType = "MSE"
	}
	if err := encoder.Encode(lossType); err != nil {
		return fmt.Errorf("failed to encode loss: %w", err)
	}

	for _, l := range n.layers {
		cfg, err := ExtractLayerConfig(l)
		if err != nil {
			return err
		}
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode layer: %w", err)
		}
	}

	return nil
}

// Load loads a network from a file. The returned network carries a
// default SGD optimizer; call Compile to train further.
func Load(filename string) (*Network, loss.Loss, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads a network from an io.Reader.
func Decode(r io.Reader) (*Network, loss.Loss, error) {
	decoder := gob.NewDecoder(r)

	var numLayers int32
	if err := decoder.Decode(&numLayers); err != nil {
		return nil, nil, fmt.Errorf("failed to read layer count: %w", err)
	}

	var lossType string
	if err := decoder.Decode(&lossType); err != nil {
		return nil, nil, fmt.Errorf("failed to read loss type: %w", err)
	}

	layers := make([]layer.Layer, 0, numLayers)
	for i := 0; i < int(numLayers); i++ {
		var cfg LayerConfig
		if err := decoder.Decode(&cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to read layer %d: %w", i, err)
		}
		l, err := cfg.CreateLayer()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create layer %d: %w", i, err)
		}
		layers = append(layers, l)
	}

	var lossFn loss.Loss
	switch lossType {
	case "CrossEntropy":
		lossFn = loss.CrossEntropy{}
	case "SoftmaxCrossEntropy":
		lossFn = loss.NewSoftmaxCrossEntropy()
	default:
		lossFn = loss.MSE{}
	}

	return New(layers, lossFn, opt.SGD{LearningRate: 0.1}), lossFn, nil
}
