package layer

import (
	"fmt"
	"math"

	"github.com/patternlab/patternet/internal/activations"
)

// Conv2D implements a 2D convolutional layer using direct convolution.
// Input and output are flattened channel-major: [channels, height, width].
type Conv2D struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int

	// Input spatial dimensions, set explicitly or inferred on the
	// first forward pass (square inputs only when inferring).
	inputHeight int
	inputWidth  int

	// Weights: [outChannels, inChannels, kernelSize, kernelSize],
	// stored as a contiguous slice.
	weights []float64
	biases  []float64

	activation activations.Activation

	// Pre-allocated buffers
	preActBuf   []float64
	outputBuf   []float64
	gradWeights []float64
	gradBiases  []float64
	gradInBuf   []float64

	savedInput []float64
}

// NewConv2D creates a new 2D convolutional layer with He initialization.
func NewConv2D(inChannels, outChannels, kernelSize, stride, padding int,
	activation activations.Activation) *Conv2D {

	scale := math.Sqrt(2.0 / float64(inChannels*kernelSize*kernelSize))

	weights := make([]float64, outChannels*inChannels*kernelSize*kernelSize)
	biases := make([]float64, outChannels)

	for i := range weights {
		weights[i] = initRNG.RandFloat()*2*scale - scale
	}
	for o := range biases {
		biases[o] = initRNG.RandFloat()*0.2 - 0.1
	}

	return &Conv2D{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		activation:  activation,
		weights:     weights,
		biases:      biases,
		gradWeights: make([]float64, len(weights)),
		gradBiases:  make([]float64, len(biases)),
	}
}

// SetInputDimensions explicitly sets the input spatial dimensions,
// allowing non-square inputs.
func (c *Conv2D) SetInputDimensions(height, width int) {
	c.inputHeight = height
	c.inputWidth = width
}

// computeOutputSize calculates the output spatial dimensions.
func (c *Conv2D) computeOutputSize(inputHeight, inputWidth int) (int, int) {
	outH := (inputHeight+2*c.padding-c.kernelSize)/c.stride + 1
	outW := (inputWidth+2*c.padding-c.kernelSize)/c.stride + 1
	return outH, outW
}

// inferDims resolves the input spatial dimensions for a given input length.
func (c *Conv2D) inferDims(totalInput int) (int, int) {
	if totalInput%c.inChannels != 0 {
		panic("Conv2D: input length not divisible by inChannels")
	}
	channelSize := totalInput / c.inChannels
	if c.inputHeight > 0 && c.inputWidth > 0 {
		if c.inputHeight*c.inputWidth != channelSize {
			panic(fmt.Sprintf("Conv2D: input dimensions %dx%d don't match channel size %d",
				c.inputHeight, c.inputWidth, channelSize))
		}
		return c.inputHeight, c.inputWidth
	}
	side := int(math.Sqrt(float64(channelSize)))
	if side*side != channelSize {
		panic("Conv2D: cannot infer non-square input dimensions, call SetInputDimensions")
	}
	c.inputHeight, c.inputWidth = side, side
	return side, side
}

// at returns the padded input value at (ch, h, w), zero outside bounds.
func (c *Conv2D) at(input []float64, ch, h, w, inH, inW int) float64 {
	if h < 0 || h >= inH || w < 0 || w >= inW {
		return 0
	}
	return input[ch*inH*inW+h*inW+w]
}

// Forward performs a forward pass.
// input: flattened [inChannels, inputHeight, inputWidth]
// Returns: flattened [outChannels, outputHeight, outputWidth]
func (c *Conv2D) Forward(input []float64) []float64 {
	inH, inW := c.inferDims(len(input))
	outH, outW := c.computeOutputSize(inH, inW)

	requiredOutput := c.outChannels * outH * outW
	if len(c.preActBuf) < requiredOutput {
		c.preActBuf = make([]float64, requiredOutput)
		c.outputBuf = make([]float64, requiredOutput)
	}
	if len(c.gradInBuf) < len(input) {
		c.gradInBuf = make([]float64, len(input))
	}
	if cap(c.savedInput) < len(input) {
		c.savedInput = make([]float64, len(input))
	}
	c.savedInput = c.savedInput[:len(input)]
	copy(c.savedInput, input)

	k := c.kernelSize
	for o := 0; o < c.outChannels; o++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				sum := c.biases[o]
				hBase := oh*c.stride - c.padding
				wBase := ow*c.stride - c.padding
				for ch := 0; ch < c.inChannels; ch++ {
					wOff := o*c.inChannels*k*k + ch*k*k
					for kh := 0; kh < k; kh++ {
						for kw := 0; kw < k; kw++ {
							sum += c.weights[wOff+kh*k+kw] *
								c.at(input, ch, hBase+kh, wBase+kw, inH, inW)
						}
					}
				}
				idx := o*outH*outW + oh*outW + ow
				c.preActBuf[idx] = sum
				c.outputBuf[idx] = c.activation.Activate(sum)
			}
		}
	}

	return c.outputBuf[:requiredOutput]
}

// Backward performs backpropagation through the convolutional layer.
func (c *Conv2D) Backward(grad []float64) []float64 {
	inH, inW := c.inputHeight, c.inputWidth
	outH, outW := c.computeOutputSize(inH, inW)
	k := c.kernelSize

	gradIn := c.gradInBuf[:c.inChannels*inH*inW]
	for i := range gradIn {
		gradIn[i] = 0
	}
	for i := range c.gradWeights {
		c.gradWeights[i] = 0
	}
	for i := range c.gradBiases {
		c.gradBiases[i] = 0
	}

	for o := 0; o < c.outChannels; o++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				idx := o*outH*outW + oh*outW + ow
				dz := grad[idx] * c.activation.Derivative(c.preActBuf[idx])
				if dz == 0 {
					continue
				}
				c.gradBiases[o] += dz
				hBase := oh*c.stride - c.padding
				wBase := ow*c.stride - c.padding
				for ch := 0; ch < c.inChannels; ch++ {
					wOff := o*c.inChannels*k*k + ch*k*k
					for kh := 0; kh < k; kh++ {
						h := hBase + kh
						if h < 0 || h >= inH {
							continue
						}
						for kw := 0; kw < k; kw++ {
							w := wBase + kw
							if w < 0 || w >= inW {
								continue
							}
							inIdx := ch*inH*inW + h*inW + w
							c.gradWeights[wOff+kh*k+kw] += dz * c.savedInput[inIdx]
							gradIn[inIdx] += dz * c.weights[wOff+kh*k+kw]
						}
					}
				}
			}
		}
	}

	return gradIn
}

// Params returns weights and biases flattened.
func (c *Conv2D) Params() []float64 {
	params := make([]float64, 0, len(c.weights)+len(c.biases))
	params = append(params, c.weights...)
	params = append(params, c.biases...)
	return params
}

// SetParams updates weights and biases from a flattened slice.
func (c *Conv2D) SetParams(params []float64) {
	copy(c.weights, params[:len(c.weights)])
	copy(c.biases, params[len(c.weights):])
}

// Gradients returns weight and bias gradients flattened.
func (c *Conv2D) Gradients() []float64 {
	gradients := make([]float64, 0, len(c.gradWeights)+len(c.gradBiases))
	gradients = append(gradients, c.gradWeights...)
	gradients = append(gradients, c.gradBiases...)
	return gradients
}

// InSize returns the flattened input size, or 0 if dimensions are not
// yet known.
func (c *Conv2D) InSize() int {
	return c.inChannels * c.inputHeight * c.inputWidth
}

// OutSize returns the flattened output size, or 0 if dimensions are
// not yet known.
func (c *Conv2D) OutSize() int {
	if c.inputHeight == 0 {
		return 0
	}
	outH, outW := c.computeOutputSize(c.inputHeight, c.inputWidth)
	return c.outChannels * outH * outW
}

// Geometry accessors used by pattern estimation.

// InChannels returns the number of input channels.
func (c *Conv2D) InChannels() int { return c.inChannels }

// OutChannels returns the number of output feature maps.
func (c *Conv2D) OutChannels() int { return c.outChannels }

// KernelSize returns the (square) kernel size.
func (c *Conv2D) KernelSize() int { return c.kernelSize }

// Stride returns the convolution stride.
func (c *Conv2D) Stride() int { return c.stride }

// Padding returns the zero-padding size.
func (c *Conv2D) Padding() int { return c.padding }

// InputDimensions returns the input spatial dimensions (height, width).
func (c *Conv2D) InputDimensions() (int, int) { return c.inputHeight, c.inputWidth }

// Filters returns the raw kernel slice,
// shape [outChannels, inChannels, kernelSize, kernelSize].
func (c *Conv2D) Filters() []float64 { return c.weights }

// GetBiases returns the biases slice directly.
func (c *Conv2D) GetBiases() []float64 { return c.biases }

// Activation returns the activation function used by this layer.
func (c *Conv2D) Activation() activations.Activation { return c.activation }

// PreActivations returns the pre-activation values from the last
// forward pass. The slice is reused between passes.
func (c *Conv2D) PreActivations() []float64 {
	return c.preActBuf[:c.OutSize()]
}
