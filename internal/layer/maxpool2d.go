package layer

import "math"

// MaxPool2D implements 2D max pooling over channel-major input
// [channels, height, width]. The argmax of each window is recorded so
// that gradients and pattern signals route to the contributing input.
type MaxPool2D struct {
	channels   int
	kernelSize int
	stride     int

	inputHeight int
	inputWidth  int

	outputBuf []float64
	argmaxBuf []int
	gradInBuf []float64
}

// NewMaxPool2D creates a max pooling layer.
func NewMaxPool2D(channels, kernelSize, stride int) *MaxPool2D {
	return &MaxPool2D{
		channels:   channels,
		kernelSize: kernelSize,
		stride:     stride,
	}
}

// SetInputDimensions explicitly sets the input spatial dimensions.
func (m *MaxPool2D) SetInputDimensions(height, width int) {
	m.inputHeight = height
	m.inputWidth = width
}

func (m *MaxPool2D) outputSize() (int, int) {
	outH := (m.inputHeight-m.kernelSize)/m.stride + 1
	outW := (m.inputWidth-m.kernelSize)/m.stride + 1
	return outH, outW
}

func (m *MaxPool2D) inferDims(totalInput int) {
	if m.inputHeight > 0 && m.inputWidth > 0 {
		return
	}
	if totalInput%m.channels != 0 {
		panic("MaxPool2D: input length not divisible by channels")
	}
	channelSize := totalInput / m.channels
	side := int(math.Sqrt(float64(channelSize)))
	if side*side != channelSize {
		panic("MaxPool2D: cannot infer non-square input dimensions, call SetInputDimensions")
	}
	m.inputHeight, m.inputWidth = side, side
}

// Forward performs max pooling, recording window argmax positions.
func (m *MaxPool2D) Forward(x []float64) []float64 {
	m.inferDims(len(x))
	inH, inW := m.inputHeight, m.inputWidth
	outH, outW := m.outputSize()

	required := m.channels * outH * outW
	if len(m.outputBuf) < required {
		m.outputBuf = make([]float64, required)
		m.argmaxBuf = make([]int, required)
	}
	if len(m.gradInBuf) < len(x) {
		m.gradInBuf = make([]float64, len(x))
	}

	for ch := 0; ch < m.channels; ch++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				best := math.Inf(-1)
				bestIdx := -1
				for kh := 0; kh < m.kernelSize; kh++ {
					for kw := 0; kw < m.kernelSize; kw++ {
						h := oh*m.stride + kh
						w := ow*m.stride + kw
						idx := ch*inH*inW + h*inW + w
						if x[idx] > best {
							best = x[idx]
							bestIdx = idx
						}
					}
				}
				outIdx := ch*outH*outW + oh*outW + ow
				m.outputBuf[outIdx] = best
				m.argmaxBuf[outIdx] = bestIdx
			}
		}
	}

	return m.outputBuf[:required]
}

// Backward routes each output gradient to the argmax input position.
func (m *MaxPool2D) Backward(grad []float64) []float64 {
	gradIn := m.gradInBuf[:m.channels*m.inputHeight*m.inputWidth]
	for i := range gradIn {
		gradIn[i] = 0
	}
	for i, g := range grad {
		gradIn[m.argmaxBuf[i]] += g
	}
	return gradIn
}

// Params returns no parameters.
func (m *MaxPool2D) Params() []float64 { return nil }

// SetParams is a no-op.
func (m *MaxPool2D) SetParams(params []float64) {}

// Gradients returns no gradients.
func (m *MaxPool2D) Gradients() []float64 { return nil }

// InSize returns the flattened input size, or 0 if unknown.
func (m *MaxPool2D) InSize() int {
	return m.channels * m.inputHeight * m.inputWidth
}

// OutSize returns the flattened output size, or 0 if unknown.
func (m *MaxPool2D) OutSize() int {
	if m.inputHeight == 0 {
		return 0
	}
	outH, outW := m.outputSize()
	return m.channels * outH * outW
}

// Channels returns the channel count.
func (m *MaxPool2D) Channels() int { return m.channels }

// KernelSize returns the pooling window size.
func (m *MaxPool2D) KernelSize() int { return m.kernelSize }

// Stride returns the pooling stride.
func (m *MaxPool2D) Stride() int { return m.stride }

// InputDimensions returns the input spatial dimensions (height, width).
func (m *MaxPool2D) InputDimensions() (int, int) { return m.inputHeight, m.inputWidth }

// Argmax returns the recorded argmax positions from the last forward
// pass, one flattened input index per output element.
func (m *MaxPool2D) Argmax() []int {
	return m.argmaxBuf[:m.OutSize()]
}
