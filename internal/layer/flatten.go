package layer

// Flatten passes values through unchanged while marking the boundary
// between convolutional and dense stages. With flat []float64 inputs
// the copy is all that is needed; the layer exists so that model
// descriptions mirror their framework counterparts.
type Flatten struct {
	size      int
	outputBuf []float64
}

// NewFlatten creates a new flatten layer.
func NewFlatten() *Flatten {
	return &Flatten{}
}

// Forward copies the input into the reusable output buffer.
func (f *Flatten) Forward(x []float64) []float64 {
	if len(f.outputBuf) < len(x) {
		f.outputBuf = make([]float64, len(x))
	}
	f.size = len(x)
	copy(f.outputBuf, x)
	return f.outputBuf[:len(x)]
}

// Backward passes the gradient through unchanged.
func (f *Flatten) Backward(grad []float64) []float64 {
	return grad
}

// Params returns no parameters.
func (f *Flatten) Params() []float64 { return nil }

// SetParams is a no-op.
func (f *Flatten) SetParams(params []float64) {}

// Gradients returns no gradients.
func (f *Flatten) Gradients() []float64 { return nil }

// InSize returns the size seen on the last forward pass.
func (f *Flatten) InSize() int { return f.size }

// OutSize returns the size seen on the last forward pass.
func (f *Flatten) OutSize() int { return f.size }
