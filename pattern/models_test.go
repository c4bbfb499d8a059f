package pattern

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/patternlab/patternet/internal/activations"
	"github.com/patternlab/patternet/internal/layer"
	"github.com/patternlab/patternet/internal/net"
)

// modelCase is one model topology the estimator is exercised against.
type modelCase struct {
	name     string
	inputDim int
	build    func() *net.Sequential
}

// modelCases covers the topologies patterns must handle: a single dot
// product, deeper perceptrons, and convolutional stacks with one and
// two conv layers.
func modelCases() []modelCase {
	return []modelCase{
		{
			name:     "dot",
			inputDim: 2,
			build: func() *net.Sequential {
				return net.NewSequential(
					layer.NewDense(2, 1, activations.Linear{}),
				)
			},
		},
		{
			name:     "mlp2",
			inputDim: 10,
			build: func() *net.Sequential {
				return net.NewSequential(
					layer.NewDense(10, 8, activations.ReLU{}),
					layer.NewDense(8, 4, activations.Linear{}),
				)
			},
		},
		{
			name:     "mlp3",
			inputDim: 10,
			build: func() *net.Sequential {
				return net.NewSequential(
					layer.NewDense(10, 8, activations.ReLU{}),
					layer.NewDense(8, 6, activations.ReLU{}),
					layer.NewDense(6, 4, activations.Linear{}),
				)
			},
		},
		{
			name:     "cnn_2dim_c1_d1",
			inputDim: 1 * 8 * 8,
			build: func() *net.Sequential {
				return net.NewSequential(
					layer.NewConv2D(1, 2, 3, 1, 0, activations.ReLU{}),
					layer.NewFlatten(),
					layer.NewDense(2*6*6, 4, activations.Linear{}),
				)
			},
		},
		{
			name:     "cnn_2dim_c2_d1",
			inputDim: 1 * 8 * 8,
			build: func() *net.Sequential {
				return net.NewSequential(
					layer.NewConv2D(1, 2, 3, 1, 0, activations.ReLU{}),
					layer.NewConv2D(2, 3, 3, 1, 0, activations.ReLU{}),
					layer.NewFlatten(),
					layer.NewDense(3*4*4, 4, activations.Linear{}),
				)
			},
		},
	}
}

// allClose asserts element-wise closeness with combined relative and
// absolute tolerance, |want-got| <= atol + rtol*|want|.
func allClose(t *testing.T, want, got []float64, rtol, atol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		tol := atol + rtol*math.Abs(want[i])
		assert.InDeltaf(t, want[i], got[i], tol, "element %d", i)
	}
}

func allCloseMat(t *testing.T, want, got *mat.Dense, rtol, atol float64) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, wr, gr)
	require.Equal(t, wc, gc)
	allClose(t, want.RawMatrix().Data, got.RawMatrix().Data, rtol, atol)
}
