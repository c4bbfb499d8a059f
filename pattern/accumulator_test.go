package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSafeDivide(t *testing.T) {
	assert.Equal(t, 2.0, safeDivide(6, 3))
	assert.Equal(t, 5.0, safeDivide(5, 0), "zero denominator divides by one")
	assert.Equal(t, 0.0, safeDivide(0, 0))
}

// handMapping builds a mapping directly from a weight matrix, without
// a layer behind it.
func handMapping(w *mat.Dense, bias []float64) *mapping {
	in, out := w.Dims()
	return &mapping{
		in:      in,
		out:     out,
		weights: w,
		bias:    bias,
		patchRows: func(x []float64, dst [][]float64) [][]float64 {
			row := make([]float64, len(x))
			copy(row, x)
			return append(dst, row)
		},
	}
}

func TestAccumulatorLinearKnownCovariance(t *testing.T) {
	// Identity weights make y = x, so cov(x, y) is the covariance of
	// the data itself and the denominator is its diagonal.
	w := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	m := handMapping(w, []float64{0, 0})

	rows := [][]float64{
		{1, 2},
		{3, 2},
		{1, 4},
		{3, 4},
	}
	a := newAccumulator(Linear, 2, 2)
	a.addBatch(rows, m)
	p := a.solve(m)

	// var(x0) = var(x1) = 1, cov(x0, x1) = 0: the pattern is the
	// identity.
	want := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	allCloseMat(t, want, p, 1e-12, 1e-12)
}

func TestAccumulatorBatchSplitInvariance(t *testing.T) {
	w := mat.NewDense(3, 2, []float64{
		0.5, -1,
		1.5, 0.25,
		-0.75, 2,
	})
	m := handMapping(w, []float64{0.1, -0.2})

	rows := [][]float64{
		{1, 0, -1},
		{0.5, 2, 1},
		{-1, 1, 0.25},
		{2, -0.5, 1},
		{0, 1, -2},
	}

	for _, ptype := range []Type{Linear, ReLUPositive, ReLUNegative} {
		one := newAccumulator(ptype, 3, 2)
		one.addBatch(rows, m)

		split := newAccumulator(ptype, 3, 2)
		split.addBatch(rows[:2], m)
		split.addBatch(rows[2:4], m)
		split.addBatch(rows[4:], m)

		pOne := one.solve(m)
		pSplit := split.solve(m)
		assert.True(t, mat.EqualApprox(pOne, pSplit, 1e-12),
			"%s pattern depends on batch split", ptype)
	}
}

func TestAccumulatorInactiveUnitStaysFinite(t *testing.T) {
	// Large negative bias keeps unit 0 inactive for every sample under
	// relu.positive; its masked statistics stay zero and the pattern
	// column degrades to zeros instead of NaN.
	w := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	m := handMapping(w, []float64{-100, 0})

	rows := [][]float64{
		{1, 2},
		{2, 1},
		{3, 3},
	}
	a := newAccumulator(ReLUPositive, 2, 2)
	a.addBatch(rows, m)
	require.Equal(t, 0.0, a.cnt[0])
	require.Equal(t, 3.0, a.cnt[1])

	p := a.solve(m)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			v := p.At(i, j)
			assert.False(t, isNaNOrInf(v), "pattern[%d,%d] not finite", i, j)
		}
	}
}

func TestAccumulatorEmptyBatchIsNoop(t *testing.T) {
	w := mat.NewDense(2, 1, []float64{1, 1})
	m := handMapping(w, []float64{0})

	a := newAccumulator(Linear, 2, 1)
	a.addBatch(nil, m)
	assert.Equal(t, 0.0, a.n)
}
