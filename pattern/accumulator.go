package pattern

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// accumulator gathers single-pass moment statistics for one mapping.
// All statistics are accumulated online, so results are independent of
// how the dataset is batched.
type accumulator struct {
	ptype Type
	in    int
	out   int

	n    float64
	sumX []float64  // in
	sumY []float64  // out
	sumXY *mat.Dense // in x out

	// Masked moments, per output unit j with mask m_j derived from
	// the pre-activation regime.
	cnt    []float64  // out
	sumXM  *mat.Dense // in x out: sum of x * m_j
	sumXYM *mat.Dense // in x out: sum of x * y_j * m_j
}

func newAccumulator(t Type, in, out int) *accumulator {
	a := &accumulator{
		ptype: t,
		in:    in,
		out:   out,
		sumX:  make([]float64, in),
		sumY:  make([]float64, out),
		sumXY: mat.NewDense(in, out, nil),
	}
	if t.masked() {
		a.cnt = make([]float64, out)
		a.sumXM = mat.NewDense(in, out, nil)
		a.sumXYM = mat.NewDense(in, out, nil)
	}
	return a
}

// addBatch folds a batch of sample rows into the statistics.
// rows is a slice of linearized inputs; y = x * W is computed here so
// that the statistics always refer to the layer's linear output,
// bias excluded (the bias only enters through the regime mask).
func (a *accumulator) addBatch(rows [][]float64, m *mapping) {
	if len(rows) == 0 {
		return
	}

	x := mat.NewDense(len(rows), a.in, nil)
	for r, row := range rows {
		x.SetRow(r, row)
	}
	y := mat.NewDense(len(rows), a.out, nil)
	y.Mul(x, m.weights)

	for r := range rows {
		xr := x.RawRowView(r)
		yr := y.RawRowView(r)

		a.n++
		floats.Add(a.sumX, xr)
		floats.Add(a.sumY, yr)
		a.sumXY.RankOne(a.sumXY, 1, mat.NewVecDense(a.in, xr), mat.NewVecDense(a.out, yr))

		if !a.ptype.masked() {
			continue
		}
		for j := 0; j < a.out; j++ {
			z := yr[j] + m.bias[j]
			active := z > 0
			if a.ptype == ReLUNegative {
				active = !active
			}
			if !active {
				continue
			}
			a.cnt[j]++
			for i := 0; i < a.in; i++ {
				a.sumXM.Set(i, j, a.sumXM.At(i, j)+xr[i])
				a.sumXYM.Set(i, j, a.sumXYM.At(i, j)+xr[i]*yr[j])
			}
		}
	}
}

// safeDivide returns a/b with zero denominators passed through as
// division by one, matching safe_divide(a, b) = a / (b + (b == 0)).
func safeDivide(a, b float64) float64 {
	if b == 0 {
		return a
	}
	return a / b
}

// solve turns the accumulated statistics into the pattern matrix
// (in x out) for the configured type.
func (a *accumulator) solve(m *mapping) *mat.Dense {
	pattern := mat.NewDense(a.in, a.out, nil)

	if a.ptype == Dummy {
		pattern.Copy(m.weights)
		return pattern
	}

	cov := mat.NewDense(a.in, a.out, nil)
	switch {
	case a.ptype == Linear:
		// cov(x, y) = E[xy] - E[x] E[y]
		meanX := mat.NewVecDense(a.in, nil)
		meanY := mat.NewVecDense(a.out, nil)
		for i := 0; i < a.in; i++ {
			meanX.SetVec(i, a.sumX[i]/a.n)
		}
		for j := 0; j < a.out; j++ {
			meanY.SetVec(j, a.sumY[j]/a.n)
		}
		cov.Scale(1/a.n, a.sumXY)
		cov.RankOne(cov, -1, meanX, meanY)
	default:
		// Masked covariance: means of x and xy are taken over the
		// active region per unit, the mean of y over all samples.
		for j := 0; j < a.out; j++ {
			meanY := a.sumY[j] / a.n
			for i := 0; i < a.in; i++ {
				meanXM := safeDivide(a.sumXM.At(i, j), a.cnt[j])
				meanXYM := safeDivide(a.sumXYM.At(i, j), a.cnt[j])
				cov.Set(i, j, meanXYM-meanXM*meanY)
			}
		}
	}

	// pattern[:, j] = cov[:, j] / (w[:, j] . cov[:, j])
	wCol := make([]float64, a.in)
	covCol := make([]float64, a.in)
	for j := 0; j < a.out; j++ {
		mat.Col(wCol, j, m.weights)
		mat.Col(covCol, j, cov)
		denom := floats.Dot(wCol, covCol)
		for i := 0; i < a.in; i++ {
			pattern.Set(i, j, safeDivide(covCol[i], denom))
		}
	}
	return pattern
}
