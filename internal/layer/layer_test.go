package layer

import (
	"math"
	"testing"

	"github.com/patternlab/patternet/internal/activations"
)

// TestDenseForward tests the forward pass with hand-set parameters.
func TestDenseForward(t *testing.T) {
	d := NewDense(2, 2, activations.Linear{})
	// y0 = 1*x0 + 2*x1 + 0.5, y1 = -1*x0 + 0*x1 - 0.5
	d.SetWeight(0, 0, 1)
	d.SetWeight(0, 1, 2)
	d.SetWeight(1, 0, -1)
	d.SetWeight(1, 1, 0)
	d.SetBias(0, 0.5)
	d.SetBias(1, -0.5)

	out := d.Forward([]float64{1, 2})
	want := []float64{5.5, -1.5}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}

	pre := d.PreActivations()
	for i := range want {
		if math.Abs(pre[i]-want[i]) > 1e-12 {
			t.Errorf("preAct[%d] = %v, want %v (linear activation)", i, pre[i], want[i])
		}
	}
}

// TestDenseForwardReLU tests that negative pre-activations are clipped
// while the pre-activation buffer keeps the raw value.
func TestDenseForwardReLU(t *testing.T) {
	d := NewDense(1, 1, activations.ReLU{})
	d.SetWeight(0, 0, 1)
	d.SetBias(0, 0)

	out := d.Forward([]float64{-3})
	if out[0] != 0 {
		t.Errorf("ReLU output = %v, want 0", out[0])
	}
	if d.PreActivations()[0] != -3 {
		t.Errorf("preAct = %v, want -3", d.PreActivations()[0])
	}
}

// TestDenseForwardPanics tests the input-size check.
func TestDenseForwardPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for wrong input size")
		}
	}()
	d := NewDense(3, 1, activations.Linear{})
	d.Forward([]float64{1, 2})
}

// TestDenseBackwardNumeric tests analytic gradients against finite
// differences of a scalar loss L = sum(output).
func TestDenseBackwardNumeric(t *testing.T) {
	SeedInit(8)
	d := NewDense(3, 2, activations.Tanh{})
	x := []float64{0.3, -0.8, 0.5}

	sumForward := func() float64 {
		out := d.Forward(x)
		var s float64
		for _, v := range out {
			s += v
		}
		return s
	}

	sumForward()
	d.Backward([]float64{1, 1})
	analytic := d.Gradients()

	const h = 1e-6
	params := d.Params()
	for pi := range params {
		orig := params[pi]
		params[pi] = orig + h
		d.SetParams(params)
		up := sumForward()
		params[pi] = orig - h
		d.SetParams(params)
		down := sumForward()
		params[pi] = orig
		d.SetParams(params)

		numeric := (up - down) / (2 * h)
		if math.Abs(numeric-analytic[pi]) > 1e-5 {
			t.Errorf("param %d: numeric grad %v, analytic %v", pi, numeric, analytic[pi])
		}
	}
}

// TestDenseBackwardInputGradient tests dL/dx for a linear layer, where
// it must equal the transposed weights times the output gradient.
func TestDenseBackwardInputGradient(t *testing.T) {
	d := NewDense(2, 1, activations.Linear{})
	d.SetWeight(0, 0, 3)
	d.SetWeight(0, 1, -2)
	d.SetBias(0, 0)

	d.Forward([]float64{1, 1})
	gradIn := d.Backward([]float64{2})
	want := []float64{6, -4}
	for i := range want {
		if math.Abs(gradIn[i]-want[i]) > 1e-12 {
			t.Errorf("gradIn[%d] = %v, want %v", i, gradIn[i], want[i])
		}
	}
}

// TestDenseParamsRoundTrip tests Params/SetParams symmetry.
func TestDenseParamsRoundTrip(t *testing.T) {
	SeedInit(4)
	a := NewDense(4, 3, activations.ReLU{})
	b := NewDense(4, 3, activations.ReLU{})

	b.SetParams(a.Params())
	x := []float64{1, -1, 0.5, 2}
	outA := a.Forward(x)
	outB := b.Forward(x)
	for i := range outA {
		if outA[i] != outB[i] {
			t.Errorf("output %d differs after SetParams: %v vs %v", i, outA[i], outB[i])
		}
	}
}

// TestSeedInitReproducible tests that reseeding reproduces weights.
func TestSeedInitReproducible(t *testing.T) {
	SeedInit(123)
	a := NewDense(5, 5, activations.ReLU{})
	SeedInit(123)
	b := NewDense(5, 5, activations.ReLU{})

	wa, wb := a.GetWeights(), b.GetWeights()
	for i := range wa {
		if wa[i] != wb[i] {
			t.Fatalf("weight %d differs after reseed: %v vs %v", i, wa[i], wb[i])
		}
	}

	// Consecutive layers from one stream must differ.
	c := NewDense(5, 5, activations.ReLU{})
	same := true
	for i := range wb {
		if wb[i] != c.GetWeights()[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("consecutive layers drew identical weights")
	}
}

// TestFlatten tests the passthrough layer.
func TestFlatten(t *testing.T) {
	f := NewFlatten()
	x := []float64{1, 2, 3}
	out := f.Forward(x)
	for i := range x {
		if out[i] != x[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], x[i])
		}
	}
	if f.InSize() != 3 || f.OutSize() != 3 {
		t.Errorf("sizes = %d/%d, want 3/3", f.InSize(), f.OutSize())
	}

	grad := f.Backward([]float64{4, 5, 6})
	if grad[1] != 5 {
		t.Errorf("grad[1] = %v, want 5", grad[1])
	}
}
