package pattern

import (
	"gonum.org/v1/gonum/mat"

	"github.com/patternlab/patternet/internal/layer"
)

// mapping is the linearized view of a layer that patterns are
// estimated for. Dense layers map one input vector to one statistical
// sample; convolutions are linearized via im2col, where every
// receptive-field patch is one sample against the flattened filters.
type mapping struct {
	layerIndex int
	in         int // linearized input dimension
	out        int // output units (dense) or filters (conv)

	weights *mat.Dense // in x out
	bias    []float64  // out

	// patchRows appends the linearized sample rows extracted from
	// one captured layer input to dst.
	patchRows func(x []float64, dst [][]float64) [][]float64
}

// buildMappings walks the model layers and returns one mapping per
// Dense or Conv2D layer, in model order. Layers must have seen a
// forward pass so that convolution geometry is resolved.
func buildMappings(layers []layer.Layer) []*mapping {
	var maps []*mapping
	for idx, l := range layers {
		switch v := l.(type) {
		case *layer.Dense:
			maps = append(maps, denseMapping(idx, v))
		case *layer.Conv2D:
			maps = append(maps, convMapping(idx, v))
		}
	}
	return maps
}

// hasMappableLayer reports whether any layer can carry a pattern.
// Unlike buildMappings it needs no resolved geometry, so it is safe to
// call before the first forward pass.
func hasMappableLayer(layers []layer.Layer) bool {
	for _, l := range layers {
		switch l.(type) {
		case *layer.Dense, *layer.Conv2D:
			return true
		}
	}
	return false
}

func denseMapping(idx int, d *layer.Dense) *mapping {
	in, out := d.InSize(), d.OutSize()
	w := d.GetWeights() // row-major [out, in]
	w2d := mat.NewDense(in, out, nil)
	for o := 0; o < out; o++ {
		for i := 0; i < in; i++ {
			w2d.Set(i, o, w[o*in+i])
		}
	}
	bias := make([]float64, out)
	copy(bias, d.GetBiases())

	return &mapping{
		layerIndex: idx,
		in:         in,
		out:        out,
		weights:    w2d,
		bias:       bias,
		patchRows: func(x []float64, dst [][]float64) [][]float64 {
			row := make([]float64, len(x))
			copy(row, x)
			return append(dst, row)
		},
	}
}

func convMapping(idx int, c *layer.Conv2D) *mapping {
	inC := c.InChannels()
	outC := c.OutChannels()
	k := c.KernelSize()
	stride := c.Stride()
	padding := c.Padding()
	inH, inW := c.InputDimensions()

	patchDim := inC * k * k
	filters := c.Filters() // [outC, inC, k, k]
	w2d := mat.NewDense(patchDim, outC, nil)
	for o := 0; o < outC; o++ {
		for ci := 0; ci < patchDim; ci++ {
			w2d.Set(ci, o, filters[o*patchDim+ci])
		}
	}
	bias := make([]float64, outC)
	copy(bias, c.GetBiases())

	return &mapping{
		layerIndex: idx,
		in:         patchDim,
		out:        outC,
		weights:    w2d,
		bias:       bias,
		patchRows: func(x []float64, dst [][]float64) [][]float64 {
			return im2col(x, dst, inC, inH, inW, k, stride, padding)
		},
	}
}

// im2col extracts every receptive-field patch of a channel-major
// [channels, height, width] input as one flat row of length
// channels*k*k, zero-padding outside the input. Row element order
// matches the flattened filter layout [channel, kh, kw].
func im2col(x []float64, dst [][]float64, channels, inH, inW, k, stride, padding int) [][]float64 {
	outH := (inH+2*padding-k)/stride + 1
	outW := (inW+2*padding-k)/stride + 1

	for oh := 0; oh < outH; oh++ {
		for ow := 0; ow < outW; ow++ {
			hBase := oh*stride - padding
			wBase := ow*stride - padding
			row := make([]float64, channels*k*k)
			for ch := 0; ch < channels; ch++ {
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
						row[ch*k*k+kh*k+kw] = x[ch*inH*inW+h*inW+w]
					}
				}
			}
			dst = append(dst, row)
		}
	}
	return dst
}
