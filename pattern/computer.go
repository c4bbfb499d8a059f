package pattern

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/patternlab/patternet/internal/net"
)

// DefaultBatchSize is the number of samples folded into the
// accumulators per flush.
const DefaultBatchSize = 256

// Computer estimates patterns for every Dense and Conv2D layer of a
// model by accumulating covariance statistics over a dataset.
type Computer struct {
	model     *net.Sequential
	ptype     Type
	parallel  bool
	batchSize int
}

// NewComputer creates a pattern computer for the model. It errors on
// an unknown pattern type and on a model without Dense or Conv2D
// layers. parallel selects concurrent per-layer statistic accumulation.
func NewComputer(model *net.Sequential, t Type, parallel bool) (*Computer, error) {
	if !t.valid() {
		return nil, fmt.Errorf("unknown pattern type %q", t)
	}
	if !hasMappableLayer(model.Layers()) {
		return nil, fmt.Errorf("pattern: model has no mappable layers")
	}
	return &Computer{
		model:     model,
		ptype:     t,
		parallel:  parallel,
		batchSize: DefaultBatchSize,
	}, nil
}

// SetBatchSize overrides the accumulation batch size. Results are
// identical for any positive batch size.
func (c *Computer) SetBatchSize(n int) {
	if n > 0 {
		c.batchSize = n
	}
}

// Compute runs the estimation over the dataset and returns one
// (in x out) pattern matrix per mappable layer, in model order.
func (c *Computer) Compute(data [][]float64) ([]*mat.Dense, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("pattern: empty dataset")
	}

	// One forward pass resolves convolution geometry before the
	// linearized mappings are built.
	c.model.Forward(data[0])

	layers := c.model.Layers()
	maps := buildMappings(layers)

	accs := make([]*accumulator, len(maps))
	for i, m := range maps {
		accs[i] = newAccumulator(c.ptype, m.in, m.out)
	}

	// Dummy patterns need no statistics.
	if c.ptype != Dummy {
		// captured[i] holds the inputs reaching mapping i for the
		// current batch of samples. Layer buffers are reused between
		// forward passes, so inputs are copied at capture time (the
		// patch extraction copies).
		captured := make([][][]float64, len(maps))
		byLayer := make(map[int]int, len(maps))
		for i, m := range maps {
			byLayer[m.layerIndex] = i
		}

		flush := func() {
			if c.parallel {
				var wg sync.WaitGroup
				for i := range maps {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						accs[i].addBatch(captured[i], maps[i])
					}(i)
				}
				wg.Wait()
			} else {
				for i := range maps {
					accs[i].addBatch(captured[i], maps[i])
				}
			}
			for i := range captured {
				captured[i] = captured[i][:0]
			}
		}

		pending := 0
		for _, sample := range data {
			curr := sample
			for li, l := range layers {
				if mi, ok := byLayer[li]; ok {
					captured[mi] = maps[mi].patchRows(curr, captured[mi])
				}
				curr = l.Forward(curr)
			}
			pending++
			if pending == c.batchSize {
				flush()
				pending = 0
			}
		}
		if pending > 0 {
			flush()
		}
	}

	patterns := make([]*mat.Dense, len(maps))
	if c.parallel {
		var wg sync.WaitGroup
		for i := range maps {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				patterns[i] = accs[i].solve(maps[i])
			}(i)
		}
		wg.Wait()
	} else {
		for i := range maps {
			patterns[i] = accs[i].solve(maps[i])
		}
	}

	return patterns, nil
}
