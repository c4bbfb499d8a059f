package pattern

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/patternlab/patternet/internal/activations"
	"github.com/patternlab/patternet/internal/layer"
	"github.com/patternlab/patternet/internal/net"
)

// Analyzer fits patterns to a model and back-projects its output into
// input space, yielding per-input signal (PatternNet) or attribution
// (PatternAttribution) maps.
type Analyzer interface {
	// Fit estimates the patterns over the dataset.
	Fit(data [][]float64) error

	// Patterns returns the fitted per-layer pattern matrices.
	Patterns() []*mat.Dense

	// Analyze back-projects the model output for one input sample.
	Analyze(x []float64) ([]float64, error)
}

// Option configures an analyzer.
type Option func(*analyzerConfig)

type analyzerConfig struct {
	ptype     Type
	parallel  bool
	batchSize int
}

// WithPatternType selects the estimation rule (default relu.positive).
func WithPatternType(t Type) Option {
	return func(c *analyzerConfig) { c.ptype = t }
}

// WithParallel toggles concurrent per-layer accumulation.
func WithParallel(parallel bool) Option {
	return func(c *analyzerConfig) { c.parallel = parallel }
}

// WithBatchSize sets the accumulation batch size.
func WithBatchSize(n int) Option {
	return func(c *analyzerConfig) { c.batchSize = n }
}

// NewAnalyzer builds an analyzer by name: "pattern.net" or
// "pattern.attribution".
func NewAnalyzer(name string, model *net.Sequential, opts ...Option) (Analyzer, error) {
	cfg := analyzerConfig{
		ptype:     ReLUPositive,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.ptype.valid() {
		return nil, fmt.Errorf("unknown pattern type %q", cfg.ptype)
	}

	switch name {
	case "pattern.net":
		return &projectionAnalyzer{model: model, cfg: cfg}, nil
	case "pattern.attribution":
		return &projectionAnalyzer{model: model, cfg: cfg, attribution: true}, nil
	}
	return nil, fmt.Errorf("unknown analyzer %q", name)
}

// projectionAnalyzer implements both PatternNet and PatternAttribution;
// the two differ only in the projection matrix used on the way back
// (the pattern itself, or pattern element-wise times weight).
type projectionAnalyzer struct {
	model       *net.Sequential
	cfg         analyzerConfig
	attribution bool

	patterns []*mat.Dense

	// projections[layerIndex] is the back-projection matrix for that
	// layer, derived from its fitted pattern.
	projections map[int]*mat.Dense
}

// Fit estimates patterns over the dataset.
func (a *projectionAnalyzer) Fit(data [][]float64) error {
	computer, err := NewComputer(a.model, a.cfg.ptype, a.cfg.parallel)
	if err != nil {
		return err
	}
	computer.SetBatchSize(a.cfg.batchSize)

	patterns, err := computer.Compute(data)
	if err != nil {
		return fmt.Errorf("fitting patterns: %w", err)
	}
	a.patterns = patterns

	maps := buildMappings(a.model.Layers())
	a.projections = make(map[int]*mat.Dense, len(maps))
	for i, m := range maps {
		proj := mat.NewDense(m.in, m.out, nil)
		proj.Copy(patterns[i])
		if a.attribution {
			proj.MulElem(proj, m.weights)
		}
		a.projections[m.layerIndex] = proj
	}
	return nil
}

// Patterns returns the fitted per-layer pattern matrices.
func (a *projectionAnalyzer) Patterns() []*mat.Dense {
	return a.patterns
}

// Analyze back-projects the model output for one input sample into
// input space. The forward pass runs first so that activation states
// and pooling switches reflect this sample.
func (a *projectionAnalyzer) Analyze(x []float64) ([]float64, error) {
	if a.projections == nil {
		return nil, fmt.Errorf("analyzer not fitted, call Fit first")
	}

	layers := a.model.Layers()
	out := a.model.Forward(x)
	signal := make([]float64, len(out))
	copy(signal, out)

	for li := len(layers) - 1; li >= 0; li-- {
		var err error
		signal, err = a.backProject(li, layers[li], signal)
		if err != nil {
			return nil, err
		}
	}
	return signal, nil
}

func (a *projectionAnalyzer) backProject(li int, l layer.Layer, signal []float64) ([]float64, error) {
	switch v := l.(type) {
	case *layer.Dense:
		proj := a.projections[li]
		gateSignal(signal, v.PreActivations(), v.Activation())
		in, _ := proj.Dims()
		res := make([]float64, in)
		resVec := mat.NewVecDense(in, res)
		resVec.MulVec(proj, mat.NewVecDense(len(signal), signal))
		return res, nil

	case *layer.Conv2D:
		proj := a.projections[li]
		gateSignal(signal, v.PreActivations(), v.Activation())
		return foldConvSignal(v, proj, signal), nil

	case *layer.MaxPool2D:
		res := make([]float64, v.InSize())
		for i, g := range signal {
			res[v.Argmax()[i]] += g
		}
		return res, nil

	case *layer.Flatten:
		return signal, nil
	}
	return nil, fmt.Errorf("cannot back-project through layer %T", l)
}

// gateSignal multiplies the signal by the activation derivative at the
// recorded pre-activations; for ReLU this is the 0/1 active mask.
func gateSignal(signal, preActs []float64, act activations.Activation) {
	for i := range signal {
		signal[i] *= act.Derivative(preActs[i])
	}
}

// foldConvSignal scatters per-filter patch projections back onto the
// input grid (the col2im inverse of the patch extraction).
func foldConvSignal(c *layer.Conv2D, proj *mat.Dense, signal []float64) []float64 {
	inC := c.InChannels()
	k := c.KernelSize()
	stride := c.Stride()
	padding := c.Padding()
	inH, inW := c.InputDimensions()
	outH := (inH+2*padding-k)/stride + 1
	outW := (inW+2*padding-k)/stride + 1

	res := make([]float64, inC*inH*inW)
	for o := 0; o < c.OutChannels(); o++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				s := signal[o*outH*outW+oh*outW+ow]
				if s == 0 {
					continue
				}
				hBase := oh*stride - padding
				wBase := ow*stride - padding
				for ch := 0; ch < inC; ch++ {
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
							res[ch*inH*inW+h*inW+w] += s * proj.At(ch*k*k+kh*k+kw, o)
						}
					}
				}
			}
		}
	}
	return res
}
