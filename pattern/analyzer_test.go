package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternlab/patternet/internal/activations"
	"github.com/patternlab/patternet/internal/dataset"
	"github.com/patternlab/patternet/internal/layer"
	"github.com/patternlab/patternet/internal/net"
)

func TestNewAnalyzerValidation(t *testing.T) {
	layer.SeedInit(1)
	model := modelCases()[0].build()

	_, err := NewAnalyzer("saliency", model)
	assert.Error(t, err)

	_, err = NewAnalyzer("pattern.net", model, WithPatternType(Type("bogus")))
	assert.Error(t, err)

	a, err := NewAnalyzer("pattern.net", model)
	require.NoError(t, err)
	assert.NotNil(t, a)

	a, err = NewAnalyzer("pattern.attribution", model,
		WithPatternType(Linear), WithParallel(true), WithBatchSize(16))
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestAnalyzeBeforeFitFails(t *testing.T) {
	layer.SeedInit(1)
	model := modelCases()[0].build()
	a, err := NewAnalyzer("pattern.net", model)
	require.NoError(t, err)

	_, err = a.Analyze([]float64{1, 2})
	assert.Error(t, err)
}

// PatternNet on the distractor construction: the analysis of an input
// is the signal component, with the distractor removed.
func TestAnalyzeRemovesDistractor(t *testing.T) {
	x, _ := distractorData()

	layer.SeedInit(7)
	dense := layer.NewDense(2, 1, activations.Linear{})
	model := net.NewSequential(dense)
	// The exact extractor of the signal: w = (1, -1), no bias.
	dense.SetWeight(0, 0, 1)
	dense.SetWeight(0, 1, -1)
	dense.SetBias(0, 0)

	a, err := NewAnalyzer("pattern.net", model, WithPatternType(Linear))
	require.NoError(t, err)
	require.NoError(t, a.Fit(x))

	require.Len(t, a.Patterns(), 1)
	pattern := a.Patterns()[0]
	allClose(t, []float64{1, 0},
		[]float64{pattern.At(0, 0), pattern.At(1, 0)}, 0.05, 0.05)

	// Analyzing an input projects the output back along the pattern:
	// signal = y * a_s.
	in := []float64{2.5, 1.5} // y = 1, eps = 1.5
	signal, err := a.Analyze(in)
	require.NoError(t, err)
	allClose(t, []float64{1, 0}, signal, 0.05, 0.05)
}

func TestAnalyzeShapesAcrossModels(t *testing.T) {
	for _, tc := range modelCases() {
		for _, name := range []string{"pattern.net", "pattern.attribution"} {
			t.Run(tc.name+"/"+name, func(t *testing.T) {
				layer.SeedInit(13)
				model := tc.build()
				data := dataset.UniformVectors(32, tc.inputDim, 17)

				a, err := NewAnalyzer(name, model, WithBatchSize(8))
				require.NoError(t, err)
				require.NoError(t, a.Fit(data))

				signal, err := a.Analyze(data[0])
				require.NoError(t, err)
				require.Len(t, signal, tc.inputDim)
				for i, v := range signal {
					assert.False(t, isNaNOrInf(v), "signal[%d] not finite", i)
				}
			})
		}
	}
}

// Pooling switches route the back-projected signal to the pooled-from
// positions only.
func TestAnalyzeThroughMaxPool(t *testing.T) {
	layer.SeedInit(29)
	model := net.NewSequential(
		layer.NewConv2D(1, 2, 3, 1, 1, activations.ReLU{}),
		layer.NewMaxPool2D(2, 2, 2),
		layer.NewFlatten(),
		layer.NewDense(2*4*4, 3, activations.Linear{}),
	)
	data := dataset.UniformVectors(24, 64, 37)

	a, err := NewAnalyzer("pattern.net", model)
	require.NoError(t, err)
	require.NoError(t, a.Fit(data))

	signal, err := a.Analyze(data[1])
	require.NoError(t, err)
	require.Len(t, signal, 64)
}
