// Package viz renders pattern matrices and signal maps to image files.
package viz

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// matrixGrid adapts a dense matrix to the plotter grid interface, with
// row 0 drawn at the top.
type matrixGrid struct {
	m *mat.Dense
}

func (g matrixGrid) Dims() (int, int) {
	r, c := g.m.Dims()
	return c, r
}

func (g matrixGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g matrixGrid) X(c int) float64 { return float64(c) }
func (g matrixGrid) Y(r int) float64 { return float64(r) }

// SaveHeatmap renders the matrix as a heat map PNG.
func SaveHeatmap(m *mat.Dense, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()

	hm := plotter.NewHeatMap(matrixGrid{m: m}, palette.Heat(64, 1))
	p.Add(hm)

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving heatmap %s: %w", path, err)
	}
	return nil
}

// SaveSignalImage renders a flattened channel-major [channels, h, w]
// signal as one heat map per channel stacked vertically.
func SaveSignalImage(signal []float64, channels, height, width int, title, path string) error {
	if len(signal) != channels*height*width {
		return fmt.Errorf("signal length %d does not match %dx%dx%d",
			len(signal), channels, height, width)
	}
	stacked := mat.NewDense(channels*height, width, nil)
	for ch := 0; ch < channels; ch++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				stacked.Set(ch*height+y, x, signal[ch*height*width+y*width+x])
			}
		}
	}
	return SaveHeatmap(stacked, title, path)
}

// SaveHistogram renders the value distribution as a histogram PNG.
func SaveHistogram(values []float64, bins int, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return fmt.Errorf("building histogram: %w", err)
	}
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving histogram %s: %w", path, err)
	}
	return nil
}

// SaveLossCurve renders per-epoch losses as a line plot PNG.
func SaveLossCurve(losses []float64, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"

	pts := make(plotter.XYs, len(losses))
	for i, l := range losses {
		pts[i].X = float64(i)
		pts[i].Y = l
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("building loss curve: %w", err)
	}
	p.Add(line)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving loss curve %s: %w", path, err)
	}
	return nil
}
