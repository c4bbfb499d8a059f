package pattern

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// LayerSummary describes the distribution of one layer's pattern
// entries.
type LayerSummary struct {
	Layer  int
	Rows   int
	Cols   int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64
}

// Summarize computes distribution summaries for a set of fitted
// patterns, one per layer in model order.
func Summarize(patterns []*mat.Dense) ([]LayerSummary, error) {
	summaries := make([]LayerSummary, 0, len(patterns))
	for li, p := range patterns {
		r, c := p.Dims()
		data := stats.Float64Data(p.RawMatrix().Data)

		mean, err := stats.Mean(data)
		if err != nil {
			return nil, fmt.Errorf("summarizing layer %d: %w", li, err)
		}
		sd, err := stats.StandardDeviation(data)
		if err != nil {
			return nil, fmt.Errorf("summarizing layer %d: %w", li, err)
		}
		min, err := stats.Min(data)
		if err != nil {
			return nil, fmt.Errorf("summarizing layer %d: %w", li, err)
		}
		max, err := stats.Max(data)
		if err != nil {
			return nil, fmt.Errorf("summarizing layer %d: %w", li, err)
		}
		median, err := stats.Median(data)
		if err != nil {
			return nil, fmt.Errorf("summarizing layer %d: %w", li, err)
		}

		summaries = append(summaries, LayerSummary{
			Layer:  li,
			Rows:   r,
			Cols:   c,
			Mean:   mean,
			StdDev: sd,
			Min:    min,
			Max:    max,
			Median: median,
		})
	}
	return summaries, nil
}

// WriteSummaries writes the summaries as CSV with a header row.
func WriteSummaries(w io.Writer, summaries []LayerSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"layer", "rows", "cols", "mean", "stddev", "min", "max", "median"}); err != nil {
		return fmt.Errorf("writing summary header: %w", err)
	}
	for _, s := range summaries {
		rec := []string{
			strconv.Itoa(s.Layer),
			strconv.Itoa(s.Rows),
			strconv.Itoa(s.Cols),
			formatFloat(s.Mean),
			formatFloat(s.StdDev),
			formatFloat(s.Min),
			formatFloat(s.Max),
			formatFloat(s.Median),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing summary row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePattern writes one pattern matrix as CSV, one row per input
// dimension.
func WritePattern(w io.Writer, p *mat.Dense) error {
	cw := csv.NewWriter(w)
	rows, cols := p.Dims()
	rec := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rec[j] = formatFloat(p.At(i, j))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing pattern row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
