// Command patterns trains a digit classifier, estimates its patterns,
// and exports them as CSV files with optional heat map renderings.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/mat"

	"github.com/patternlab/patternet/internal/activations"
	"github.com/patternlab/patternet/internal/dataset"
	"github.com/patternlab/patternet/internal/layer"
	"github.com/patternlab/patternet/internal/loss"
	"github.com/patternlab/patternet/internal/net"
	"github.com/patternlab/patternet/internal/opt"
	"github.com/patternlab/patternet/internal/viz"
	"github.com/patternlab/patternet/pattern"
)

type config struct {
	Data    dataConfig    `toml:"data"`
	Model   modelConfig   `toml:"model"`
	Train   trainConfig   `toml:"train"`
	Pattern patternConfig `toml:"pattern"`
	Output  outputConfig  `toml:"output"`
}

type dataConfig struct {
	Dir     string `toml:"dir"` // MNIST IDX directory; empty uses synthetic digits
	Samples int    `toml:"samples"`
	Seed    int64  `toml:"seed"`
}

type modelConfig struct {
	Hidden []int `toml:"hidden"`
}

type trainConfig struct {
	Epochs       int     `toml:"epochs"`
	BatchSize    int     `toml:"batch_size"`
	LearningRate float64 `toml:"learning_rate"`
	Optimizer    string  `toml:"optimizer"`
}

type patternConfig struct {
	Type      string `toml:"type"`
	Parallel  bool   `toml:"parallel"`
	BatchSize int    `toml:"batch_size"`
}

type outputConfig struct {
	Dir   string `toml:"dir"`
	Plots bool   `toml:"plots"`
}

func defaultConfig() config {
	return config{
		Data:    dataConfig{Samples: 1000, Seed: 42},
		Model:   modelConfig{Hidden: []int{20}},
		Train:   trainConfig{Epochs: 5, BatchSize: 32, LearningRate: 0.001, Optimizer: "adam"},
		Pattern: patternConfig{Type: "relu", Parallel: true, BatchSize: 256},
		Output:  outputConfig{Dir: "out"},
	}
}

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	seed := flag.Int64("seed", 0, "override the data and init seed")
	plots := flag.Bool("plots", false, "also render PNG heat maps")
	flag.Parse()

	cfg := defaultConfig()
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			fatalf("reading config: %v", err)
		}
	}
	if *seed != 0 {
		cfg.Data.Seed = *seed
	}
	if *plots {
		cfg.Output.Plots = true
	}

	if err := run(cfg); err != nil {
		fatalf("%v", err)
	}
}

func run(cfg config) error {
	ds, err := loadData(cfg.Data)
	if err != nil {
		return err
	}
	fmt.Printf("Dataset: %d samples of dim %d\n", len(ds.Samples), len(ds.Samples[0]))

	layer.SeedInit(cfg.Data.Seed)
	model := buildModel(len(ds.Samples[0]), cfg.Model.Hidden, len(ds.Labels[0]))
	model.Compile(buildOptimizer(cfg.Train), loss.NewSoftmaxCrossEntropy())

	fmt.Println("Training...")
	losses := model.Fit(ds.Samples, ds.Labels, net.FitConfig{
		Epochs:    cfg.Train.Epochs,
		BatchSize: cfg.Train.BatchSize,
		Shuffle:   true,
		Seed:      cfg.Data.Seed,
		Callbacks: []net.Callback{net.Logger{Interval: 1}},
	})
	fmt.Printf("Accuracy: %.1f%%\n", model.Accuracy(ds.Samples, ds.Labels)*100)

	ptype, err := pattern.ParseType(cfg.Pattern.Type)
	if err != nil {
		return err
	}
	analyzer, err := pattern.NewAnalyzer("pattern.net", model,
		pattern.WithPatternType(ptype),
		pattern.WithParallel(cfg.Pattern.Parallel),
		pattern.WithBatchSize(cfg.Pattern.BatchSize))
	if err != nil {
		return err
	}

	fmt.Printf("Estimating %s patterns...\n", ptype)
	if err := analyzer.Fit(ds.Samples); err != nil {
		return err
	}
	patterns := analyzer.Patterns()

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := export(cfg.Output, patterns, losses); err != nil {
		return err
	}

	fmt.Printf("Wrote %d pattern files to %s\n", len(patterns), cfg.Output.Dir)
	return nil
}

func loadData(cfg dataConfig) (*dataset.Dataset, error) {
	if cfg.Dir != "" {
		ds, err := dataset.LoadMNIST(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("loading MNIST from %s: %w", cfg.Dir, err)
		}
		if cfg.Samples > 0 {
			ds = ds.Take(cfg.Samples)
		}
		return ds, nil
	}
	return dataset.SyntheticDigits(cfg.Samples, cfg.Seed), nil
}

func buildModel(in int, hidden []int, out int) *net.Sequential {
	var layers []layer.Layer
	prev := in
	for _, h := range hidden {
		layers = append(layers, layer.NewDense(prev, h, activations.ReLU{}))
		prev = h
	}
	layers = append(layers, layer.NewDense(prev, out, activations.Linear{}))
	return net.NewSequential(layers...)
}

func buildOptimizer(cfg trainConfig) opt.Optimizer {
	switch cfg.Optimizer {
	case "sgd":
		return opt.SGD{LearningRate: cfg.LearningRate}
	case "rmsprop":
		return opt.NewRMSprop(cfg.LearningRate)
	default:
		return opt.NewAdam(cfg.LearningRate)
	}
}

func export(cfg outputConfig, patterns []*mat.Dense, losses []float64) error {
	for i, p := range patterns {
		path := filepath.Join(cfg.Dir, fmt.Sprintf("pattern_layer%d.csv", i))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		err = pattern.WritePattern(f, p)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}

	summaries, err := pattern.Summarize(patterns)
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Dir, "summary.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	err = pattern.WriteSummaries(f, summaries)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if !cfg.Plots {
		return nil
	}
	for i, p := range patterns {
		title := fmt.Sprintf("layer %d pattern", i)
		path := filepath.Join(cfg.Dir, fmt.Sprintf("pattern_layer%d.png", i))
		if err := viz.SaveHeatmap(p, title, path); err != nil {
			return err
		}
		hist := filepath.Join(cfg.Dir, fmt.Sprintf("pattern_layer%d_hist.png", i))
		if err := viz.SaveHistogram(p.RawMatrix().Data, 50, title, hist); err != nil {
			return err
		}
	}
	return viz.SaveLossCurve(losses, "training loss", filepath.Join(cfg.Dir, "loss.png"))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "patterns: "+format+"\n", args...)
	os.Exit(1)
}
