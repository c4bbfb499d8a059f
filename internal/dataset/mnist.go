// Package dataset provides data loading and synthesis helpers.
package dataset

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Dataset is a collection of flattened samples and one-hot labels.
type Dataset struct {
	Samples [][]float64
	Labels  [][]float64
}

const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049
)

// LoadMNIST reads the MNIST IDX files (train-images-idx3-ubyte /
// train-labels-idx1-ubyte, optionally gzipped) from dir. Pixels are
// scaled to [-1, 1] via (x - 127.5) / 127.5.
func LoadMNIST(dir string) (*Dataset, error) {
	images, err := readIDXImages(findIDX(dir, "train-images-idx3-ubyte"))
	if err != nil {
		return nil, fmt.Errorf("mnist images: %w", err)
	}
	labels, err := readIDXLabels(findIDX(dir, "train-labels-idx1-ubyte"))
	if err != nil {
		return nil, fmt.Errorf("mnist labels: %w", err)
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("mnist: %d images but %d labels", len(images), len(labels))
	}
	return &Dataset{Samples: images, Labels: OneHot(labels, 10)}, nil
}

// findIDX prefers the gzipped file when both forms exist.
func findIDX(dir, base string) string {
	gz := filepath.Join(dir, base+".gz")
	if _, err := os.Stat(gz); err == nil {
		return gz
	}
	return filepath.Join(dir, base)
}

func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipCloser{zr: zr, f: f}, nil
}

type gzipCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipCloser) Close() error {
	g.zr.Close()
	return g.f.Close()
}

func readIDXImages(path string) ([][]float64, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var header [4]uint32
	for i := range header {
		if err := binary.Read(r, binary.BigEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
	}
	if header[0] != idxImagesMagic {
		return nil, fmt.Errorf("bad magic number %d, want %d", header[0], idxImagesMagic)
	}
	count := int(header[1])
	rows := int(header[2])
	cols := int(header[3])

	buf := make([]byte, rows*cols)
	images := make([][]float64, count)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("reading image %d: %w", i, err)
		}
		img := make([]float64, rows*cols)
		for j, b := range buf {
			img[j] = (float64(b) - 127.5) / 127.5
		}
		images[i] = img
	}
	return images, nil
}

func readIDXLabels(path string) ([]int, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var header [2]uint32
	for i := range header {
		if err := binary.Read(r, binary.BigEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
	}
	if header[0] != idxLabelsMagic {
		return nil, fmt.Errorf("bad magic number %d, want %d", header[0], idxLabelsMagic)
	}
	count := int(header[1])

	buf := make([]byte, count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}
	labels := make([]int, count)
	for i, b := range buf {
		labels[i] = int(b)
	}
	return labels, nil
}

// OneHot converts class indices into one-hot target vectors.
func OneHot(labels []int, classes int) [][]float64 {
	out := make([][]float64, len(labels))
	for i, l := range labels {
		v := make([]float64, classes)
		if l >= 0 && l < classes {
			v[l] = 1
		}
		out[i] = v
	}
	return out
}

// Split partitions the dataset into a training and a held-out part.
func (d *Dataset) Split(trainFrac float64) (train, test *Dataset) {
	n := int(float64(len(d.Samples)) * trainFrac)
	if n > len(d.Samples) {
		n = len(d.Samples)
	}
	train = &Dataset{Samples: d.Samples[:n], Labels: d.Labels[:n]}
	test = &Dataset{Samples: d.Samples[n:], Labels: d.Labels[n:]}
	return train, test
}

// Take returns the first n samples (or fewer if the set is smaller).
func (d *Dataset) Take(n int) *Dataset {
	if n > len(d.Samples) {
		n = len(d.Samples)
	}
	return &Dataset{Samples: d.Samples[:n], Labels: d.Labels[:n]}
}
