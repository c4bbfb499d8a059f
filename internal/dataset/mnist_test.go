package dataset

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeIDX writes a minimal IDX fixture: two 2x2 images with labels
// 3 and 7.
func writeIDX(t *testing.T, dir string, gzipped bool) {
	t.Helper()

	var images bytes.Buffer
	for _, v := range []uint32{idxImagesMagic, 2, 2, 2} {
		binary.Write(&images, binary.BigEndian, v)
	}
	images.Write([]byte{0, 255, 127, 128}) // image 0
	images.Write([]byte{10, 20, 30, 40})   // image 1

	var labels bytes.Buffer
	for _, v := range []uint32{idxLabelsMagic, 2} {
		binary.Write(&labels, binary.BigEndian, v)
	}
	labels.Write([]byte{3, 7})

	write := func(base string, data []byte) {
		path := filepath.Join(dir, base)
		if gzipped {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			zw.Write(data)
			zw.Close()
			data = buf.Bytes()
			path += ".gz"
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}
	write("train-images-idx3-ubyte", images.Bytes())
	write("train-labels-idx1-ubyte", labels.Bytes())
}

// TestLoadMNIST tests reading raw IDX files with pixel scaling.
func TestLoadMNIST(t *testing.T) {
	dir := t.TempDir()
	writeIDX(t, dir, false)

	ds, err := LoadMNIST(dir)
	if err != nil {
		t.Fatalf("LoadMNIST: %v", err)
	}
	if len(ds.Samples) != 2 || len(ds.Labels) != 2 {
		t.Fatalf("got %d samples, %d labels, want 2 each", len(ds.Samples), len(ds.Labels))
	}

	// (0 - 127.5) / 127.5 = -1, (255 - 127.5) / 127.5 = 1
	if ds.Samples[0][0] != -1 || ds.Samples[0][1] != 1 {
		t.Errorf("scaling broken: %v", ds.Samples[0])
	}
	if math.Abs(ds.Samples[0][2]-(-0.5/127.5)) > 1e-12 {
		t.Errorf("sample[0][2] = %v", ds.Samples[0][2])
	}

	if ds.Labels[0][3] != 1 || ds.Labels[1][7] != 1 {
		t.Errorf("one-hot labels broken: %v, %v", ds.Labels[0], ds.Labels[1])
	}
}

// TestLoadMNISTGzip tests the gzipped variant.
func TestLoadMNISTGzip(t *testing.T) {
	dir := t.TempDir()
	writeIDX(t, dir, true)

	ds, err := LoadMNIST(dir)
	if err != nil {
		t.Fatalf("LoadMNIST (gzip): %v", err)
	}
	if len(ds.Samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(ds.Samples))
	}
	if ds.Samples[1][3] != (40-127.5)/127.5 {
		t.Errorf("sample[1][3] = %v", ds.Samples[1][3])
	}
}

// TestLoadMNISTMissing tests the missing-directory error path.
func TestLoadMNISTMissing(t *testing.T) {
	if _, err := LoadMNIST(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}

// TestLoadMNISTBadMagic tests magic number validation.
func TestLoadMNISTBadMagic(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	for _, v := range []uint32{999, 0, 2, 2} {
		binary.Write(&buf, binary.BigEndian, v)
	}
	os.WriteFile(filepath.Join(dir, "train-images-idx3-ubyte"), buf.Bytes(), 0o644)

	if _, err := LoadMNIST(dir); err == nil {
		t.Error("expected error for bad magic number")
	}
}

// TestOneHot tests target vector construction.
func TestOneHot(t *testing.T) {
	out := OneHot([]int{0, 2}, 3)
	if out[0][0] != 1 || out[0][1] != 0 || out[1][2] != 1 {
		t.Errorf("OneHot = %v", out)
	}
}

// TestSplitTake tests dataset slicing.
func TestSplitTake(t *testing.T) {
	ds := SyntheticDigits(10, 1)
	train, test := ds.Split(0.8)
	if len(train.Samples) != 8 || len(test.Samples) != 2 {
		t.Errorf("split = %d/%d, want 8/2", len(train.Samples), len(test.Samples))
	}

	taken := ds.Take(3)
	if len(taken.Samples) != 3 {
		t.Errorf("Take(3) = %d samples", len(taken.Samples))
	}
	if got := ds.Take(100); len(got.Samples) != 10 {
		t.Errorf("Take(100) = %d samples, want 10", len(got.Samples))
	}
}
