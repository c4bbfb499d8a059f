package net

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/patternlab/patternet/internal/activations"
	"github.com/patternlab/patternet/internal/layer"
	"github.com/patternlab/patternet/internal/loss"
	"github.com/patternlab/patternet/internal/opt"
)

// TestEncodeDecodeRoundTrip tests that a decoded network predicts
// identically to the original.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	layer.SeedInit(21)
	original := New([]layer.Layer{
		layer.NewDense(4, 6, activations.ReLU{}),
		layer.NewDense(6, 2, activations.Linear{}),
	}, loss.NewSoftmaxCrossEntropy(), opt.NewAdam(0.01))

	var buf bytes.Buffer
	if err := original.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, lossFn, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := lossFn.(*loss.SoftmaxCrossEntropy); !ok {
		t.Errorf("decoded loss = %T, want *SoftmaxCrossEntropy", lossFn)
	}

	x := []float64{0.5, -1, 2, 0.25}
	wantOut := original.Forward(x)
	want := append([]float64(nil), wantOut...)
	got := decoded.Forward(x)
	if len(got) != len(want) {
		t.Fatalf("output length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestConvModelRoundTrip tests geometry survival for conv and pooling
// layers.
func TestConvModelRoundTrip(t *testing.T) {
	layer.SeedInit(22)
	original := New([]layer.Layer{
		layer.NewConv2D(1, 2, 3, 1, 1, activations.ReLU{}),
		layer.NewMaxPool2D(2, 2, 2),
		layer.NewFlatten(),
		layer.NewDense(2*3*3, 3, activations.Linear{}),
	}, loss.MSE{}, opt.SGD{LearningRate: 0.1})

	x := make([]float64, 36) // 1x6x6
	for i := range x {
		x[i] = float64(i%5) - 2
	}
	wantOut := original.Forward(x)
	want := append([]float64(nil), wantOut...)

	var buf bytes.Buffer
	if err := original.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, _, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got := decoded.Forward(x)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestSaveLoadFile tests the file-based round trip.
func TestSaveLoadFile(t *testing.T) {
	layer.SeedInit(23)
	original := New([]layer.Layer{
		layer.NewDense(2, 2, activations.Tanh{}),
	}, loss.MSE{}, opt.SGD{LearningRate: 0.1})

	path := filepath.Join(t.TempDir(), "model.gob")
	if err := original.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	x := []float64{0.3, -0.9}
	wantOut := original.Forward(x)
	want := append([]float64(nil), wantOut...)
	got := loaded.Forward(x)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestLoadMissingFile tests the error path.
func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.gob")); err == nil {
		t.Error("expected error for missing file")
	}
}
