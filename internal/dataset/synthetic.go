package dataset

import (
	"math"
	"math/rand"
)

// SyntheticDigits draws n deterministic 28x28 digit-like samples.
// Each class places a Gaussian blob at a class-specific position with
// additive noise, giving linearly separable structure that small
// models can fit. Pixels are scaled to [-1, 1] like the MNIST loader.
func SyntheticDigits(n int, seed int64) *Dataset {
	const (
		side    = 28
		classes = 10
	)
	rng := rand.New(rand.NewSource(seed))

	samples := make([][]float64, n)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		class := rng.Intn(classes)
		labels[i] = class

		// class-specific blob center on a ring
		angle := 2 * math.Pi * float64(class) / classes
		cy := 14 + 7*math.Sin(angle)
		cx := 14 + 7*math.Cos(angle)

		img := make([]float64, side*side)
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				dy := float64(y) - cy
				dx := float64(x) - cx
				v := 255 * math.Exp(-(dy*dy+dx*dx)/18)
				v += rng.Float64() * 40
				if v > 255 {
					v = 255
				}
				img[y*side+x] = (v - 127.5) / 127.5
			}
		}
		samples[i] = img
	}

	return &Dataset{Samples: samples, Labels: OneHot(labels, classes)}
}

// UniformVectors draws n vectors of the given dimension from U(0, 1).
func UniformVectors(n, dim int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, n)
	for i := range out {
		v := make([]float64, dim)
		for j := range v {
			v[j] = rng.Float64()
		}
		out[i] = v
	}
	return out
}
