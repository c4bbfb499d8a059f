// Package pattern estimates patterns for network attribution.
//
// A pattern is, per output unit of a layer, the direction in the
// layer's input space that best explains the component of the input
// correlated with the unit's output. Patterns are estimated from
// covariance statistics accumulated over a dataset and differ from the
// layer's weights whenever the data carries correlated distractors
// (the Haufe correction).
package pattern

import "fmt"

// Type selects the closed-form rule governing pattern estimation.
type Type string

const (
	// Dummy produces shape-correct placeholder patterns without
	// accumulating statistics.
	Dummy Type = "dummy"

	// Linear estimates patterns from unmasked covariance, the rule
	// for layers with identity activation.
	Linear Type = "linear"

	// ReLUPositive restricts statistics to the region where the
	// unit's pre-activation is positive.
	ReLUPositive Type = "relu.positive"

	// ReLUNegative restricts statistics to the complementary region.
	ReLUNegative Type = "relu.negative"
)

// ParseType resolves a pattern type name. "relu" is accepted as an
// alias for "relu.positive".
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Dummy, Linear, ReLUPositive, ReLUNegative:
		return Type(s), nil
	}
	if s == "relu" {
		return ReLUPositive, nil
	}
	return "", fmt.Errorf("unknown pattern type %q", s)
}

// valid reports whether t is one of the defined types.
func (t Type) valid() bool {
	switch t {
	case Dummy, Linear, ReLUPositive, ReLUNegative:
		return true
	}
	return false
}

// masked reports whether t accumulates regime-restricted statistics.
func (t Type) masked() bool {
	return t == ReLUPositive || t == ReLUNegative
}
