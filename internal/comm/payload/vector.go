package payload

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
)

// Vector is a series of float64 samples
type Vector struct {
	Label   string
	Samples []float64
}

var _ comm.Payload = (*Vector)(nil)

// NewVector creates a labeled vector that owns a copy of samples
func NewVector(label string, samples []float64) *Vector {
	return &Vector{Label: label, Samples: slices.Clone(samples)}
}

// ShallowClone copies the header; Samples is shared with the original
func (v *Vector) ShallowClone() comm.Payload {
	cp := *v
	return &cp
}

// DeepClone copies the header and the samples
func (v *Vector) DeepClone() comm.Payload {
	return &Vector{Label: v.Label, Samples: slices.Clone(v.Samples)}
}

// Len returns the number of samples
func (v *Vector) Len() int {
	return len(v.Samples)
}

// Sum returns the sum of all samples
func (v *Vector) Sum() float64 {
	return floats.Sum(v.Samples)
}

// Mean returns the arithmetic mean, or 0 for an empty vector
func (v *Vector) Mean() float64 {
	if len(v.Samples) == 0 {
		return 0
	}
	return stat.Mean(v.Samples, nil)
}

// Variance returns the sample variance, or 0 with fewer than two samples
func (v *Vector) Variance() float64 {
	if len(v.Samples) < 2 {
		return 0
	}
	return stat.Variance(v.Samples, nil)
}

// Add adds other element-wise into v
func (v *Vector) Add(other *Vector) error {
	if len(other.Samples) != len(v.Samples) {
		return fmt.Errorf("vector length mismatch: %d != %d", len(v.Samples), len(other.Samples))
	}
	floats.Add(v.Samples, other.Samples)
	return nil
}

// Scale multiplies every sample by c
func (v *Vector) Scale(c float64) {
	floats.Scale(c, v.Samples)
}
