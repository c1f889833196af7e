package vectorize

import (
	"math"
	"sort"
)

// Vector is a sparse term vector. Indices are vocabulary positions in
// ascending order; Weights[i] belongs to Indices[i]. Terms absent from the
// document are absent from the vector.
type Vector struct {
	Indices []int     `json:"indices"`
	Weights []float64 `json:"weights"`
}

// Len returns the number of stored entries
func (v Vector) Len() int {
	return len(v.Indices)
}

// Get returns the weight stored for a vocabulary index.
func (v Vector) Get(index int) (float64, bool) {
	i := sort.SearchInts(v.Indices, index)
	if i < len(v.Indices) && v.Indices[i] == index {
		return v.Weights[i], true
	}
	return 0, false
}

// Dot returns the dot product over overlapping indices.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Weights[i] * o.Weights[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Valid reports whether indices are strictly ascending, non-negative,
// below dim and paired with finite, non-negative weights.
func (v Vector) Valid(dim int) bool {
	if len(v.Indices) != len(v.Weights) {
		return false
	}
	prev := -1
	for i, idx := range v.Indices {
		if idx <= prev || idx >= dim {
			return false
		}
		w := v.Weights[i]
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return false
		}
		prev = idx
	}
	return true
}
