package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/textclass/pkg/textclass/vectorize"
)

func TestCosineSelf(t *testing.T) {
	v := vectorize.Vector{Indices: []int{1, 4}, Weights: []float64{0.3, 2.5}}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-12)
}

func TestCosineZeroVector(t *testing.T) {
	zero := vectorize.Vector{}
	v := vectorize.Vector{Indices: []int{0}, Weights: []float64{1}}

	assert.Equal(t, 0.0, Cosine(zero, zero))
	assert.Equal(t, 0.0, Cosine(zero, v))
	assert.Equal(t, 0.0, Cosine(v, zero))

	allZeroWeights := vectorize.Vector{Indices: []int{0, 1}, Weights: []float64{0, 0}}
	assert.Equal(t, 0.0, Cosine(allZeroWeights, allZeroWeights))
}

func TestCosineOrthogonalAndSymmetric(t *testing.T) {
	a := vectorize.Vector{Indices: []int{0, 1}, Weights: []float64{1, 1}}
	b := vectorize.Vector{Indices: []int{2, 3}, Weights: []float64{1, 1}}
	c := vectorize.Vector{Indices: []int{1, 2}, Weights: []float64{1, 1}}

	assert.Equal(t, 0.0, Cosine(a, b))
	assert.InDelta(t, 0.5, Cosine(a, c), 1e-12)
	assert.Equal(t, Cosine(a, c), Cosine(c, a))
}

func TestCosineReferentiallyTransparent(t *testing.T) {
	a := vectorize.Vector{Indices: []int{0, 3, 7}, Weights: []float64{0.1, 0.7, 1.3}}
	b := vectorize.Vector{Indices: []int{3, 7, 9}, Weights: []float64{0.2, 0.9, 0.4}}

	first := Cosine(a, b)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Cosine(a, b))
	}
}

func TestNearest(t *testing.T) {
	query := vectorize.Vector{Indices: []int{0}, Weights: []float64{1}}
	corpus := []vectorize.Vector{
		{Indices: []int{1}, Weights: []float64{1}},
		{Indices: []int{0, 1}, Weights: []float64{1, 1}},
		{Indices: []int{0}, Weights: []float64{2}},
		{Indices: []int{2}, Weights: []float64{1}},
	}

	got := Nearest(query, corpus, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, 1, got[1].Index)

	all := Nearest(query, corpus, 10)
	require.Len(t, all, 4)
	assert.Equal(t, 0, all[2].Index, "ties keep corpus order")
	assert.Equal(t, 3, all[3].Index)
}
