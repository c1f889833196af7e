package knn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/textclass/pkg/textclass/classify"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/vectorize"
)

type labelled struct {
	tokens []string
	label  string
}

func build(t *testing.T, k int, docs []labelled) (*Classifier, *vectorize.Vocabulary) {
	t.Helper()
	tokens := make([][]string, len(docs))
	for i, d := range docs {
		tokens[i] = d.tokens
	}
	vocab := vectorize.Fit(tokens)
	exs := make([]classify.Example, len(docs))
	for i, d := range docs {
		exs[i] = classify.Example{Tokens: d.tokens, Vector: vocab.Transform(d.tokens), Label: d.label}
	}
	c := New(k)
	require.NoError(t, c.Train(exs))
	return c, vocab
}

func query(vocab *vectorize.Vocabulary, tokens ...string) classify.Query {
	return classify.Query{Tokens: tokens, Vector: vocab.Transform(tokens)}
}

func supportCorpus() []labelled {
	return []labelled{
		{[]string{"api", "endpoint", "timeout"}, "api"},
		{[]string{"api", "returns", "error"}, "api"},
		{[]string{"endpoint", "broken", "error"}, "api"},
		{[]string{"dashboard", "button", "color"}, "ui"},
		{[]string{"dashboard", "layout", "mobile"}, "ui"},
		{[]string{"model", "reasoning", "slow"}, "ai"},
	}
}

func TestDefaultK(t *testing.T) {
	assert.Equal(t, DefaultK, New(0).K())
	assert.Equal(t, DefaultK, New(-3).K())
	assert.Equal(t, 3, New(3).K())
}

func TestPredictMajorityOfNearest(t *testing.T) {
	c, vocab := build(t, 3, supportCorpus())

	res, err := c.Predict(query(vocab, "endpoint", "error"))
	require.NoError(t, err)
	assert.Equal(t, "api", res.Label)
	assert.InDelta(t, 1.0, res.Confidence, 1e-12)

	res, err = c.Predict(query(vocab, "dashboard", "mobile"))
	require.NoError(t, err)
	assert.Equal(t, "ui", res.Label)
}

func TestLargeKIsCorpusMajority(t *testing.T) {
	c, vocab := build(t, 100, supportCorpus())

	for _, q := range [][]string{{"dashboard"}, {"reasoning", "slow"}, {"nothing"}} {
		res, err := c.Predict(query(vocab, q...))
		require.NoError(t, err)
		assert.Equal(t, "api", res.Label, "query %v", q)
		assert.InDelta(t, 3.0/6.0, res.Confidence, 1e-12)
		assert.InDelta(t, 2.0/6.0, res.Scores["ui"], 1e-12)
	}
}

func TestFewerDocsThanKUsesAll(t *testing.T) {
	c, vocab := build(t, DefaultK, []labelled{
		{[]string{"aa"}, "x"},
		{[]string{"bb"}, "y"},
		{[]string{"aa", "cc"}, "x"},
	})

	res, err := c.Predict(query(vocab, "bb"))
	require.NoError(t, err)
	// all three neighbours vote: x has two, y one
	assert.Equal(t, "x", res.Label)
	assert.InDelta(t, 2.0/3.0, res.Confidence, 1e-12)
}

func TestVoteTieGoesToMostSimilar(t *testing.T) {
	c, vocab := build(t, 2, []labelled{
		{[]string{"red", "green"}, "colors"},
		{[]string{"red", "apple"}, "fruit"},
		{[]string{"banana", "kiwi"}, "fruit"},
		{[]string{"blue", "teal"}, "colors"},
	})

	res, err := c.Predict(query(vocab, "red", "apple"))
	require.NoError(t, err)
	assert.Equal(t, "fruit", res.Label)
	assert.InDelta(t, 0.5, res.Confidence, 1e-12)

	nb := c.Neighbors(query(vocab, "red", "apple"))
	require.Len(t, nb, 2)
	assert.Equal(t, 1, nb[0].Index)
}

func TestPredictUntrained(t *testing.T) {
	_, err := New(3).Predict(classify.Query{})
	assert.ErrorIs(t, err, classify.ErrUntrained)
	assert.ErrorIs(t, New(3).Train(nil), internalerr.ErrInsufficientData)
}

func TestStateRoundTripThroughJSON(t *testing.T) {
	c, vocab := build(t, 3, supportCorpus())

	data, err := json.Marshal(c.State())
	require.NoError(t, err)
	var s State
	require.NoError(t, json.Unmarshal(data, &s))

	restored, err := FromState(vocab, s)
	require.NoError(t, err)
	for _, q := range [][]string{{"endpoint"}, {"dashboard", "slow"}, {"zzz"}} {
		want, err := c.Predict(query(vocab, q...))
		require.NoError(t, err)
		got, err := restored.Predict(query(vocab, q...))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestFromStateRejectsCorrupt(t *testing.T) {
	vocab := vectorize.Fit([][]string{{"aa"}, {"bb"}})
	good := vectorize.Vector{Indices: []int{0}, Weights: []float64{1}}
	tests := []struct {
		name string
		s    State
	}{
		{"zero k", State{K: 0, Vectors: []vectorize.Vector{good}, Labels: []string{"x"}}},
		{"empty", State{K: 1}},
		{"mismatch", State{K: 1, Vectors: []vectorize.Vector{good}, Labels: []string{"x", "y"}}},
		{"out of range", State{K: 1, Vectors: []vectorize.Vector{{Indices: []int{7}, Weights: []float64{1}}}, Labels: []string{"x"}}},
		{"empty label", State{K: 1, Vectors: []vectorize.Vector{good}, Labels: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromState(vocab, tt.s)
			assert.ErrorIs(t, err, internalerr.ErrCorruptModelRecord)
		})
	}
}
