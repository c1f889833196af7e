package vectorize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/textclass/pkg/textclass/internalerr"
)

func corpus() [][]string {
	return [][]string{
		{"need", "dashboard", "admin"},
		{"api", "endpoint", "broken"},
		{"reasoning", "too", "slow", "api"},
	}
}

func TestFitFirstSeenOrder(t *testing.T) {
	v := Fit(corpus())

	assert.Equal(t, []string{
		"need", "dashboard", "admin", "api", "endpoint", "broken", "reasoning", "too", "slow",
	}, v.Terms())
	assert.Equal(t, 9, v.Len())
	assert.Equal(t, 3, v.Docs())

	idx, ok := v.Index("api")
	require.True(t, ok)
	assert.Equal(t, 3, idx)
	assert.Equal(t, "api", v.Term(idx))
	assert.Equal(t, 2, v.DF("api"))
	assert.Equal(t, 0, v.DF("missing"))
}

func TestFitCountsDFOncePerDocument(t *testing.T) {
	v := Fit([][]string{{"go", "go", "go"}, {"rust"}})

	assert.Equal(t, 1, v.DF("go"))
	assert.Equal(t, []string{"go", "rust"}, v.Terms())
}

func TestFitSingleTerm(t *testing.T) {
	v := Fit([][]string{{"solo"}, {"solo", "solo"}})

	require.Equal(t, 1, v.Len())
	vec := v.Transform([]string{"solo"})
	assert.Equal(t, []int{0}, vec.Indices)
}

func TestIDFFormula(t *testing.T) {
	assert.InDelta(t, math.Log(3.0/2.0), IDF(3, 1), 1e-12)
	assert.InDelta(t, math.Log(10.0/3.0), IDF(10, 2), 1e-12)
	assert.Equal(t, 0.0, IDF(3, 3), "negative idf clamps to zero")
	assert.Equal(t, 0.0, IDF(0, 0))
}

func TestIDFNonIncreasingInDF(t *testing.T) {
	const n = 50
	prev := math.Inf(1)
	for df := 1; df <= n; df++ {
		cur := IDF(n, df)
		assert.LessOrEqual(t, cur, prev, "df=%d", df)
		assert.GreaterOrEqual(t, cur, 0.0)
		prev = cur
	}
}

func TestTransformWeights(t *testing.T) {
	v := Fit(corpus())

	vec := v.Transform([]string{"api", "api", "endpoint", "unknown"})

	apiIdx, _ := v.Index("api")
	endIdx, _ := v.Index("endpoint")
	assert.Equal(t, []int{apiIdx, endIdx}, vec.Indices)

	w, ok := vec.Get(apiIdx)
	require.True(t, ok)
	assert.InDelta(t, 2*math.Log(3.0/3.0), w, 1e-12)

	w, ok = vec.Get(endIdx)
	require.True(t, ok)
	assert.InDelta(t, math.Log(3.0/2.0), w, 1e-12)

	_, ok = vec.Get(0)
	assert.False(t, ok, "terms with zero tf are absent")
}

func TestTransformDropsOOV(t *testing.T) {
	v := Fit(corpus())

	vec := v.Transform([]string{"nothing", "known"})
	assert.Equal(t, 0, vec.Len())
	assert.Equal(t, 0.0, vec.Norm())
	assert.Equal(t, 9, v.Len(), "transform never extends the vocabulary")
}

func TestTransformIndicesWithinDimension(t *testing.T) {
	v := Fit(corpus())
	for _, doc := range corpus() {
		assert.True(t, v.Transform(doc).Valid(v.Len()))
	}
}

func TestPresence(t *testing.T) {
	v := Fit(corpus())
	set := v.Presence([]string{"api", "api", "slow", "zzz"})

	assert.Len(t, set, 2)
	idx, _ := v.Index("slow")
	assert.Contains(t, set, idx)
}

func TestSnapshotRestore(t *testing.T) {
	v := Fit(corpus())

	restored, err := Restore(v.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, v.Terms(), restored.Terms())
	for _, term := range v.Terms() {
		assert.Equal(t, v.IDF(term), restored.IDF(term), term)
	}
	query := []string{"api", "slow", "slow"}
	assert.Equal(t, v.Transform(query), restored.Transform(query))
}

func TestRestoreRejectsCorruptSnapshots(t *testing.T) {
	tests := []struct {
		name string
		s    Snapshot
	}{
		{"length mismatch", Snapshot{Terms: []string{"a", "b"}, DF: []int{1}, Docs: 2}},
		{"duplicate term", Snapshot{Terms: []string{"aa", "aa"}, DF: []int{1, 1}, Docs: 2}},
		{"empty term", Snapshot{Terms: []string{""}, DF: []int{1}, Docs: 1}},
		{"df above corpus", Snapshot{Terms: []string{"aa"}, DF: []int{3}, Docs: 2}},
		{"zero docs", Snapshot{Terms: []string{"aa"}, DF: []int{1}, Docs: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.s)
			assert.ErrorIs(t, err, internalerr.ErrCorruptModelRecord)
		})
	}
}
