package similarity

import (
	"sort"

	"github.com/cognicore/textclass/pkg/textclass/vectorize"
)

// Cosine returns the cosine similarity of two sparse vectors. A zero-norm
// vector on either side yields 0.
func Cosine(a, b vectorize.Vector) float64 {
	na := a.Norm()
	nb := b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return a.Dot(b) / (na * nb)
}

// Neighbor is a corpus position paired with its similarity to a query.
type Neighbor struct {
	Index      int
	Similarity float64
}

// Rank scores every corpus vector against the query and returns them by
// descending similarity. Equal similarities keep corpus order.
func Rank(query vectorize.Vector, corpus []vectorize.Vector) []Neighbor {
	qn := query.Norm()
	out := make([]Neighbor, len(corpus))
	for i, doc := range corpus {
		sim := 0.0
		if dn := doc.Norm(); qn != 0 && dn != 0 {
			sim = query.Dot(doc) / (qn * dn)
		}
		out[i] = Neighbor{Index: i, Similarity: sim}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out
}

// Nearest returns the top k neighbours of query. k <= 0 or k larger than
// the corpus returns every vector.
func Nearest(query vectorize.Vector, corpus []vectorize.Vector, k int) []Neighbor {
	ranked := Rank(query, corpus)
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
