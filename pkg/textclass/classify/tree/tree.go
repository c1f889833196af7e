// Package tree implements a binary decision tree whose internal nodes test
// whether a document contains a vocabulary term. Splits are chosen greedily
// by information gain.
package tree

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/textclass/pkg/textclass/classify"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/vectorize"
)

const (
	// DefaultMaxDepth bounds the depth of the tree; the root is depth 0.
	DefaultMaxDepth = 10
	// DefaultMinSamples is the smallest node the builder will still split.
	DefaultMinSamples = 2

	minGain = 1e-12
)

// Params controls tree growth. Zero or negative values select the defaults.
type Params struct {
	MaxDepth   int `json:"max_depth"`
	MinSamples int `json:"min_samples"`
}

func (p Params) withDefaults() Params {
	if p.MaxDepth <= 0 {
		p.MaxDepth = DefaultMaxDepth
	}
	if p.MinSamples <= 0 {
		p.MinSamples = DefaultMinSamples
	}
	return p
}

// Node is a tree node. Leaves have no children and Feature -1. Every node
// records the majority label of the training documents that reached it.
type Node struct {
	Feature    int     `json:"feature"`
	Term       string  `json:"term,omitempty"`
	Present    *Node   `json:"present,omitempty"`
	Absent     *Node   `json:"absent,omitempty"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Count      int     `json:"count"`
	Depth      int     `json:"depth"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n.Present == nil && n.Absent == nil
}

// State is the persisted tree.
type State struct {
	Params  Params   `json:"params"`
	Classes []string `json:"classes"`
	Root    *Node    `json:"root"`
}

// Classifier is a decision tree bound to a vocabulary.
type Classifier struct {
	vocab  *vectorize.Vocabulary
	params Params
	state  State
}

var _ classify.Classifier = (*Classifier)(nil)

// New creates an untrained tree.
func New(vocab *vectorize.Vocabulary, p Params) *Classifier {
	return &Classifier{vocab: vocab, params: p.withDefaults()}
}

// FromState rebuilds a trained tree, checking its structure against vocab.
func FromState(vocab *vectorize.Vocabulary, s State) (*Classifier, error) {
	if s.Root == nil || len(s.Classes) == 0 {
		return nil, fmt.Errorf("%w: decision tree has no root", internalerr.ErrCorruptModelRecord)
	}
	if s.Params.MaxDepth <= 0 || s.Params.MinSamples <= 0 {
		return nil, fmt.Errorf("%w: decision tree params %+v", internalerr.ErrCorruptModelRecord, s.Params)
	}
	classes := make(map[string]struct{}, len(s.Classes))
	for _, c := range s.Classes {
		classes[c] = struct{}{}
	}
	if err := validateNode(vocab, s, classes, s.Root, 0); err != nil {
		return nil, err
	}
	return &Classifier{vocab: vocab, params: s.Params, state: s}, nil
}

func validateNode(vocab *vectorize.Vocabulary, s State, classes map[string]struct{}, n *Node, depth int) error {
	if n.Depth != depth || depth > s.Params.MaxDepth {
		return fmt.Errorf("%w: node at depth %d recorded as %d", internalerr.ErrCorruptModelRecord, depth, n.Depth)
	}
	if _, ok := classes[n.Label]; !ok {
		return fmt.Errorf("%w: unknown label %q", internalerr.ErrCorruptModelRecord, n.Label)
	}
	if n.Confidence <= 0 || n.Confidence > 1 || n.Count <= 0 {
		return fmt.Errorf("%w: node confidence %v count %d", internalerr.ErrCorruptModelRecord, n.Confidence, n.Count)
	}
	if n.IsLeaf() {
		return nil
	}
	if n.Present == nil || n.Absent == nil {
		return fmt.Errorf("%w: internal node missing a branch", internalerr.ErrCorruptModelRecord)
	}
	if n.Feature < 0 || n.Feature >= vocab.Len() || vocab.Term(n.Feature) != n.Term {
		return fmt.Errorf("%w: split on feature %d (%q)", internalerr.ErrCorruptModelRecord, n.Feature, n.Term)
	}
	if err := validateNode(vocab, s, classes, n.Present, depth+1); err != nil {
		return err
	}
	return validateNode(vocab, s, classes, n.Absent, depth+1)
}

// Kind implements classify.Classifier.
func (c *Classifier) Kind() classify.Kind { return classify.DecisionTree }

// Params returns the growth parameters in effect.
func (c *Classifier) Params() Params { return c.params }

// State returns the trained tree.
func (c *Classifier) State() State { return c.state }

// Root returns the root node, nil before training.
func (c *Classifier) Root() *Node { return c.state.Root }

type row struct {
	features map[int]struct{}
	label    int
}

// Train grows the tree from the presence profile of each example.
func (c *Classifier) Train(examples []classify.Example) error {
	if len(examples) == 0 {
		return classify.ErrNoExamples
	}
	classes, _ := classify.Labels(examples)
	pos := make(map[string]int, len(classes))
	for i, label := range classes {
		pos[label] = i
	}

	rows := make([]row, len(examples))
	for i, ex := range examples {
		rows[i] = row{features: c.vocab.Presence(ex.Tokens), label: pos[ex.Label]}
	}

	b := builder{vocab: c.vocab, params: c.params, classes: classes}
	c.state = State{
		Params:  c.params,
		Classes: classes,
		Root:    b.build(rows, 0),
	}
	return nil
}

type builder struct {
	vocab   *vectorize.Vocabulary
	params  Params
	classes []string
}

func (b *builder) build(rows []row, depth int) *Node {
	counts := make([]int, len(b.classes))
	for _, r := range rows {
		counts[r.label]++
	}
	major := majority(counts)
	node := &Node{
		Feature:    -1,
		Label:      b.classes[major],
		Confidence: float64(counts[major]) / float64(len(rows)),
		Count:      len(rows),
		Depth:      depth,
	}

	if counts[major] == len(rows) || len(rows) < b.params.MinSamples || depth >= b.params.MaxDepth {
		return node
	}

	feature, gain := b.bestSplit(rows, counts)
	if gain <= minGain {
		return node
	}

	var present, absent []row
	for _, r := range rows {
		if _, ok := r.features[feature]; ok {
			present = append(present, r)
		} else {
			absent = append(absent, r)
		}
	}

	node.Feature = feature
	node.Term = b.vocab.Term(feature)
	node.Present = b.build(present, depth+1)
	node.Absent = b.build(absent, depth+1)
	return node
}

// bestSplit returns the feature with the highest information gain. Equal
// gains keep the lowest vocabulary index.
func (b *builder) bestSplit(rows []row, counts []int) (int, float64) {
	presentCounts := make(map[int][]int)
	for _, r := range rows {
		for f := range r.features {
			pc, ok := presentCounts[f]
			if !ok {
				pc = make([]int, len(b.classes))
				presentCounts[f] = pc
			}
			pc[r.label]++
		}
	}

	features := make([]int, 0, len(presentCounts))
	for f := range presentCounts {
		features = append(features, f)
	}
	sort.Ints(features)

	n := float64(len(rows))
	parent := Entropy(counts)
	bestFeature, bestGain := -1, 0.0
	absentCounts := make([]int, len(b.classes))

	for _, f := range features {
		pc := presentCounts[f]
		np := 0
		for i, c := range pc {
			absentCounts[i] = counts[i] - c
			np += c
		}
		if np == len(rows) {
			continue
		}
		gain := parent -
			float64(np)/n*Entropy(pc) -
			float64(len(rows)-np)/n*Entropy(absentCounts)
		if gain > bestGain+minGain {
			bestFeature, bestGain = f, gain
		}
	}
	return bestFeature, bestGain
}

// Entropy returns -Σ p log2 p of a count distribution.
func Entropy(counts []int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// majority returns the index of the largest count; ties keep the lowest index.
func majority(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

// Leaf routes tokens from the root to a leaf.
func (c *Classifier) Leaf(tokens []string) *Node {
	present := c.vocab.Presence(tokens)
	n := c.state.Root
	for n != nil && !n.IsLeaf() {
		if _, ok := present[n.Feature]; ok {
			n = n.Present
		} else {
			n = n.Absent
		}
	}
	return n
}

// Predict walks the tree and returns the leaf's label and confidence.
func (c *Classifier) Predict(q classify.Query) (classify.Result, error) {
	if c.state.Root == nil {
		return classify.Result{}, classify.ErrUntrained
	}
	leaf := c.Leaf(q.Tokens)
	return classify.Result{
		Label:      leaf.Label,
		Confidence: leaf.Confidence,
		Scores:     map[string]float64{leaf.Label: leaf.Confidence},
	}, nil
}

// Depth returns the depth of the deepest leaf.
func (c *Classifier) Depth() int {
	var walk func(*Node) int
	walk = func(n *Node) int {
		if n == nil {
			return -1
		}
		if n.IsLeaf() {
			return n.Depth
		}
		return max(walk(n.Present), walk(n.Absent))
	}
	return walk(c.state.Root)
}
