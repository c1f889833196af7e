package stoplist

import "sort"

// defaultTerms are English articles and prepositions.
var defaultTerms = []string{
	"a", "an", "the",
	"about", "above", "across", "after", "against", "along", "among", "around",
	"as", "at", "before", "behind", "below", "beneath", "beside", "between",
	"beyond", "by", "during", "for", "from", "in", "inside", "into", "near",
	"of", "off", "on", "onto", "out", "outside", "over", "per", "since",
	"through", "throughout", "to", "toward", "towards", "under", "until",
	"upon", "via", "with", "within", "without",
}

// Default returns a copy of the built-in stop-word set.
func Default() []string {
	out := make([]string, len(defaultTerms))
	copy(out, defaultTerms)
	return out
}

// Manager handles the stopword list and candidate suggestions
type Manager struct {
	stops map[string]Reason
}

// Reason explains why a token is a stopword
type Reason struct {
	HighDF       bool    // high document frequency
	HighEntropy  bool    // spread evenly across labels
	IDF          float64 // inverse document frequency
	LabelEntropy float64 // label entropy, normalized to [0,1]
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]Reason, len(initialStops))
	for _, s := range initialStops {
		stops[s] = Reason{}
	}
	return &Manager{stops: stops}
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist with a reason
func (m *Manager) Add(token string, reason Reason) {
	m.stops[token] = reason
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, token)
}

// All returns all stopwords, sorted
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Stats holds statistics for candidate evaluation
type Stats struct {
	Token        string
	DF           int64
	DFPercent    float64
	IDF          float64
	LabelEntropy float64 // normalized to [0,1] by log2(label count)
}

// Candidate represents a candidate stopword
type Candidate struct {
	Token  string
	Reason Reason
	Score  float64 // confidence score
}

// Thresholds defines criteria for stopword identification
type Thresholds struct {
	DFPercent    float64 // e.g. 50: appears in half of the documents
	LabelEntropy float64 // e.g. 0.9: nearly uniform across labels
}

// DefaultThresholds returns sensible default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DFPercent:    50.0,
		LabelEntropy: 0.9,
	}
}

// SuggestCandidates suggests tokens that carry no label signal: frequent
// across the corpus and spread evenly over every label. Candidates are
// sorted by descending score, then token.
func (m *Manager) SuggestCandidates(stats []Stats, thresholds Thresholds) []Candidate {
	if thresholds.DFPercent == 0 {
		thresholds.DFPercent = DefaultThresholds().DFPercent
	}
	if thresholds.LabelEntropy == 0 {
		thresholds.LabelEntropy = DefaultThresholds().LabelEntropy
	}

	var candidates []Candidate
	for _, s := range stats {
		if m.IsStop(s.Token) {
			continue // already a stopword
		}

		reason := Reason{
			HighDF:       s.DFPercent >= thresholds.DFPercent,
			HighEntropy:  s.LabelEntropy >= thresholds.LabelEntropy,
			IDF:          s.IDF,
			LabelEntropy: s.LabelEntropy,
		}
		if !reason.HighDF || !reason.HighEntropy {
			continue
		}

		candidates = append(candidates, Candidate{
			Token:  s.Token,
			Reason: reason,
			Score:  (s.DFPercent/100.0 + s.LabelEntropy) / 2.0,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Token < candidates[j].Token
	})
	return candidates
}
