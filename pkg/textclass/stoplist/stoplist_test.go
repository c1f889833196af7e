package stoplist

import (
	"testing"
)

func TestDefaultContainsArticles(t *testing.T) {
	mgr := NewManager(Default())
	for _, w := range []string{"a", "an", "the", "for", "with", "of"} {
		if !mgr.IsStop(w) {
			t.Errorf("%q should be a default stopword", w)
		}
	}
	for _, w := range []string{"dashboard", "api", "slow", "and"} {
		if mgr.IsStop(w) {
			t.Errorf("%q should not be a default stopword", w)
		}
	}
}

func TestDefaultReturnsCopy(t *testing.T) {
	d := Default()
	d[0] = "mutated"
	if Default()[0] == "mutated" {
		t.Fatal("Default must not expose its backing slice")
	}
}

func TestManagerAddRemove(t *testing.T) {
	mgr := NewManager([]string{"the"})

	mgr.Add("test", Reason{HighDF: true})
	if !mgr.IsStop("test") {
		t.Error("'test' should be stopword after adding")
	}

	mgr.Remove("test")
	if mgr.IsStop("test") {
		t.Error("'test' should not be stopword after removing")
	}
}

func TestManagerAllSorted(t *testing.T) {
	mgr := NewManager([]string{"the", "a", "of"})

	all := mgr.All()
	want := []string{"a", "of", "the"}
	if len(all) != len(want) {
		t.Fatalf("expected %d stopwords, got %d", len(want), len(all))
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, all[i], want[i])
		}
	}
}

func TestSuggestCandidates(t *testing.T) {
	mgr := NewManager([]string{})

	stats := []Stats{
		{Token: "please", DFPercent: 90, LabelEntropy: 0.97}, // candidate
		{Token: "dashboard", DFPercent: 20, LabelEntropy: 0}, // label-specific
		{Token: "thanks", DFPercent: 70, LabelEntropy: 0.92}, // candidate
		{Token: "api", DFPercent: 60, LabelEntropy: 0.3},     // frequent but skewed
	}

	candidates := mgr.SuggestCandidates(stats, Thresholds{DFPercent: 50, LabelEntropy: 0.9})
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(candidates), candidates)
	}
	if candidates[0].Token != "please" || candidates[1].Token != "thanks" {
		t.Errorf("unexpected order: %q, %q", candidates[0].Token, candidates[1].Token)
	}
	if !candidates[0].Reason.HighDF || !candidates[0].Reason.HighEntropy {
		t.Errorf("reason flags not set: %+v", candidates[0].Reason)
	}
}

func TestSuggestCandidatesSkipsExisting(t *testing.T) {
	mgr := NewManager([]string{"please"})
	stats := []Stats{{Token: "please", DFPercent: 99, LabelEntropy: 1}}

	if got := mgr.SuggestCandidates(stats, DefaultThresholds()); len(got) != 0 {
		t.Fatalf("existing stopword should not be suggested, got %+v", got)
	}
}

func TestSuggestCandidatesDefaultsZeroThresholds(t *testing.T) {
	mgr := NewManager(nil)
	stats := []Stats{
		{Token: "hello", DFPercent: 55, LabelEntropy: 0.95},
		{Token: "rare", DFPercent: 10, LabelEntropy: 1},
	}

	got := mgr.SuggestCandidates(stats, Thresholds{})
	if len(got) != 1 || got[0].Token != "hello" {
		t.Fatalf("expected only 'hello', got %+v", got)
	}
}
