package pruner

import (
	"math"
	"testing"
)

func symbols(cs []Candidate) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.Symbol
	}
	return out
}

func TestPruneTopN(t *testing.T) {
	// vocabulary ["'", " ", "a", "b", "c", "_"], blank = 5
	frame := []float64{0.01, 0.01, 0.6, 0.3, 0.03, 0.05}
	got := Prune(frame, 5, 1.0, 2, false)
	// top 2 non-blank by prob: a(.6), b(.3); blank always included.
	want := []int{2, 3, 5}
	gotSyms := symbols(got)
	if len(gotSyms) != len(want) {
		t.Fatalf("Prune() = %v; want %v", gotSyms, want)
	}
	seen := map[int]bool{}
	for _, s := range gotSyms {
		seen[s] = true
	}
	for _, w := range want {
		if !seen[w] {
			t.Errorf("Prune() = %v; missing expected symbol %d", gotSyms, w)
		}
	}
}

func TestPruneBlankAlwaysIncluded(t *testing.T) {
	frame := []float64{0, 0, 0, 0, 0, 1}
	got := Prune(frame, 5, 1.0, 1, false)
	found := false
	for _, c := range got {
		if c.Symbol == 5 {
			found = true
		}
	}
	if !found {
		t.Errorf("Prune() = %v; blank symbol 5 must always be present", got)
	}
}

func TestPruneCumulativeMass(t *testing.T) {
	frame := []float64{0.0, 0.0, 0.7, 0.2, 0.1, 0.0}
	got := Prune(frame, 5, 0.75, 10, false)
	// "a" alone (0.7) stays below 0.75, so "b" is also taken (0.9 >= 0.75) and selection stops there
	var nonBlank int
	for _, c := range got {
		if c.Symbol != 5 {
			nonBlank++
		}
	}
	if nonBlank != 2 {
		t.Errorf("Prune() kept %d non-blank candidates; want 2", nonBlank)
	}
}

func TestPruneDeterministicTiebreak(t *testing.T) {
	frame := []float64{0.0, 0.0, 0.5, 0.5, 0.0, 0.0}
	got := Prune(frame, 5, 1.0, 10, false)
	if len(got) < 2 || got[0].Symbol != 2 || got[1].Symbol != 3 {
		t.Errorf("Prune() = %v; want symbol 2 before symbol 3 on tie", got)
	}
}

func TestPruneLogInput(t *testing.T) {
	frame := []float64{math.Log(0.1), math.Log(0.9)}
	got := Prune(frame, 1, 1.0, 2, true)
	if len(got) == 0 || got[0].Symbol != 1 {
		t.Errorf("Prune() with logInput = %v; want symbol 1 first", got)
	}
}

func TestPruneUnprunedMatchesFullBeam(t *testing.T) {
	frame := []float64{0.1, 0.2, 0.3, 0.15, 0.15, 0.1}
	got := Prune(frame, 5, 1.0, len(frame), false)
	if len(got) != len(frame) {
		t.Errorf("Prune() with cutoffProb=1.0, cutoffTopN=V returned %d candidates; want %d (all symbols)", len(got), len(frame))
	}
}
