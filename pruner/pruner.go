/*
Package pruner narrows the V-wide symbol axis of a single CTC output
frame down to the handful of candidates worth expanding into the
beam.

Key features:
  - Top-N: never returns more than cutoffTopN symbols.
  - Cumulative-mass: stops early once the linear probability mass
    already collected reaches cutoffProb, so a sharply peaked frame
    short-circuits well before cutoffTopN.
  - The blank symbol is exempt from both cutoffs — it is always
    returned, since the beam update treats the blank transition
    separately from every other symbol (see the decoder package).
  - Deterministic: ties in log-probability are broken by the lower
    symbol index, so Prune never depends on map iteration order or
    sort stability quirks.

Internally this is a bounded top-k extraction backed by a max-heap,
the same asymptotic shape as popping the k largest elements from a
priority queue one at a time, adapted from a generic Ordered-typed
heap to one ordered by a caller-supplied comparator over a struct
(log-probability primary, symbol index as tiebreak), since Candidate
isn't itself an orderable scalar.

Complexity: O(V + k log V) where k = min(cutoffTopN, V).
*/
package pruner

import (
	"math"

	"github.com/ctcbeam/ctcbeam/logmath"
)

// Candidate is one admissible (symbol, log-probability) pair for a
// single timestep.
type Candidate struct {
	Symbol  int
	LogProb float64
}

// maxHeap is a binary max-heap over Candidate, ordered by a
// caller-supplied comparator. Unexported: this is an implementation
// detail of Prune, not a reusable general-purpose heap.
type maxHeap struct {
	data []Candidate
	cmp  func(a, b Candidate) bool // true if a has higher priority than b
}

func (h *maxHeap) push(c Candidate) {
	h.data = append(h.data, c)
	k := len(h.data) - 1
	for k > 0 {
		parent := (k - 1) / 2
		if h.cmp(h.data[k], h.data[parent]) {
			h.data[k], h.data[parent] = h.data[parent], h.data[k]
			k = parent
		} else {
			break
		}
	}
}

func (h *maxHeap) pop() Candidate {
	top := h.data[0]
	last := len(h.data) - 1
	h.data[0] = h.data[last]
	h.data = h.data[:last]

	parent := 0
	child := 1
	for child < len(h.data) {
		if child+1 < len(h.data) && h.cmp(h.data[child+1], h.data[child]) {
			child++
		}
		if h.cmp(h.data[child], h.data[parent]) {
			h.data[child], h.data[parent] = h.data[parent], h.data[child]
			parent = child
			child = 2*parent + 1
		} else {
			break
		}
	}
	return top
}

// cmpByLogProbDesc orders Candidate by log-probability descending,
// breaking ties by the lower symbol index first.
func cmpByLogProbDesc(a, b Candidate) bool {
	if a.LogProb != b.LogProb {
		return a.LogProb > b.LogProb
	}
	return a.Symbol < b.Symbol
}

// Prune selects the symbols worth expanding at one timestep.
//
// frame is the raw probability or log-probability row for this
// timestep (length V); logInput selects which. blankID is always
// included in the result, exempt from cutoffProb/cutoffTopN.
// Candidates are returned in descending log-probability order
// (blank included in its sorted position), ties broken by symbol
// index ascending.
func Prune(frame []float64, blankID int, cutoffProb float64, cutoffTopN int, logInput bool) []Candidate {
	h := &maxHeap{cmp: cmpByLogProbDesc}
	var blankLogProb float64
	for symbol, p := range frame {
		lp := p
		if !logInput {
			lp = logmath.SafeLog(p)
		}
		if symbol == blankID {
			blankLogProb = lp
			continue
		}
		h.push(Candidate{Symbol: symbol, LogProb: lp})
	}

	selected := make([]Candidate, 0, cutoffTopN+1)
	var mass float64
	for len(h.data) > 0 && len(selected) < cutoffTopN {
		c := h.pop()
		selected = append(selected, c)
		if cutoffProb < 1.0 {
			mass += linearProb(c.LogProb, logInput)
			if mass >= cutoffProb {
				break
			}
		}
	}

	return insertSorted(selected, Candidate{Symbol: blankID, LogProb: blankLogProb})
}

// linearProb converts a candidate's stored log-probability back to
// linear space for cumulative-mass accounting. Candidates always
// carry a natural-log value by the time they reach here, since Prune
// normalizes at ingestion regardless of logInput.
func linearProb(logProb float64, _ bool) float64 {
	if logProb <= logmath.NegInf {
		return 0
	}
	return math.Exp(logProb)
}

// insertSorted inserts c into the descending-sorted selected slice,
// preserving the tiebreak rule (lower symbol index first on equal
// log-probability).
func insertSorted(selected []Candidate, c Candidate) []Candidate {
	i := 0
	for i < len(selected) && cmpByLogProbDesc(selected[i], c) {
		i++
	}
	selected = append(selected, Candidate{})
	copy(selected[i+1:], selected[i:])
	selected[i] = c
	return selected
}
