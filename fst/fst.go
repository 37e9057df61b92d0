/*
Package fst implements the dictionary admissibility oracle that
word-mode language model fusion consults while growing the path
trie: "may the search extend this prefix with vocabulary symbol c?"

Construction of a real dictionary finite-state transducer is out of
scope; what matters to the decoder is the contract it must satisfy:
arc-sorting on input, and a matcher that answers admissibility queries
from a state. This package implements that contract as a compact trie
over vocabulary-index edges — the same shape as a prefix dictionary,
generalized from characters to arbitrary vocabulary symbol indices,
since any deterministic automaton with this query shape is an
acceptable substitute for a real FST here.

Key features:
  - Dictionary: built from a word list by NewDictionary, which adds
    the words one at a time.
  - Copy: returns an arc-sorted, independent snapshot safe to share
    read-only across goroutines — each utterance in a batch decode
    gets its own via this, so no state mutates underneath another.
  - Matcher + State: the read path; State is a small value type so
    walking the automaton allocates nothing.

Complexity: NewDictionary is O(len(word)) per word added; Copy is
O(total edges); Matcher.Match is O(log d) where d is a state's
out-degree, via binary search over the sorted edge list.
*/
package fst

import "sort"

// State names a node in a dictionary automaton. The zero value is
// not a valid state on its own; obtain one from Matcher.Start or
// Matcher.Match.
type State int32

// edge is one admissible transition out of a state.
type edge struct {
	symbol int
	target int32
}

type fstState struct {
	edges  []edge
	sorted bool
	isWord bool
}

// Dictionary is a trie over vocabulary-symbol edges: NewDictionary
// builds it one word at a time (each word spelled out as a sequence of
// vocabulary indices), Copy freezes an arc-sorted snapshot for
// read-only concurrent use.
type Dictionary struct {
	states []fstState
}

// NewDictionary builds a Dictionary whose admissible words are words,
// each tokenized into vocabulary symbol indices via vocab. A word is
// cut off at its first rune not present in vocab: the part before that
// rune stays admissible as a prefix, but the word is not marked as a
// complete entry and the rest of it is not added.
func NewDictionary(words []string, vocab []string) *Dictionary {
	index := make(map[string]int, len(vocab))
	for i, s := range vocab {
		index[s] = i
	}
	d := &Dictionary{states: []fstState{{}}} // state 0 is the start state
	for _, w := range words {
		d.addWord(w, index)
	}
	return d
}

func (d *Dictionary) addWord(word string, index map[string]int) {
	state := int32(0)
	for _, r := range word {
		sym, ok := index[string(r)]
		if !ok {
			return
		}
		state = d.findOrAdd(state, sym)
	}
	d.states[state].isWord = true
}

func (d *Dictionary) findOrAdd(state int32, sym int) int32 {
	for _, e := range d.states[state].edges {
		if e.symbol == sym {
			return e.target
		}
	}
	next := int32(len(d.states))
	d.states = append(d.states, fstState{})
	d.states[state].edges = append(d.states[state].edges, edge{symbol: sym, target: next})
	return next
}

// HasEntries reports whether d holds at least one word. A dictionary
// built from words whose runes are entirely absent from vocab (see
// NewDictionary) reduces to just the start state and reports false
// here, indistinguishable from one built from an empty word list.
func (d *Dictionary) HasEntries() bool { return len(d.states) > 1 }

// Copy returns an arc-sorted, independent snapshot of d as a Matcher,
// ready to be attached to a trie root. This is the step that makes
// decoding safe for concurrent use of a shared scorer: every utterance
// copies (and sorts) the dictionary before walking it, so no
// goroutine's traversal can observe another's.
func (d *Dictionary) Copy() *Matcher {
	states := make([]fstState, len(d.states))
	for i, s := range d.states {
		edges := make([]edge, len(s.edges))
		copy(edges, s.edges)
		sort.Slice(edges, func(a, b int) bool { return edges[a].symbol < edges[b].symbol })
		states[i] = fstState{edges: edges, sorted: true, isWord: s.isWord}
	}
	return &Matcher{states: states}
}

// Matcher is an arc-sorted, read-only snapshot of a Dictionary.
type Matcher struct {
	states []fstState
}

// Start returns the dictionary's start state — also the state the
// matcher resets to at a word boundary (the space symbol).
func (m *Matcher) Start() State { return State(0) }

// Match looks for an outgoing arc labeled sym from s. ok is false
// when no such arc exists, meaning sym is inadmissible from s.
func (m *Matcher) Match(s State, sym int) (State, bool) {
	edges := m.states[s].edges
	lo, hi := 0, len(edges)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case edges[mid].symbol == sym:
			return State(edges[mid].target), true
		case edges[mid].symbol < sym:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// IsWord reports whether s corresponds to a complete dictionary
// entry (as opposed to merely a prefix of one).
func (m *Matcher) IsWord(s State) bool { return m.states[s].isWord }
