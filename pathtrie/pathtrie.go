/*
Package pathtrie implements the path trie: a shared-prefix tree of
partial CTC hypotheses, each node tracking the blank/non-blank
log-probability split a prefix beam search needs.

This generalizes Zubayear/ryushin's trie package: children are keyed
by vocabulary symbol index instead of rune, the per-node payload is
CTC log-probability bookkeeping instead of an isEnd bool, and Remove
climbs parent pointers directly instead of walking an explicit stack
of visited (node, key) pairs, since every node here always carries a
parent reference — ryushin's trie.Trie.Remove builds its own stack
because trie.Node doesn't.

Unlike ryushin's trie, nodes here carry no mutex: a single utterance's
decode is single-threaded, so the concurrency boundary is a whole trie
(one per utterance in batch mode), not a node.

Key features:
  - GetPathTrie: on-demand child creation, gated by an optional
    dictionary matcher (word-mode LM fusion).
  - IterateToVec: the per-timestep promote-and-collect traversal.
  - Remove: prune a dead leaf and any now-childless ancestors, never
    touching the root.
  - PrefixCompare: the beam's total order.

Complexity: all operations here are O(depth) or O(subtree size),
matching ryushin's trie.
*/
package pathtrie

import (
	"sort"

	"github.com/ctcbeam/ctcbeam/fst"
	"github.com/ctcbeam/ctcbeam/logmath"
)

// RootCharacter is the sentinel symbol index carried by the root
// node, which never corresponds to a real vocabulary entry.
const RootCharacter = -1

// Node is one partial hypothesis in the beam search's prefix trie.
type Node struct {
	Character int // vocabulary symbol index labeling the edge from Parent; RootCharacter at the root.
	TimeStep  int // timestep this symbol was first committed, for alignment recovery.

	LogProbBPrev  float64 // log-prob the prefix ended in blank, as of the previous timestep.
	LogProbNBPrev float64 // log-prob the prefix did not end in blank, as of the previous timestep.
	LogProbBCur   float64 // current-timestep blank accumulator.
	LogProbNBCur  float64 // current-timestep non-blank accumulator.
	Score         float64 // cache of logsumexp(LogProbBPrev, LogProbNBPrev).

	ApproxCTC float64 // final rank-auxiliary score; never used for ordering.

	Parent   *Node
	children map[int]*Node

	matcher         *fst.Matcher
	dictionaryState fst.State
	hasDictionary   bool
}

// NewRoot returns a fresh root node: certainty that the empty prefix
// ends in blank, no dictionary attached.
func NewRoot() *Node {
	return &Node{
		Character:     RootCharacter,
		LogProbBPrev:  0,
		LogProbNBPrev: logmath.NegInf,
		LogProbBCur:   logmath.NegInf,
		LogProbNBCur:  logmath.NegInf,
		Score:         0,
		children:      make(map[int]*Node),
	}
}

// AttachDictionary arms word-mode FST gating on this node (meant to
// be called once, on the root, before decoding starts). The space
// symbol that resets the matcher is not set here; it is passed to
// each GetPathTrie call, where a value that never equals a real
// symbol index (e.g. -2) disables the reset-at-space rule.
func (n *Node) AttachDictionary(m *fst.Matcher) {
	n.matcher = m
	n.dictionaryState = m.Start()
	n.hasDictionary = true
}

// GetPathTrie returns the child of n labeled by symbol, creating it
// if absent. It returns (nil, false) when a dictionary matcher is
// attached and symbol is inadmissible from n's FST state (and symbol
// is not spaceSymbol, which always resets to the matcher's start
// state instead of consulting an arc). New nodes inherit the parent's
// matcher; their FST state is the arc target for symbol, or the
// matcher's start state when symbol is the space.
func (n *Node) GetPathTrie(symbol, timeStep int, spaceSymbol int) (*Node, bool) {
	if child, ok := n.children[symbol]; ok {
		return child, true
	}

	var childState fst.State
	hasDictionary := n.hasDictionary
	if hasDictionary {
		if symbol == spaceSymbol {
			childState = n.matcher.Start()
		} else {
			next, ok := n.matcher.Match(n.dictionaryState, symbol)
			if !ok {
				return nil, false
			}
			childState = next
		}
	}

	child := &Node{
		Character:     symbol,
		TimeStep:      timeStep,
		LogProbBPrev:  logmath.NegInf,
		LogProbNBPrev: logmath.NegInf,
		LogProbBCur:   logmath.NegInf,
		LogProbNBCur:  logmath.NegInf,
		Score:         logmath.NegInf,
		Parent:        n,
		children:      make(map[int]*Node),
		matcher:       n.matcher,
		hasDictionary: hasDictionary,
	}
	if hasDictionary {
		child.dictionaryState = childState
	}
	n.children[symbol] = child
	return child, true
}

// IterateToVec performs a post-order traversal from n, appending
// every node (including the root, which represents the empty
// prefix and is itself a valid hypothesis) to out while promoting
// each node's *Cur fields into *Prev and resetting *Cur to NegInf,
// and refreshing Score. This is the per-timestep beam refresh.
// Children are visited in ascending symbol order so the output order
// is the same on every run.
func (n *Node) IterateToVec(out *[]*Node) {
	keys := make([]int, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		n.children[k].IterateToVec(out)
	}
	n.LogProbBPrev = n.LogProbBCur
	n.LogProbNBPrev = n.LogProbNBCur
	n.LogProbBCur = logmath.NegInf
	n.LogProbNBCur = logmath.NegInf
	n.Score = logmath.LogSumExp(n.LogProbBPrev, n.LogProbNBPrev)
	*out = append(*out, n)
}

// GetPathVec walks from n to the root, producing the symbol and
// timestep sequence in forward order, omitting the root's sentinel.
func (n *Node) GetPathVec() (symbols []int, timesteps []int) {
	for cur := n; cur != nil && cur.Character != RootCharacter; cur = cur.Parent {
		symbols = append(symbols, cur.Character)
		timesteps = append(timesteps, cur.TimeStep)
	}
	reverseInts(symbols)
	reverseInts(timesteps)
	return symbols, timesteps
}

func reverseInts(xs []int) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// Remove detaches n from its parent; if the parent then has no live
// children and is not the root, Remove recursively removes the
// parent too. The root (Character == RootCharacter) is never removed.
func (n *Node) Remove() {
	if n.Character == RootCharacter {
		return
	}
	p := n.Parent
	if p == nil {
		return
	}
	delete(p.children, n.Character)
	if len(p.children) == 0 && p.Character != RootCharacter {
		p.Remove()
	}
}

// PrefixCompare orders a before b: by Score descending, then by
// Character descending on ties, for a deterministic tiebreak.
func PrefixCompare(a, b *Node) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Character > b.Character
}

// CollectTokens walks from n toward the root collecting up to k
// tokens (vocabulary symbol indices), nearest-ancestor-first reversed
// into chronological order, for Scorer.MakeNGram's use. The
// character-mode NGramScorer calls this; its word mode uses GetPathVec
// instead, since finding word boundaries needs the whole prefix.
func CollectTokens(n *Node, k int) []int {
	tokens := make([]int, 0, k)
	for cur := n; cur != nil && cur.Character != RootCharacter && len(tokens) < k; cur = cur.Parent {
		tokens = append(tokens, cur.Character)
	}
	reverseInts(tokens)
	return tokens
}
