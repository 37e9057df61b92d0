// Package scorer defines the contract the beam search consumes for
// language-model fusion and ships one concrete, testable
// implementation: a backoff n-gram model grounded on kho-fslm's
// Model/Builder state machine.
//
// Construction, training and loading of a real language model is out
// of scope for this module; NGramModel/NGramScorer exist so the
// Scorer contract and the beam search's fusion policy are exercisable
// and testable without a real corpus.
package scorer

import (
	"github.com/ctcbeam/ctcbeam/fst"
	"github.com/ctcbeam/ctcbeam/pathtrie"
)

// Scorer is the external language model collaborator the beam search
// queries during expansion and at end-of-utterance closeout.
// Implementations must be safe for concurrent reads: a single Scorer
// is shared read-only across every utterance in a batch decode.
type Scorer interface {
	// IsCharacterBased selects the fusion policy: true scores every
	// new symbol, false scores only at word boundaries.
	IsCharacterBased() bool

	// Alpha is the language model weight.
	Alpha() float64
	// Beta is the per-word-boundary insertion bonus.
	Beta() float64

	// MakeNGram extracts up to the model's order tokens trailing
	// node's prefix: characters in character mode, whitespace-
	// delimited words in word mode.
	MakeNGram(node *pathtrie.Node) []string

	// GetLogCondProb returns the conditional log-probability of
	// ngram's last token given the tokens preceding it.
	GetLogCondProb(ngram []string) float64

	// GetSentLogProb returns the sentence-level log-probability of
	// words, including boundary tokens, for approx_ctc closeout.
	GetSentLogProb(words []string) float64

	// SplitLabels maps a decoded symbol sequence to words (word mode
	// only; character-mode scorers may implement this as a no-op
	// single-token split).
	SplitLabels(symbolIndices []int, vocabulary []string) []string

	// Dictionary returns the FST gating which word continuations are
	// admissible. The beam search copies (arc-sorts) this once per
	// utterance before attaching it to that utterance's trie root, so
	// the same Scorer can be shared safely across a batch.
	Dictionary() *fst.Dictionary
}
