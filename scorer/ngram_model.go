/*
ngram_model.go implements a backoff n-gram language model, adapted
from kho-fslm's Model/Builder state machine (_examples/kho-fslm/fslm.go):
states indexed by a small integer id, transitions keyed by
(state, token) pairs, and a back-off chain walked from a state until a
transition is found or the empty state is reached.

Two differences from kho-fslm, both because this model serves a CTC
decoder's Scorer contract rather than SRILM-compatible ARPA loading:
  - weights are natural-log conditional probabilities the caller
    supplies directly (no base-10 SRILM convention, no WEIGHT_LOG0
    sentinel distinct from logmath.NegInf).
  - the vocabulary is an open set of strings (words or characters)
    rather than a fixed Unk/BOS/EOS triple; unknown tokens simply
    score NegInf rather than resolving to a WORD_UNK id.
*/
package scorer

import (
	"log"

	"github.com/ctcbeam/ctcbeam/logmath"
)

type stateID int32

const stateEmpty stateID = 0

type ngramState struct {
	backOffState  stateID
	backOffWeight float64
}

type transitionKey struct {
	state stateID
	token int32
}

type transitionTarget struct {
	target stateID
	weight float64
}

// NGramModel is a backoff n-gram language model over string tokens.
type NGramModel struct {
	// Order is the maximum number of trailing tokens (context +
	// predicted token) a query considers.
	Order int
	// BOS/EOS bracket a sentence for GetSentLogProb; BOS is consumed
	// as context but never itself scored, matching kho-fslm's
	// treatment of WORD_BOS.
	BOS, EOS string

	tokenIDs  map[string]int32
	tokenStrs []string
	states    []ngramState
	trans     map[transitionKey]transitionTarget
}

func (m *NGramModel) tokenID(tok string) (int32, bool) {
	id, ok := m.tokenIDs[tok]
	return id, ok
}

// nextState walks the back-off chain from p looking for a transition
// on tok, exactly as kho-fslm's Model.NextI does: accumulate back-off
// weight at every hop, stop at the first hit or at the empty state.
func (m *NGramModel) nextState(p stateID, tok int32) (q stateID, w float64) {
	next, ok := m.trans[transitionKey{p, tok}]
	for !ok && p != stateEmpty {
		s := m.states[p]
		p = s.backOffState
		w += s.backOffWeight
		next, ok = m.trans[transitionKey{p, tok}]
	}
	if ok {
		return next.target, w + next.weight
	}
	return stateEmpty, logmath.NegInf
}

// contextState advances from the empty state through tokens,
// returning the state reached. Unknown or unreachable tokens reset
// to the empty state rather than failing the whole query, mirroring
// how an n-gram model backs off to a shorter context.
func (m *NGramModel) contextState(tokens []string) stateID {
	s := stateEmpty
	for _, t := range tokens {
		id, ok := m.tokenID(t)
		if !ok {
			s = stateEmpty
			continue
		}
		q, w := m.nextState(s, id)
		if w <= logmath.NegInf {
			s = stateEmpty
			continue
		}
		s = q
	}
	return s
}

// GetLogCondProb returns log P(ngram[last] | ngram[:last]).
func (m *NGramModel) GetLogCondProb(ngram []string) float64 {
	if len(ngram) == 0 {
		return logmath.NegInf
	}
	context := ngram[:len(ngram)-1]
	last := ngram[len(ngram)-1]
	id, ok := m.tokenID(last)
	if !ok {
		return logmath.NegInf
	}
	p := m.contextState(context)
	_, w := m.nextState(p, id)
	return w
}

// GetSentLogProb returns the sentence-level log-probability of words
// bracketed by BOS/EOS, windowed to the model's order. BOS is
// consumed as context for the first word but is never itself scored,
// matching kho-fslm's treatment of a lexical transition out of the
// empty state consuming WORD_BOS.
func (m *NGramModel) GetSentLogProb(words []string) float64 {
	seq := make([]string, 0, len(words)+2)
	seq = append(seq, m.BOS)
	seq = append(seq, words...)
	seq = append(seq, m.EOS)

	total := 0.0
	for i := 1; i < len(seq); i++ {
		start := i + 1 - m.Order
		if start < 0 {
			start = 0
		}
		total += m.GetLogCondProb(seq[start : i+1])
	}
	return total
}

// Builder assembles an NGramModel from literal n-gram entries, the
// same shape as kho-fslm's Builder.AddNGram/Dump.
type Builder struct {
	order     int
	bos, eos  string
	tokenIDs  map[string]int32
	tokenStrs []string
	states    []ngramState
	nexts     []map[int32]transitionTarget
}

// NewBuilder constructs a Builder for a model with the given maximum
// order and sentence-boundary tokens.
func NewBuilder(order int, bos, eos string) *Builder {
	b := &Builder{
		order:     order,
		bos:       bos,
		eos:       eos,
		tokenIDs:  map[string]int32{},
		tokenStrs: nil,
		states:    nil,
		nexts:     nil,
	}
	b.newState() // stateEmpty
	return b
}

func (b *Builder) idOrAdd(tok string) int32 {
	if id, ok := b.tokenIDs[tok]; ok {
		return id
	}
	id := int32(len(b.tokenStrs))
	b.tokenStrs = append(b.tokenStrs, tok)
	b.tokenIDs[tok] = id
	return id
}

func (b *Builder) newState() stateID {
	s := stateID(len(b.states))
	b.states = append(b.states, ngramState{backOffState: -1})
	b.nexts = append(b.nexts, map[int32]transitionTarget{})
	return s
}

func (b *Builder) findNextState(p stateID, tok int32) stateID {
	tw, ok := b.nexts[p][tok]
	if ok {
		return tw.target
	}
	q := b.newState()
	b.nexts[p][tok] = transitionTarget{target: q, weight: 0}
	return q
}

func (b *Builder) findState(context []string) stateID {
	p := stateEmpty
	for _, w := range context {
		p = b.findNextState(p, b.idOrAdd(w))
	}
	return p
}

// AddNGram adds one n-gram entry: P(word | context) = logProb, with
// word's own back-off weight backOff used when word starts a longer
// context later.
func (b *Builder) AddNGram(context []string, word string, logProb, backOff float64) {
	if len(context) > 0 && word == b.bos {
		log.Printf("scorer: n-gram ending in begin-of-sentence token %q with non-trivial context %v; such an n-gram should not occur", word, context)
	}
	if word == b.eos && backOff != 0 {
		log.Printf("scorer: non-zero back-off %g for an n-gram ending in end-of-sentence token %q", backOff, word)
	}

	p := b.findState(context)
	id := b.idOrAdd(word)
	q := b.findNextState(p, id)
	b.nexts[p][id] = transitionTarget{target: q, weight: logProb}
	b.states[q].backOffWeight = backOff
}

// Dump finalizes the Builder into an NGramModel. The Builder must not
// be used afterward.
func (b *Builder) Dump() *NGramModel {
	b.link()

	trans := make(map[transitionKey]transitionTarget)
	for p, next := range b.nexts {
		for tok, tw := range next {
			trans[transitionKey{stateID(p), tok}] = tw
		}
	}
	return &NGramModel{
		Order:     b.order,
		BOS:       b.bos,
		EOS:       b.eos,
		tokenIDs:  b.tokenIDs,
		tokenStrs: b.tokenStrs,
		states:    b.states,
		trans:     trans,
	}
}

// link resolves every state's back-off target, following the same
// shape as kho-fslm's Builder.link/linkTransition: states reachable
// directly from the empty state back off to it, and every other
// state's back-off is the nearest ancestor (by context truncation)
// that has at least one outgoing transition.
func (b *Builder) link() {
	for _, tw := range b.nexts[stateEmpty] {
		b.states[tw.target].backOffState = stateEmpty
	}
	for i := 1; i < len(b.nexts); i++ {
		for tok, tw := range b.nexts[i] {
			if b.states[tw.target].backOffState == -1 {
				b.linkTransition(stateID(i), tok, tw.target)
			}
		}
	}
	for i := range b.states {
		if b.states[i].backOffState == -1 {
			b.states[i].backOffState = stateEmpty
		}
	}
}

func (b *Builder) linkTransition(p stateID, tok int32, q stateID) (stateID, float64) {
	if b.states[q].backOffState != -1 {
		return b.states[q].backOffState, b.states[q].backOffWeight
	}
	pBack := b.states[p].backOffState
	if pBack == -1 {
		pBack = stateEmpty
	}
	twBack, ok := b.nexts[pBack][tok]
	for !ok && pBack != stateEmpty {
		pBack = b.states[pBack].backOffState
		if pBack == -1 {
			pBack = stateEmpty
			break
		}
		twBack, ok = b.nexts[pBack][tok]
	}
	if !ok {
		b.states[q].backOffState = stateEmpty
		return stateEmpty, b.states[q].backOffWeight
	}
	qBack := twBack.target
	if len(b.nexts[qBack]) == 0 {
		qBackBack, w := b.linkTransition(pBack, tok, qBack)
		b.states[q].backOffState = qBackBack
		b.states[q].backOffWeight += w
	} else {
		b.states[q].backOffState = qBack
	}
	return b.states[q].backOffState, b.states[q].backOffWeight
}
