/*
Package decoder implements the prefix beam search over a single
utterance's CTC output: the per-timestep expansion/pruning/refresh
loop that turns a T×V probability matrix into a ranked list of label
sequences, optionally fused with an external language model.

Grounded line-by-line on the original ctc_beam_search_decoder.cpp
implementation (yuetz/ctcdecode)'s ctc_beam_search_decoder function,
translated from its PathTrie and Scorer pointer plumbing into this
module's pathtrie.Node/scorer.Scorer types. Zubayear/ryushin has no
decoding loop of its own to ground this against directly, but the
control-flow shape here (validate inputs, then a straight-line
per-step loop with no goroutines) follows the same synchronous,
side-effect-explicit style ryushin uses throughout its own packages.
*/
package decoder

import (
	"math"
	"sort"

	"github.com/ctcbeam/ctcbeam/logmath"
	"github.com/ctcbeam/ctcbeam/pathtrie"
	"github.com/ctcbeam/ctcbeam/pruner"
	"github.com/ctcbeam/ctcbeam/scorer"
)

// Hypothesis is one ranked decode result.
type Hypothesis struct {
	Score     float64
	ApproxCTC float64
	Symbols   []int
	Timesteps []int
}

const noSpace = -2

// spaceIndex returns the vocabulary index of " ", or noSpace if the
// vocabulary has none.
func spaceIndex(vocabulary []string) int {
	for i, s := range vocabulary {
		if s == " " {
			return i
		}
	}
	return noSpace
}

// Decode runs prefix beam search over probs (one utterance, T rows of
// length len(vocabulary)) and returns up to cfg.BeamSize hypotheses
// sorted by score descending.
func Decode(probs [][]float64, vocabulary []string, cfg Config) ([]Hypothesis, error) {
	if err := cfg.validate(probs, vocabulary); err != nil {
		return nil, err
	}

	spaceSymbol := spaceIndex(vocabulary)
	sc := cfg.Scorer
	var beta float64
	if sc != nil {
		beta = sc.Beta()
	}

	root := pathtrie.NewRoot()
	if sc != nil && !sc.IsCharacterBased() {
		if dict := sc.Dictionary(); dict != nil {
			root.AttachDictionary(dict.Copy())
		}
	}

	active := []*pathtrie.Node{root}

	for t, frame := range probs {
		active = sortActive(active)

		minCutoff := logmath.NegInf
		fullBeam := false
		if sc != nil {
			numPrefixes := len(active)
			if numPrefixes > cfg.BeamSize {
				numPrefixes = cfg.BeamSize
			}
			blankLogProb := frame[cfg.BlankID]
			if !cfg.LogInput {
				blankLogProb = logmath.SafeLog(blankLogProb)
			}
			minCutoff = active[numPrefixes-1].Score + blankLogProb - math.Max(0, beta)
			fullBeam = numPrefixes == cfg.BeamSize
		}

		cands := pruner.Prune(frame, cfg.BlankID, cfg.CutoffProb, cfg.CutoffTopN, cfg.LogInput)

		limit := len(active)
		if limit > cfg.BeamSize {
			limit = cfg.BeamSize
		}
		prefixes := active[:limit]

		for _, cand := range cands {
			c, logPc := cand.Symbol, cand.LogProb
			for _, prefix := range prefixes {
				if fullBeam && logPc+prefix.Score < minCutoff {
					break
				}
				expandOne(prefix, c, logPc, t, spaceSymbol, cfg.BlankID, sc)
			}
		}

		active = active[:0]
		root.IterateToVec(&active)

		if len(active) >= cfg.BeamSize {
			active = sortActive(active)
			for _, dead := range active[cfg.BeamSize:] {
				dead.Remove()
			}
			active = active[:cfg.BeamSize]
		}
	}

	active = sortActive(active)
	if sc != nil && !sc.IsCharacterBased() {
		closeout(active, cfg.BeamSize, spaceSymbol, sc)
	}

	limit := len(active)
	if limit > cfg.BeamSize {
		limit = cfg.BeamSize
	}
	top := sortActive(active[:limit])

	return buildHypotheses(top, sc, vocabulary), nil
}

// expandOne applies one (candidate symbol, prefix) pair's update,
// exactly as the three branches of the C++ loop body: blank, repeated
// symbol, and new-symbol extension are not mutually exclusive — a
// repeated symbol both updates prefix in place and may also spawn a
// new node via the blank-mediated transition.
func expandOne(prefix *pathtrie.Node, c int, logPc float64, t, spaceSymbol, blankID int, sc scorer.Scorer) {
	if c == blankID {
		prefix.LogProbBCur = logmath.LogSumExp(prefix.LogProbBCur, logPc+prefix.Score)
		return
	}

	if c == prefix.Character {
		prefix.LogProbNBCur = logmath.LogSumExp(prefix.LogProbNBCur, logPc+prefix.LogProbNBPrev)
	}

	next, ok := prefix.GetPathTrie(c, t, spaceSymbol)
	if !ok {
		return
	}

	logP := logmath.NegInf
	switch {
	case c == prefix.Character && prefix.LogProbBPrev > logmath.NegInf:
		logP = logPc + prefix.LogProbBPrev
	case c != prefix.Character:
		logP = logPc + prefix.Score
	}

	if sc != nil && (c == spaceSymbol || sc.IsCharacterBased()) {
		target := prefix
		if sc.IsCharacterBased() {
			target = next
		}
		ngram := sc.MakeNGram(target)
		logP += sc.GetLogCondProb(ngram)*sc.Alpha() + sc.Beta()
	}

	next.LogProbNBCur = logmath.LogSumExp(next.LogProbNBCur, logP)
}

// closeout scores each top prefix's trailing partial word, for
// word-mode scorers only, matching the C++'s is_empty/space_id guard:
// skip the root (empty prefix) and any prefix ending in a space.
func closeout(active []*pathtrie.Node, beamSize, spaceSymbol int, sc scorer.Scorer) {
	limit := len(active)
	if limit > beamSize {
		limit = beamSize
	}
	for _, prefix := range active[:limit] {
		if prefix.Character == pathtrie.RootCharacter || prefix.Character == spaceSymbol {
			continue
		}
		ngram := sc.MakeNGram(prefix)
		prefix.Score += sc.GetLogCondProb(ngram)*sc.Alpha() + sc.Beta()
	}
}

// buildHypotheses computes each top prefix's approx_ctc as a trailing
// pass over the already-sorted slice, never re-sorting by it (spec
// note: approx_ctc is non-authoritative).
func buildHypotheses(top []*pathtrie.Node, sc scorer.Scorer, vocabulary []string) []Hypothesis {
	hyps := make([]Hypothesis, len(top))
	for i, prefix := range top {
		symbols, timesteps := prefix.GetPathVec()
		approxCTC := prefix.Score
		if sc != nil {
			words := sc.SplitLabels(symbols, vocabulary)
			approxCTC -= float64(len(symbols))*sc.Beta() + sc.GetSentLogProb(words)*sc.Alpha()
		}
		hyps[i] = Hypothesis{
			Score:     prefix.Score,
			ApproxCTC: approxCTC,
			Symbols:   symbols,
			Timesteps: timesteps,
		}
	}
	return hyps
}

func sortActive(active []*pathtrie.Node) []*pathtrie.Node {
	sort.Slice(active, func(i, j int) bool { return pathtrie.PrefixCompare(active[i], active[j]) })
	return active
}
