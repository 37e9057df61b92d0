package scorer

import (
	"strings"

	"github.com/ctcbeam/ctcbeam/fst"
	"github.com/ctcbeam/ctcbeam/pathtrie"
)

// NGramScorer implements Scorer over an NGramModel and a dictionary
// FST, in either character or word fusion mode.
type NGramScorer struct {
	model      *NGramModel
	dictionary *fst.Dictionary
	alpha      float64
	beta       float64
	charBased  bool
	vocabulary []string
}

// NewNGramScorer constructs a Scorer. charBased selects the fusion
// policy (character-by-character vs. word-boundary); vocabulary must
// be the same vocabulary passed to decoder.Decode, since
// MakeNGram/SplitLabels translate symbol indices through it.
func NewNGramScorer(model *NGramModel, dictionary *fst.Dictionary, alpha, beta float64, charBased bool, vocabulary []string) *NGramScorer {
	return &NGramScorer{
		model:      model,
		dictionary: dictionary,
		alpha:      alpha,
		beta:       beta,
		charBased:  charBased,
		vocabulary: vocabulary,
	}
}

func (s *NGramScorer) IsCharacterBased() bool { return s.charBased }
func (s *NGramScorer) Alpha() float64         { return s.alpha }
func (s *NGramScorer) Beta() float64          { return s.beta }
func (s *NGramScorer) Dictionary() *fst.Dictionary {
	return s.dictionary
}

func (s *NGramScorer) symbolsToString(symbols []int) string {
	var sb strings.Builder
	for _, sym := range symbols {
		if sym < 0 || sym >= len(s.vocabulary) {
			continue
		}
		sb.WriteString(s.vocabulary[sym])
	}
	return sb.String()
}

// MakeNGram extracts the trailing tokens of node's prefix: in
// character mode the last Order vocabulary symbols as single-rune
// strings, via the trie's bounded ancestor walk; in word mode the
// last Order whitespace-delimited words, which needs the full prefix
// to find word boundaries.
func (s *NGramScorer) MakeNGram(node *pathtrie.Node) []string {
	if s.charBased {
		symbols := pathtrie.CollectTokens(node, s.model.Order)
		toks := make([]string, 0, len(symbols))
		for _, sym := range symbols {
			if sym < 0 || sym >= len(s.vocabulary) {
				continue
			}
			toks = append(toks, s.vocabulary[sym])
		}
		return toks
	}

	symbols, _ := node.GetPathVec()
	words := strings.Fields(s.symbolsToString(symbols))
	return lastN(words, s.model.Order)
}

func lastN(toks []string, n int) []string {
	if len(toks) <= n {
		return toks
	}
	return toks[len(toks)-n:]
}

func (s *NGramScorer) GetLogCondProb(ngram []string) float64 {
	return s.model.GetLogCondProb(ngram)
}

func (s *NGramScorer) GetSentLogProb(words []string) float64 {
	return s.model.GetSentLogProb(words)
}

// SplitLabels maps a decoded symbol sequence to whitespace-delimited
// words via vocabulary. vocabulary is accepted explicitly (rather
// than reused from construction), since split_labels is a pure
// function of the symbol sequence and whatever vocabulary it is
// asked to split against, not necessarily the one this Scorer was
// built with.
func (s *NGramScorer) SplitLabels(symbolIndices []int, vocabulary []string) []string {
	var sb strings.Builder
	for _, sym := range symbolIndices {
		if sym < 0 || sym >= len(vocabulary) {
			continue
		}
		sb.WriteString(vocabulary[sym])
	}
	return strings.Fields(sb.String())
}
