package decoder

import (
	"fmt"

	"github.com/ctcbeam/ctcbeam/scorer"
)

// Config holds every tunable for a single decode. There are no
// implicit defaults — every field must be set explicitly rather than
// relying on zero-value behavior, since a zero CutoffProb or
// CutoffTopN is not a usable default.
type Config struct {
	BeamSize   int
	CutoffProb float64
	CutoffTopN int
	BlankID    int
	LogInput   bool
	Scorer     scorer.Scorer // nil disables LM fusion
}

// ErrShapeMismatch, ErrRangeViolation and ErrDictionaryMismatch
// classify why a decode was rejected. Use errors.Is to test a
// *DecodeError against them.
var (
	ErrShapeMismatch      = fmt.Errorf("ctcbeam: shape mismatch")
	ErrRangeViolation     = fmt.Errorf("ctcbeam: range violation")
	ErrDictionaryMismatch = fmt.Errorf("ctcbeam: dictionary mismatch")
)

// DecodeError reports a failed precondition, identifying which one.
type DecodeError struct {
	Field  string
	Reason string
	kind   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ctcbeam: %s: %s", e.Field, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.kind }

func newDecodeError(kind error, field, reason string) *DecodeError {
	return &DecodeError{Field: field, Reason: reason, kind: kind}
}

// validate checks every precondition before any trie allocation
// happens.
func (c Config) validate(probs [][]float64, vocabulary []string) error {
	v := len(vocabulary)
	if c.BlankID < 0 || c.BlankID >= v {
		return newDecodeError(ErrRangeViolation, "BlankID", fmt.Sprintf("must be in [0, %d), got %d", v, c.BlankID))
	}
	if c.BeamSize <= 0 {
		return newDecodeError(ErrRangeViolation, "BeamSize", "must be positive")
	}
	if c.CutoffTopN <= 0 || c.CutoffTopN > v {
		return newDecodeError(ErrRangeViolation, "CutoffTopN", fmt.Sprintf("must be in (0, %d]", v))
	}
	if c.CutoffProb <= 0 || c.CutoffProb > 1.0 {
		return newDecodeError(ErrRangeViolation, "CutoffProb", "must be in (0, 1]")
	}
	for t, row := range probs {
		if len(row) != v {
			return newDecodeError(ErrShapeMismatch, "probs", fmt.Sprintf("row %d has length %d, want %d (len(vocabulary))", t, len(row), v))
		}
	}
	if c.Scorer != nil && !c.Scorer.IsCharacterBased() {
		if dict := c.Scorer.Dictionary(); dict != nil && dict.HasEntries() {
			matcher := dict.Copy()
			admissible := false
			for sym := range vocabulary {
				if sym == c.BlankID {
					continue
				}
				if _, ok := matcher.Match(matcher.Start(), sym); ok {
					admissible = true
					break
				}
			}
			if !admissible {
				return newDecodeError(ErrDictionaryMismatch, "Scorer", "dictionary alphabet does not align with vocabulary: no vocabulary symbol is admissible from the dictionary's start state")
			}
		}
	}
	return nil
}
