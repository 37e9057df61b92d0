package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/ctcbeam/ctcbeam/decoder"
)

var testVocab = []string{"'", " ", "a", "b", "c", "_"}

func baseConfig() decoder.Config {
	return decoder.Config{
		BeamSize:   3,
		CutoffProb: 1.0,
		CutoffTopN: len(testVocab),
		BlankID:    5,
		LogInput:   false,
	}
}

func symbolsEqual(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// S6: decode_batch([S1, S3], num_processes=2)[0] equals the S1
// result and [1] equals the S3 result, irrespective of scheduling.
func TestScenarioS6BatchOrder(t *testing.T) {
	s1 := [][]float64{
		{0, 0, 0, 0, 0, 1},
		{0, 0, 0, 0, 0, 1},
		{0, 0, 0, 0, 0, 1},
	}
	s3 := [][]float64{
		{0, 0, 1, 0, 0, 0},
		{0, 0, 1, 0, 0, 0},
	}

	results, err := DecodeBatch(context.Background(), [][][]float64{s1, s3}, testVocab, baseConfig(), 2)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d; want 2", len(results))
	}

	want1, err := decoder.Decode(s1, testVocab, baseConfig())
	if err != nil {
		t.Fatalf("Decode(s1): %v", err)
	}
	want3, err := decoder.Decode(s3, testVocab, baseConfig())
	if err != nil {
		t.Fatalf("Decode(s3): %v", err)
	}

	if results[0].Err != nil || !symbolsEqual(results[0].Hyps[0].Symbols, want1[0].Symbols) {
		t.Errorf("results[0] = %+v; want top symbols %v", results[0], want1[0].Symbols)
	}
	if results[1].Err != nil || !symbolsEqual(results[1].Hyps[0].Symbols, want3[0].Symbols) {
		t.Errorf("results[1] = %+v; want top symbols %v", results[1], want3[0].Symbols)
	}
}

// Property: batch equivalence. decode_batch(...)[i] == decode(Xi) for
// any num_processes >= 1.
func TestBatchEquivalenceAcrossWorkerCounts(t *testing.T) {
	batchInputs := [][][]float64{
		{
			{.2, .1, .3, .2, .1, .1},
			{0, 0, 0, 0, 0, 1},
		},
		{
			{0, 0, 1, 0, 0, 0},
			{0, 0, 1, 0, 0, 0},
		},
		{
			{.1, .2, .1, .3, .2, .1},
			{0, 0, 0, 0, 0, 1},
			{.1, .2, .1, .3, .2, .1},
		},
	}
	for _, numProcesses := range []int{1, 2, 4} {
		results, err := DecodeBatch(context.Background(), batchInputs, testVocab, baseConfig(), numProcesses)
		if err != nil {
			t.Fatalf("DecodeBatch(numProcesses=%d): %v", numProcesses, err)
		}
		for i, probs := range batchInputs {
			want, err := decoder.Decode(probs, testVocab, baseConfig())
			if err != nil {
				t.Fatalf("Decode(%d): %v", i, err)
			}
			got := results[i]
			if got.Err != nil {
				t.Fatalf("results[%d].Err = %v", i, got.Err)
			}
			if len(got.Hyps) != len(want) {
				t.Fatalf("numProcesses=%d results[%d] len=%d; want %d", numProcesses, i, len(got.Hyps), len(want))
			}
			for j := range want {
				if got.Hyps[j].Score != want[j].Score || !symbolsEqual(got.Hyps[j].Symbols, want[j].Symbols) {
					t.Errorf("numProcesses=%d results[%d][%d] = %+v; want %+v", numProcesses, i, j, got.Hyps[j], want[j])
				}
			}
		}
	}
}

// A malformed utterance's error is isolated: it does not abort the
// rest of the batch.
func TestPerUtteranceErrorIsolation(t *testing.T) {
	good := [][]float64{
		{0, 0, 1, 0, 0, 0},
		{0, 0, 1, 0, 0, 0},
	}
	bad := [][]float64{
		{0, 0, 1, 0, 0}, // wrong width
	}

	results, err := DecodeBatch(context.Background(), [][][]float64{good, bad}, testVocab, baseConfig(), 2)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if results[0].Err != nil {
		t.Errorf("results[0].Err = %v; want nil", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("results[1].Err = nil; want shape-mismatch error")
	}
	if !errors.Is(results[1].Err, decoder.ErrShapeMismatch) {
		t.Errorf("results[1].Err = %v; want errors.Is(..., decoder.ErrShapeMismatch)", results[1].Err)
	}
}

func TestDecodeBatchRejectsZeroWorkers(t *testing.T) {
	_, err := DecodeBatch(context.Background(), [][][]float64{}, testVocab, baseConfig(), 0)
	if !errors.Is(err, ErrRangeViolation) {
		t.Errorf("err = %v; want errors.Is(err, ErrRangeViolation)", err)
	}
}

func TestDecodeBatchStopsUnstartedWorkOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probs := [][]float64{
		{0, 0, 1, 0, 0, 0},
		{0, 0, 1, 0, 0, 0},
	}
	batchInputs := make([][][]float64, 8)
	for i := range batchInputs {
		batchInputs[i] = probs
	}

	results, err := DecodeBatch(ctx, batchInputs, testVocab, baseConfig(), 2)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("results[%d].Err = %v; want context.Canceled", i, r.Err)
		}
	}
}
