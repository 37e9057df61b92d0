/*
Package batch fans a slice of independent per-utterance decodes out
across a bounded worker pool and gathers the results back in input
order.

Grounded on ericlingit-jieba-go's Tokenizer.CutParallel
(_examples/ericlingit-jieba-go/tokenizer.go): work items pushed onto a
channel, a fixed number of worker goroutines draining it, each result
tagged with the index of the work item it came from so the caller can
place it without needing completion order to match submission order.
This package writes each result directly into a pre-sized slice at its
index instead of jieba-go's collect-then-sort.Slice pass, since the
index is known up front here (one task per utterance) rather than
discovered by splitting blocks of text.
*/
package batch

import (
	"context"
	"sync"

	"github.com/ctcbeam/ctcbeam/decoder"
)

// Result is one utterance's outcome: either Hyps is populated, or Err
// explains why that single utterance failed to decode. One
// utterance's error never aborts the rest of the batch.
type Result struct {
	Hyps []decoder.Hypothesis
	Err  error
}

type task struct {
	index int
	probs [][]float64
}

// DecodeBatch decodes every utterance in probsBatch against the same
// vocabulary and configuration, using numProcesses worker goroutines.
// Results are returned in the same order as probsBatch regardless of
// which worker finished first.
//
// ctx is honored only between utterances: once a worker has started
// decoding an utterance it runs to completion (per-utterance decode is
// not preemptible), but a cancelled ctx stops any *unstarted* queued
// utterance from being picked up, and DecodeBatch returns ctx.Err()
// for every utterance it never got to.
func DecodeBatch(ctx context.Context, probsBatch [][][]float64, vocabulary []string, cfg decoder.Config, numProcesses int) ([]Result, error) {
	if err := validateBatch(numProcesses); err != nil {
		return nil, err
	}

	results := make([]Result, len(probsBatch))
	tasks := make(chan task, len(probsBatch))
	for i, probs := range probsBatch {
		tasks <- task{index: i, probs: probs}
	}
	close(tasks)

	var wg sync.WaitGroup
	wg.Add(numProcesses)
	for w := 0; w < numProcesses; w++ {
		go func() {
			defer wg.Done()
			for tk := range tasks {
				select {
				case <-ctx.Done():
					results[tk.index] = Result{Err: ctx.Err()}
					continue
				default:
				}
				hyps, err := decoder.Decode(tk.probs, vocabulary, cfg)
				results[tk.index] = Result{Hyps: hyps, Err: err}
			}
		}()
	}
	wg.Wait()

	return results, nil
}
