package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/junhyuk-choi/labelpipe/internal/label"
)

// Aggregator owns the in-memory merged results for the current run. Batches
// complete in any order; results stay keyed by record index so the final
// output follows input order. All mutation goes through the mutex, giving
// the single-writer discipline the concurrent completion callbacks need.
type Aggregator struct {
	mu        sync.Mutex
	results   []*label.Result // index == record index, nil while pending
	completed map[int]struct{}
	interval  int // completions per checkpoint trigger
	sinceSave int
}

// NewAggregator creates an aggregator for total records, signalling a
// checkpoint every interval merged batches.
func NewAggregator(total, interval int) *Aggregator {
	return &Aggregator{
		results:   make([]*label.Result, total),
		completed: make(map[int]struct{}),
		interval:  interval,
	}
}

// Seed restores state from a loaded checkpoint. Call before dispatch.
func (a *Aggregator) Seed(cp *Checkpoint) {
	a.mu.Lock()
	defer a.mu.Unlock()

	copy(a.results, cp.Results)
	for _, idx := range cp.CompletedBatches {
		a.completed[idx] = struct{}{}
	}
}

// IsCompleted reports whether a batch was already merged (this run or a
// previous one).
func (a *Aggregator) IsCompleted(batchIndex int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.completed[batchIndex]
	return ok
}

// MergeBatch stores one batch's results and marks it complete. The returned
// flag is true when a periodic checkpoint is due; the caller owns actually
// persisting it.
func (a *Aggregator) MergeBatch(b Batch, results []label.Result) (bool, error) {
	if len(results) != b.Len() {
		return false, fmt.Errorf("batch %d: %d results for %d records", b.Index, len(results), b.Len())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range results {
		r := results[i]
		a.results[b.Start+i] = &r
	}
	a.completed[b.Index] = struct{}{}
	a.sinceSave++

	if a.sinceSave >= a.interval {
		a.sinceSave = 0
		return true, nil
	}
	return false, nil
}

// Checkpoint captures the current state as a durable record. The copy is
// taken under the lock so a concurrent merge can never tear it.
func (a *Aggregator) Checkpoint(runID string, totalRecords, batchSize int) *Checkpoint {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := make([]*label.Result, len(a.results))
	copy(results, a.results)

	batches := make([]int, 0, len(a.completed))
	for idx := range a.completed {
		batches = append(batches, idx)
	}
	sort.Ints(batches)

	return &Checkpoint{
		RunID:            runID,
		TotalRecords:     totalRecords,
		BatchSize:        batchSize,
		CompletedBatches: batches,
		Results:          results,
	}
}

// Results returns a snapshot of the merged results in record order.
func (a *Aggregator) Results() []*label.Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*label.Result, len(a.results))
	copy(out, a.results)
	return out
}

// CompletedCount returns how many batches have been merged so far.
func (a *Aggregator) CompletedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.completed)
}

// Counts reports merged records by outcome: fully labeled, fallback, and
// still pending.
func (a *Aggregator) Counts() (valid, fallback, pending int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range a.results {
		switch {
		case r == nil:
			pending++
		case r.Valid:
			valid++
		default:
			fallback++
		}
	}
	return valid, fallback, pending
}
