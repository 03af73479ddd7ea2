package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/junhyuk-choi/labelpipe/internal/label"
	"github.com/junhyuk-choi/labelpipe/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingClassifier tracks in-flight concurrency and answers with a JSON
// array matching the batch length.
type countingClassifier struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32

	failBatch map[string]error // keyed by first text in the batch
}

func (c *countingClassifier) Classify(ctx context.Context, texts []string) (*llm.Completion, error) {
	cur := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		max := c.maxInFlight.Load()
		if cur <= max || c.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	c.calls.Add(1)

	// Let other workers overlap so the concurrency ceiling is observable.
	time.Sleep(5 * time.Millisecond)

	if len(texts) > 0 && c.failBatch != nil {
		if err, ok := c.failBatch[texts[0]]; ok {
			return nil, err
		}
	}

	items := make([]string, len(texts))
	for i := range texts {
		items[i] = fmt.Sprintf(`{"id":%d,"food_score":1,"service_score":0,"ambience_score":0,"price_score":0,"hygiene_score":0,"waiting_score":0,"accessibility_score":0,"racism_flag":0,"cash_only_flag":0,"comment":"ok"}`, i)
	}
	content := "["
	for i, it := range items {
		if i > 0 {
			content += ","
		}
		content += it
	}
	content += "]"
	return &llm.Completion{Content: content}, nil
}

func makeTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("review %d", i)
	}
	return texts
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	const total, batchSize, concurrency = 40, 2, 4

	c := &countingClassifier{}
	d := NewDispatcher(c, Backoff{Min: time.Millisecond, Max: time.Millisecond}, 1, concurrency, nil)

	batches := Partition(total, batchSize)
	var merged atomic.Int32
	err := d.Run(context.Background(), batches, makeTexts(total), func(b Batch, results []label.Result, comp *llm.Completion) error {
		merged.Add(1)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int32(len(batches)), merged.Load())
	assert.Equal(t, int32(len(batches)), c.calls.Load())
	assert.LessOrEqual(t, c.maxInFlight.Load(), int32(concurrency))
}

func TestDispatcherDeliversEveryBatchOnce(t *testing.T) {
	c := &countingClassifier{}
	d := NewDispatcher(c, Backoff{Min: time.Millisecond, Max: time.Millisecond}, 1, 3, nil)

	batches := Partition(10, 3)
	var mu sync.Mutex
	seen := map[int]int{}
	err := d.Run(context.Background(), batches, makeTexts(10), func(b Batch, results []label.Result, comp *llm.Completion) error {
		mu.Lock()
		defer mu.Unlock()
		seen[b.Index]++
		require.Len(t, results, b.Len())
		require.NotNil(t, comp)
		return nil
	})
	require.NoError(t, err)

	for _, b := range batches {
		assert.Equal(t, 1, seen[b.Index], "batch %d", b.Index)
	}
}

func TestDispatcherContinuesAfterExhaustedBatch(t *testing.T) {
	c := &countingClassifier{
		failBatch: map[string]error{"review 2": fmt.Errorf("request timed out")},
	}
	d := NewDispatcher(c, Backoff{Min: time.Millisecond, Max: time.Millisecond}, 2, 2, nil)

	batches := Partition(6, 2)
	var mu sync.Mutex
	outcomes := map[int]bool{} // batch index -> degraded
	err := d.Run(context.Background(), batches, makeTexts(6), func(b Batch, results []label.Result, comp *llm.Completion) error {
		mu.Lock()
		defer mu.Unlock()
		outcomes[b.Index] = comp == nil
		if comp == nil {
			for _, r := range results {
				require.False(t, r.Valid)
			}
		}
		return nil
	})
	require.NoError(t, err, "an exhausted batch degrades, it does not fail the run")

	assert.Equal(t, map[int]bool{0: false, 1: true, 2: false}, outcomes)
}

func TestDispatcherStopsOnFatalError(t *testing.T) {
	c := &countingClassifier{
		failBatch: map[string]error{"review 0": fmt.Errorf("401 unauthorized")},
	}
	d := NewDispatcher(c, Backoff{Min: time.Millisecond, Max: time.Millisecond}, 5, 1, nil)

	batches := Partition(20, 2)
	var merged atomic.Int32
	err := d.Run(context.Background(), batches, makeTexts(20), func(b Batch, results []label.Result, comp *llm.Completion) error {
		merged.Add(1)
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalFailure)
	assert.Less(t, merged.Load(), int32(len(batches)), "fatal failure must stop dispatch early")
}

func TestDispatcherHonorsCancelledContext(t *testing.T) {
	c := &countingClassifier{}
	d := NewDispatcher(c, Backoff{Min: time.Millisecond, Max: time.Millisecond}, 1, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx, Partition(10, 2), makeTexts(10), func(b Batch, results []label.Result, comp *llm.Completion) error {
		t.Error("no batch should complete under a cancelled context")
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, int32(0), c.calls.Load())
}

func TestDispatcherNoPendingBatches(t *testing.T) {
	c := &countingClassifier{}
	d := NewDispatcher(c, Backoff{Min: time.Millisecond, Max: time.Millisecond}, 1, 4, nil)

	err := d.Run(context.Background(), nil, nil, func(b Batch, results []label.Result, comp *llm.Completion) error {
		t.Error("no batches means no callbacks")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), c.calls.Load())
}
