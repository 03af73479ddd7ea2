// Package pipeline schedules batched classification calls with bounded
// concurrency, retries, checkpointed resume and order-preserving merge.
package pipeline

// Batch is one contiguous slice of the input, identified by position.
// Start is inclusive, End exclusive.
type Batch struct {
	Index int
	Start int
	End   int
}

// Len returns the number of records in the batch.
func (b Batch) Len() int {
	return b.End - b.Start
}

// Partition splits total records into batches of batchSize, the last batch
// possibly shorter. Boundaries depend only on total and batchSize, so a
// resumed run with the same parameters sees identical batches.
func Partition(total, batchSize int) []Batch {
	if total <= 0 || batchSize <= 0 {
		return nil
	}

	n := (total + batchSize - 1) / batchSize
	batches := make([]Batch, 0, n)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		batches = append(batches, Batch{Index: len(batches), Start: start, End: end})
	}
	return batches
}
