package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCoversAllRecords(t *testing.T) {
	cases := []struct {
		name      string
		total     int
		batchSize int
		batches   int
	}{
		{"exact multiple", 100, 50, 2},
		{"short tail", 10, 3, 4},
		{"single batch", 5, 50, 1},
		{"one record", 1, 1, 1},
		{"batch size one", 4, 1, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			batches := Partition(tc.total, tc.batchSize)
			require.Len(t, batches, tc.batches)

			next := 0
			for i, b := range batches {
				assert.Equal(t, i, b.Index)
				assert.Equal(t, next, b.Start, "batch %d must start where the previous ended", i)
				assert.Greater(t, b.End, b.Start)
				if i < len(batches)-1 {
					assert.Equal(t, tc.batchSize, b.Len())
				}
				next = b.End
			}
			assert.Equal(t, tc.total, next, "batches must cover every record")
		})
	}
}

func TestPartitionExampleSizes(t *testing.T) {
	batches := Partition(10, 3)

	sizes := make([]int, len(batches))
	for i, b := range batches {
		sizes[i] = b.Len()
	}
	assert.Equal(t, []int{3, 3, 3, 1}, sizes)
}

func TestPartitionDegenerateInputs(t *testing.T) {
	assert.Nil(t, Partition(0, 10))
	assert.Nil(t, Partition(10, 0))
	assert.Nil(t, Partition(-1, 10))
}

func TestPartitionDeterministic(t *testing.T) {
	a := Partition(1234, 50)
	b := Partition(1234, 50)
	assert.Equal(t, a, b)
}
