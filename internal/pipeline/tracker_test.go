package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, StateInit, tr.Current().State)

	tr.start("reviews.parquet", 10, 500, 3)
	snap := tr.Current()
	assert.Equal(t, StateDispatching, snap.State)
	assert.Equal(t, "reviews.parquet", snap.Input)
	assert.Equal(t, 10, snap.TotalBatches)
	assert.Equal(t, 500, snap.TotalRecords)
	assert.Equal(t, 3, snap.SkippedBatches)
	assert.Equal(t, 3, snap.DoneBatches, "restored batches count as done")

	tr.batchDone()
	tr.batchDone()
	assert.Equal(t, 5, tr.Current().DoneBatches)

	tr.setState(StateCompleted)
	assert.Equal(t, StateCompleted, tr.Current().State)
}

func TestTrackerFail(t *testing.T) {
	tr := NewTracker()
	tr.start("reviews.parquet", 4, 200, 0)
	tr.fail(StateFatal, errors.New("invalid api key"))

	snap := tr.Current()
	assert.Equal(t, StateFatal, snap.State)
	assert.Equal(t, "invalid api key", snap.Err)
}
