package pipeline

import "sync"

// State is the run controller's lifecycle phase.
type State string

const (
	StateInit        State = "init"
	StateLoading     State = "loading_checkpoint"
	StateDispatching State = "dispatching"
	StateCompleted   State = "completed"
	StateInterrupted State = "interrupted"
	StateFatal       State = "fatal"
)

// Snapshot is a point-in-time view of run progress for display.
type Snapshot struct {
	Input          string
	State          State
	TotalBatches   int
	DoneBatches    int // includes batches restored from the checkpoint
	SkippedBatches int
	TotalRecords   int
	Err            string
}

// Tracker publishes run progress to observers (the progress UI polls it).
// It never influences scheduling.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{State: StateInit}}
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	t.snap.State = s
	t.mu.Unlock()
}

func (t *Tracker) start(input string, totalBatches, totalRecords, skipped int) {
	t.mu.Lock()
	t.snap = Snapshot{
		Input:          input,
		State:          StateDispatching,
		TotalBatches:   totalBatches,
		DoneBatches:    skipped,
		SkippedBatches: skipped,
		TotalRecords:   totalRecords,
	}
	t.mu.Unlock()
}

func (t *Tracker) batchDone() {
	t.mu.Lock()
	t.snap.DoneBatches++
	t.mu.Unlock()
}

func (t *Tracker) fail(s State, err error) {
	t.mu.Lock()
	t.snap.State = s
	if err != nil {
		t.snap.Err = err.Error()
	}
	t.mu.Unlock()
}

// Current returns the latest progress snapshot.
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}
