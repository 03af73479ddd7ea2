package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/junhyuk-choi/labelpipe/internal/label"
)

// Checkpoint is the durable progress record for one labeling job. A batch
// index appears in CompletedBatches only after its results are present in
// Results, so a reload always reconstructs a consistent aggregator state.
type Checkpoint struct {
	RunID            string          `json:"run_id"`
	TotalRecords     int             `json:"total_records"`
	BatchSize        int             `json:"batch_size"`
	CompletedBatches []int           `json:"completed_batches"`
	Results          []*label.Result `json:"results"` // len == TotalRecords, nil for pending
	Timestamp        time.Time       `json:"timestamp"`
}

// Compatible rejects resuming with parameters that shift batch boundaries.
// Batch indices are positional, so a different batch size silently remaps
// completed work; refuse instead.
func (c *Checkpoint) Compatible(totalRecords, batchSize int) error {
	if c.TotalRecords != totalRecords {
		return fmt.Errorf("checkpoint has %d records, input has %d", c.TotalRecords, totalRecords)
	}
	if c.BatchSize != batchSize {
		return fmt.Errorf("checkpoint was written with batch_size=%d, run uses %d", c.BatchSize, batchSize)
	}
	if len(c.Results) != c.TotalRecords {
		return fmt.Errorf("checkpoint results length %d does not match %d records", len(c.Results), c.TotalRecords)
	}
	return nil
}

// Store owns the durable checkpoint file for one job. Saves are serialized:
// periodic triggers fire from concurrent completion callbacks, and two
// writers sharing the temporary file would tear it.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store writing to the given checkpoint path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the prior checkpoint, or nil when none exists.
func (s *Store) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", s.path, err)
	}
	return &cp, nil
}

// Save writes the checkpoint durably and atomically: a temporary file in the
// same directory replaces the previous one via rename, so the disk always
// holds a complete checkpoint. Concurrent saves take turns.
func (s *Store) Save(cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp.Timestamp = time.Now().UTC()

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close checkpoint: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Remove deletes the checkpoint after a completed run.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}
