package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/junhyuk-choi/labelpipe/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClassifier returns the queued outcomes in order, then succeeds.
type scriptedClassifier struct {
	mu      sync.Mutex
	outcome []error
	calls   int
	content string
}

func (s *scriptedClassifier) Classify(ctx context.Context, texts []string) (*llm.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.outcome) > 0 {
		err := s.outcome[0]
		s.outcome = s.outcome[1:]
		if err != nil {
			return nil, err
		}
	}
	return &llm.Completion{Content: s.content}, nil
}

func (s *scriptedClassifier) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var (
	errRateLimited = errors.New("classify: API returned unexpected status code: 429 rate limit exceeded")
	errTimeout     = errors.New("classify: request timed out")
	errAuth        = errors.New("classify: API returned unexpected status code: 401 unauthorized")
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestRetrier(c Classifier, maxAttempts int) *retrier {
	r := newRetrier(c, Backoff{Min: 2 * time.Second, Max: 60 * time.Second}, maxAttempts, nil)
	r.sleep = noSleep
	return r
}

func TestRetrierSucceedsFirstAttempt(t *testing.T) {
	c := &scriptedClassifier{content: "[]"}
	r := newTestRetrier(c, 5)

	comp, err := r.classifyBatch(context.Background(), 0, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "[]", comp.Content)
	assert.Equal(t, 1, c.callCount())
}

func TestRetrierRecoversFromRateLimit(t *testing.T) {
	c := &scriptedClassifier{content: "[]", outcome: []error{errRateLimited}}
	r := newTestRetrier(c, 5)

	var waits []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	comp, err := r.classifyBatch(context.Background(), 1, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "[]", comp.Content)
	assert.Equal(t, 2, c.callCount())
	require.Len(t, waits, 1)
	assert.GreaterOrEqual(t, waits[0], 2*time.Second-200*time.Millisecond)
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	c := &scriptedClassifier{outcome: []error{errTimeout, errTimeout, errTimeout, errTimeout, errTimeout}}
	r := newTestRetrier(c, 5)

	_, err := r.classifyBatch(context.Background(), 2, []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 5, c.callCount())
}

func TestRetrierShortCircuitsFatal(t *testing.T) {
	c := &scriptedClassifier{outcome: []error{errAuth}}
	r := newTestRetrier(c, 5)

	_, err := r.classifyBatch(context.Background(), 3, []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalFailure)
	assert.Equal(t, 1, c.callCount(), "fatal errors must not consume retries")
}

func TestRetrierStopsOnCancelledContext(t *testing.T) {
	c := &scriptedClassifier{outcome: []error{errTimeout, errTimeout, errTimeout}}
	r := newTestRetrier(c, 5)

	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := r.classifyBatch(ctx, 4, []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalFailure)
	assert.Equal(t, 1, c.callCount())
}

func TestRetrierReportsRetryKinds(t *testing.T) {
	c := &scriptedClassifier{content: "[]", outcome: []error{errRateLimited, errTimeout}}

	var kinds []llm.ErrorKind
	r := newRetrier(c, Backoff{Min: time.Second, Max: time.Minute}, 5, func(k llm.ErrorKind) {
		kinds = append(kinds, k)
	})
	r.sleep = noSleep

	_, err := r.classifyBatch(context.Background(), 5, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []llm.ErrorKind{llm.KindRateLimit, llm.KindTransient}, kinds)
}
