package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outcome is one recorded call: true for success.
type outcome bool

const (
	ok   outcome = true
	fail outcome = false
)

func replay(b *Breaker, outcomes ...outcome) (opened, closed int) {
	for _, o := range outcomes {
		var change StateChange
		if o {
			_, change = b.RecordSuccess()
		} else {
			_, change = b.RecordFailure()
		}
		if change.Opened {
			opened++
		}
		if change.Closed {
			closed++
		}
	}
	return opened, closed
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name       string
		outcomes   []outcome
		wantOpen   bool
		wantOpened int
		wantClosed int
	}{
		{name: "fresh breaker is closed", wantOpen: false},
		{name: "below threshold stays closed", outcomes: []outcome{fail, fail}, wantOpen: false},
		{name: "threshold opens once", outcomes: []outcome{fail, fail, fail, fail}, wantOpen: true, wantOpened: 1},
		{name: "success resets the failure streak", outcomes: []outcome{fail, fail, ok, fail, fail}, wantOpen: false},
		{name: "one success while open is not enough", outcomes: []outcome{fail, fail, fail, ok}, wantOpen: true, wantOpened: 1},
		{name: "success streak closes", outcomes: []outcome{fail, fail, fail, ok, ok}, wantOpen: false, wantOpened: 1, wantClosed: 1},
		{name: "failure while open restarts the success streak", outcomes: []outcome{fail, fail, fail, ok, fail, ok}, wantOpen: true, wantOpened: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("idempotency", WithFailureThreshold(3), WithSuccessThreshold(2))
			opened, closed := replay(b, tt.outcomes...)

			assert.Equal(t, tt.wantOpen, b.IsOpen())
			assert.Equal(t, tt.wantOpened, opened)
			assert.Equal(t, tt.wantClosed, closed)
		})
	}
}

func TestBreakerDefaultsAndName(t *testing.T) {
	b := New("idempotency", WithFailureThreshold(0), WithSuccessThreshold(-1))
	assert.Equal(t, "idempotency", b.Name())
	assert.Equal(t, "closed", b.State().String())

	opened, _ := replay(b, fail, fail, fail, fail)
	assert.Zero(t, opened, "invalid thresholds fall back to the defaults")
	opened, _ = replay(b, fail)
	assert.Equal(t, 1, opened)
	assert.Equal(t, "open", b.State().String())
}

func TestBreakerConcurrentFailuresOpenOnce(t *testing.T) {
	b := New("idempotency", WithFailureThreshold(5))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.True(t, b.IsOpen())
	assert.Equal(t, 1, opened)
}
