package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), c.Load())
}

func TestTimer(t *testing.T) {
	now := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	timer := startTimerAt(clock)
	now = now.Add(1500 * time.Millisecond)

	assert.Equal(t, 1500*time.Millisecond, timer.Duration())
	assert.GreaterOrEqual(t, StartTimer().Duration(), time.Duration(0))
}
