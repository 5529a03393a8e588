package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_TickAdvancesByStep(t *testing.T) {
	clock := NewManualClock(time.UnixMilli(1000), time.Millisecond)

	assert.Equal(t, int64(1001), clock.Tick())
	assert.Equal(t, int64(1002), clock.Tick())
	assert.Equal(t, int64(1002), clock.Millis())
}

func TestManualClock_NowDoesNotAdvance(t *testing.T) {
	start := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	clock := NewManualClock(start, time.Second)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestManualClock_Advance(t *testing.T) {
	start := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	clock := NewManualClock(start, time.Millisecond)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), clock.Now())
}

func TestManualClock_ConcurrentTicksAreUnique(t *testing.T) {
	clock := NewManualClock(time.UnixMilli(0), time.Millisecond)
	const goroutines = 50
	const ticks = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)

	seen := make(chan int64, goroutines*ticks)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < ticks; j++ {
				seen <- clock.Tick()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		assert.False(t, unique[v], "tick values must be unique")
		unique[v] = true
	}
	assert.Len(t, unique, goroutines*ticks)
}
