package gate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Exclusive(t *testing.T) {
	g := New()

	var inside int
	var maxInside int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(command bool) {
			defer wg.Done()
			if command {
				g.LockCommand()
			} else {
				g.Lock()
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			g.Unlock()
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside, "holders must never overlap")
}

func TestGate_CommandsWaiting(t *testing.T) {
	g := New()
	require.False(t, g.CommandsWaiting())

	// Hold the slot as a poll, then queue a command behind it.
	g.Lock()
	acquired := make(chan struct{})
	go func() {
		g.LockCommand()
		close(acquired)
	}()

	require.Eventually(t, g.CommandsWaiting, time.Second, time.Millisecond)

	g.Unlock()
	<-acquired
	assert.False(t, g.CommandsWaiting(), "count drops once the command holds the slot")
	g.Unlock()
}
