// Package gate serialises outbound device calls. The NanoKVM web
// server does not tolerate concurrent sessions well, so the poller and
// the command dispatcher share one Gate: at most one device call is in
// flight at any time, and a waiting command wins the next slot over a
// scheduled poll tick.
package gate

import (
	"sync"
	"sync/atomic"
)

type Gate struct {
	mu      sync.Mutex
	waiting atomic.Int32
}

func New() *Gate {
	return &Gate{}
}

// Lock acquires the device slot for a poll.
func (g *Gate) Lock() {
	g.mu.Lock()
}

// LockCommand acquires the device slot for a command. While the command
// waits it is counted, so the poller can yield its next tick.
func (g *Gate) LockCommand() {
	g.waiting.Add(1)
	g.mu.Lock()
	g.waiting.Add(-1)
}

func (g *Gate) Unlock() {
	g.mu.Unlock()
}

// CommandsWaiting reports whether a command is queued for the slot.
// The poller checks this before a periodic tick and skips the tick if
// true; the post-command refresh covers the missed cycle.
func (g *Gate) CommandsWaiting() bool {
	return g.waiting.Load() > 0
}
