package ws

import (
	"sync/atomic"
	"time"
)

// Monitor tracks inbound frame liveness. The keepalive loop consults it to
// detect a hub that stopped talking without closing the connection.
type Monitor struct {
	lastReceived atomic.Int64 // unix nanoseconds
	timeout      time.Duration
}

func newMonitor(timeout time.Duration) *Monitor {
	m := &Monitor{timeout: timeout}
	m.Touch()
	return m
}

// Touch records that a frame was received.
func (m *Monitor) Touch() {
	m.lastReceived.Store(time.Now().UnixNano())
}

// LastReceived returns the time of the last inbound frame.
func (m *Monitor) LastReceived() time.Time {
	return time.Unix(0, m.lastReceived.Load())
}

// Elapsed returns the time since the last inbound frame.
func (m *Monitor) Elapsed() time.Duration {
	return time.Since(m.LastReceived())
}

// Expired reports whether the liveness window has been exceeded.
func (m *Monitor) Expired() bool {
	return m.timeout > 0 && m.Elapsed() > m.timeout
}
