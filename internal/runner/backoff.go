package runner

import "time"

// Backoff computes reconnect delays: initial, doubling per consecutive
// failure, capped at max. Reset restores the initial delay after a
// successful handshake.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

// NewBackoff creates a backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if max <= 0 {
		max = 60 * time.Second
	}
	return &Backoff{
		initial: initial,
		max:     max,
		next:    initial,
	}
}

// Next returns the delay to sleep now and doubles the following one.
func (b *Backoff) Next() time.Duration {
	current := b.next
	doubled := current * 2
	if doubled > b.max {
		doubled = b.max
	}
	b.next = doubled
	return current
}

// Reset restores the initial delay.
func (b *Backoff) Reset() {
	b.next = b.initial
}
