package core

import "sync"

// DeltaTracker remembers the last value observed for each metric so a
// render can show the change since the previous one.
type DeltaTracker struct {
	mu   sync.Mutex
	prev map[string]Money
}

func NewDeltaTracker() *DeltaTracker {
	return &DeltaTracker{prev: make(map[string]Money)}
}

// Observe stores value as the latest for metric and returns the difference
// to the previously stored one. hadPrevious is false on the first call.
func (d *DeltaTracker) Observe(metric string, value Money) (delta Money, hadPrevious bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old, ok := d.prev[metric]
	d.prev[metric] = value
	if !ok {
		return Money{}, false
	}
	return value.Sub(old), true
}
