package ledger

import "time"

// FreezeClock pins the entity clock to t and returns a func restoring it.
func FreezeClock(t time.Time) func() {
	prev := now
	now = func() time.Time { return t }
	return func() { now = prev }
}
