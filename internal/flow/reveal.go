package flow

import "time"

// reveal schedules fn after the simulated network latency d and returns a
// cancel function. A zero delay runs fn before returning, which keeps tests
// and scripted usage synchronous. Cancelling after the timer fired is a no-op.
func reveal(d time.Duration, fn func()) (cancel func()) {
	if d <= 0 {
		fn()
		return func() {}
	}
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}
