package flow

import (
	"sync"
	"time"
)

// Countdown is the resend cooldown: a seconds counter that decrements once
// per interval while positive and holds at zero. The ticking goroutine exits
// when the counter reaches zero or Stop is called, so an abandoned flow never
// leaks a background tick.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	interval  time.Duration
	stop      chan struct{}
}

func newCountdown(interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{interval: interval}
}

// Remaining returns the seconds left before a resend becomes eligible.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Reset sets the counter and starts ticking if it is not already.
func (c *Countdown) Reset(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
	if c.remaining > 0 && c.stop == nil {
		stop := make(chan struct{})
		c.stop = stop
		go c.loop(stop)
	}
}

// Stop tears the countdown down without waiting for it to decay.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdown) loop(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.tick(stop) {
				return
			}
		}
	}
}

// tick decrements once; it reports true when this loop should exit, either
// because the counter decayed to zero or a Stop/Reset superseded it.
func (c *Countdown) tick(stop chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stop != nil && c.stop != stop {
		return true
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.stop = nil
		return true
	}
	return false
}
