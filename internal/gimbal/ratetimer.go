package gimbal

import (
	"log"
	"time"
)

// startRateTimerLocked (re)arms the 500ms keep-alive: a gimbal manager that
// stops receiving rate commands is expected to coast to a stop, so a rate
// command must be re-sent periodically for as long as the rate stays
// nonzero. Self-rescheduling via time.AfterFunc rather than a persistent
// ticker goroutine -- there's no work to do, and thus nothing to select on,
// while the timer is stopped.
func (c *Controller) startRateTimerLocked() {
	c.stopRateTimerLocked()
	c.rateTimer = time.AfterFunc(rateKeepAliveInterval, c.rateTimerFired)
}

func (c *Controller) stopRateTimerLocked() {
	if c.rateTimer != nil {
		c.rateTimer.Stop()
		c.rateTimer = nil
	}
}

func (c *Controller) rateTimerFired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rateTimer == nil {
		return
	}
	pair, record, ok := c.activeRecordLocked()
	if !ok {
		c.rateTimer = nil
		return
	}
	if err := c.sendRateCommandLocked(pair, record); err != nil {
		log.Printf("gimbal: rate keep-alive send failed: %v\n", err)
	}
	c.rateTimer = time.AfterFunc(rateKeepAliveInterval, c.rateTimerFired)
}
