// This file is part of MiniTX.
//
// MiniTX is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniTX is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniTX.  If not, see <https://www.gnu.org/licenses/>.

// Package limiter provides a rough and ready way of limiting events to a
// fixed rate. The machine's scheduler uses it to hold each 20ms block of
// emulated work to 20ms of wall-clock time:
//
//	lim, _ := limiter.NewRateLimiter(50)
//	for {
//		runMajorTick()
//		lim.Wait()
//	}
package limiter

import (
	"fmt"
	"time"
)

// this is a fairly rough attempt at rate limiting. probably only any good if
// base performance of the host is well above the required rate.

// RateLimiter will trigger at the stated number of events per second.
type RateLimiter struct {
	eventsPerSecond int
	secondsPerEvent time.Duration

	tick chan bool
}

// NewRateLimiter is the preferred method of initialisation for the
// RateLimiter type.
func NewRateLimiter(eventsPerSecond int) (*RateLimiter, error) {
	if eventsPerSecond <= 0 {
		return nil, fmt.Errorf("limiter: invalid rate (%d)", eventsPerSecond)
	}

	lim := &RateLimiter{}
	lim.SetLimit(eventsPerSecond)

	lim.tick = make(chan bool)

	// run ticker concurrently. the sleep duration is adjusted every event to
	// account for drift
	go func() {
		adjustedSecondPerEvent := lim.secondsPerEvent
		t := time.Now()
		for {
			lim.tick <- true
			time.Sleep(adjustedSecondPerEvent)
			nt := time.Now()
			adjustedSecondPerEvent -= nt.Sub(t) - lim.secondsPerEvent
			t = nt
		}
	}()

	return lim, nil
}

// SetLimit changes the rate at which the RateLimiter waits.
func (lim *RateLimiter) SetLimit(eventsPerSecond int) {
	lim.eventsPerSecond = eventsPerSecond
	lim.secondsPerEvent = time.Duration(float64(time.Second) / float64(eventsPerSecond))
}

// Wait will block until the next trigger point.
func (lim *RateLimiter) Wait() {
	<-lim.tick
}

// HasWaited will return true if time has already elapsed and false if it is
// still yet to happen.
func (lim *RateLimiter) HasWaited() bool {
	select {
	case <-lim.tick:
		return true
	default:
		// default case means that the channel receiving case doesn't block
		return false
	}
}
