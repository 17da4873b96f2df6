package orchestrator

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// timerSlot holds at most one armed one-shot timer. token identifies the arming so a
// callback that lost a race with cancel can recognize itself as stale.
type timerSlot struct {
	name   string
	timer  clockwork.Timer
	cancel chan struct{}
	token  uint64
}

// armLocked cancels whatever the slot holds and arms a new timer that runs fn under s.mu
// once d has elapsed. fn is skipped if the slot was cancelled or re-armed meanwhile.
// Must be called with s.mu held.
func (s *Scheduler) armLocked(slot *timerSlot, d time.Duration, fn func()) {
	s.cancelLocked(slot)

	s.seq++
	token := s.seq
	t := s.clock.NewTimer(d)
	cancel := make(chan struct{})

	slot.timer = t
	slot.cancel = cancel
	slot.token = token

	go func() {
		select {
		case <-t.Chan():
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.stopped || slot.token != token {
				log.Debug().Str("timer", slot.name).Msg("ignoring stale timer")
				return
			}
			slot.timer = nil
			slot.cancel = nil
			fn()
		case <-cancel:
		case <-s.done:
		}
	}()

	log.Debug().
		Str("timer", slot.name).
		Dur("delay", d).
		Time("deadline", s.clock.Now().Add(d)).
		Msg("armed timer")
}

// cancelLocked stops the slot's timer if one is armed. Cancelling an empty or already
// fired slot is a no-op. Must be called with s.mu held.
func (s *Scheduler) cancelLocked(slot *timerSlot) {
	if slot.timer == nil {
		return
	}
	stopAndDrainTimer(slot.timer)
	close(slot.cancel)
	slot.timer = nil
	slot.cancel = nil
	// Invalidate a callback that already fired and is waiting on the lock.
	s.seq++
	slot.token = s.seq

	log.Debug().Str("timer", slot.name).Msg("cancelled timer")
}

// armed reports whether the slot currently holds a live timer.
func (slot *timerSlot) armed() bool {
	return slot.timer != nil
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
