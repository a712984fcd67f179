// internal/player/autopilot.go
//
// The autopilot replaces keyboard input for automated players. It runs as a
// second goroutine owned by the Player for its whole lifetime, with its done
// channel retained for the join during termination.

package player

import "time"

func (p *Player) autopilot() {
	defer close(p.autoDone)
	p.logger.Printf("player %d: autopilot starting", p.id)
	for !p.terminating.Load() {
		// GroupSize distinct slots, uniformly at random, in random order.
		picks := p.rng.Perm(p.rules.SlotCount)[:p.rules.GroupSize]
		for _, slot := range picks {
			p.Submit(slot)
		}
		if p.ref.IsGroupValid(append([]int(nil), picks...)) {
			if !p.pause(p.rules.PointFreeze) {
				break
			}
		} else {
			if !p.pause(p.rules.PenaltyFreeze) {
				break
			}
			// The referee clears our markers on penalty feedback, so
			// resubmitting the same slots toggles them off.
			for _, slot := range picks {
				p.Submit(slot)
			}
		}
	}
	p.logger.Printf("player %d: autopilot terminated", p.id)
}

// pause blocks for the given feedback latency. It returns false when the
// pause was cut short by termination, the only event that may end it early.
func (p *Player) pause(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-p.stop:
		return false
	}
}
