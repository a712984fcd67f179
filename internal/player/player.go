// internal/player/player.go
//
// A Player is one participant's concurrency unit: a dispatch loop started by
// Run and, for automated players, the autopilot goroutine started alongside
// it. Selections arrive through Submit (from the TUI keyboard for humans,
// from the autopilot for bots), wait in a bounded FIFO, and are forwarded one
// at a time to the referee. Shutdown is cooperative: Terminate sets a flag,
// wakes anything that is blocked, and waits for both goroutines to exit.

package player

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Rules holds the immutable game constants a player reads. Copied at
// construction; never mutated afterwards.
type Rules struct {
	SlotCount     int
	GroupSize     int
	PointFreeze   time.Duration
	PenaltyFreeze time.Duration
}

// Player models a single participant. All exported methods are safe for
// concurrent use.
type Player struct {
	id        int
	automated bool
	rules     Rules

	grid GridView
	ref  Referee
	sink ScoreSink

	logger Logger
	clock  func() time.Time
	rng    *rand.Rand

	// mu guards pending and is the monitor the dispatch loop suspends on.
	// Submit and the loop's dequeue share it, so "check size, append,
	// signal" is atomic with "check empty, wait, pop".
	mu      sync.Mutex
	cond    *sync.Cond
	pending []int

	terminating atomic.Bool
	freezeUntil atomic.Int64 // unix milliseconds; 0 means not frozen
	score       atomic.Int64

	stopOnce  sync.Once
	stop      chan struct{} // closed on Terminate; wakes autopilot pauses
	runDone   chan struct{} // closed when Run returns
	autoDone  chan struct{} // closed when the autopilot returns
	autoAlive atomic.Bool   // autopilot goroutine was actually started
}

// Option customizes Player construction for tests and alternate runtimes.
type Option func(*Player)

// WithClock overrides the time source used for freeze-window checks.
func WithClock(clock func() time.Time) Option {
	return func(p *Player) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLogger injects a logger for lifecycle messages.
func WithLogger(logger Logger) Option {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRand overrides the autopilot's randomness source.
func WithRand(rng *rand.Rand) Option {
	return func(p *Player) {
		if rng != nil {
			p.rng = rng
		}
	}
}

// New constructs a player. The id must be unique and non-negative; automated
// selects whether Run spawns an autopilot.
func New(id int, automated bool, rules Rules, grid GridView, ref Referee, sink ScoreSink, opts ...Option) *Player {
	p := &Player{
		id:        id,
		automated: automated,
		rules:     rules,
		grid:      grid,
		ref:       ref,
		sink:      sink,
		logger:    nopLogger{},
		clock:     time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano() + int64(id))),
		stop:      make(chan struct{}),
		runDone:   make(chan struct{}),
		autoDone:  make(chan struct{}),
	}
	if p.sink == nil {
		p.sink = nopSink{}
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run is the blocking entry point for the player's main goroutine. It
// dispatches queued selections until Terminate is called, then waits for the
// autopilot (if any) before returning.
func (p *Player) Run() {
	defer close(p.runDone)
	p.logger.Printf("player %d: dispatch loop starting", p.id)
	if p.automated {
		p.autoAlive.Store(true)
		go p.autopilot()
	}
	for !p.terminating.Load() {
		slot, ok := p.nextSelection()
		if !ok {
			continue // woke for shutdown; the outer condition decides
		}
		if !p.grid.AdmissionOpen() {
			continue // grid is mid-redeal; the entry is dropped
		}
		// The referee may have cleared this slot since the selection was
		// queued; forward only if a card is still there.
		if _, occupied := p.grid.OccupantOf(slot); occupied {
			p.ref.ToggleSelection(p.id, slot)
		}
	}
	if p.automated {
		<-p.autoDone
	}
	p.logger.Printf("player %d: dispatch loop terminated", p.id)
}

// nextSelection suspends until a selection is queued or termination is
// requested, then pops the oldest entry. ok is false when the wake was for
// shutdown and the queue was empty.
func (p *Player) nextSelection() (slot int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.pending) == 0 && !p.terminating.Load() {
		p.cond.Wait()
	}
	if len(p.pending) == 0 {
		return 0, false
	}
	slot = p.pending[0]
	p.pending = p.pending[1:]
	return slot, true
}

// Submit queues one chosen slot for dispatch. The call is a silent no-op
// unless admission is open, the player is not inside a freeze window, and
// the queue holds fewer than GroupSize entries. Rejected input is dropped
// rather than reported; the submission path is a debounce, not a protocol.
func (p *Player) Submit(slot int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.grid.AdmissionOpen() {
		return
	}
	if until := p.freezeUntil.Load(); until != 0 && p.clock().UnixMilli() < until {
		return
	}
	if len(p.pending) >= p.rules.GroupSize {
		return
	}
	p.pending = append(p.pending, slot)
	p.cond.Signal()
}

// Award grants one point and opens a point-freeze window starting now. This
// is the only path that increments the score. The new total is pushed to the
// score sink.
func (p *Player) Award() {
	p.freezeUntil.Store(p.clock().Add(p.rules.PointFreeze).UnixMilli())
	p.sink.ReportScore(p.id, int(p.score.Add(1)))
}

// Penalize opens a penalty-freeze window starting now.
func (p *Player) Penalize() {
	p.freezeUntil.Store(p.clock().Add(p.rules.PenaltyFreeze).UnixMilli())
}

// Terminate requests shutdown. Safe to call more than once. It wakes a
// dispatch loop suspended on an empty queue, interrupts any autopilot pause,
// and blocks until the autopilot has exited. Callers that also need the main
// loop to be gone wait on Done.
func (p *Player) Terminate() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.terminating.Store(true)
		p.cond.Broadcast()
		p.mu.Unlock()
		close(p.stop)
	})
	if p.automated && p.autoAlive.Load() {
		<-p.autoDone
	}
}

// Done is closed once Run has returned. It stands in for a joinable thread
// handle in external lifecycle bookkeeping.
func (p *Player) Done() <-chan struct{} {
	return p.runDone
}

// ID returns the player's identifier.
func (p *Player) ID() int { return p.id }

// Automated reports whether this player runs an autopilot.
func (p *Player) Automated() bool { return p.automated }

// Score returns the current score.
func (p *Player) Score() int { return int(p.score.Load()) }

// FreezeDeadline returns the end of the current freeze window, or the zero
// time when the player is not frozen.
func (p *Player) FreezeDeadline() time.Time {
	millis := p.freezeUntil.Load()
	if millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}

// SetFreezeDeadline overrides the freeze window end. The zero time clears it.
func (p *Player) SetFreezeDeadline(t time.Time) {
	if t.IsZero() {
		p.freezeUntil.Store(0)
		return
	}
	p.freezeUntil.Store(t.UnixMilli())
}
