package player

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

type fakeGrid struct {
	mu        sync.Mutex
	admission bool
	cards     map[int]int
}

func newFakeGrid(slotCount int) *fakeGrid {
	g := &fakeGrid{admission: true, cards: map[int]int{}}
	for slot := 0; slot < slotCount; slot++ {
		g.cards[slot] = slot
	}
	return g
}

func (g *fakeGrid) AdmissionOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admission
}

func (g *fakeGrid) OccupantOf(slot int) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	card, ok := g.cards[slot]
	return card, ok
}

func (g *fakeGrid) setAdmission(open bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.admission = open
}

func (g *fakeGrid) clearSlot(slot int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.cards, slot)
}

type fakeReferee struct {
	mu      sync.Mutex
	toggles []int
	groups  [][]int
	valid   bool
}

func (r *fakeReferee) ToggleSelection(playerID, slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toggles = append(r.toggles, slot)
}

func (r *fakeReferee) IsGroupValid(slots []int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, append([]int(nil), slots...))
	return r.valid
}

func (r *fakeReferee) toggled() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.toggles...)
}

func (r *fakeReferee) seenGroups() [][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]int, len(r.groups))
	for i, g := range r.groups {
		out[i] = append([]int(nil), g...)
	}
	return out
}

type fakeSink struct {
	mu      sync.Mutex
	reports []int
}

func (s *fakeSink) ReportScore(playerID, score int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, score)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func testRules() Rules {
	return Rules{SlotCount: 12, GroupSize: 3, PointFreeze: time.Second, PenaltyFreeze: 3 * time.Second}
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %v", timeout)
}

func (p *Player) queued() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.pending...)
}

func TestSubmitQueuesFIFOAndCapsAtGroupSize(t *testing.T) {
	grid := newFakeGrid(12)
	p := New(0, false, testRules(), grid, &fakeReferee{}, nil)

	p.Submit(2)
	p.Submit(5)
	p.Submit(9)
	if got := p.queued(); len(got) != 3 || got[0] != 2 || got[1] != 5 || got[2] != 9 {
		t.Fatalf("expected queue [2 5 9], got %v", got)
	}

	p.Submit(0)
	if got := p.queued(); len(got) != 3 {
		t.Fatalf("expected 4th submit to be dropped at capacity, queue %v", got)
	}
}

func TestSubmitRejectedWhenAdmissionClosed(t *testing.T) {
	grid := newFakeGrid(12)
	grid.setAdmission(false)
	p := New(0, false, testRules(), grid, &fakeReferee{}, nil)

	p.Submit(3)
	if got := p.queued(); len(got) != 0 {
		t.Fatalf("expected submit with admission closed to be dropped, queue %v", got)
	}
}

func TestSubmitRejectedDuringFreezeWindow(t *testing.T) {
	grid := newFakeGrid(12)
	clock := &fakeClock{now: time.UnixMilli(1000)}
	p := New(0, false, testRules(), grid, &fakeReferee{}, nil, WithClock(clock.Now))

	p.Penalize()
	if got := p.FreezeDeadline().UnixMilli(); got != 4000 {
		t.Fatalf("expected freeze deadline 4000, got %d", got)
	}

	clock.set(time.UnixMilli(2000))
	p.Submit(1)
	if got := p.queued(); len(got) != 0 {
		t.Fatalf("expected submit inside freeze window to be dropped, queue %v", got)
	}

	clock.set(time.UnixMilli(4500))
	p.Submit(1)
	if got := p.queued(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected submit after freeze window to be queued, queue %v", got)
	}
}

func TestDispatchForwardsInFIFOOrder(t *testing.T) {
	grid := newFakeGrid(12)
	ref := &fakeReferee{}
	p := New(0, false, testRules(), grid, ref, nil)

	p.Submit(2)
	p.Submit(5)
	p.Submit(9)
	go p.Run()
	defer func() {
		p.Terminate()
		<-p.Done()
	}()

	waitUntil(t, time.Second, func() bool { return len(ref.toggled()) == 3 })
	if got := ref.toggled(); got[0] != 2 || got[1] != 5 || got[2] != 9 {
		t.Fatalf("expected toggles [2 5 9], got %v", got)
	}
}

func TestDispatchSkipsSlotClearedAfterEnqueue(t *testing.T) {
	grid := newFakeGrid(12)
	ref := &fakeReferee{}
	p := New(0, false, testRules(), grid, ref, nil)

	p.Submit(4)
	p.Submit(7)
	grid.clearSlot(4) // referee took the card between enqueue and dispatch

	go p.Run()
	defer func() {
		p.Terminate()
		<-p.Done()
	}()

	waitUntil(t, time.Second, func() bool { return len(ref.toggled()) == 1 })
	if got := ref.toggled(); got[0] != 7 {
		t.Fatalf("expected only slot 7 forwarded, got %v", got)
	}
	if got := p.queued(); len(got) != 0 {
		t.Fatalf("expected queue drained, got %v", got)
	}
}

func TestDispatchDropsEntryWhenAdmissionClosed(t *testing.T) {
	grid := newFakeGrid(12)
	ref := &fakeReferee{}
	p := New(0, false, testRules(), grid, ref, nil)

	p.Submit(4)
	p.Submit(7)
	grid.setAdmission(false)

	go p.Run()
	defer func() {
		p.Terminate()
		<-p.Done()
	}()

	waitUntil(t, time.Second, func() bool { return len(p.queued()) == 0 })
	if got := ref.toggled(); len(got) != 0 {
		t.Fatalf("expected no forwards while admission closed, got %v", got)
	}
}

func TestAwardIncrementsScoreAndSetsFreeze(t *testing.T) {
	grid := newFakeGrid(12)
	sink := &fakeSink{}
	clock := &fakeClock{now: time.UnixMilli(1000)}
	rules := testRules()
	rules.PointFreeze = 500 * time.Millisecond
	p := New(0, false, rules, grid, &fakeReferee{}, sink, WithClock(clock.Now))

	p.Award()
	if p.Score() != 1 {
		t.Fatalf("expected score 1, got %d", p.Score())
	}
	if got := p.FreezeDeadline().UnixMilli(); got != 1500 {
		t.Fatalf("expected freeze deadline 1500, got %d", got)
	}

	// A second award extends from its own call time, not from the previous
	// deadline.
	clock.set(time.UnixMilli(1100))
	p.Award()
	if p.Score() != 2 {
		t.Fatalf("expected score 2, got %d", p.Score())
	}
	if got := p.FreezeDeadline().UnixMilli(); got != 1600 {
		t.Fatalf("expected freeze deadline 1600, got %d", got)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.reports) != 2 || sink.reports[0] != 1 || sink.reports[1] != 2 {
		t.Fatalf("expected sink reports [1 2], got %v", sink.reports)
	}
}

func TestTerminateWakesEmptyQueueWaiter(t *testing.T) {
	grid := newFakeGrid(12)
	p := New(0, false, testRules(), grid, &fakeReferee{}, nil)

	go p.Run()
	time.Sleep(20 * time.Millisecond) // let the loop reach its wait

	p.Terminate()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch loop did not exit after Terminate on an empty queue")
	}
}

func TestTerminateIsIdempotent(t *testing.T) {
	grid := newFakeGrid(12)
	p := New(0, false, testRules(), grid, &fakeReferee{}, nil)

	go p.Run()
	p.Terminate()
	p.Terminate()
	p.Terminate()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch loop did not exit")
	}
}

func TestTerminateJoinsAutopilotMidPause(t *testing.T) {
	grid := newFakeGrid(12)
	ref := &fakeReferee{valid: false}
	rules := testRules()
	rules.PenaltyFreeze = time.Hour // autopilot will be deep in its pause
	p := New(0, true, rules, grid, ref, nil, WithRand(rand.New(rand.NewSource(1))))

	go p.Run()
	waitUntil(t, time.Second, func() bool { return len(ref.seenGroups()) >= 1 })

	done := make(chan struct{})
	go func() {
		p.Terminate()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Terminate did not return while the autopilot was paused")
	}
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch loop did not exit after Terminate")
	}
}

func TestSetFreezeDeadlineRoundTrips(t *testing.T) {
	grid := newFakeGrid(12)
	p := New(3, false, testRules(), grid, &fakeReferee{}, nil)

	if !p.FreezeDeadline().IsZero() {
		t.Fatalf("expected no freeze initially, got %v", p.FreezeDeadline())
	}
	deadline := time.UnixMilli(9000)
	p.SetFreezeDeadline(deadline)
	if got := p.FreezeDeadline().UnixMilli(); got != 9000 {
		t.Fatalf("expected deadline 9000, got %d", got)
	}
	p.SetFreezeDeadline(time.Time{})
	if !p.FreezeDeadline().IsZero() {
		t.Fatalf("expected cleared deadline, got %v", p.FreezeDeadline())
	}
	if p.ID() != 3 {
		t.Fatalf("expected id 3, got %d", p.ID())
	}
}
