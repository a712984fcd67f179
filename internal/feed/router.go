// internal/feed/router.go
//
// The router fans game events out to subscribers (the TUI, the journal
// writer, the spectator server) over bounded channels. Publishers never
// block: when a subscriber falls behind, its oldest event is dropped.

package feed

import (
	"sync"
	"time"
)

const defaultSubscriberCapacity = 64

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router delivers game events to subscribers with bounded channel semantics.
type Router struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	channelSize int
	clock       func() time.Time
	logger      Logger
	closed      bool
}

// Subscription represents an active feed subscription.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close terminates the subscription.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router with default buffering.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		subscribers: map[*subscriber]struct{}{},
		channelSize: defaultSubscriberCapacity,
		clock:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RouterWithLogger injects a logger for drop diagnostics.
func RouterWithLogger(logger Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// RouterWithSubscriberCapacity overrides the buffered channel size per
// subscriber.
func RouterWithSubscriberCapacity(cap int) RouterOption {
	return func(r *Router) {
		if cap > 0 {
			r.channelSize = cap
		}
	}
}

// RouterWithClock overrides the timestamp source for published events.
func RouterWithClock(clock func() time.Time) RouterOption {
	return func(r *Router) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// Subscribe registers a new consumer. The returned subscription must be
// closed when the consumer is done.
func (r *Router) Subscribe() Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := newSubscriber(r.channelSize, r.logger)
	if r.closed {
		sub.close()
		return Subscription{Events: sub.channel()}
	}
	r.subscribers[sub] = struct{}{}
	return Subscription{
		Events: sub.channel(),
		cancel: func() {
			r.mu.Lock()
			delete(r.subscribers, sub)
			r.mu.Unlock()
			sub.close()
		},
	}
}

// Publish stamps the event and delivers it to every subscriber.
func (r *Router) Publish(event Event) {
	if event.At.IsZero() {
		event.At = r.clock()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	for sub := range r.subscribers {
		sub.deliver(event)
	}
}

// ReportScore publishes a score event, satisfying the player's score sink
// port so the router itself can act as the presentation notification path.
func (r *Router) ReportScore(playerID, score int) {
	r.Publish(Event{Type: EventScore, PlayerID: playerID, Score: score})
}

// Close shuts the router down and closes all subscriber channels.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for sub := range r.subscribers {
		sub.close()
	}
	r.subscribers = map[*subscriber]struct{}{}
}

type subscriber struct {
	ch      chan Event
	logger  Logger
	closed  bool
	closeMu sync.Mutex
}

func newSubscriber(capacity int, logger Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &subscriber{
		ch:     make(chan Event, capacity),
		logger: logger,
	}
}

func (s *subscriber) channel() <-chan Event {
	return s.ch
}

func (s *subscriber) deliver(event Event) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- event:
			return
		default:
		}
		select {
		case oldest := <-s.ch:
			if s.logger != nil {
				s.logger.Printf("feed: dropped %s event for player %d (subscriber overflow)", oldest.Type, oldest.PlayerID)
			}
		default:
		}
	}
}

func (s *subscriber) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
