// internal/referee/referee.go
//
// The referee owns the table: it records selection markers on behalf of
// players, collects completed groups, consults the match validator, and
// hands out awards and penalties. Players never touch the grid directly.

package referee

import (
	"sync"

	"github.com/gridmatch/gridmatch/internal/feed"
	"github.com/gridmatch/gridmatch/internal/player"
	"github.com/gridmatch/gridmatch/internal/table"
)

// ValidatorFunc decides whether a group of cards is a valid match. The real
// combinatorics live outside this package: validators are either the trivial
// builtin or loaded from a plugin.
type ValidatorFunc func(cards []int) bool

// BuiltinValidator is the demo rule shipped with the game: a group matches
// when its card values sum to a multiple of the group size.
func BuiltinValidator(cards []int) bool {
	if len(cards) == 0 {
		return false
	}
	sum := 0
	for _, c := range cards {
		sum += c
	}
	return sum%len(cards) == 0
}

// Publisher receives referee events. Satisfied by feed.Router.
type Publisher interface {
	Publish(feed.Event)
}

// Logger matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Referee arbitrates one match. All exported methods are safe for concurrent
// use; per-group bookkeeping is serialized by a single mutex so two players
// can never claim the same cards.
type Referee struct {
	rules    player.Rules
	tab      *table.Table
	validate ValidatorFunc
	pub      Publisher
	logger   Logger

	mu       sync.Mutex
	players  map[int]*player.Player
	nextCard int
}

// Option customizes Referee construction.
type Option func(*Referee)

// WithPublisher injects the event feed.
func WithPublisher(pub Publisher) Option {
	return func(r *Referee) {
		if pub != nil {
			r.pub = pub
		}
	}
}

// WithLogger injects a logger.
func WithLogger(logger Logger) Option {
	return func(r *Referee) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a referee over the given table. The validator may be nil, in
// which case the builtin rule applies.
func New(rules player.Rules, tab *table.Table, validate ValidatorFunc, opts ...Option) *Referee {
	r := &Referee{
		rules:    rules,
		tab:      tab,
		validate: validate,
		logger:   nopLogger{},
		players:  make(map[int]*player.Player),
	}
	if r.validate == nil {
		r.validate = BuiltinValidator
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register makes players known to the referee so group completion can reach
// their award/penalty operations.
func (r *Referee) Register(players ...*player.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range players {
		r.players[p.ID()] = p
	}
}

// Deal fills every slot with a fresh card and opens admission.
func (r *Referee) Deal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for slot := 0; slot < r.rules.SlotCount; slot++ {
		r.tab.PlaceCard(slot, r.draw())
	}
	r.tab.SetAdmission(true)
}

// ToggleSelection records or clears a player's marker on a slot. When the
// marker completes a group of GroupSize slots, the group is judged: a valid
// match removes and redeals the cards and awards a point; an invalid one
// clears the player's markers and penalizes.
func (r *Referee) ToggleSelection(playerID, slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return
	}
	placed := r.tab.ToggleToken(playerID, slot)
	r.publish(feed.Event{Type: feed.EventToken, PlayerID: playerID, Slot: slot})
	if !placed {
		return
	}
	marked := r.tab.TokensOf(playerID)
	if len(marked) < r.rules.GroupSize {
		return
	}
	if r.groupValid(marked) {
		r.redeal(marked)
		p.Award()
		r.logger.Printf("referee: player %d matched %v", playerID, marked)
		r.publish(feed.Event{Type: feed.EventRedeal, PlayerID: playerID})
	} else {
		r.tab.ClearTokens(playerID)
		p.Penalize()
		r.logger.Printf("referee: player %d missed with %v", playerID, marked)
		r.publish(feed.Event{Type: feed.EventPenalty, PlayerID: playerID})
	}
}

// IsGroupValid is the validation oracle used by autopilots: it judges the
// cards currently under the given slots without touching any markers.
func (r *Referee) IsGroupValid(slots []int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groupValid(slots)
}

func (r *Referee) groupValid(slots []int) bool {
	cards := make([]int, 0, len(slots))
	for _, slot := range slots {
		card, ok := r.tab.OccupantOf(slot)
		if !ok {
			return false
		}
		cards = append(cards, card)
	}
	return r.validate(cards)
}

// redeal swaps the matched cards for fresh ones. Admission stays closed for
// the duration so no submissions race the swap.
func (r *Referee) redeal(slots []int) {
	r.tab.SetAdmission(false)
	for _, slot := range slots {
		r.tab.RemoveCard(slot)
	}
	for _, slot := range slots {
		r.tab.PlaceCard(slot, r.draw())
	}
	r.tab.SetAdmission(true)
}

func (r *Referee) draw() int {
	card := r.nextCard
	r.nextCard++
	return card
}

func (r *Referee) publish(event feed.Event) {
	if r.pub != nil {
		r.pub.Publish(event)
	}
}
