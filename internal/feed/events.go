package feed

import "time"

// EventType classifies game feed events.
type EventType string

const (
	EventScore   EventType = "score"   // a player's score changed
	EventPenalty EventType = "penalty" // a player submitted an invalid group
	EventToken   EventType = "token"   // a selection marker was placed or cleared
	EventRedeal  EventType = "redeal"  // matched cards were replaced
)

// Event is a single notification published by the referee or a player.
// Fields that do not apply to a given type are left at their zero values.
type Event struct {
	Type     EventType `json:"type"`
	PlayerID int       `json:"player_id"`
	Slot     int       `json:"slot,omitempty"`
	Score    int       `json:"score,omitempty"`
	At       time.Time `json:"at"`
}

// Logger records feed diagnostics. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}
