package player

// Referee validates candidate groups and records selection markers on the
// grid. Implemented by internal/referee; faked in tests.
type Referee interface {
	// ToggleSelection asks the referee to place or clear this player's
	// marker on a slot.
	ToggleSelection(playerID, slot int)
	// IsGroupValid reports whether the cards under the given slots form a
	// valid match. Used by the autopilot as its feedback oracle.
	IsGroupValid(slots []int) bool
}

// GridView is the read-only surface of the shared grid. The referee owns and
// mutates the grid; players only observe it, and must tolerate it changing
// between a selection being queued and being dispatched.
type GridView interface {
	AdmissionOpen() bool
	OccupantOf(slot int) (card int, ok bool)
}

// ScoreSink receives score updates. Fire-and-forget.
type ScoreSink interface {
	ReportScore(playerID, score int)
}

// Logger records player lifecycle information. It matches logging.Logger's
// signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type nopSink struct{}

func (nopSink) ReportScore(int, int) {}
