// internal/table/table.go
//
// The table is the shared grid of card slots. The referee is its only
// writer; players hold it as a read-only view and must cope with slots
// changing underneath queued selections.

package table

import "sync"

// Empty marks a slot with no card.
const Empty = -1

// Table holds slot occupancy, the system-wide admission flag, and the
// per-slot selection markers. Safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	slots     []int
	admission bool
	tokens    []map[int]struct{} // per slot, the set of player ids marking it
}

// New creates a table with the given number of empty slots. Admission starts
// closed; the referee opens it once the initial deal is done.
func New(slotCount int) *Table {
	t := &Table{
		slots:  make([]int, slotCount),
		tokens: make([]map[int]struct{}, slotCount),
	}
	for i := range t.slots {
		t.slots[i] = Empty
		t.tokens[i] = make(map[int]struct{})
	}
	return t
}

// SlotCount returns the fixed number of slots.
func (t *Table) SlotCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// AdmissionOpen reports whether the grid currently accepts submissions.
func (t *Table) AdmissionOpen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.admission
}

// SetAdmission flips the admission flag, e.g. while the referee redeals.
func (t *Table) SetAdmission(open bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.admission = open
}

// OccupantOf returns the card in a slot. ok is false for empty or
// out-of-range slots.
func (t *Table) OccupantOf(slot int) (card int, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if slot < 0 || slot >= len(t.slots) || t.slots[slot] == Empty {
		return 0, false
	}
	return t.slots[slot], true
}

// PlaceCard puts a card into a slot, replacing whatever was there.
func (t *Table) PlaceCard(slot, card int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= len(t.slots) {
		return
	}
	t.slots[slot] = card
}

// RemoveCard empties a slot and clears every marker on it.
func (t *Table) RemoveCard(slot int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= len(t.slots) {
		return
	}
	t.slots[slot] = Empty
	t.tokens[slot] = make(map[int]struct{})
}

// ToggleToken places a player's marker on a slot, or removes it if already
// present. It reports whether the marker is present after the call.
func (t *Table) ToggleToken(playerID, slot int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= len(t.slots) {
		return false
	}
	if _, ok := t.tokens[slot][playerID]; ok {
		delete(t.tokens[slot], playerID)
		return false
	}
	t.tokens[slot][playerID] = struct{}{}
	return true
}

// TokensOf returns the slots currently marked by a player, in slot order.
func (t *Table) TokensOf(playerID int) []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var marked []int
	for slot := range t.slots {
		if _, ok := t.tokens[slot][playerID]; ok {
			marked = append(marked, slot)
		}
	}
	return marked
}

// ClearTokens removes all of a player's markers.
func (t *Table) ClearTokens(playerID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for slot := range t.tokens {
		delete(t.tokens[slot], playerID)
	}
}

// Snapshot returns a copy of the slot occupancy for presentation.
func (t *Table) Snapshot() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int, len(t.slots))
	copy(out, t.slots)
	return out
}
