package mcconsole

import (
	"slices"
	"sync"

	"github.com/mcconsole/mcconsole-go/internal/parser"
)

// Roster is the set of players currently believed to be online. The zero
// value is an empty roster ready to use. It is safe for concurrent use.
type Roster struct {
	mu      sync.RWMutex
	players map[string]struct{}
}

// NewRoster returns a roster holding the given players.
func NewRoster(players ...string) *Roster {
	r := &Roster{}
	for _, p := range players {
		r.Add(p)
	}
	return r
}

// Add inserts player and reports whether it was absent.
func (r *Roster) Add(player string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.players == nil {
		r.players = make(map[string]struct{})
	}
	if _, ok := r.players[player]; ok {
		return false
	}
	r.players[player] = struct{}{}
	return true
}

// Remove deletes player and reports whether it was present. Removing an
// absent player is a no-op.
func (r *Roster) Remove(player string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[player]; !ok {
		return false
	}
	delete(r.players, player)
	return true
}

// Reset empties the roster.
func (r *Roster) Reset() {
	r.mu.Lock()
	clear(r.players)
	r.mu.Unlock()
}

// Contains reports whether player is online.
func (r *Roster) Contains(player string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[player]
	return ok
}

// Len returns the number of online players.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Players returns the online players sorted by name.
func (r *Roster) Players() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.players))
	for p := range r.players {
		out = append(out, p)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Apply updates the roster for ev: Started empties it, Joined and
// EarnedAchievement add the player, Left and LostConnection remove them.
// Other events leave it unchanged.
func (r *Roster) Apply(ev Event) {
	switch parser.EffectOf(ev.Type) {
	case parser.EffectReset:
		r.Reset()
	case parser.EffectAdd:
		r.Add(ev.Player)
	case parser.EffectRemove:
		r.Remove(ev.Player)
	}
}
