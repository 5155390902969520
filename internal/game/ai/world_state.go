package ai

import (
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// CombatantState captures one participant at planning time.
type CombatantState struct {
	ID        string
	Name      string
	Archetype combat.Archetype
	State     combat.State
	Health    int
	MaxHealth int
	Dead      bool
	Position  combat.Vec
}

// HealthPercent returns current health as a percentage of MaxHealth; 0 if MaxHealth == 0.
func (c *CombatantState) HealthPercent() float64 {
	if c.MaxHealth <= 0 {
		return 0
	}
	return float64(c.Health) / float64(c.MaxHealth) * 100
}

// Busy reports whether the combatant is mid-attack.
func (c *CombatantState) Busy() bool {
	switch c.State {
	case combat.StateBeforeAttack, combat.StateAttacking:
		return true
	}
	return false
}

// WorldState is the snapshot passed to the HTN planner for one hostile.
//
// Invariant: Unit must not be nil.
type WorldState struct {
	EncounterID string
	Unit        *CombatantState
	// Player is nil when the encounter has no live player.
	Player *CombatantState
	Allies []*CombatantState
}

// Snapshot copies the planning-relevant fields of a.
func Snapshot(a *combat.Actor) *CombatantState {
	if a == nil {
		return nil
	}
	return &CombatantState{
		ID:        a.ID(),
		Name:      a.Name(),
		Archetype: a.Archetype(),
		State:     a.State(),
		Health:    a.Health(),
		MaxHealth: a.MaxHealth(),
		Dead:      a.IsDead(),
		Position:  a.Position(),
	}
}

// BuildWorldState snapshots unit, its player target and its allies.
//
// Precondition: unit must not be nil.
// Postcondition: ws.Unit.ID == unit.ID(); dead allies are omitted.
func BuildWorldState(encounterID string, unit, player *combat.Actor, allies []*combat.Actor) *WorldState {
	ws := &WorldState{
		EncounterID: encounterID,
		Unit:        Snapshot(unit),
		Player:      Snapshot(player),
	}
	for _, a := range allies {
		if a == nil || a == unit || a.IsDead() {
			continue
		}
		ws.Allies = append(ws.Allies, Snapshot(a))
	}
	return ws
}

// DistanceToPlayer returns the unit's distance from the player, or -1 without one.
func (ws *WorldState) DistanceToPlayer() float64 {
	if ws.Player == nil {
		return -1
	}
	return ws.Unit.Position.Distance(ws.Player.Position)
}

// HasLivePlayer reports whether there is a player to fight.
func (ws *WorldState) HasLivePlayer() bool {
	return ws.Player != nil && !ws.Player.Dead
}

// BusyAllies returns how many allies are currently attacking.
func (ws *WorldState) BusyAllies() int {
	n := 0
	for _, a := range ws.Allies {
		if a.Busy() {
			n++
		}
	}
	return n
}

// ResolveAnchor maps a reposition token to a destination.
//
// Postcondition: "close" and "far" place the unit on the line from the player
// through the unit at closeRange or farRange; "self" and unknown tokens return
// the unit's own position, as does any token without a live player.
func (ws *WorldState) ResolveAnchor(token string, closeRange, farRange float64) combat.Vec {
	if !ws.HasLivePlayer() {
		return ws.Unit.Position
	}
	var r float64
	switch token {
	case "close":
		r = closeRange
	case "far":
		r = farRange
	default:
		return ws.Unit.Position
	}
	p := ws.Player.Position
	d := ws.Unit.Position.Distance(p)
	if d == 0 {
		return combat.Vec{X: p.X + r, Y: p.Y}
	}
	k := r / d
	return combat.Vec{
		X: p.X + (ws.Unit.Position.X-p.X)*k,
		Y: p.Y + (ws.Unit.Position.Y-p.Y)*k,
	}
}
