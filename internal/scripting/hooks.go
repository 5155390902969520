package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// Hook names looked up in encounter and global VMs.
const (
	HookChooseBruteAttack   = "choose_brute_attack"
	HookOnWaveStart         = "on_wave_start"
	HookOnEncounterComplete = "on_encounter_complete"
)

// BruteChooser lets choose_brute_attack(distance, roll) pick the brute's
// next attack. A hook returning nil or an unknown name defers to the built-in
// choice.
type BruteChooser struct {
	Scripts *Manager
	// Scope selects the VM; empty means the global VM.
	Scope string
}

// ChooseBruteAttack implements combat.BruteChooser.
func (c BruteChooser) ChooseBruteAttack(_ *combat.Actor, distance float64, roll int) (combat.BruteAttack, bool) {
	scope := c.Scope
	if scope == "" {
		scope = GlobalScope
	}
	ret, err := c.Scripts.CallHook(scope, HookChooseBruteAttack, lua.LNumber(distance), lua.LNumber(roll))
	if err != nil {
		return combat.BruteNone, false
	}
	name, ok := ret.(lua.LString)
	if !ok {
		return combat.BruteNone, false
	}
	return combat.ParseBruteAttack(string(name))
}

// EncounterHooks forwards encounter milestones to Lua. Each encounter's own
// VM is used when loaded, the global VM otherwise.
type EncounterHooks struct {
	Scripts *Manager
}

// OnWaveStart calls on_wave_start(id, index).
func (h EncounterHooks) OnWaveStart(encounterID string, index int) {
	_, _ = h.Scripts.CallHook(encounterID, HookOnWaveStart, lua.LString(encounterID), lua.LNumber(index))
}

// OnEncounterComplete calls on_encounter_complete(id).
func (h EncounterHooks) OnEncounterComplete(encounterID string) {
	_, _ = h.Scripts.CallHook(encounterID, HookOnEncounterComplete, lua.LString(encounterID))
}

// SnapshotActor converts a combat actor for engine.actor.
func SnapshotActor(a *combat.Actor) *ActorInfo {
	if a == nil {
		return nil
	}
	p := a.Position()
	return &ActorInfo{
		ID:        a.ID(),
		Name:      a.Name(),
		Archetype: string(a.Archetype()),
		State:     a.State().String(),
		Health:    a.Health(),
		MaxHealth: a.MaxHealth(),
		Dead:      a.IsDead(),
		X:         p.X,
		Y:         p.Y,
	}
}
