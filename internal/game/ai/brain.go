package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// Squad is the encounter a hostile thinks within.
type Squad interface {
	ID() string
	Player() *combat.Actor
	Allies(unit *combat.Actor) []*combat.Actor
	RequestAttack(unit *combat.Actor)
}

// Brain runs the think step: plan with the unit's HTN domain and carry out
// the first planned action.
type Brain struct {
	registry *Registry
	fallback string
	logger   *zap.Logger

	// CloseRange and FarRange are the distances from the player used by the
	// "close" and "far" reposition anchors.
	CloseRange float64
	FarRange   float64
}

// NewBrain creates a Brain. Units without an AI domain use fallbackDomain;
// units whose domain is not registered simply queue an attack.
//
// Precondition: registry must not be nil.
func NewBrain(registry *Registry, fallbackDomain string, logger *zap.Logger) *Brain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Brain{
		registry:   registry,
		fallback:   fallbackDomain,
		logger:     logger,
		CloseRange: 150,
		FarRange:   900,
	}
}

// Think decides and applies one action for unit.
//
// Postcondition: Units that are dead or not Idle hold. Returns the action taken.
func (b *Brain) Think(squad Squad, unit *combat.Actor) PlannedAction {
	hold := PlannedAction{Action: ActionHold}
	if unit == nil || unit.IsDead() || unit.State() != combat.StateIdle {
		return hold
	}
	ws := BuildWorldState(squad.ID(), unit, squad.Player(), squad.Allies(unit))
	if !ws.HasLivePlayer() {
		return hold
	}
	action := b.decide(unit, ws)
	switch action.Action {
	case ActionQueueAttack:
		squad.RequestAttack(unit)
	case ActionReposition:
		unit.Reposition(ws.ResolveAnchor(action.Target, b.CloseRange, b.FarRange))
	}
	b.logger.Debug("unit thought",
		zap.String("encounter", squad.ID()),
		zap.String("actor", unit.ID()),
		zap.String("action", action.Action),
		zap.String("target", action.Target),
		zap.String("method", action.Method),
	)
	return action
}

func (b *Brain) decide(unit *combat.Actor, ws *WorldState) PlannedAction {
	domainID := unit.Profile().AIDomain
	if domainID == "" {
		domainID = b.fallback
	}
	planner, ok := b.registry.PlannerFor(domainID)
	if !ok {
		return PlannedAction{Action: ActionQueueAttack}
	}
	plan, err := planner.Plan(ws)
	if err != nil {
		b.logger.Warn("planning failed", zap.String("domain", domainID), zap.Error(err))
		return PlannedAction{Action: ActionHold}
	}
	if len(plan) == 0 {
		return PlannedAction{Action: ActionHold}
	}
	return plan[0]
}
