package checkpoint

import (
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
)

// Trigger is a checkpoint area that requests one save when the player
// first enters it.
type Trigger struct {
	ID     string
	Region encounter.Region
	fired  bool
}

// NewTrigger creates an armed trigger.
func NewTrigger(id string, region encounter.Region) *Trigger {
	return &Trigger{ID: id, Region: region}
}

// Enter reports whether p fires the trigger. It fires at most once until Rearm.
func (t *Trigger) Enter(p combat.Vec) bool {
	if t.fired || !t.Region.Contains(p) {
		return false
	}
	t.fired = true
	return true
}

// Fired reports whether the trigger already fired.
func (t *Trigger) Fired() bool { return t.fired }

// Rearm lets the trigger fire again.
func (t *Trigger) Rearm() { t.fired = false }
