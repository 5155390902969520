package combat

import (
	"fmt"
	"math"
)

// State is the current action state of one combat participant.
type State int

const (
	StateIdle State = iota
	StatePreAction
	StateBeforeAttack
	StateAttacking
	StateWaitForCombo
	StateRecovering
	StateDodge
	StateEvade
	StateSpecialAttack
	StateStunned
	StateCountered
	StateLying
	StateDead
)

var stateNames = [...]string{
	StateIdle:          "idle",
	StatePreAction:     "pre_action",
	StateBeforeAttack:  "before_attack",
	StateAttacking:     "attacking",
	StateWaitForCombo:  "wait_for_combo",
	StateRecovering:    "recovering",
	StateDodge:         "dodge",
	StateEvade:         "evade",
	StateSpecialAttack: "special_attack",
	StateStunned:       "stunned",
	StateCountered:     "countered",
	StateLying:         "lying",
	StateDead:          "dead",
}

// String returns the snake_case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Team is the affiliation of a participant.
type Team int

const (
	TeamPlayer Team = iota
	TeamHostile
)

// String returns "player" or "hostile".
func (t Team) String() string {
	if t == TeamPlayer {
		return "player"
	}
	return "hostile"
}

// Archetype selects the behavior variant of an actor.
type Archetype string

const (
	ArchetypePlayer Archetype = "player"
	ArchetypeMelee  Archetype = "melee"
	ArchetypeRanged Archetype = "ranged"
	ArchetypeBrute  Archetype = "brute"
)

// Valid reports whether a is one of the known archetypes.
func (a Archetype) Valid() bool {
	switch a {
	case ArchetypePlayer, ArchetypeMelee, ArchetypeRanged, ArchetypeBrute:
		return true
	}
	return false
}

// AttackClass gives light and heavy attackers independent turn cadences.
type AttackClass int

const (
	ClassBasic AttackClass = iota
	ClassHeavy
)

// String returns "basic" or "heavy".
func (c AttackClass) String() string {
	if c == ClassHeavy {
		return "heavy"
	}
	return "basic"
}

// ParseAttackClass converts "basic" or "heavy" (empty means basic).
func ParseAttackClass(s string) (AttackClass, error) {
	switch s {
	case "", "basic":
		return ClassBasic, nil
	case "heavy":
		return ClassHeavy, nil
	}
	return ClassBasic, fmt.Errorf("unknown attack class %q", s)
}

// AttackType marks whether an enemy attack may be intercepted by a counter.
type AttackType int

const (
	UnableToCounter AttackType = iota
	AbleToCounter
)

// String returns the attack type name.
func (t AttackType) String() string {
	if t == AbleToCounter {
		return "able_to_counter"
	}
	return "unable_to_counter"
}

// DamageKind tags the origin of a damage instance.
type DamageKind int

const (
	// DamageStrike is a regular player attack.
	DamageStrike DamageKind = iota
	// DamageEnemy is a regular enemy attack.
	DamageEnemy
	// DamageArea is an area attack such as the brute's jump slam.
	DamageArea
	// DamageCounterAttack is the finisher delivered by the counter protocol.
	DamageCounterAttack
	// DamageExecute removes an actor without reward, used when restoring saves.
	DamageExecute
)

var damageNames = [...]string{"strike", "enemy", "area", "counter_attack", "execute"}

// String returns the damage kind name.
func (k DamageKind) String() string {
	if k < 0 || int(k) >= len(damageNames) {
		return fmt.Sprintf("damage(%d)", int(k))
	}
	return damageNames[k]
}

// BruteAttack is the brute's attack subtype, orthogonal to State.
type BruteAttack int

const (
	BruteNone BruteAttack = iota
	BruteSwipe
	BruteCharge
	BruteJumpSlam
)

// String returns the subtype name.
func (b BruteAttack) String() string {
	switch b {
	case BruteSwipe:
		return "swipe"
	case BruteCharge:
		return "charge"
	case BruteJumpSlam:
		return "jump_slam"
	}
	return "none"
}

// ParseBruteAttack converts a subtype name; unknown names report false.
func ParseBruteAttack(s string) (BruteAttack, bool) {
	switch s {
	case "swipe":
		return BruteSwipe, true
	case "charge":
		return BruteCharge, true
	case "jump_slam":
		return BruteJumpSlam, true
	}
	return BruteNone, false
}

// Vec is a position on the encounter floor.
type Vec struct {
	X float64 `yaml:"x" mapstructure:"x"`
	Y float64 `yaml:"y" mapstructure:"y"`
}

// Distance returns the euclidean distance between v and o.
func (v Vec) Distance(o Vec) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// Hit is one damage instance delivered to an actor.
type Hit struct {
	Amount int
	Source *Actor
	Kind   DamageKind
	// Attack is only meaningful for enemy-originated hits.
	Attack AttackType
}
