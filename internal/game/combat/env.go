package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// BruteChooser lets scripted content override the brute's attack choice.
//
// Postcondition: ok == false means the built-in rule decides.
type BruteChooser interface {
	ChooseBruteAttack(brute *Actor, distance float64, roll int) (attack BruteAttack, ok bool)
}

// Env is the shared context every actor of one world runs against.
type Env struct {
	Clock     *clock.Clock
	Roller    *dice.Roller
	Logger    *zap.Logger
	Presenter Presenter
	Tuning    Tuning
	// Chooser is optional.
	Chooser BruteChooser
}

// NewEnv builds an Env with no-op collaborators filled in for nil arguments.
//
// Precondition: clk and roller must be non-nil.
func NewEnv(clk *clock.Clock, roller *dice.Roller, logger *zap.Logger, presenter Presenter, tuning Tuning) *Env {
	if clk == nil || roller == nil {
		panic("combat.NewEnv: clock and roller must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if presenter == nil {
		presenter = NopPresenter{}
	}
	return &Env{Clock: clk, Roller: roller, Logger: logger, Presenter: presenter, Tuning: tuning}
}
