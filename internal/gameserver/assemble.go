package gameserver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/content"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/checkpoint"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/world"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// Deps carries the collaborators a world is assembled from.
type Deps struct {
	Config    *config.Config
	Bundle    *content.Bundle
	Store     checkpoint.Store
	Roller    *dice.Roller
	Presenter combat.Presenter
	Logger    *zap.Logger
}

// Assembly is a ready world plus the script and AI layers it was built on.
type Assembly struct {
	World    *world.World
	Scripts  *scripting.Manager
	Registry *ai.Registry
	Bundle   *content.Bundle
}

// Close releases every Lua VM and drops pending world work.
func (a *Assembly) Close() {
	a.World.Close()
	a.Scripts.Close()
}

// Assemble loads scripts, registers AI domains and builds the world.
//
// Precondition: every field of d except Presenter must be set.
// Postcondition: On error nothing is left open.
func Assemble(d Deps) (*Assembly, error) {
	if d.Config == nil || d.Bundle == nil {
		return nil, fmt.Errorf("assemble: config and content bundle are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scripts := scripting.NewManager(d.Roller, logger)
	if err := LoadScripts(scripts, d.Bundle, d.Config.Content.ScriptInstructionLimit); err != nil {
		scripts.Close()
		return nil, err
	}
	registry, err := BuildRegistry(d.Bundle.Domains, scripts)
	if err != nil {
		scripts.Close()
		return nil, err
	}
	warnMissingPreconditions(d.Bundle.Domains, scripts, logger)
	presenter := d.Presenter
	if presenter == nil {
		presenter = combat.LogPresenter{Logger: logger}
	}
	w, err := world.New(world.Options{
		Tuning:      d.Config.Combat.Tuning(),
		Timing:      d.Config.Encounter.Timing(),
		Definitions: d.Bundle.Encounters,
		Templates:   d.Bundle.Templates,
		Roller:      d.Roller,
		Logger:      logger,
		Presenter:   presenter,
		Scripts:     scripts,
		Registry:    registry,
		Store:       d.Store,
		Slot:        d.Config.Save.Slot,
	})
	if err != nil {
		scripts.Close()
		return nil, fmt.Errorf("assembling world: %w", err)
	}
	logger.Info("world assembled",
		zap.Int("encounters", len(d.Bundle.Encounters)),
		zap.Int("templates", len(d.Bundle.Templates)),
		zap.Int("ai_domains", registry.Len()),
		zap.Strings("script_scopes", scripts.Scopes()),
	)
	return &Assembly{World: w, Scripts: scripts, Registry: registry, Bundle: d.Bundle}, nil
}

// LoadScripts (re)loads the global VM and one VM per encounter script
// directory. Loaded VMs replace existing ones of the same scope.
func LoadScripts(scripts *scripting.Manager, b *content.Bundle, limit int) error {
	if b.GlobalScripts != "" {
		if err := scripts.LoadGlobal(b.GlobalScripts, limit); err != nil {
			return err
		}
	}
	for _, scope := range b.ScriptScopes() {
		if err := scripts.LoadScope(scope, b.ScopedScripts[scope], limit); err != nil {
			return err
		}
	}
	return nil
}

// BuildRegistry registers one planner per domain. Preconditions run in the
// global VM.
func BuildRegistry(domains []*ai.Domain, scripts *scripting.Manager) (*ai.Registry, error) {
	registry := ai.NewRegistry()
	for _, d := range domains {
		if err := registry.Register(d, scripts, scripting.GlobalScope); err != nil {
			return nil, fmt.Errorf("registering ai domain %q: %w", d.ID, err)
		}
	}
	return registry, nil
}

// warnMissingPreconditions reports precondition functions no global script
// defines. Such a precondition is always false, so its methods never apply.
func warnMissingPreconditions(domains []*ai.Domain, scripts *scripting.Manager, logger *zap.Logger) {
	for _, d := range domains {
		for _, name := range d.Preconditions() {
			if !scripts.HasHook(scripting.GlobalScope, name) {
				logger.Warn("ai precondition has no script function",
					zap.String("domain", d.ID),
					zap.String("precondition", name),
				)
			}
		}
	}
}
