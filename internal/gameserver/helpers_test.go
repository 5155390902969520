package gameserver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/content"
	"github.com/cory-johannsen/skirmish/internal/game/checkpoint"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
)

const gruntYAML = `
id: grunt
name: Grunt
archetype: melee
max_health: 10
damage: "5"
ai_domain: skirmisher
`

const gateYAML = `
id: gate
region:
  center: {x: 0, y: 0}
  radius: 500
player_start: {x: -2000, y: 0}
checkpoint:
  center: {x: -800, y: 0}
  radius: 100
units:
  - template: grunt
    position: {x: 100, y: 0}
  - template: grunt
    position: {x: 150, y: 50}
`

const skirmisherYAML = `
domain:
  id: skirmisher
  tasks:
    - id: behave
      description: root
  methods:
    - task: behave
      id: press
      precondition: should_press
      subtasks: [attack]
  operators:
    - id: attack
      action: queue_attack
`

const globalLua = `
function should_press(unit_id, distance, health, busy)
  return true
end
`

const gateLua = `
function on_encounter_complete(id)
  engine.log("cleared " .. id)
end
`

// writeContent lays out a minimal content tree and returns a valid config
// pointing at it.
func writeContent(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"archetypes/grunt.yaml":     gruntYAML,
		"encounters/gate.yaml":      gateYAML,
		"ai/skirmisher.yaml":        skirmisherYAML,
		"scripts/global.lua":        globalLua,
		"scripts/gate/complete.lua": gateLua,
	}
	for name, body := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	cfg, err := config.LoadFromViper(config.New())
	require.NoError(t, err)
	cfg.Content.ArchetypeDir = filepath.Join(root, "archetypes")
	cfg.Content.EncounterDir = filepath.Join(root, "encounters")
	cfg.Content.AIDir = filepath.Join(root, "ai")
	cfg.Content.ScriptDir = filepath.Join(root, "scripts")
	cfg.Save.Backend = config.BackendMemory
	cfg.Save.Slot = "test"
	return &cfg
}

func assemble(t *testing.T, cfg *config.Config, presenter combat.Presenter) *gameserver.Assembly {
	t.Helper()
	bundle, err := content.Load(cfg.Content)
	require.NoError(t, err)
	a, err := gameserver.Assemble(gameserver.Deps{
		Config:    cfg,
		Bundle:    bundle,
		Store:     checkpoint.NewMemoryStore(),
		Roller:    dice.NewLoggedRoller(dice.NewSeededSource(7), nil),
		Presenter: presenter,
		Logger:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}
