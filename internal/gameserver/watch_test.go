package gameserver_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/gameserver"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func acquiredHealth(t *testing.T, a *gameserver.Assembly) int {
	t.Helper()
	unit, err := a.World.Pool().Acquire("grunt")
	require.NoError(t, err)
	return unit.MaxHealth()
}

func TestWatchService_ApplyReloadsArchetypes(t *testing.T) {
	cfg := writeContent(t)
	a := assemble(t, cfg, nil)
	svc, err := gameserver.NewWatchService(cfg.Content, a, zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	path := filepath.Join(cfg.Content.ArchetypeDir, "grunt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(gruntYAML, "max_health: 10", "max_health: 40", 1)), 0o644))

	svc.Apply([]string{path})
	assert.Equal(t, 10, acquiredHealth(t, a), "reload waits for the world goroutine")

	a.World.Tick(0)
	assert.Equal(t, 40, acquiredHealth(t, a))
}

func TestWatchService_ApplyKeepsTemplatesOnParseError(t *testing.T) {
	cfg := writeContent(t)
	a := assemble(t, cfg, nil)
	svc, err := gameserver.NewWatchService(cfg.Content, a, zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	path := filepath.Join(cfg.Content.ArchetypeDir, "grunt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: grunt\nmax_health: [oops"), 0o644))
	svc.Apply([]string{path})
	a.World.Tick(0)
	assert.Equal(t, 10, acquiredHealth(t, a))
}

func TestWatchService_ApplyReloadsScripts(t *testing.T) {
	cfg := writeContent(t)
	a := assemble(t, cfg, nil)
	svc, err := gameserver.NewWatchService(cfg.Content, a, zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	path := filepath.Join(cfg.Content.ScriptDir, "gate", "complete.lua")
	require.NoError(t, os.WriteFile(path, []byte(gateLua+"\nfunction fresh() return 1 end\n"), 0o644))
	svc.Apply([]string{path})
	assert.False(t, a.Scripts.HasHook("gate", "fresh"))

	a.World.Tick(0)
	assert.True(t, a.Scripts.HasHook("gate", "fresh"))
	assert.True(t, a.Scripts.HasHook(scripting.GlobalScope, "should_press"))
}

func TestWatchService_EncounterChangesAreOnlyReported(t *testing.T) {
	cfg := writeContent(t)
	a := assemble(t, cfg, nil)
	core, logs := observer.New(zap.InfoLevel)
	svc, err := gameserver.NewWatchService(cfg.Content, a, zap.New(core))
	require.NoError(t, err)
	defer svc.Stop()

	svc.Apply([]string{filepath.Join(cfg.Content.EncounterDir, "gate.yaml")})
	a.World.Tick(0)

	assert.Equal(t, 1, logs.FilterMessage("encounter definitions changed, restart to apply").Len())
	v, ok := a.World.Volume("gate")
	require.True(t, ok)
	assert.Len(t, v.ContainedUnits(), 2)
}

func TestWatchService_DetectsFileEdits(t *testing.T) {
	cfg := writeContent(t)
	cfg.Content.WatchDebounce = 20 * time.Millisecond
	a := assemble(t, cfg, nil)
	svc, err := gameserver.NewWatchService(cfg.Content, a, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Start(ctx) }()
	defer svc.Stop()

	path := filepath.Join(cfg.Content.ArchetypeDir, "grunt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(gruntYAML, "max_health: 10", "max_health: 25", 1)), 0o644))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		a.World.Tick(0)
		if acquiredHealth(t, a) == 25 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("archetype edit was not picked up")
}

const sniperYAML = `
domain:
  id: sniper
  tasks:
    - id: behave
      description: root
  methods:
    - task: behave
      id: wait_for_shot
      precondition: should_hold
      subtasks: [wait]
  operators:
    - id: wait
      action: hold
`

func TestWatchService_ApplyReloadsDomains(t *testing.T) {
	cfg := writeContent(t)
	a := assemble(t, cfg, nil)
	core, logs := observer.New(zap.InfoLevel)
	svc, err := gameserver.NewWatchService(cfg.Content, a, zap.New(core))
	require.NoError(t, err)
	defer svc.Stop()

	path := filepath.Join(cfg.Content.AIDir, "sniper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sniperYAML), 0o644))
	svc.Apply([]string{path})
	assert.Equal(t, []string{"skirmisher"}, a.Registry.IDs())

	a.World.Tick(0)
	assert.Equal(t, []string{"skirmisher", "sniper"}, a.Registry.IDs())
	assert.Equal(t, 1, logs.FilterMessage("ai domains reloaded").Len())
	missing := logs.FilterMessage("ai precondition has no script function").All()
	require.Len(t, missing, 1)
	assert.Equal(t, "should_hold", missing[0].ContextMap()["precondition"])
}

func TestWatchService_BrokenDomainKeepsPlanners(t *testing.T) {
	cfg := writeContent(t)
	a := assemble(t, cfg, nil)
	svc, err := gameserver.NewWatchService(cfg.Content, a, zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	path := filepath.Join(cfg.Content.AIDir, "skirmisher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domain: {id: skirmisher}"), 0o644))
	svc.Apply([]string{path})
	a.World.Tick(0)

	p, ok := a.Registry.PlannerFor("skirmisher")
	require.True(t, ok)
	assert.NotNil(t, p)
}
