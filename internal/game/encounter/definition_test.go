package encounter_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
)

const courtyardYAML = `
id: courtyard
name: The Courtyard
region:
  center: {x: 0, y: 0}
  radius: 1200
player_start: {x: -900, y: 0}
checkpoint:
  center: {x: -1000, y: 0}
  radius: 150
units:
  - template: grunt
    position: {x: 100, y: 50}
  - template: grunt
    position: {x: 150, y: -50}
waves:
  - spawn_start_time: 2s
    spawn_points:
      - template: grunt
        count: 3
        interval: 1s
        position: {x: 400, y: 0}
  - spawn_start_time: 10s
    completion_percent: 60
    spawn_points:
      - template: brute
        count: 1
        position: {x: 600, y: 0}
`

func TestLoadDefinitionFromBytes(t *testing.T) {
	d, err := encounter.LoadDefinitionFromBytes([]byte(courtyardYAML))
	require.NoError(t, err)
	assert.Equal(t, "courtyard", d.ID)
	assert.Equal(t, 1200.0, d.Region.Radius)
	require.NotNil(t, d.Checkpoint)
	assert.Equal(t, combat.Vec{X: -1000}, d.Checkpoint.Center)
	require.Len(t, d.Units, 2)
	require.Len(t, d.Waves, 2)
	assert.Equal(t, 60.0, d.Waves[1].CompletionPercent)
	assert.Equal(t, []string{"grunt", "brute"}, d.Templates())
}

func TestDefinition_ValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing id":       "region: {radius: 10}",
		"zero radius":      "id: a\nregion: {radius: 0}",
		"bad checkpoint":   "id: a\nregion: {radius: 10}\ncheckpoint: {radius: 0}",
		"unnamed unit":     "id: a\nregion: {radius: 10}\nunits: [{position: {x: 1}}]",
		"bad duration":     "id: a\nregion: {radius: 10}\nwaves: [{spawn_start_time: soon}]",
		"negative delay":   "id: a\nregion: {radius: 10}\nwaves: [{spawn_start_time: -1s}]",
		"percent too high": "id: a\nregion: {radius: 10}\nwaves: [{completion_percent: 101}]",
		"negative count":   "id: a\nregion: {radius: 10}\nwaves: [{spawn_points: [{template: g, count: -1}]}]",
		"bad interval":     "id: a\nregion: {radius: 10}\nwaves: [{spawn_points: [{template: g, interval: x}]}]",
		"not yaml":         "id: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := encounter.LoadDefinitionFromBytes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestDefinition_BuildPlacesUnitsAndWaves(t *testing.T) {
	d, err := encounter.LoadDefinitionFromBytes([]byte(courtyardYAML))
	require.NoError(t, err)
	env, clk := newEnv(t, 3)
	player := combat.NewPlayer(env, "hero")
	src := &unitFactory{env: env}

	v, err := d.Build(env, player, encounter.DefaultTiming(), encounter.Options{Source: src})
	require.NoError(t, err)
	assert.Equal(t, "courtyard", v.ID())
	units := v.ContainedUnits()
	require.Len(t, units, 2)
	assert.Equal(t, combat.Vec{X: 100, Y: 50}, units[0].Position())

	v.UpdatePlayerPosition(combat.Vec{X: -400})
	v.Sighted(units[0])
	require.True(t, v.IsActive())

	clk.Advance(3 * time.Second)
	assert.Len(t, v.ContainedUnits(), 3, "first wave's first unit arrives")
	clk.Advance(2 * time.Second)
	assert.Len(t, v.ContainedUnits(), 5)
}

func TestDefinition_BuildNeedsSourceForPlacedUnits(t *testing.T) {
	d, err := encounter.LoadDefinitionFromBytes([]byte(courtyardYAML))
	require.NoError(t, err)
	env, _ := newEnv(t, 3)
	_, err = d.Build(env, combat.NewPlayer(env, "hero"), encounter.DefaultTiming(), encounter.Options{})
	assert.Error(t, err)

	d.Units[0].Template = "missing"
	_, err = d.Build(env, combat.NewPlayer(env, "hero"), encounter.DefaultTiming(), encounter.Options{Source: &unitFactory{env: env}})
	assert.ErrorIs(t, err, errNoTemplate)
}

func TestLoadDefinitions_RejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(courtyardYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	defs, err := encounter.LoadDefinitions(dir)
	require.NoError(t, err)
	assert.Len(t, defs, 1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(courtyardYAML), 0o600))
	_, err = encounter.LoadDefinitions(dir)
	assert.ErrorIs(t, err, encounter.ErrDuplicateEncounter)
}

func TestLoadDefinitions_MissingDir(t *testing.T) {
	_, err := encounter.LoadDefinitions(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
