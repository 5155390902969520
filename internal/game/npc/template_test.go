package npc_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
)

const gruntYAML = `
id: grunt
name: Grunt
description: A brawler with a club.
archetype: melee
max_health: 30
damage: 1d3+1
`

const bruteYAML = `
id: brute
name: Brute
archetype: brute
max_health: 120
damage: "8"
ai_domain: brute_yard
brute:
  charge_chance: 70
  stun_time: 2s
timings:
  wind_up: 450ms
`

func TestLoadTemplateFromBytes_Melee(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte(gruntYAML))
	require.NoError(t, err)
	p := tmpl.Profile()
	assert.Equal(t, "Grunt", p.Name)
	assert.Equal(t, combat.ArchetypeMelee, p.Archetype)
	assert.Equal(t, combat.TeamHostile, p.Team)
	assert.Equal(t, combat.ClassBasic, p.Class)
	assert.Equal(t, 30, p.MaxHealth)
	assert.Equal(t, 50.0, p.CounterableChance)
	assert.Equal(t, 1, p.Damage.Count)
	assert.Equal(t, 3, p.Damage.Sides)
	assert.False(t, tmpl.HasOverrides())
}

func TestLoadTemplateFromBytes_BruteDefaultsHeavyAndOverrides(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte(bruteYAML))
	require.NoError(t, err)
	p := tmpl.Profile()
	assert.Equal(t, combat.ClassHeavy, p.Class)
	assert.Zero(t, p.CounterableChance)
	assert.Equal(t, "brute_yard", p.AIDomain)

	base := combat.DefaultTuning()
	tuned := tmpl.Tuning(base)
	assert.Equal(t, 70.0, tuned.Brute.ChargeChance)
	assert.Equal(t, 2*time.Second, tuned.Brute.StunTime)
	assert.Equal(t, 450*time.Millisecond, tuned.Enemy.WindUp)
	assert.Equal(t, base.Brute.SwipeTime, tuned.Brute.SwipeTime)
	assert.Equal(t, base.Enemy.CompletionTime, tuned.Enemy.CompletionTime)
	assert.Equal(t, 40.0, base.Brute.ChargeChance, "base tuning is untouched")
}

func TestTemplate_ExplicitZeroChance(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte(gruntYAML + "counterable_chance: 0\n"))
	require.NoError(t, err)
	assert.Zero(t, tmpl.Profile().CounterableChance)
}

func TestTemplate_ValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing id":      "name: X\narchetype: melee\nmax_health: 1",
		"missing name":    "id: x\narchetype: melee\nmax_health: 1",
		"player":          "id: x\nname: X\narchetype: player\nmax_health: 1",
		"unknown":         "id: x\nname: X\narchetype: dragon\nmax_health: 1",
		"no health":       "id: x\nname: X\narchetype: melee",
		"bad dice":        "id: x\nname: X\narchetype: melee\nmax_health: 1\ndamage: d",
		"bad class":       "id: x\nname: X\narchetype: melee\nmax_health: 1\nclass: epic",
		"chance too high": "id: x\nname: X\narchetype: melee\nmax_health: 1\ncounterable_chance: 120",
		"bad duration":    "id: x\nname: X\narchetype: melee\nmax_health: 1\ntimings: {wind_up: soon}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := npc.LoadTemplateFromBytes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestTemplate_UnknownArchetypeWrapsSentinel(t *testing.T) {
	_, err := npc.LoadTemplateFromBytes([]byte("id: x\nname: X\narchetype: dragon\nmax_health: 1"))
	assert.ErrorIs(t, err, combat.ErrUnknownArchetype)
}

func TestLoadTemplates_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grunt.yaml"), []byte(gruntYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brute.yaml"), []byte(bruteYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# notes"), 0o644))

	templates, err := npc.LoadTemplates(dir)
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestLoadTemplates_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(":::invalid"), 0o644))
	_, err := npc.LoadTemplates(dir)
	assert.Error(t, err)
}

func TestProperty_Template_ValidHealthAndChanceLoad(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		health := rapid.IntRange(1, 500).Draw(rt, "health")
		chance := rapid.IntRange(0, 100).Draw(rt, "chance")
		arch := rapid.SampledFrom([]string{"melee", "ranged", "brute"}).Draw(rt, "archetype")
		doc := fmt.Sprintf("id: x\nname: X\narchetype: %s\nmax_health: %d\ncounterable_chance: %d\n", arch, health, chance)

		tmpl, err := npc.LoadTemplateFromBytes([]byte(doc))
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		p := tmpl.Profile()
		if p.MaxHealth != health || p.CounterableChance != float64(chance) {
			rt.Fatalf("profile mismatch: %+v", p)
		}
	})
}
