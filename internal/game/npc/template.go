// Package npc provides hostile archetype templates, the factory that turns
// them into combat actors, and the unit pool that recycles those actors.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// defaultCounterableChance applies to melee templates that leave the chance unset.
const defaultCounterableChance = 50

// TimingOverrides replaces shared enemy timings for one template. Zero fields
// inherit the shared value.
type TimingOverrides struct {
	WindUp          time.Duration `yaml:"wind_up"`
	CounterableTime time.Duration `yaml:"counterable_time"`
	CompletionTime  time.Duration `yaml:"completion_time"`
	RecoverTime     time.Duration `yaml:"recover_time"`
	TimeToGetUp     time.Duration `yaml:"time_to_get_up"`
	StunTime        time.Duration `yaml:"stun_time"`
	RepositionTime  time.Duration `yaml:"reposition_time"`
}

// BruteOverrides replaces shared brute settings. Zero fields inherit.
type BruteOverrides struct {
	FarCloseDistance float64       `yaml:"far_close_distance"`
	ChargeChance     float64       `yaml:"charge_chance"`
	SwipeTime        time.Duration `yaml:"swipe_time"`
	ChargeSpeed      float64       `yaml:"charge_speed"`
	ChargeMaxTime    time.Duration `yaml:"charge_max_time"`
	JumpSlamTime     time.Duration `yaml:"jump_slam_time"`
	AoeRadius        float64       `yaml:"aoe_radius"`
	StunTime         time.Duration `yaml:"stun_time"`
}

// RangedOverrides replaces shared ranged settings. Zero fields inherit.
type RangedOverrides struct {
	AimTime      time.Duration `yaml:"aim_time"`
	AimingRange  float64       `yaml:"aiming_range"`
	FireRecovery time.Duration `yaml:"fire_recovery"`
}

// Template defines a reusable hostile archetype loaded from YAML.
type Template struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Archetype   string `yaml:"archetype"`
	MaxHealth   int    `yaml:"max_health"`
	// Damage is a dice expression such as "2" or "1d3+1".
	Damage string `yaml:"damage"`
	// Class is "basic" or "heavy"; empty means heavy for brutes, basic otherwise.
	Class string `yaml:"class"`
	// CounterableChance is the percent chance that a melee attack can be
	// countered. Nil means 50.
	CounterableChance *float64 `yaml:"counterable_chance"`
	AIDomain          string   `yaml:"ai_domain"` // HTN domain ID; empty = brain fallback

	Timings *TimingOverrides `yaml:"timings"`
	Brute   *BruteOverrides  `yaml:"brute"`
	Ranged  *RangedOverrides `yaml:"ranged"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, the archetype is a
// hostile archetype, MaxHealth >= 1, Damage parses, Class is known and the
// counterable chance lies in [0, 100]; returns the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	arch := combat.Archetype(t.Archetype)
	if !arch.Valid() || arch == combat.ArchetypePlayer {
		return fmt.Errorf("npc template %q: %w: %q", t.ID, combat.ErrUnknownArchetype, t.Archetype)
	}
	if t.MaxHealth < 1 {
		return fmt.Errorf("npc template %q: max_health must be >= 1", t.ID)
	}
	if t.Damage != "" {
		if _, err := dice.Parse(t.Damage); err != nil {
			return fmt.Errorf("npc template %q: damage %q: %w", t.ID, t.Damage, err)
		}
	}
	if _, err := combat.ParseAttackClass(t.Class); err != nil {
		return fmt.Errorf("npc template %q: %w", t.ID, err)
	}
	if c := t.CounterableChance; c != nil && (*c < 0 || *c > 100) {
		return fmt.Errorf("npc template %q: counterable_chance must be in [0, 100]", t.ID)
	}
	return nil
}

// Profile converts the template into the combat profile of a hostile.
//
// Precondition: t is valid.
func (t *Template) Profile() combat.Profile {
	arch := combat.Archetype(t.Archetype)
	class, _ := combat.ParseAttackClass(t.Class)
	if t.Class == "" && arch == combat.ArchetypeBrute {
		class = combat.ClassHeavy
	}
	damage := dice.Fixed(0)
	if t.Damage != "" {
		damage = dice.MustParse(t.Damage)
	}
	chance := 0.0
	if arch == combat.ArchetypeMelee {
		chance = defaultCounterableChance
	}
	if t.CounterableChance != nil {
		chance = *t.CounterableChance
	}
	return combat.Profile{
		Name:              t.Name,
		Archetype:         arch,
		Team:              combat.TeamHostile,
		Class:             class,
		MaxHealth:         t.MaxHealth,
		Damage:            damage,
		CounterableChance: chance,
		AIDomain:          t.AIDomain,
	}
}

// Tuning applies the template's overrides to base.
func (t *Template) Tuning(base combat.Tuning) combat.Tuning {
	out := base
	if o := t.Timings; o != nil {
		e := &out.Enemy
		setDuration(&e.WindUp, o.WindUp)
		setDuration(&e.CounterableTime, o.CounterableTime)
		setDuration(&e.CompletionTime, o.CompletionTime)
		setDuration(&e.RecoverTime, o.RecoverTime)
		setDuration(&e.TimeToGetUp, o.TimeToGetUp)
		setDuration(&e.StunTime, o.StunTime)
		setDuration(&e.RepositionTime, o.RepositionTime)
	}
	if o := t.Brute; o != nil {
		b := &out.Brute
		setFloat(&b.FarCloseDistance, o.FarCloseDistance)
		setFloat(&b.ChargeChance, o.ChargeChance)
		setDuration(&b.SwipeTime, o.SwipeTime)
		setFloat(&b.ChargeSpeed, o.ChargeSpeed)
		setDuration(&b.ChargeMaxTime, o.ChargeMaxTime)
		setDuration(&b.JumpSlamTime, o.JumpSlamTime)
		setFloat(&b.AoeRadius, o.AoeRadius)
		setDuration(&b.StunTime, o.StunTime)
	}
	if o := t.Ranged; o != nil {
		r := &out.Ranged
		setDuration(&r.AimTime, o.AimTime)
		setFloat(&r.AimingRange, o.AimingRange)
		setDuration(&r.FireRecovery, o.FireRecovery)
	}
	return out
}

// HasOverrides reports whether the template changes any shared tuning.
func (t *Template) HasOverrides() bool {
	return t.Timings != nil || t.Brute != nil || t.Ranged != nil
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

// LoadTemplateFromBytes parses a single archetype template from raw YAML bytes.
//
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading archetype dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
