package encounter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ErrDuplicateEncounter is returned when two definitions share an ID.
var ErrDuplicateEncounter = errors.New("duplicate encounter id")

// PlacedUnit is a hostile standing in the encounter before it triggers.
type PlacedUnit struct {
	Template string     `yaml:"template"`
	Position combat.Vec `yaml:"position"`
}

// SpawnPointDef configures one TimedSpawnPoint.
type SpawnPointDef struct {
	Template string     `yaml:"template"`
	Count    int        `yaml:"count"`
	Interval string     `yaml:"interval"`
	Position combat.Vec `yaml:"position"`
}

// WaveDef configures one wave.
type WaveDef struct {
	SpawnStartTime    string          `yaml:"spawn_start_time"`
	CompletionPercent float64         `yaml:"completion_percent"`
	SpawnPoints       []SpawnPointDef `yaml:"spawn_points"`
}

// Definition describes one encounter loaded from YAML.
type Definition struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Region      Region       `yaml:"region"`
	PlayerStart combat.Vec   `yaml:"player_start"`
	Checkpoint  *Region      `yaml:"checkpoint"`
	Units       []PlacedUnit `yaml:"units"`
	Waves       []WaveDef    `yaml:"waves"`
}

// Validate checks that the definition satisfies basic invariants.
//
// Postcondition: Returns nil iff ID is non-empty, the region radius is
// positive, every template is named, counts are non-negative, percents lie in
// [0, 100] and every duration parses.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return errors.New("encounter: id must not be empty")
	}
	if d.Region.Radius <= 0 {
		return fmt.Errorf("encounter %q: region radius must be > 0", d.ID)
	}
	if d.Checkpoint != nil && d.Checkpoint.Radius <= 0 {
		return fmt.Errorf("encounter %q: checkpoint radius must be > 0", d.ID)
	}
	for i, u := range d.Units {
		if u.Template == "" {
			return fmt.Errorf("encounter %q: unit %d has no template", d.ID, i)
		}
	}
	for i, w := range d.Waves {
		if _, err := parseDelay(w.SpawnStartTime); err != nil {
			return fmt.Errorf("encounter %q wave %d: spawn_start_time: %w", d.ID, i, err)
		}
		if w.CompletionPercent < 0 || w.CompletionPercent > 100 {
			return fmt.Errorf("encounter %q wave %d: completion_percent must be in [0, 100]", d.ID, i)
		}
		for j, sp := range w.SpawnPoints {
			if sp.Template == "" {
				return fmt.Errorf("encounter %q wave %d spawn point %d: template must not be empty", d.ID, i, j)
			}
			if sp.Count < 0 {
				return fmt.Errorf("encounter %q wave %d spawn point %d: count must be >= 0", d.ID, i, j)
			}
			if _, err := parseDelay(sp.Interval); err != nil {
				return fmt.Errorf("encounter %q wave %d spawn point %d: interval: %w", d.ID, i, j, err)
			}
		}
	}
	return nil
}

// Templates returns every template the definition references, deduplicated.
func (d *Definition) Templates() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, u := range d.Units {
		add(u.Template)
	}
	for _, w := range d.Waves {
		for _, sp := range w.SpawnPoints {
			add(sp.Template)
		}
	}
	return out
}

// Build creates a dormant Volume with its spawn points and pre-placed units.
//
// Precondition: d is valid; opts.Source must be non-nil when d places units.
// Postcondition: Returns an error when a pre-placed unit cannot be acquired.
func (d *Definition) Build(env *combat.Env, player *combat.Actor, timing Timing, opts Options) (*Volume, error) {
	waves := make([]Wave, 0, len(d.Waves))
	for _, wd := range d.Waves {
		start, _ := parseDelay(wd.SpawnStartTime)
		w := Wave{SpawnStartTime: start, CompletionPercent: wd.CompletionPercent}
		for _, sd := range wd.SpawnPoints {
			interval, _ := parseDelay(sd.Interval)
			w.SpawnPoints = append(w.SpawnPoints,
				NewTimedSpawnPoint(env.Clock, env.Logger, sd.Template, sd.Count, interval, sd.Position))
		}
		waves = append(waves, w)
	}
	v := NewVolume(d.ID, d.Region, timing, env, player, waves, opts)
	for _, pu := range d.Units {
		if opts.Source == nil {
			return nil, fmt.Errorf("encounter %q: no unit source for placed units", d.ID)
		}
		unit, err := opts.Source.Acquire(pu.Template)
		if err != nil {
			return nil, fmt.Errorf("encounter %q: placing %q: %w", d.ID, pu.Template, err)
		}
		unit.SetPosition(pu.Position)
		v.AddUnit(unit)
	}
	return v, nil
}

func parseDelay(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}

// LoadDefinitionFromBytes parses a single encounter definition from raw YAML bytes.
//
// Postcondition: Returns a validated *Definition, or an error.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing encounter YAML: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDefinitions reads all *.yaml files in dir, sorted by file name.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all definitions or the first error; IDs are unique.
func LoadDefinitions(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading encounter dir %q: %w", dir, err)
	}
	seen := make(map[string]string)
	var defs []*Definition
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		d, err := LoadDefinitionFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if prev, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: %q in %q and %q", ErrDuplicateEncounter, d.ID, prev, path)
		}
		seen[d.ID] = path
		defs = append(defs, d)
	}
	return defs, nil
}
