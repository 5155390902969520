// Package content loads the data-driven parts of a world: hostile archetype
// templates, encounter definitions, AI domains and Lua scripts.
package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
)

// Bundle is everything loaded from the content directories.
type Bundle struct {
	Templates  []*npc.Template
	Encounters []*encounter.Definition
	Domains    []*ai.Domain
	// GlobalScripts is the directory of scripts shared by every encounter,
	// or empty when there are none.
	GlobalScripts string
	// ScopedScripts maps an encounter ID to its own script directory.
	ScopedScripts map[string]string
}

// Load reads every content directory named by cfg and cross-checks references.
//
// Precondition: ArchetypeDir and EncounterDir must be readable directories.
// Postcondition: ScriptDir and AIDir may be empty or absent. Every template an
// encounter names exists, and every AI domain a template names was loaded.
func Load(cfg config.ContentConfig) (*Bundle, error) {
	templates, err := npc.LoadTemplates(cfg.ArchetypeDir)
	if err != nil {
		return nil, err
	}
	defs, err := encounter.LoadDefinitions(cfg.EncounterDir)
	if err != nil {
		return nil, err
	}
	domains, err := loadDomains(cfg.AIDir)
	if err != nil {
		return nil, err
	}
	b := &Bundle{
		Templates:     templates,
		Encounters:    defs,
		Domains:       domains,
		ScopedScripts: make(map[string]string),
	}
	if err := b.findScripts(cfg.ScriptDir); err != nil {
		return nil, err
	}
	if err := b.Check(); err != nil {
		return nil, err
	}
	return b, nil
}

func loadDomains(dir string) ([]*ai.Domain, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return ai.LoadDomains(dir)
}

// findScripts treats *.lua files directly in dir as global and each
// subdirectory as the scope of the encounter it is named after.
func (b *Bundle) findScripts(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading script dir %q: %w", dir, err)
	}
	for _, e := range entries {
		switch {
		case e.IsDir():
			b.ScopedScripts[e.Name()] = filepath.Join(dir, e.Name())
		case filepath.Ext(e.Name()) == ".lua":
			b.GlobalScripts = dir
		}
	}
	return nil
}

// Check verifies cross-file references.
//
// Postcondition: Returns every dangling reference joined into one error.
func (b *Bundle) Check() error {
	templates := make(map[string]bool, len(b.Templates))
	for _, t := range b.Templates {
		templates[t.ID] = true
	}
	domains := make(map[string]bool, len(b.Domains))
	for _, d := range b.Domains {
		domains[d.ID] = true
	}
	encounters := make(map[string]bool, len(b.Encounters))
	for _, d := range b.Encounters {
		encounters[d.ID] = true
	}

	var errs []error
	for _, d := range b.Encounters {
		for _, id := range d.Templates() {
			if !templates[id] {
				errs = append(errs, fmt.Errorf("encounter %q: %w %q", d.ID, npc.ErrUnknownTemplate, id))
			}
		}
	}
	for _, t := range b.Templates {
		if t.AIDomain != "" && !domains[t.AIDomain] {
			errs = append(errs, fmt.Errorf("template %q: unknown ai domain %q", t.ID, t.AIDomain))
		}
	}
	for _, scope := range b.ScriptScopes() {
		if !encounters[scope] {
			errs = append(errs, fmt.Errorf("script directory %q names no encounter", scope))
		}
	}
	return errors.Join(errs...)
}

// ScriptScopes returns the encounter IDs with their own scripts, sorted.
func (b *Bundle) ScriptScopes() []string {
	out := make([]string, 0, len(b.ScopedScripts))
	for k := range b.ScopedScripts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Encounter returns the definition with the given ID.
func (b *Bundle) Encounter(id string) (*encounter.Definition, bool) {
	for _, d := range b.Encounters {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}
