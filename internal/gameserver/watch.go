package gameserver

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/content"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// Kinds of content change, in the order they are applied.
const (
	changeArchetypes = 1 << iota
	changeScripts
	changeDomains
	changeEncounters
)

// WatchService hot-reloads content while the world runs. Archetype edits
// replace the templates future units are built from, script edits reload the
// Lua VMs, AI domain edits swap planners, and encounter edits are only
// reported: they apply to the next session.
type WatchService struct {
	cfg      config.ContentConfig
	assembly *Assembly
	logger   *zap.Logger
	watcher  *content.Watcher
}

// NewWatchService watches every content directory the bundle was loaded from.
//
// Precondition: cfg.WatchDebounce > 0; a must be non-nil.
func NewWatchService(cfg config.ContentConfig, a *Assembly, logger *zap.Logger) (*WatchService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &WatchService{cfg: cfg, assembly: a, logger: logger}
	dirs := []string{cfg.ArchetypeDir, cfg.EncounterDir}
	if len(a.Bundle.Domains) > 0 {
		dirs = append(dirs, cfg.AIDir)
	}
	if a.Bundle.GlobalScripts != "" || len(a.Bundle.ScopedScripts) > 0 {
		dirs = append(dirs, cfg.ScriptDir)
		for _, scope := range a.Bundle.ScriptScopes() {
			dirs = append(dirs, a.Bundle.ScopedScripts[scope])
		}
	}
	w, err := content.NewWatcher(dirs, cfg.WatchDebounce, s.Apply, logger)
	if err != nil {
		return nil, err
	}
	s.watcher = w
	return s, nil
}

// Start blocks delivering change batches until ctx is cancelled.
func (s *WatchService) Start(ctx context.Context) error {
	return s.watcher.Run(ctx)
}

// Stop closes the file watcher.
func (s *WatchService) Stop() {
	if err := s.watcher.Close(); err != nil {
		s.logger.Warn("closing content watcher", zap.Error(err))
	}
}

// Apply reloads whatever the changed paths touch. Reloads run on the world
// goroutine; a reload that fails to parse keeps the previous content.
func (s *WatchService) Apply(paths []string) {
	kinds := s.classify(paths)
	if kinds&changeArchetypes != 0 {
		s.reloadArchetypes()
	}
	if kinds&changeScripts != 0 {
		s.reloadScripts()
	}
	if kinds&changeDomains != 0 {
		s.reloadDomains()
	}
	if kinds&changeEncounters != 0 {
		s.logger.Info("encounter definitions changed, restart to apply",
			zap.Strings("paths", paths),
		)
	}
}

func (s *WatchService) classify(paths []string) int {
	archetypes := filepath.Clean(s.cfg.ArchetypeDir)
	encounters := filepath.Clean(s.cfg.EncounterDir)
	scripts := filepath.Clean(s.cfg.ScriptDir)
	domains := filepath.Clean(s.cfg.AIDir)
	kinds := 0
	for _, p := range paths {
		dir := filepath.Clean(filepath.Dir(p))
		switch {
		case dir == archetypes:
			kinds |= changeArchetypes
		case dir == encounters:
			kinds |= changeEncounters
		case s.cfg.AIDir != "" && dir == domains:
			kinds |= changeDomains
		case s.cfg.ScriptDir != "" && (dir == scripts || filepath.Dir(dir) == scripts):
			kinds |= changeScripts
		}
	}
	return kinds
}

func (s *WatchService) reloadArchetypes() {
	templates, err := npc.LoadTemplates(s.cfg.ArchetypeDir)
	if err != nil {
		s.logger.Warn("archetype reload failed, keeping previous templates", zap.Error(err))
		return
	}
	w := s.assembly.World
	w.Do(func() { w.ReloadTemplates(templates) })
}

func (s *WatchService) reloadScripts() {
	a := s.assembly
	a.World.Do(func() {
		if err := LoadScripts(a.Scripts, a.Bundle, s.cfg.ScriptInstructionLimit); err != nil {
			s.logger.Warn("script reload failed", zap.Error(err))
			return
		}
		s.logger.Info("scripts reloaded", zap.Strings("scopes", a.Scripts.Scopes()))
	})
}

// reloadDomains swaps in the planners of every domain in the AI directory.
// Domains deleted from disk keep their last planner so live templates that
// name them still resolve.
func (s *WatchService) reloadDomains() {
	domains, err := ai.LoadDomains(s.cfg.AIDir)
	if err != nil {
		s.logger.Warn("ai domain reload failed, keeping previous planners", zap.Error(err))
		return
	}
	a := s.assembly
	a.World.Do(func() {
		for _, d := range domains {
			a.Registry.Replace(d, a.Scripts, scripting.GlobalScope)
		}
		warnMissingPreconditions(domains, a.Scripts, s.logger)
		s.logger.Info("ai domains reloaded",
			zap.Int("loaded", len(domains)),
			zap.Strings("registered", a.Registry.IDs()),
		)
	})
}
