// Package main provides the encounter server: a real-time world behind a
// gRPC health endpoint, or a virtual-time autoplay that prints a timeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/content"
	"github.com/cory-johannsen/skirmish/internal/game/checkpoint"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	mode := flag.String("mode", "", "override server.mode: standalone or simulate")
	seed := flag.Uint64("seed", 0, "dice seed for reproducible runs; 0 = crypto random")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *mode != "" {
		cfg.Server.Mode = *mode
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	src := dice.NewCryptoSource()
	if *seed != 0 {
		src = dice.NewSeededSource(*seed)
	}
	roller := dice.NewLoggedRoller(src, logger)

	bundle, err := content.Load(cfg.Content)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}

	backend, err := gameserver.OpenStore(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("opening checkpoint store", zap.Error(err))
	}
	defer backend.Close()

	switch cfg.Server.Mode {
	case config.ModeSimulate:
		err = simulate(ctx, &cfg, bundle, backend.Store, roller, logger)
	default:
		err = serve(ctx, &cfg, bundle, backend, roller, logger, start)
	}
	if err != nil {
		logger.Fatal("encounter server error", zap.Error(err))
	}
}

func serve(ctx context.Context, cfg *config.Config, bundle *content.Bundle, backend *gameserver.Backend, roller *dice.Roller, logger *zap.Logger, start time.Time) error {
	a, err := gameserver.Assemble(gameserver.Deps{
		Config:    cfg,
		Bundle:    bundle,
		Store:     backend.Store,
		Roller:    roller,
		Presenter: combat.LogPresenter{Logger: logger},
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.World.Spawn(ctx); err != nil {
		return fmt.Errorf("spawning player: %w", err)
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("world", gameserver.NewTickService(a.World, cfg.Server.TickInterval, 0, logger))
	if cfg.Content.Watch {
		watch, err := gameserver.NewWatchService(cfg.Content, a, logger)
		if err != nil {
			return err
		}
		lifecycle.Add("content-watch", watch)
	}
	health := gameserver.NewHealthService(cfg.Server.HealthAddr, logger)
	if backend.Pool != nil {
		lifecycle.Add("database", gameserver.NewDatabaseMonitor(backend.Pool, cfg.Database.HealthInterval, health, logger))
	}
	lifecycle.Add("health", health)

	logger.Info("encounter server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Strings("services", lifecycle.Names()),
		zap.String("health_addr", cfg.Server.HealthAddr),
		zap.Duration("tick", cfg.Server.TickInterval),
	)
	return lifecycle.Run(ctx)
}

func simulate(ctx context.Context, cfg *config.Config, bundle *content.Bundle, store checkpoint.Store, roller *dice.Roller, logger *zap.Logger) error {
	var now func() time.Duration
	vtLogger := observability.WithVirtualTime(logger, func() time.Duration {
		if now == nil {
			return 0
		}
		return now()
	})
	timeline := gameserver.NewTimeline(os.Stdout)
	a, err := gameserver.Assemble(gameserver.Deps{
		Config:    cfg,
		Bundle:    bundle,
		Store:     store,
		Roller:    roller,
		Presenter: timeline,
		Logger:    vtLogger,
	})
	if err != nil {
		return err
	}
	defer a.Close()
	now = a.World.Clock().Now

	sim := gameserver.NewSimulation(a.World, timeline, cfg.Server.SimulateDuration, vtLogger)
	report, err := sim.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nfinished=%v virtual=%s completed=%v kills=%d counters=%d deaths=%d\n",
		report.Finished, report.Duration, report.Completed, report.Kills, report.Counters, report.PlayerDeaths)
	return nil
}
