package gameserver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/checkpoint"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/storage/slot"
)

// Backend is an open checkpoint store. Pool is set only for the postgres
// backend.
type Backend struct {
	Store checkpoint.Store
	Pool  *postgres.Pool
}

// Close releases the backend's connections, if any.
func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// OpenStore opens the checkpoint store selected by cfg.Save.Backend.
//
// Precondition: cfg must have passed Validate.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	fields := []zap.Field{zap.String("backend", cfg.Save.Backend)}
	var b Backend
	switch cfg.Save.Backend {
	case config.BackendPostgres:
		pool, err := postgres.Dial(ctx, cfg.Database, postgres.DefaultDialPolicy, logger)
		if err != nil {
			return nil, fmt.Errorf("opening checkpoint database: %w", err)
		}
		b = Backend{Store: postgres.NewCheckpointRepository(pool.DB()), Pool: pool}
		fields = append(fields, zap.String("target", pool.Target()))
	case config.BackendLocal:
		store, err := slot.Open(cfg.Save.AppName, logger)
		if err != nil {
			return nil, fmt.Errorf("opening local save data: %w", err)
		}
		b = Backend{Store: store}
		fields = append(fields, zap.String("app", cfg.Save.AppName))
	case config.BackendMemory, "":
		b = Backend{Store: checkpoint.NewMemoryStore()}
		fields[0] = zap.String("backend", config.BackendMemory)
	default:
		return nil, fmt.Errorf("unknown save backend %q", cfg.Save.Backend)
	}
	logger.Info("checkpoint store ready", fields...)
	return &b, nil
}

// Serving is the part of HealthService a DatabaseMonitor drives.
type Serving interface {
	SetServing(bool)
}

// NewDatabaseMonitor pings pool every interval and flips health to
// NOT_SERVING while the database is unreachable. Only transitions are logged.
func NewDatabaseMonitor(pool *postgres.Pool, interval time.Duration, health Serving, logger *zap.Logger) *DatabaseMonitor {
	m := &DatabaseMonitor{pool: pool, interval: interval, health: health, logger: logger, up: true}
	if pool != nil {
		m.target = pool.Target()
	}
	return m
}

// DatabaseMonitor is a server.Service.
type DatabaseMonitor struct {
	pool     *postgres.Pool
	interval time.Duration
	health   Serving
	logger   *zap.Logger
	target   string
	up       bool
}

func (m *DatabaseMonitor) Start(ctx context.Context) error {
	return m.pool.Monitor(ctx, m.interval, m.Observe)
}

func (m *DatabaseMonitor) Stop() {}

// Observe applies one ping result. It is called from the monitor goroutine
// only.
func (m *DatabaseMonitor) Observe(err error) {
	up := err == nil
	if up == m.up {
		return
	}
	m.up = up
	m.health.SetServing(up)
	if up {
		m.logger.Info("checkpoint database reachable again", zap.String("target", m.target))
		return
	}
	m.logger.Warn("checkpoint database unreachable", zap.String("target", m.target), zap.Error(err))
}
