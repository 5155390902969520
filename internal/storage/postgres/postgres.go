// Package postgres persists checkpoints in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
)

const sqlStateForeignKey = "23503"

// DialPolicy bounds how long NewPool keeps retrying an unreachable server.
type DialPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultDialPolicy tolerates a database container that is still starting.
var DefaultDialPolicy = DialPolicy{Attempts: 5, Backoff: 500 * time.Millisecond}

// Pool owns the pgx pool shared by the checkpoint repository.
type Pool struct {
	pool   *pgxpool.Pool
	target string
}

// NewPool connects with DefaultDialPolicy.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	return Dial(ctx, cfg, DefaultDialPolicy, zap.NewNop())
}

// Dial builds a pool from cfg and pings it, doubling the wait between
// failed pings until policy.Attempts is spent or ctx ends.
//
// Precondition: cfg holds a parseable DSN.
// Postcondition: On success the pool has answered at least one ping.
func Dial(ctx context.Context, cfg config.DatabaseConfig, policy DialPolicy, logger *zap.Logger) (*Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pg, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	p := &Pool{pool: pg, target: fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Name)}

	attempts := max(policy.Attempts, 1)
	wait := policy.Backoff
	for attempt := 1; ; attempt++ {
		err = pg.Ping(ctx)
		if err == nil {
			return p, nil
		}
		if attempt >= attempts || ctx.Err() != nil {
			break
		}
		logger.Warn("database not ready",
			zap.String("target", p.target),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
		wait *= 2
	}
	pg.Close()
	return nil, fmt.Errorf("pinging %s: %w", p.target, err)
}

// Ping reports whether the server answers within timeout.
func (p *Pool) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Monitor pings every interval until ctx ends, calling report with each
// result. It always returns nil.
func (p *Pool) Monitor(ctx context.Context, interval time.Duration, report func(error)) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			report(p.Ping(ctx, interval/2))
		}
	}
}

// Target names the server for log lines.
func (p *Pool) Target() string { return p.target }

// Close releases every connection.
func (p *Pool) Close() { p.pool.Close() }

// DB exposes the pgx pool to repositories.
func (p *Pool) DB() *pgxpool.Pool { return p.pool }

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateForeignKey
}
