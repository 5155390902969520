// Package testutil holds helpers shared by container-backed and
// content-driven tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresCreds = "skirmish"
	readyLine     = "database system is ready to accept connections"
)

// PostgresContainer is a throwaway database for one test binary run.
type PostgresContainer struct {
	Pool    *postgres.Pool
	RawPool *pgxpool.Pool
	Config  config.DatabaseConfig
}

// NewPostgresContainer starts a database container and connects to it.
// The container and pool are torn down with the test.
//
// Precondition: a Docker daemon is reachable.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	began := time.Now()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     postgresCreds,
				"POSTGRES_PASSWORD": postgresCreds,
				"POSTGRES_DB":       postgresCreds,
			},
			// postgres logs the ready line once for the init server and
			// again for the real one.
			WaitingFor: wait.ForLog(readyLine).WithOccurrence(2).WithStartupTimeout(45 * time.Second),
		},
	})
	if err != nil {
		t.Fatalf("starting %s: %v", postgresImage, err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     postgresCreds,
		Password: postgresCreds,
		Name:     postgresCreds,
		SSLMode:  "disable",
		MaxConns: 4,
	}
	pool, err := postgres.Dial(ctx, cfg, postgres.DefaultDialPolicy, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("dialing test database: %v", err)
	}
	t.Cleanup(pool.Close)
	t.Logf("postgres ready at %s after %s", pool.Target(), time.Since(began).Round(time.Millisecond))

	return &PostgresContainer{Pool: pool, RawPool: pool.DB(), Config: cfg}
}

// ApplyMigrations runs the repository's migrations against the container
// with the same code path as cmd/migrate.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	source := "file://" + filepath.ToSlash(filepath.Join(RepoRoot(t), "migrations"))
	res, err := postgres.Migrate(source, pc.Config.DSN(), postgres.Up, 0)
	if err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	if res.Dirty {
		t.Fatalf("schema left dirty at version %d", res.Version)
	}
}

// DSN is the connection string for the container database.
func (pc *PostgresContainer) DSN() string { return pc.Config.DSN() }

// RepoRoot finds the module root by walking up to go.mod.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		up := filepath.Dir(dir)
		if up == dir {
			t.Fatal("no go.mod above the working directory")
		}
		dir = up
	}
}
