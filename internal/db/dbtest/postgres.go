// Package dbtest starts a disposable Postgres for repository integration tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"creator-access-gate/internal/db"
	"creator-access-gate/internal/db/migrate"
)

var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

// Postgres returns a migrated database shared by all tests in the process, with every table
// truncated. Skips the test under -short or when no container runtime is reachable.
func Postgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in -short mode")
	}

	pgOnce.Do(func() {
		pgDSN, pgErr = startContainer(context.Background())
		if pgErr == nil {
			pgErr = migrate.Up(pgDSN)
		}
	})
	if pgErr != nil {
		t.Skipf("postgres container unavailable: %v", pgErr)
	}

	conn, err := db.Open(pgDSN)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if _, err := conn.Exec(`TRUNCATE access_events, credentials, creators`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return conn
}

func startContainer(ctx context.Context) (dsn string, err error) {
	defer func() {
		// testcontainers panics when no Docker host can be found.
		if r := recover(); r != nil {
			err = fmt.Errorf("start postgres container: %v", r)
		}
	}()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "gate",
			"POSTGRES_PASSWORD": "gate",
			"POSTGRES_DB":       "gate",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return "", fmt.Errorf("get postgres host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", fmt.Errorf("get postgres port: %w", err)
	}
	return fmt.Sprintf("postgres://gate:gate@%s:%s/gate?sslmode=disable", host, port.Port()), nil
}

// InsertCreator adds a creator row and returns its id.
func InsertCreator(t *testing.T, conn *sql.DB, name, slug string) string {
	t.Helper()
	var id string
	err := conn.QueryRow(
		`INSERT INTO creators (id, name, slug) VALUES (gen_random_uuid(), $1, $2) RETURNING id`, name, slug,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert creator: %v", err)
	}
	return id
}
