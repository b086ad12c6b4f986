//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/couckoo/couckoo/internal/lsh"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := NewPool(Config{URL: dbURL, MaxOpenConns: 5, MaxIdleConns: 2})
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestRunRepositoryRoundTrip(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewRunRepository(pool)

	run := &Run{
		InputDir:  "data",
		HashSize:  16,
		Bands:     16,
		Threshold: 0.8,
		Labels: map[string]int{
			"data/a.png": 0,
			"data/b.png": 0,
			"data/c.png": 1,
		},
		Scores: []lsh.Score{
			{A: "data/a.png", B: "data/b.png", Similarity: 0.96875},
		},
	}

	id, err := repo.Save(ctx, run)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("Save returned nil run id")
	}

	loaded, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if loaded.InputDir != run.InputDir || loaded.HashSize != run.HashSize ||
		loaded.Bands != run.Bands || loaded.Threshold != run.Threshold {
		t.Errorf("loaded run parameters differ: %+v", loaded)
	}
	if len(loaded.Labels) != len(run.Labels) {
		t.Fatalf("loaded %d labels; want %d", len(loaded.Labels), len(run.Labels))
	}
	for file, label := range run.Labels {
		if loaded.Labels[file] != label {
			t.Errorf("label for %s = %d; want %d", file, loaded.Labels[file], label)
		}
	}
	if len(loaded.Scores) != 1 || loaded.Scores[0] != run.Scores[0] {
		t.Errorf("loaded scores %v; want %v", loaded.Scores, run.Scores)
	}
}

func TestRunRepositoryGetMissing(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	_, err := NewRunRepository(pool).Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("error = %v; want ErrRunNotFound", err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	// Migrations already ran in setup; running again must be a no-op.
	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}
