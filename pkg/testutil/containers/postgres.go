//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresContainer is a throwaway Postgres instance for integration tests.
type PostgresContainer struct {
	DSN string
	DB  *sql.DB
}

// NewPostgresContainer starts a Postgres container, applies the given init
// scripts (SQL files, applied in order) and opens a database handle. The
// container and handle are torn down when the test finishes.
func NewPostgresContainer(t *testing.T, initScripts ...string) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	opts := []tcpostgres.Option{
		tcpostgres.WithDatabase("amora_test"),
		tcpostgres.WithUsername("amora"),
		tcpostgres.WithPassword("amora"),
		tcpostgres.BasicWaitStrategies(),
	}
	if len(initScripts) > 0 {
		opts = append(opts, tcpostgres.WithInitScripts(initScripts...))
	}

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine", opts...)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}

	return &PostgresContainer{DSN: dsn, DB: db}
}

// TruncateTables empties the given tables. Run between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}
