package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ludafarma/dbgate/internal/database"
)

// Connect establishes a pooled connection to a PostgreSQL database and
// verifies it with a ping before handing it out.
func Connect(ctx context.Context, cfg *database.LogicalConfig) (*pgxpool.Pool, error) {
	params := cfg.Relational

	var connString strings.Builder
	fmt.Fprintf(&connString, "postgres://%s:%s@%s:%d/%s",
		params.Username,
		params.Password,
		params.Host,
		params.Port,
		params.DatabaseName)

	if params.SSL {
		fmt.Fprintf(&connString, "?sslmode=%s", sslMode(params))
	} else {
		connString.WriteString("?sslmode=disable")
	}

	poolConfig, err := pgxpool.ParseConfig(connString.String())
	if err != nil {
		return nil, fmt.Errorf("error parsing connection string: %v", err)
	}
	if params.MaxConns > 0 {
		poolConfig.MaxConns = params.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %v", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %v", err)
	}

	return pool, nil
}

func sslMode(params *database.RelationalParams) string {
	if params.SSLMode != "" {
		return params.SSLMode
	}
	return "verify-full"
}
