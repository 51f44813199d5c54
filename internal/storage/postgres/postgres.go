// Package postgres provides the PostgreSQL message and todo repositories
// on a pgx v5 pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tabletop/internal/config"
)

// ErrSchemaMissing is returned by Health when the messages or todos table
// does not exist yet.
var ErrSchemaMissing = errors.New("tabletop schema missing: run cmd/migrate")

// apiConns is the number of connections left for API requests and the
// Telnet console once every research worker holds one.
const apiConns = 4

// Pool wraps a pgx connection pool with health-check and lifecycle methods.
type Pool struct {
	pool *pgxpool.Pool
}

// PoolSize returns the connection bounds for cfg. MaxConns is raised to
// researchWorkers+apiConns when configured lower, so a full research backlog
// cannot starve the API; MinConns is capped at the result.
func PoolSize(cfg config.DatabaseConfig, researchWorkers int) (maxConns, minConns int32) {
	maxConns = cfg.MaxConns
	if need := int32(researchWorkers) + apiConns; maxConns < need {
		maxConns = need
	}
	return maxConns, min(cfg.MinConns, maxConns)
}

// NewPool creates a PostgreSQL connection pool sized for researchWorkers
// background jobs alongside API traffic.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a connected Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, researchWorkers int) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns, poolCfg.MinConns = PoolSize(cfg, researchWorkers)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "tabletop"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Health checks within timeout that the database answers and that the
// messages and todos tables exist.
//
// Postcondition: Returns nil, ErrSchemaMissing, or the query error.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var ok bool
	err := p.pool.QueryRow(ctx,
		`SELECT to_regclass('messages') IS NOT NULL AND to_regclass('todos') IS NOT NULL`,
	).Scan(&ok)
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !ok {
		return ErrSchemaMissing
	}
	return nil
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for the repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
