// Package database owns the pgx connection pool the repositories run on.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/twitchyvr/MycoLab-sub010/internal/config"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// PostgresDB wraps a pgxpool.Pool sized and tuned from the application
// config. Repositories borrow the pool; only this package opens or closes
// it.
type PostgresDB struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPostgresDB connects using the config's DSN and verifies the connection
// with a ping before handing the pool out.
func NewPostgresDB(ctx context.Context, cfg *config.Config, log logger.Logger) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.DatabaseMaxConns
	poolConfig.MinConns = cfg.DatabaseMinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection pool established",
		"host", cfg.DatabaseHost,
		"database", cfg.DatabaseName,
		"max_conns", cfg.DatabaseMaxConns,
		"min_conns", cfg.DatabaseMinConns,
	)

	return &PostgresDB{
		pool: pool,
		log:  log,
	}, nil
}

func (p *PostgresDB) Close() {
	p.log.Info("Closing database connection pool")
	p.pool.Close()
}

func (p *PostgresDB) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
