// Package database owns the PostgreSQL connection pool and schema
// migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/mkaravel/cryptotrends/internal/config"
)

// Connect opens the pool, applies the configured limits and verifies the
// connection with a ping.
func Connect(ctx context.Context, cfg config.DBConfig, log zerolog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("database connected")
	return db, nil
}

// HealthStats is the pool state reported by the health endpoint.
type HealthStats struct {
	Reachable       bool `json:"reachable"`
	OpenConnections int  `json:"open_connections"`
	InUse           int  `json:"in_use"`
	Idle            int  `json:"idle"`
}

// Health pings the database and reports pool statistics.
func Health(ctx context.Context, db *sqlx.DB) HealthStats {
	stats := db.Stats()
	out := HealthStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	out.Reachable = db.PingContext(pingCtx) == nil
	return out
}
