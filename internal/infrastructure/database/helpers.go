package database

import (
	"context"
	"fmt"
	"time"

	"bikeshop-backend/pkg/logger"
)

// HealthCheck pings the database with a short timeout and verifies the
// pool still holds connections.
func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(healthCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if db.Pool.Stat().TotalConns() == 0 {
		return fmt.Errorf("no active database connections")
	}

	return nil
}

// Close shuts the pool down. Safe to call more than once.
func (db *PostgresDB) Close() error {
	if db.Pool == nil {
		return nil
	}

	db.Pool.Close()
	db.Pool = nil

	logger.Info("PostgreSQL connection pool closed", map[string]interface{}{})
	return nil
}

// PoolStats is a snapshot of pool utilisation exposed on the health endpoint.
type PoolStats struct {
	TotalConns        int32         `json:"total_conns"`
	AcquiredConns     int32         `json:"acquired_conns"`
	IdleConns         int32         `json:"idle_conns"`
	MaxConns          int32         `json:"max_conns"`
	AcquireCount      int64         `json:"acquire_count"`
	EmptyAcquireCount int64         `json:"empty_acquire_count"`
	AvgAcquireTime    time.Duration `json:"avg_acquire_time"`
}

// Stats returns the current pool statistics.
func (db *PostgresDB) Stats() (*PoolStats, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	raw := db.Pool.Stat()
	stats := &PoolStats{
		TotalConns:        raw.TotalConns(),
		AcquiredConns:     raw.AcquiredConns(),
		IdleConns:         raw.IdleConns(),
		MaxConns:          raw.MaxConns(),
		AcquireCount:      raw.AcquireCount(),
		EmptyAcquireCount: raw.EmptyAcquireCount(),
	}
	if stats.AcquireCount > 0 {
		stats.AvgAcquireTime = raw.AcquireDuration() / time.Duration(stats.AcquireCount)
	}

	return stats, nil
}
