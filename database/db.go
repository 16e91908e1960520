// database/db.go - Database Connection (PostgreSQL)
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
	LogSQL       bool
}

// InitDB connects to PostgreSQL, configures the pool and runs migrations.
func InitDB(dsn string, pool PoolConfig, log zerolog.Logger) (*gorm.DB, error) {
	conn, err := Open(postgres.Open(dsn), pool, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	log.Info().Msg("✅ PostgreSQL database connected successfully")

	if err := RunMigrations(conn, log); err != nil {
		return nil, err
	}

	db = conn
	return db, nil
}

// Open opens a gorm connection on any dialector with the shared settings.
func Open(dialector gorm.Dialector, pool PoolConfig, log zerolog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if pool.LogSQL {
		level = logger.Info
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(gormWriter{log: log.With().Str("component", "gorm").Logger()}, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.ConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnLifetime)
	}

	return conn, nil
}

// HealthCheck pings the database with a short timeout.
func HealthCheck() error {
	if db == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// CloseDB closes the database connection
func CloseDB() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// gormWriter routes gorm's logger into zerolog.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msgf(format, args...)
}
