package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"paylink-checkout/internal/config"
	"paylink-checkout/internal/logger"

	_ "github.com/lib/pq"
)

// ErrNotConfigured is returned when DB_URL is empty. The settlement journal
// is optional, callers treat this as "run without persistence".
var ErrNotConfigured = errors.New("database is not configured")

const pingTimeout = 5 * time.Second

func NewDatabase(cfg *config.Config) (*sql.DB, error) {
	return newDatabaseWithDriver(cfg, "postgres")
}

func newDatabaseWithDriver(cfg *config.Config, driver string) (*sql.DB, error) {
	if cfg.DBURL == "" {
		return nil, ErrNotConfigured
	}

	db, err := sql.Open(driver, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.L().Info("Database connection established")
	return db, nil
}
