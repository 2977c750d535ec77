package database

import (
	"fmt"

	"dify-manga/internal/config"
	"dify-manga/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // SQLite driver
	"go.uber.org/zap"
)

// driverName maps the configured driver to the database/sql driver name.
func driverName(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgres"
}

// Open connects to the configured database and verifies the connection.
func Open(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driverName(cfg.DB.Driver), cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.DB.Driver, err)
	}

	if cfg.DB.Driver == "sqlite" {
		// modernc sqlite allows one writer at a time.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
			}
		}
	}

	logger.Get().Info("Database connection established", zap.String("driver", cfg.DB.Driver))
	return db, nil
}
