// Package database opens the PostgreSQL pool shared by the sqlx inventory repository and the
// gorm compliance stores.
package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"carbex/compliance-portal/compliance-backend/internal/config"
)

// Connect opens the sqlx pool and a gorm handle on the same connections
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db.DB,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	return db, gormDB, nil
}
