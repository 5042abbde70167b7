package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// DatasourceConfig holds tenant datasource connection settings.
type DatasourceConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// NewDatasource opens the tenant MySQL sales database. The pool arbitrates
// all concurrent access to the datasource; callers never take locks around
// query execution.
func NewDatasource(ctx context.Context, cfg *DatasourceConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open datasource: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping datasource: %w", err)
	}

	return db, nil
}
