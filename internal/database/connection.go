package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusstay/reservation-backend/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresDB wraps the sqlx connection pool shared by all repositories
type PostgresDB struct {
	*sqlx.DB
}

// NewConnection creates a new database connection using the configured driver
func NewConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Driver {
	case "pgx":
		db, err = connectPgx(cfg.URL)
	default:
		db, err = sqlx.Connect("postgres", cfg.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// connectPgx registers a pgx config with database/sql and opens it through sqlx.
// Transaction-mode poolers (port 6543) need the simple protocol because they
// drop unnamed prepared statements between transactions.
func connectPgx(url string) (*sqlx.DB, error) {
	pgxConfig, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if strings.Contains(url, ":6543") {
		pgxConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	connStr := stdlib.RegisterConnConfig(pgxConfig)
	return sqlx.Connect("pgx", connStr)
}

// Healthy pings the database within the given context
func (db *PostgresDB) Healthy(ctx context.Context) error {
	return db.PingContext(ctx)
}
