package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/logger"
)

// PostgresConfig contains audit database settings.
type PostgresConfig struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT NOT NULL,
	dataset     TEXT NOT NULL DEFAULT '',
	field       TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	action      TEXT NOT NULL,
	reason      TEXT NOT NULL,
	detector    TEXT NOT NULL DEFAULT '',
	confidence  DOUBLE PRECISION NOT NULL,
	span_start  INTEGER NOT NULL,
	span_length INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_run_id ON audit_entries (run_id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_created_at ON audit_entries (created_at);
`

const insertEntry = `
INSERT INTO audit_entries
	(run_id, dataset, field, type, action, reason, detector, confidence, span_start, span_length, created_at)
VALUES
	(:run_id, :dataset, :field, :type, :action, :reason, :detector, :confidence, :span_start, :span_length, :created_at)`

// PostgresSink persists audit entries to PostgreSQL for long-term
// compliance queries.
type PostgresSink struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresSink connects, configures the pool and ensures the schema.
func NewPostgresSink(cfg *PostgresConfig, log *logger.Logger) (*PostgresSink, error) {
	if log == nil {
		log = logger.Nop()
	}
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect audit database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}

	s := &PostgresSink{db: db, log: log.WithComponent("audit-postgres")}
	s.log.Info("audit database connected",
		zap.Int("max_open_conns", cfg.MaxOpenConns))
	return s, nil
}

// Write inserts the batch inside one transaction.
func (s *PostgresSink) Write(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertEntry, entries); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert audit entries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
