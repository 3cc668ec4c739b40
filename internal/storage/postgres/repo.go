// Package postgres implements a Postgres repository using pgx v5. Batches
// are loaded with the COPY protocol.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"csvclean/internal/storage"
)

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool  *pgxpool.Pool
	table string
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository parses the DSN, opens a pool and pings it.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", describe(err))
	}
	return &Repository{pool: pool, table: cfg.Table}, nil
}

// CopyFrom streams rows into the table with COPY.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("postgres: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, identifier(r.table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("postgres: copy: %w", describe(err))
	}
	return n, nil
}

// Exec executes a statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", describe(err))
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() { r.pool.Close() }

// describe adds SQLSTATE and detail from a server error, keeping the
// original error in the chain.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Detail != "" {
			return fmt.Errorf("%s (SQLSTATE %s, detail: %s): %w", pgErr.Message, pgErr.Code, pgErr.Detail, err)
		}
		return fmt.Errorf("%s (SQLSTATE %s): %w", pgErr.Message, pgErr.Code, err)
	}
	return err
}

// identifier splits a possibly schema-qualified name into a pgx.Identifier.
func identifier(name string) pgx.Identifier {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return pgx.Identifier(parts)
}

// CreateTableSQL returns the DDL for the cleaned-record table.
func CreateTableSQL(table string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("postgres ddl: table name must not be empty")
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  \"name\" TEXT NOT NULL,\n  \"age\" BIGINT NOT NULL,\n  \"city\" TEXT NOT NULL\n);",
		identifier(table).Sanitize(),
	), nil
}

func init() {
	storage.Register("postgres",
		func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
			return NewRepository(ctx, cfg)
		},
		CreateTableSQL,
	)
}
