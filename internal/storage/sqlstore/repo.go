// Package sqlstore implements storage.Repository on database/sql for the
// SQLite, MySQL and SQL Server backends. Rows are inserted with a prepared
// statement inside one transaction per batch.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"csvclean/internal/storage"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Repository is a database/sql-backed storage.Repository.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

var _ storage.Repository = (*Repository)(nil)

// Open validates the DSN, opens a pool and pings it.
func Open(ctx context.Context, d Dialect, cfg storage.Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", d.Kind)
	}
	if d.CheckDSN != nil {
		if err := d.CheckDSN(cfg.DSN); err != nil {
			return nil, fmt.Errorf("%s dsn: %w", d.Kind, err)
		}
	}

	db, err := sql.Open(d.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Kind, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Kind, err)
	}
	return &Repository{db: db, dialect: d, table: cfg.Table}, nil
}

// CopyFrom inserts rows in a single transaction with a prepared INSERT.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: CopyFrom: columns must not be empty", r.dialect.Kind)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", r.dialect.Kind, err)
	}
	stmt, err := tx.PrepareContext(ctx, r.dialect.InsertSQL(r.table, columns))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: prepare insert: %w", r.dialect.Kind, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: CopyFrom: row length %d != columns length %d", r.dialect.Kind, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: insert: %w", r.dialect.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", r.dialect.Kind, err)
	}
	return int64(len(rows)), nil
}

// Exec executes a statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: exec: %w", r.dialect.Kind, err)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() { _ = r.db.Close() }

// DB exposes the pool for callers that need to read back.
func (r *Repository) DB() *sql.DB { return r.db }

func init() {
	for _, d := range []Dialect{SQLite, MySQL, MSSQL} {
		d := d
		storage.Register(d.Kind,
			func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
				return Open(ctx, d, cfg)
			},
			d.CreateTableSQL,
		)
	}
}
