// Package storage contains backend-agnostic contracts for persisting cleaned
// records. Backends register a Factory for their kind in init; importing
// csvclean/internal/storage/all makes every built-in kind available.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"csvclean/internal/schema"
)

// Repository is the minimal surface a backend exposes.
type Repository interface {
	// CopyFrom inserts rows aligned to columns and returns how many were
	// inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// DDLFunc returns the statement that creates table for the cleaned-record
// columns if it does not exist.
type DDLFunc func(table string) (string, error)

type backendEntry struct {
	open Factory
	ddl  DDLFunc
}

var (
	mu       sync.RWMutex
	backends = map[string]backendEntry{}
)

// Register installs (or replaces) the factory and DDL builder for kind.
func Register(kind string, open Factory, ddl DDLFunc) {
	mu.Lock()
	defer mu.Unlock()
	backends[kind] = backendEntry{open: open, ddl: ddl}
}

// Kinds lists registered kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func lookup(kind string) (backendEntry, error) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[kind]
	if !ok {
		return backendEntry{}, fmt.Errorf("storage: no backend registered for kind %q", kind)
	}
	return b, nil
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	b, err := lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}
	return b.open(ctx, cfg)
}

// EnsureTable creates table on repo using the DDL registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string) error {
	b, err := lookup(kind)
	if err != nil {
		return err
	}
	if b.ddl == nil {
		return fmt.Errorf("storage: kind %q has no DDL builder", kind)
	}
	stmt, err := b.ddl(table)
	if err != nil {
		return fmt.Errorf("storage: build ddl: %w", err)
	}
	return repo.Exec(ctx, stmt)
}

// RecordColumns is the destination column order for cleaned records.
var RecordColumns = []string{schema.ColumnName, schema.ColumnAge, schema.ColumnCity}

// RecordRows converts records into rows aligned to RecordColumns.
func RecordRows(recs []schema.Record) [][]any {
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{r.Name, r.Age, r.City}
	}
	return rows
}
