package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"csvclean/internal/schema"
)

type fakeRepo struct {
	execs  []string
	closed bool
}

func (f *fakeRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}
func (f *fakeRepo) Exec(ctx context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	return nil
}
func (f *fakeRepo) Close() { f.closed = true }

func TestRegistry(t *testing.T) {
	repo := &fakeRepo{}
	Register("fake-test",
		func(ctx context.Context, cfg Config) (Repository, error) {
			if cfg.DSN == "" {
				return nil, errors.New("no dsn")
			}
			return repo, nil
		},
		func(table string) (string, error) { return "CREATE " + table, nil },
	)

	found := false
	for _, k := range Kinds() {
		if k == "fake-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds() = %v, missing fake-test", Kinds())
	}

	got, err := New(context.Background(), Config{Kind: "fake-test", DSN: "x", Table: "people"})
	if err != nil || got != repo {
		t.Fatalf("New() = %v, %v", got, err)
	}
	if _, err := New(context.Background(), Config{Kind: "fake-test"}); err == nil {
		t.Fatalf("New() without DSN error = nil")
	}
	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("New(unknown) error = %v", err)
	}

	if err := EnsureTable(context.Background(), "fake-test", repo, "people"); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	if !reflect.DeepEqual(repo.execs, []string{"CREATE people"}) {
		t.Fatalf("execs = %v", repo.execs)
	}

	Register("fake-noddl", func(context.Context, Config) (Repository, error) { return repo, nil }, nil)
	if err := EnsureTable(context.Background(), "fake-noddl", repo, "people"); err == nil {
		t.Fatalf("EnsureTable() without DDL builder error = nil")
	}
}

func TestRecordRows(t *testing.T) {
	t.Parallel()

	rows := RecordRows([]schema.Record{{Name: "Ana", Age: 30, City: "Izmir"}})
	want := [][]any{{"Ana", 30, "Izmir"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("RecordRows() = %v, want %v", rows, want)
	}
	if !reflect.DeepEqual(RecordColumns, []string{"name", "age", "city"}) {
		t.Fatalf("RecordColumns = %v", RecordColumns)
	}
}
