package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Dialect captures what differs between database/sql backends.
type Dialect struct {
	// Kind is the storage kind registered with the storage package.
	Kind string
	// Driver is the database/sql driver name.
	Driver string
	// Placeholder renders the i-th (1-based) bind parameter.
	Placeholder func(i int) string
	// Quote quotes one identifier segment.
	Quote func(ident string) string
	// Types maps the cleaned-record columns to SQL types.
	TextType, IntType string
	// CheckDSN validates a DSN before opening; nil skips the check.
	CheckDSN func(dsn string) error
	// CreateIfMissing wraps a CREATE TABLE body for the dialect.
	CreateIfMissing func(fqn, rawName, body string) string
}

var (
	SQLite = Dialect{
		Kind:        "sqlite",
		Driver:      "sqlite",
		Placeholder: func(int) string { return "?" },
		Quote:       doubleQuote,
		TextType:    "TEXT",
		IntType:     "INTEGER",
		CreateIfMissing: func(fqn, _, body string) string {
			return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body)
		},
	}

	MySQL = Dialect{
		Kind:        "mysql",
		Driver:      "mysql",
		Placeholder: func(int) string { return "?" },
		Quote:       func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
		TextType:    "VARCHAR(255)",
		IntType:     "BIGINT",
		CheckDSN: func(dsn string) error {
			_, err := mysql.ParseDSN(dsn)
			return err
		},
		CreateIfMissing: func(fqn, _, body string) string {
			return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body)
		},
	}

	MSSQL = Dialect{
		Kind:        "mssql",
		Driver:      "sqlserver",
		Placeholder: func(i int) string { return "@p" + strconv.Itoa(i) },
		Quote:       func(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" },
		TextType:    "NVARCHAR(255)",
		IntType:     "BIGINT",
		CheckDSN: func(dsn string) error {
			_, err := msdsn.Parse(dsn)
			return err
		},
		CreateIfMissing: func(fqn, rawName, body string) string {
			return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n  %s\n);",
				strings.ReplaceAll(rawName, "'", "''"), fqn, body)
		},
	}
)

func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteFQN quotes each dot-separated segment of name.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Quote(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

// InsertSQL renders a single-row INSERT for columns.
func (d Dialect) InsertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	ph := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.Quote(c)
		ph[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteFQN(table), strings.Join(cols, ", "), strings.Join(ph, ", "))
}

// CreateTableSQL renders the DDL for the cleaned-record table.
func (d Dialect) CreateTableSQL(table string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return "", fmt.Errorf("%s ddl: table name must not be empty", d.Kind)
	}
	body := strings.Join([]string{
		d.Quote("name") + " " + d.TextType + " NOT NULL",
		d.Quote("age") + " " + d.IntType + " NOT NULL",
		d.Quote("city") + " " + d.TextType + " NOT NULL",
	}, ",\n  ")
	return d.CreateIfMissing(d.QuoteFQN(table), table, body), nil
}
