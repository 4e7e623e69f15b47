// Package dialect abstracts the SQL differences between the databases the
// trace store supports.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect captures what the trace store needs to vary per database.
type Dialect interface {
	// Name returns the dialect name.
	Name() string

	// DriverName returns the database/sql driver to open.
	DriverName() string

	// Rebind converts ? placeholders to the dialect's format.
	Rebind(query string) string

	// PragmaStatements returns statements run once after opening.
	PragmaStatements() []string
}

// FromDriverName returns the dialect for a configured driver name.
func FromDriverName(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3", "":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string          { return "sqlite" }
func (sqliteDialect) DriverName() string    { return "sqlite" }
func (sqliteDialect) Rebind(q string) string { return q }
func (sqliteDialect) PragmaStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) Rebind(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) PragmaStatements() []string { return nil }

type mysqlDialect struct{}

func (mysqlDialect) Name() string              { return "mysql" }
func (mysqlDialect) DriverName() string        { return "mysql" }
func (mysqlDialect) Rebind(q string) string    { return q }
func (mysqlDialect) PragmaStatements() []string { return nil }
