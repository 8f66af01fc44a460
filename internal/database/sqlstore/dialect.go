// Package sqlstore implements the gallery store on top of database/sql.
// Backends differ only in their Dialect.
package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect describes the SQL differences between backends.
type Dialect struct {
	Name string

	// CreateTable is the DDL for the faces table with a single %s verb for the table name.
	// The timestamp column is referenced through QuoteIdent.
	CreateTable string

	// Placeholder returns the bind variable for the n-th (1-based) argument.
	Placeholder func(n int) string

	// QuoteIdent quotes an identifier that may collide with a keyword.
	QuoteIdent func(name string) string

	// TableExists counts tables with the name bound to its single placeholder.
	TableExists string

	// ReturningID makes Append use INSERT ... RETURNING id instead of LastInsertId.
	ReturningID bool
}

// QuestionPlaceholder is the placeholder style of SQLite and MySQL.
func QuestionPlaceholder(int) string {
	return "?"
}

// DollarPlaceholder is the placeholder style of PostgreSQL.
func DollarPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// DoubleQuote quotes an identifier the ANSI way.
func DoubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Backtick quotes an identifier the MySQL way.
func Backtick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// bind returns n comma separated placeholders starting at from.
func (d Dialect) bind(from, n int) string {
	parts := make([]string, n)
	for i := range n {
		parts[i] = d.Placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

func (d Dialect) createTable(table string) string {
	return fmt.Sprintf(d.CreateTable, table)
}
