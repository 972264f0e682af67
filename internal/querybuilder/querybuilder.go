// Package querybuilder renders the handful of statements the SQL store
// issues in the dialect of the database behind it.
package querybuilder

import (
	"errors"
	"regexp"
)

// Query is one of the statement shapes below.
type Query interface {
	table() string
	fields() []string
}

// SelectQuery selects every column of Table, filtered by equality on the
// Where fields and ordered by OrderBy. A negative Limit means no limit.
// Limit and Offset are bound as parameters after the Where values, so
// every page of a list shares one statement.
type SelectQuery struct {
	Table   string
	Where   []string
	OrderBy string
	Limit   int
	Offset  int
}

// PageArgs returns the values for the LIMIT and OFFSET placeholders.
func (q *SelectQuery) PageArgs() []interface{} {
	var args []interface{}
	if q.Limit >= 0 {
		args = append(args, q.Limit)
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
	}
	return args
}

// CountQuery counts the rows of Table matching the Where fields.
type CountQuery struct {
	Table string
	Where []string
}

// InsertQuery inserts one row and yields its Returning column, when the
// dialect can.
type InsertQuery struct {
	Table     string
	Fields    []string
	Returning string
}

// UpsertQuery inserts one row or, when ConflictKeys match an existing
// row, replaces it.
type UpsertQuery struct {
	Table        string
	ConflictKeys []string
	Fields       []string
}

// DeleteQuery deletes the rows matching the Where fields.
type DeleteQuery struct {
	Table string
	Where []string
}

func (q *SelectQuery) table() string { return q.Table }
func (q *SelectQuery) fields() []string {
	return append(q.Where[:len(q.Where):len(q.Where)], q.OrderBy)
}
func (q *CountQuery) table() string    { return q.Table }
func (q *CountQuery) fields() []string { return q.Where }
func (q *InsertQuery) table() string   { return q.Table }
func (q *InsertQuery) fields() []string {
	return append(q.Fields[:len(q.Fields):len(q.Fields)], q.Returning)
}
func (q *UpsertQuery) table() string { return q.Table }
func (q *UpsertQuery) fields() []string {
	return append(q.Fields[:len(q.Fields):len(q.Fields)], q.ConflictKeys...)
}
func (q *DeleteQuery) table() string    { return q.Table }
func (q *DeleteQuery) fields() []string { return q.Where }

var (
	ErrUnknownQuery = errors.New("querybuilder: I don't know what that query is.")
	ErrIdentifier   = errors.New("querybuilder: invalid identifier")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s may be spliced into a statement as a
// table or column name.
func ValidIdentifier(s string) bool {
	return identifier.MatchString(s)
}

func validate(q Query) error {
	if !ValidIdentifier(q.table()) {
		return ErrIdentifier
	}
	for _, f := range q.fields() {
		if f != "" && !ValidIdentifier(f) {
			return ErrIdentifier
		}
	}
	return nil
}

type QueryBuilder interface {
	Build(Query) (string, error)

	// Dialect returns the canonical name of the builder's dialect.
	Dialect() string
}

func New(dialect string) QueryBuilder {
	switch dialect {
	case "sqlite3", "sqlite":
		return &sqliteQueryBuilder{}
	case "postgres", "pgsql", "postgresql":
		return &postgresQueryBuilder{}
	default:
		return nil
	}
}
