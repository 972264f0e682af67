package querybuilder

import (
	"fmt"
)

type sqliteQueryBuilder struct{}

func (b *sqliteQueryBuilder) escape(ident string) string {
	return `"` + ident + `"`
}

func (b *sqliteQueryBuilder) placeholder(n int) string {
	return "?"
}

func (b *sqliteQueryBuilder) Dialect() string {
	return "sqlite"
}

func (b *sqliteQueryBuilder) buildUpsert(qt *UpsertQuery) string {
	c := builder{b}
	return fmt.Sprintf("INSERT OR REPLACE INTO %s(%s) VALUES(%s)", b.escape(qt.Table), c.columns(qt.Fields), c.values(len(qt.Fields)))
}

func (b *sqliteQueryBuilder) Build(q Query) (string, error) {
	if err := validate(q); err != nil {
		return "", err
	}

	c := builder{b}
	switch q := q.(type) {
	case *SelectQuery:
		return c.buildSelect(q), nil
	case *CountQuery:
		return c.buildCount(q), nil
	case *InsertQuery:
		// sqlite reports the new key through LastInsertId.
		return c.buildInsert(q), nil
	case *UpsertQuery:
		return b.buildUpsert(q), nil
	case *DeleteQuery:
		return c.buildDelete(q), nil
	default:
		return "", ErrUnknownQuery
	}
}
