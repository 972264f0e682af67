package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

type postgresQueryBuilder struct{}

func (b *postgresQueryBuilder) escape(ident string) string {
	return `"` + ident + `"`
}

func (b *postgresQueryBuilder) placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (b *postgresQueryBuilder) Dialect() string {
	return "postgres"
}

func (b *postgresQueryBuilder) buildUpsert(q *UpsertQuery) string {
	escapedConflictKeys := make([]string, len(q.ConflictKeys))
	conflicts := map[string]struct{}{}
	for i, v := range q.ConflictKeys {
		escapedConflictKeys[i] = b.escape(v)
		conflicts[v] = struct{}{}
	}

	replacements := make([]string, 0, len(q.Fields))
	for _, v := range q.Fields {
		if _, present := conflicts[v]; !present {
			replacements = append(replacements, fmt.Sprintf(`%s = EXCLUDED.%s`, b.escape(v), b.escape(v)))
		}
	}

	c := builder{b}
	action := "DO NOTHING"
	if len(replacements) > 0 {
		action = "DO UPDATE SET " + strings.Join(replacements, ",")
	}
	return fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s) ON CONFLICT(%s) %s", b.escape(q.Table), c.columns(q.Fields), c.values(len(q.Fields)), strings.Join(escapedConflictKeys, ","), action)
}

func (b *postgresQueryBuilder) Build(q Query) (string, error) {
	if err := validate(q); err != nil {
		return "", err
	}

	c := builder{b}
	switch q := q.(type) {
	case *SelectQuery:
		query := c.buildSelect(q)
		return strings.Replace(query, " LIMIT -1", " LIMIT ALL", 1), nil
	case *CountQuery:
		return c.buildCount(q), nil
	case *InsertQuery:
		query := c.buildInsert(q)
		if q.Returning != "" {
			query += " RETURNING " + b.escape(q.Returning)
		}
		return query, nil
	case *UpsertQuery:
		return b.buildUpsert(q), nil
	case *DeleteQuery:
		return c.buildDelete(q), nil
	default:
		return "", ErrUnknownQuery
	}
}
