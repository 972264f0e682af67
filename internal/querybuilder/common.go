package querybuilder

import (
	"fmt"
	"strings"
)

// dialect supplies the pieces that differ between databases; builder
// assembles the statements shared by all of them.
type dialect interface {
	escape(ident string) string
	placeholder(n int) string
}

type builder struct {
	d dialect
}

func (b builder) where(fields []string, start int) string {
	if len(fields) == 0 {
		return ""
	}
	conds := make([]string, len(fields))
	for i, f := range fields {
		conds[i] = fmt.Sprintf("%s = %s", b.d.escape(f), b.d.placeholder(start+i))
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (b builder) values(n int) string {
	values := make([]string, n)
	for i := range values {
		values[i] = b.d.placeholder(i + 1)
	}
	return strings.Join(values, ",")
}

func (b builder) columns(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = b.d.escape(f)
	}
	return strings.Join(escaped, ",")
}

func (b builder) buildSelect(q *SelectQuery) string {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(b.d.escape(q.Table))
	sb.WriteString(b.where(q.Where, 1))
	if q.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.d.escape(q.OrderBy))
	}
	n := len(q.Where)
	if q.Limit >= 0 {
		n++
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.d.placeholder(n))
	} else if q.Offset > 0 {
		// sqlite refuses OFFSET without LIMIT; postgres accepts ALL only.
		sb.WriteString(" LIMIT -1")
	}
	if q.Offset > 0 {
		n++
		sb.WriteString(" OFFSET ")
		sb.WriteString(b.d.placeholder(n))
	}
	return sb.String()
}

func (b builder) buildCount(q *CountQuery) string {
	return "SELECT COUNT(*) FROM " + b.d.escape(q.Table) + b.where(q.Where, 1)
}

func (b builder) buildInsert(q *InsertQuery) string {
	if len(q.Fields) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", b.d.escape(q.Table))
	}
	return fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)", b.d.escape(q.Table), b.columns(q.Fields), b.values(len(q.Fields)))
}

func (b builder) buildDelete(q *DeleteQuery) string {
	return "DELETE FROM " + b.d.escape(q.Table) + b.where(q.Where, 1)
}
