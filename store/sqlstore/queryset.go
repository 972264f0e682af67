package sqlstore

import (
	"context"

	"github.com/pkg/errors"

	"howett.net/jigsaw"
	"howett.net/jigsaw/internal/querybuilder"
	"howett.net/jigsaw/store"
)

type querySet struct {
	store  *Store
	model  *store.Model
	where  []string
	args   []interface{}
	offset int
	limit  int
}

func (q *querySet) Model() jigsaw.Model {
	return q.model
}

func (q *querySet) clone() *querySet {
	n := *q
	n.where = append([]string(nil), q.where...)
	n.args = append([]interface{}(nil), q.args...)
	return &n
}

func (q *querySet) Clone() jigsaw.QuerySet {
	return q.clone()
}

func (q *querySet) Filter(field string, value interface{}) jigsaw.QuerySet {
	n := q.clone()
	n.where = append(n.where, field)
	n.args = append(n.args, value)
	return n
}

func (q *querySet) Slice(offset, limit int) jigsaw.QuerySet {
	n := q.clone()
	n.offset += offset
	if n.limit >= 0 && limit > n.limit-offset {
		limit = n.limit - offset
	}
	if limit < 0 {
		limit = 0
	}
	n.limit = limit
	return n
}

func (q *querySet) Count(ctx context.Context) (int, error) {
	if q.offset > 0 || q.limit >= 0 {
		rows, err := q.rows(ctx)
		return len(rows), err
	}
	if err := checkColumns(q.model, q.where); err != nil {
		return 0, err
	}
	st, err := q.store.prepare(ctx, &querybuilder.CountQuery{
		Table: q.model.TableName(),
		Where: q.where,
	})
	if err != nil {
		return 0, err
	}
	defer q.store.release(st)
	var n int
	if err := st.GetContext(ctx, &n, q.args...); err != nil {
		return 0, errors.Wrapf(err, "sqlstore: counting %s", q.model.Name)
	}
	return n, nil
}

func (q *querySet) rows(ctx context.Context) ([]*store.Record, error) {
	if err := checkColumns(q.model, q.where); err != nil {
		return nil, err
	}
	sq := &querybuilder.SelectQuery{
		Table:   q.model.TableName(),
		Where:   q.where,
		OrderBy: q.model.PrimaryKey(),
		Limit:   q.limit,
		Offset:  q.offset,
	}
	st, err := q.store.prepare(ctx, sq)
	if err != nil {
		return nil, err
	}
	defer q.store.release(st)

	args := append(q.args[:len(q.args):len(q.args)], sq.PageArgs()...)
	rows, err := st.QueryxContext(ctx, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlstore: querying %s", q.model.Name)
	}
	defer rows.Close()

	var out []*store.Record
	for rows.Next() {
		values := make(map[string]interface{})
		if err := rows.MapScan(values); err != nil {
			return nil, errors.Wrapf(err, "sqlstore: scanning %s", q.model.Name)
		}
		for k, v := range values {
			if b, ok := v.([]byte); ok {
				values[k] = string(b)
			}
		}
		out = append(out, &store.Record{Model: q.model, Values: values})
	}
	return out, errors.Wrapf(rows.Err(), "sqlstore: reading %s", q.model.Name)
}

func (q *querySet) All(ctx context.Context) ([]interface{}, error) {
	rows, err := q.rows(ctx)
	if err != nil {
		return nil, err
	}
	objs := make([]interface{}, len(rows))
	for i, r := range rows {
		objs[i] = r
	}
	return objs, nil
}

func (q *querySet) Get(ctx context.Context) (interface{}, error) {
	rows, err := q.Slice(0, 2).(*querySet).rows(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, jigsaw.ErrNotFound
	case 1:
		return rows[0], nil
	}
	return nil, jigsaw.ErrMultipleObjects
}
