package memstore

import (
	"context"
	"fmt"

	"howett.net/jigsaw"
	"howett.net/jigsaw/store"
)

type predicate struct {
	field string
	value string
}

// querySet filters by comparing the formatted values, so "1" from a URL
// matches an int64 primary key.
type querySet struct {
	store  *Store
	model  *store.Model
	where  []predicate
	offset int
	limit  int
}

func (q *querySet) Model() jigsaw.Model {
	return q.model
}

func (q *querySet) clone() *querySet {
	n := *q
	n.where = append([]predicate(nil), q.where...)
	return &n
}

func (q *querySet) Clone() jigsaw.QuerySet {
	return q.clone()
}

func (q *querySet) Filter(field string, value interface{}) jigsaw.QuerySet {
	n := q.clone()
	n.where = append(n.where, predicate{field, fmt.Sprint(value)})
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

func (q *querySet) match(r *store.Record) bool {
	for _, p := range q.where {
		v, ok := r.Values[p.field]
		if !ok || v == nil || fmt.Sprint(v) != p.value {
			return false
		}
	}
	return true
}

func (q *querySet) eval() ([]*store.Record, error) {
	for _, p := range q.where {
		if !q.model.HasColumn(p.field) {
			return nil, fmt.Errorf("memstore: %s has no column %s", q.model.Name, p.field)
		}
	}

	var out []*store.Record
	for _, r := range q.store.snapshot(q.model) {
		if q.match(r) {
			out = append(out, r)
		}
	}

	if q.offset >= len(out) {
		return nil, nil
	}
	out = out[q.offset:]
	if q.limit >= 0 && q.limit < len(out) {
		out = out[:q.limit]
	}
	return out, nil
}

func (q *querySet) Count(ctx context.Context) (int, error) {
	rows, err := q.eval()
	return len(rows), err
}

func (q *querySet) All(ctx context.Context) ([]interface{}, error) {
	rows, err := q.eval()
	if err != nil {
		return nil, err
	}
	objs := make([]interface{}, len(rows))
	for i, r := range rows {
		objs[i] = r.Clone()
	}
	return objs, nil
}

func (q *querySet) Get(ctx context.Context) (interface{}, error) {
	rows, err := q.eval()
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, jigsaw.ErrNotFound
	case 1:
		return rows[0].Clone(), nil
	}
	return nil, jigsaw.ErrMultipleObjects
}
