// Package memstore keeps records in memory. It serves tests and the demo
// daemon's scratch mode through the same QuerySet interface the SQL store
// implements.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"howett.net/jigsaw"
	"howett.net/jigsaw/store"
)

type table struct {
	rows   []*store.Record
	nextID int64
}

// Store holds one table per model.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	logger logrus.FieldLogger
}

var (
	_ store.Saver   = &Store{}
	_ store.Deleter = &Store{}
)

// Option configures a Store.
type Option func(*Store)

// FieldLoggingOption sends the store's logs to logger.
func FieldLoggingOption(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[string]*table),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) table(m *store.Model) *table {
	t, ok := s.tables[m.TableName()]
	if !ok {
		t = &table{}
		s.tables[m.TableName()] = t
	}
	return t
}

// Save inserts r, assigning the next primary key, or replaces the stored
// row with the same key.
func (s *Store) Save(ctx context.Context, r *store.Record) error {
	for _, col := range r.Columns() {
		if !r.Model.HasColumn(col) {
			return errors.Errorf("memstore: %s has no column %s", r.Model.Name, col)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(r.Model)
	if r.PK() == nil {
		t.nextID++
		r.SetField(r.Model.PrimaryKey(), t.nextID)
		t.rows = append(t.rows, r.Clone())
		s.logger.WithFields(logrus.Fields{"model": r.Model.Name, "pk": t.nextID}).Debug("inserted")
		return nil
	}

	key := fmt.Sprint(r.PK())
	for i, row := range t.rows {
		if fmt.Sprint(row.PK()) == key {
			t.rows[i] = r.Clone()
			s.logger.WithFields(logrus.Fields{"model": r.Model.Name, "pk": key}).Debug("updated")
			return nil
		}
	}

	if id, ok := r.PK().(int64); ok && id > t.nextID {
		t.nextID = id
	}
	t.rows = append(t.rows, r.Clone())
	return nil
}

// Delete removes the row with r's primary key.
func (s *Store) Delete(ctx context.Context, r *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(r.Model)
	key := fmt.Sprint(r.PK())
	for i, row := range t.rows {
		if fmt.Sprint(row.PK()) == key {
			t.rows = append(t.rows[:i:i], t.rows[i+1:]...)
			return nil
		}
	}
	return jigsaw.ErrNotFound
}

// Insert saves every record, stopping at the first failure.
func (s *Store) Insert(ctx context.Context, records ...*store.Record) error {
	for _, r := range records {
		if err := s.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Objects returns a query set over every record of m.
func (s *Store) Objects(m *store.Model) jigsaw.QuerySet {
	return &querySet{store: s, model: m, limit: -1}
}

func (s *Store) snapshot(m *store.Model) []*store.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[m.TableName()]
	if !ok {
		return nil
	}
	return append([]*store.Record(nil), t.rows...)
}
