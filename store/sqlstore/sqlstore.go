// Package sqlstore keeps records in a SQL database through sqlx. sqlite
// (modernc.org/sqlite) and postgres (lib/pq) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"howett.net/jigsaw"
	"howett.net/jigsaw/internal/querybuilder"
	"howett.net/jigsaw/store"
)

const defaultStatementCacheSize = 64

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store runs queries against one database. Prepared statements are kept in
// a small LRU keyed by their text.
type Store struct {
	db     *sqlx.DB
	qb     querybuilder.QueryBuilder
	logger logrus.FieldLogger

	mu    sync.Mutex
	stmts *lru.Cache
}

// stmt is a cached prepared statement. It is closed once it has been
// evicted and no caller still holds it; refs and evicted are guarded by
// Store.mu.
type stmt struct {
	*sqlx.Stmt
	refs    int
	evicted bool
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

// StatementCacheOption bounds the number of prepared statements kept open.
func StatementCacheOption(n int) Option {
	return func(s *Store) {
		s.stmts.MaxEntries = n
	}
}

// Open connects to dsn using driver ("sqlite" or "postgres").
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlstore: opening %s database", driver)
	}
	s, err := New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. Its driver name picks the SQL dialect.
func New(db *sqlx.DB, opts ...Option) (*Store, error) {
	qb := querybuilder.New(db.DriverName())
	if qb == nil {
		return nil, errors.Errorf("sqlstore: unsupported driver %q", db.DriverName())
	}
	if qb.Dialect() == "sqlite" {
		// a single writer keeps sqlite from reporting SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:     db,
		qb:     qb,
		logger: logrus.StandardLogger(),
		stmts:  lru.New(defaultStatementCacheSize),
	}
	s.stmts.OnEvicted = func(key lru.Key, value interface{}) {
		st := value.(*stmt)
		st.evicted = true
		if st.refs == 0 {
			st.Close()
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Dialect returns "sqlite" or "postgres".
func (s *Store) Dialect() string {
	return s.qb.Dialect()
}

// Close releases every cached statement not in use, then the database.
func (s *Store) Close() error {
	s.mu.Lock()
	s.stmts.Clear()
	s.mu.Unlock()
	return s.db.Close()
}

// Exec runs each statement verbatim. It is meant for schema setup.
func (s *Store) Exec(ctx context.Context, statements ...string) error {
	for _, q := range statements {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return errors.Wrapf(err, "sqlstore: executing %q", q)
		}
	}
	return nil
}

// prepare returns the cached statement for q, preparing it on a miss.
// Callers must release it when done.
func (s *Store) prepare(ctx context.Context, q querybuilder.Query) (*stmt, error) {
	query, err := s.qb.Build(q)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.stmts.Get(query); ok {
		st := v.(*stmt)
		st.refs++
		return st, nil
	}

	prepared, err := s.db.PreparexContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlstore: preparing %q", query)
	}
	s.logger.WithField("query", query).Debug("prepared statement")
	st := &stmt{Stmt: prepared, refs: 1}
	s.stmts.Add(query, st)
	return st, nil
}

func (s *Store) release(st *stmt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.refs--
	if st.evicted && st.refs == 0 {
		st.Close()
	}
}

func checkColumns(m *store.Model, cols []string) error {
	for _, c := range cols {
		if !m.HasColumn(c) || !querybuilder.ValidIdentifier(c) {
			return errors.Errorf("sqlstore: %s has no column %s", m.Name, c)
		}
	}
	return nil
}

// Save inserts r when it has no primary key, filling the key in, and
// otherwise inserts or replaces the row with r's key.
func (s *Store) Save(ctx context.Context, r *store.Record) error {
	cols := r.Columns()
	if err := checkColumns(r.Model, cols); err != nil {
		return err
	}
	args := make([]interface{}, 0, len(cols)+1)

	pk := r.Model.PrimaryKey()
	if r.PK() != nil {
		fields := append([]string{pk}, cols...)
		args = append(args, r.PK())
		for _, c := range cols {
			args = append(args, r.Values[c])
		}
		st, err := s.prepare(ctx, &querybuilder.UpsertQuery{
			Table:        r.Model.TableName(),
			ConflictKeys: []string{pk},
			Fields:       fields,
		})
		if err != nil {
			return err
		}
		defer s.release(st)
		if _, err := st.ExecContext(ctx, args...); err != nil {
			return errors.Wrapf(err, "sqlstore: saving %s %v", r.Model.Name, r.PK())
		}
		return nil
	}

	for _, c := range cols {
		args = append(args, r.Values[c])
	}
	st, err := s.prepare(ctx, &querybuilder.InsertQuery{
		Table:     r.Model.TableName(),
		Fields:    cols,
		Returning: pk,
	})
	if err != nil {
		return err
	}
	defer s.release(st)

	var id int64
	if s.qb.Dialect() == "postgres" {
		err = st.QueryRowxContext(ctx, args...).Scan(&id)
	} else {
		var res sql.Result
		res, err = st.ExecContext(ctx, args...)
		if err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		return errors.Wrapf(err, "sqlstore: inserting %s", r.Model.Name)
	}
	r.SetField(pk, id)
	s.logger.WithFields(logrus.Fields{"model": r.Model.Name, "pk": id}).Debug("inserted")
	return nil
}

// Delete removes the row with r's primary key.
func (s *Store) Delete(ctx context.Context, r *store.Record) error {
	st, err := s.prepare(ctx, &querybuilder.DeleteQuery{
		Table: r.Model.TableName(),
		Where: []string{r.Model.PrimaryKey()},
	})
	if err != nil {
		return err
	}
	defer s.release(st)
	res, err := st.ExecContext(ctx, r.PK())
	if err != nil {
		return errors.Wrapf(err, "sqlstore: deleting %s %v", r.Model.Name, r.PK())
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return jigsaw.ErrNotFound
	}
	return nil
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
