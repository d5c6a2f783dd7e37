// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sql implements the store.DB contract on top of database/sql,
// giving the core a relational backend in the literal sense (rather than
// memdb's pure in-process map).
// Entities are stored as JSON documents in a single generic table; the
// engine itself does no predicate pushdown, matching the store contract's
// description of query predicates as something the core composes and an
// adapter merely evaluates.
//
// Two real drivers are wired: modernc.org/sqlite for embedded/test use and
// the jackc/pgx/v5 stdlib driver for production Postgres deployments,
// mirroring the pattern in the teacher's internal/sqltest package.
package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // registers driver "pgx"
	_ "modernc.org/sqlite"             // registers driver "sqlite"

	"github.com/coindb/vault/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS vault_entities (
	kind TEXT NOT NULL,
	id   INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (kind, id)
);
CREATE TABLE IF NOT EXISTS vault_seq (
	name TEXT PRIMARY KEY,
	next INTEGER NOT NULL
);
`

// DB is a database/sql backed store.DB. Writers are serialized with an
// in-process mutex: the core never holds more than one Tx open at a time,
// but the mutex also protects the sequence counter across the handful of
// drivers (sqlite, pgx) that don't agree on RETURNING semantics.
type DB struct {
	sqldb *sql.DB
	mu    sync.Mutex
}

// Open opens (and, for sqlite, creates) a database at dsn using driver,
// which must be "sqlite" or "pgx".
func Open(driver, dsn string) (*DB, error) {
	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql: open %s: %w", driver, err)
	}
	if _, err := sqldb.Exec(schema); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("sql: migrate schema: %w", err)
	}
	return &DB{sqldb: sqldb}, nil
}

// Close closes the underlying *sql.DB.
func (d *DB) Close() error { return d.sqldb.Close() }

// Begin opens a database/sql transaction wrapped to satisfy store.Tx.
func (d *DB) Begin(ctx context.Context) (store.Tx, error) {
	d.mu.Lock()
	dbtx, err := d.sqldb.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	return &tx{db: d, ctx: ctx, dbtx: dbtx}, nil
}

type tx struct {
	db   *DB
	ctx  context.Context
	dbtx *sql.Tx
	sess *session
	done bool
}

func (t *tx) Session() store.Session {
	if t.sess == nil {
		t.sess = &session{tx: t, identity: make(map[string]map[store.ID]store.Entity)}
	}
	return t.sess
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	err := t.dbtx.Commit()
	t.db.mu.Unlock()
	t.done = true
	return err
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	err := t.dbtx.Rollback()
	t.db.mu.Unlock()
	t.done = true
	return err
}

type session struct {
	tx       *tx
	identity map[string]map[store.ID]store.Entity
}

func (s *session) nextID(kind string) (store.ID, error) {
	ctx, dbtx := s.tx.ctx, s.tx.dbtx
	var next int64
	row := dbtx.QueryRowContext(ctx, `SELECT next FROM vault_seq WHERE name = ?`, kind)
	err := row.Scan(&next)
	if err == sql.ErrNoRows {
		next = 1
		if _, err := dbtx.ExecContext(ctx, `INSERT INTO vault_seq(name, next) VALUES (?, ?)`, kind, next+1); err != nil {
			return 0, err
		}
		return store.ID(next), nil
	}
	if err != nil {
		return 0, err
	}
	if _, err := dbtx.ExecContext(ctx, `UPDATE vault_seq SET next = ? WHERE name = ?`, next+1, kind); err != nil {
		return 0, err
	}
	return store.ID(next), nil
}

func (s *session) remember(kind string, id store.ID, e store.Entity) {
	m, ok := s.identity[kind]
	if !ok {
		m = make(map[store.ID]store.Entity)
		s.identity[kind] = m
	}
	m[id] = e
}

func (s *session) Persist(e store.Entity) error {
	id, err := s.nextID(e.Kind())
	if err != nil {
		return err
	}
	e.SetEntityID(id)
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.tx.dbtx.ExecContext(s.tx.ctx,
		`INSERT INTO vault_entities(kind, id, data) VALUES (?, ?, ?)`, e.Kind(), int64(id), data)
	if err != nil {
		return err
	}
	s.remember(e.Kind(), id, e)
	return nil
}

func (s *session) Update(e store.Entity) error {
	id := e.EntityID()
	if id == 0 {
		return store.ErrNotFound
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.tx.dbtx.ExecContext(s.tx.ctx,
		`UPDATE vault_entities SET data = ? WHERE kind = ? AND id = ?`, data, e.Kind(), int64(id))
	if err != nil {
		return err
	}
	s.remember(e.Kind(), id, e)
	return nil
}

func (s *session) Erase(e store.Entity) error {
	_, err := s.tx.dbtx.ExecContext(s.tx.ctx,
		`DELETE FROM vault_entities WHERE kind = ? AND id = ?`, e.Kind(), int64(e.EntityID()))
	if m, ok := s.identity[e.Kind()]; ok {
		delete(m, e.EntityID())
	}
	return err
}

func (s *session) Load(kind string, id store.ID, out store.Entity) error {
	if m, ok := s.identity[kind]; ok {
		if existing, ok := m[id]; ok {
			if c, ok := existing.(store.Cloner); ok {
				c.CloneInto(out)
				return nil
			}
		}
	}
	row := s.tx.dbtx.QueryRowContext(s.tx.ctx,
		`SELECT data FROM vault_entities WHERE kind = ? AND id = ?`, kind, int64(id))
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	out.SetEntityID(id)
	s.remember(kind, id, out)
	return nil
}

func (s *session) Query(q store.Query, newEntity func() store.Entity) ([]store.Entity, error) {
	rows, err := s.tx.dbtx.QueryContext(s.tx.ctx,
		`SELECT id, data FROM vault_entities WHERE kind = ?`, q.Kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []store.Entity
	for rows.Next() {
		var id int64
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		out := newEntity()
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		out.SetEntityID(store.ID(id))
		all = append(all, out)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []store.Entity
	for _, e := range all {
		matched := true
		for _, p := range q.Preds {
			if !store.Match(e.Field, p) {
				matched = false
				break
			}
		}
		if matched {
			s.remember(q.Kind, e.EntityID(), e)
			results = append(results, e)
		}
	}
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func (s *session) EraseQuery(q store.Query) (int, error) {
	newEntity := func() store.Entity { return store.NewEntity(q.Kind) }
	rows, err := s.Query(q, newEntity)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range rows {
		if _, err := s.tx.dbtx.ExecContext(s.tx.ctx,
			`DELETE FROM vault_entities WHERE kind = ? AND id = ?`, q.Kind, int64(e.EntityID())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
