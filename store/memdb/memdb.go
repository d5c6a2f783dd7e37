// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memdb is an in-process reference implementation of the
// store.DB contract. It backs unit tests and any embedded deployment
// that does not need the Tx to survive process restart.
package memdb

import (
	"context"
	"sort"
	"sync"

	"github.com/coindb/vault/store"
)

// DB is an in-memory store.DB. The zero value is not usable; use New.
type DB struct {
	mu      sync.Mutex
	tables  map[string]map[store.ID]store.Entity
	nextID  store.ID
	pending bool // true while a Tx is open; memdb allows only one at a time
}

// New returns an empty in-memory store.
func New() *DB {
	return &DB{tables: make(map[string]map[store.ID]store.Entity)}
}

// Begin opens a Tx. memdb serializes all transactions globally (it has no
// MVCC), matching the core's own single-mutex-at-a-time usage pattern.
func (d *DB) Begin(_ context.Context) (store.Tx, error) {
	d.mu.Lock()
	d.pending = true
	snapshot := cloneTables(d.tables)
	return &tx{db: d, work: snapshot}, nil
}

// Close is a no-op for memdb.
func (d *DB) Close() error { return nil }

func cloneTables(src map[string]map[store.ID]store.Entity) map[string]map[store.ID]store.Entity {
	dst := make(map[string]map[store.ID]store.Entity, len(src))
	for kind, rows := range src {
		r := make(map[store.ID]store.Entity, len(rows))
		for id, e := range rows {
			r[id] = e
		}
		dst[kind] = r
	}
	return dst
}

type tx struct {
	db   *DB
	work map[string]map[store.ID]store.Entity
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
	t.db.tables = t.work
	t.db.pending = false
	t.db.mu.Unlock()
	t.done = true
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.db.pending = false
	t.db.mu.Unlock()
	t.done = true
	return nil
}

type session struct {
	tx       *tx
	identity map[string]map[store.ID]store.Entity
}

func (s *session) table(kind string) map[store.ID]store.Entity {
	t, ok := s.tx.work[kind]
	if !ok {
		t = make(map[store.ID]store.Entity)
		s.tx.work[kind] = t
	}
	return t
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
	s.tx.db.nextID++
	id := s.tx.db.nextID
	e.SetEntityID(id)
	s.table(e.Kind())[id] = e
	s.remember(e.Kind(), id, e)
	return nil
}

func (s *session) Update(e store.Entity) error {
	id := e.EntityID()
	if id == 0 {
		return store.ErrNotFound
	}
	s.table(e.Kind())[id] = e
	s.remember(e.Kind(), id, e)
	return nil
}

func (s *session) Erase(e store.Entity) error {
	id := e.EntityID()
	delete(s.table(e.Kind()), id)
	if m, ok := s.identity[e.Kind()]; ok {
		delete(m, id)
	}
	return nil
}

func (s *session) Load(kind string, id store.ID, out store.Entity) error {
	if m, ok := s.identity[kind]; ok {
		if existing, ok := m[id]; ok {
			copyInto(existing, out)
			return nil
		}
	}
	row, ok := s.table(kind)[id]
	if !ok {
		return store.ErrNotFound
	}
	copyInto(row, out)
	s.remember(kind, id, out)
	return nil
}

func (s *session) Query(q store.Query, newEntity func() store.Entity) ([]store.Entity, error) {
	var results []store.Entity
	for id, row := range s.table(q.Kind) {
		matched := true
		for _, p := range q.Preds {
			if !store.Match(row.Field, p) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		out := newEntity()
		copyInto(row, out)
		s.remember(q.Kind, id, out)
		results = append(results, out)
	}
	if len(q.OrderBy) > 0 {
		sort.SliceStable(results, func(i, j int) bool {
			for _, ob := range q.OrderBy {
				vi, vj := results[i].Field(ob.Field), results[j].Field(ob.Field)
				if store.Match(func(string) any { return vi }, store.LT(ob.Field, vj)) {
					return ob.Dir == store.Asc
				}
				if store.Match(func(string) any { return vj }, store.LT(ob.Field, vi)) {
					return ob.Dir == store.Desc
				}
			}
			return false
		})
	}
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func (s *session) EraseQuery(q store.Query) (int, error) {
	n := 0
	for id, row := range s.table(q.Kind) {
		matched := true
		for _, p := range q.Preds {
			if !store.Match(row.Field, p) {
				matched = false
				break
			}
		}
		if matched {
			delete(s.table(q.Kind), id)
			n++
		}
	}
	return n, nil
}

// copyInto is implemented via each entity's own Copy-capable assignment:
// since Go lacks generic struct copy by interface, entities that support
// cloning implement store.Cloner; others are expected to be used via
// pointer identity within a single Session only.
func copyInto(src, dst store.Entity) {
	if c, ok := src.(store.Cloner); ok {
		c.CloneInto(dst)
		return
	}
	// No clone support: best effort, dst already shares no state with
	// src, so leave as-is. Packages in this module all implement Cloner.
}
