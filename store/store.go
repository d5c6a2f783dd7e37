// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store defines the persistence contract consumed by the vault
// core. It is deliberately storage-engine agnostic: the core never issues
// SQL, never opens a file, and never knows whether records live in a
// key/value bucket store or a relational database. It only ever talks to
// a DB, a Tx opened from it, and a Session obtained from that Tx.
//
// Naming
//
// The following names recur throughout this package and its
// implementations:
//
//	kind:  the logical table/entity type an Entity belongs to
//	id:    the store-assigned identity of a persisted Entity
//	pred:  a single comparison clause within a Query
package store

import (
	"context"
	"errors"
)

// ID identifies a persisted Entity within its Kind. The zero ID is never
// assigned to a persisted row and marks an Entity that has not yet been
// given an identity by Persist.
type ID uint64

// ErrNotFound is returned by Load and by singular Query helpers when no
// matching row exists.
var ErrNotFound = errors.New("store: entity not found")

// Entity is implemented by every record type the core persists. Kind
// identifies the logical table ("keychain", "tx", "blockheader", ...);
// EntityID/SetEntityID let a Session assign and recall store identity
// without every caller threading an id parameter by hand.
type Entity interface {
	Kind() string
	EntityID() ID
	SetEntityID(ID)

	// Field returns the value of a named field for predicate matching
	// and ordering. Implementations need only support the fields they
	// are actually queried on.
	Field(name string) any
}

// Cloner is implemented by entities that support identity-map style
// copying: CloneInto overwrites dst's fields with src's. Every concrete
// Entity type in this module implements it so Session.Load/Query can hand
// back independent copies while keeping the identity-map invariant that
// repeated loads of the same row return equal values.
type Cloner interface {
	CloneInto(dst Entity)
}

// Op is a predicate comparison operator.
type Op int

const (
	// OpEQ matches fields equal to the predicate value.
	OpEQ Op = iota
	// OpNE matches fields not equal to the predicate value.
	OpNE
	// OpNull matches fields that are the Go zero value / nil reference.
	OpNull
	// OpNotNull matches fields that are set.
	OpNotNull
	// OpInRange matches fields whose value is one of a supplied set.
	OpInRange
	// OpLT matches fields strictly less than the predicate value.
	OpLT
	// OpGE matches fields greater than or equal to the predicate value.
	OpGE
)

// Pred is a single predicate clause: Field Op Value (Value is unused for
// OpNull/OpNotNull, and is a []any for OpInRange).
type Pred struct {
	Field string
	Op    Op
	Value any
}

// EQ builds an equality predicate.
func EQ(field string, value any) Pred { return Pred{Field: field, Op: OpEQ, Value: value} }

// NE builds an inequality predicate.
func NE(field string, value any) Pred { return Pred{Field: field, Op: OpNE, Value: value} }

// IsNull builds a null-check predicate.
func IsNull(field string) Pred { return Pred{Field: field, Op: OpNull} }

// IsNotNull builds a not-null predicate.
func IsNotNull(field string) Pred { return Pred{Field: field, Op: OpNotNull} }

// InRange builds a set-membership predicate.
func InRange(field string, values ...any) Pred {
	return Pred{Field: field, Op: OpInRange, Value: values}
}

// LT builds a strictly-less-than predicate.
func LT(field string, value any) Pred { return Pred{Field: field, Op: OpLT, Value: value} }

// GE builds a greater-than-or-equal predicate.
func GE(field string, value any) Pred { return Pred{Field: field, Op: OpGE, Value: value} }

// OrderDir is the sort direction of an OrderBy clause.
type OrderDir int

const (
	// Asc sorts ascending.
	Asc OrderDir = iota
	// Desc sorts descending.
	Desc
)

// OrderBy names a field and direction to sort query results by.
type OrderBy struct {
	Field string
	Dir   OrderDir
}

// Query composes a predicate conjunction plus ordering over a Kind. All
// Preds are ANDed together; callers needing disjunction issue multiple
// queries and merge in Go, matching the teacher's preference for simple,
// composable predicate clauses over a general expression tree.
type Query struct {
	Kind    string
	Preds   []Pred
	OrderBy []OrderBy
	Limit   int
}

// Where returns a copy of q with an additional predicate appended.
func (q Query) Where(p Pred) Query {
	preds := make([]Pred, len(q.Preds), len(q.Preds)+1)
	copy(preds, q.Preds)
	q.Preds = append(preds, p)
	return q
}

// SortBy returns a copy of q with an additional ordering clause appended.
func (q Query) SortBy(field string, dir OrderDir) Query {
	order := make([]OrderBy, len(q.OrderBy), len(q.OrderBy)+1)
	copy(order, q.OrderBy)
	q.OrderBy = append(order, OrderBy{Field: field, Dir: dir})
	return q
}

// Session provides per-transaction identity mapping: loading the same
// logical row twice within one Session returns the same Go object. All
// mutating calls (Persist/Update/Erase) must be issued against a Session
// obtained from an open Tx.
type Session interface {
	// Persist assigns e a fresh ID and stores it, registering it in the
	// identity map.
	Persist(e Entity) error

	// Update stores the current contents of an already-persisted e.
	Update(e Entity) error

	// Erase removes e from the store and the identity map.
	Erase(e Entity) error

	// Load fetches the Entity of the given Kind and ID into out,
	// returning ErrNotFound if no such row exists. If the Session has
	// already loaded this id, out is populated from the identity map
	// rather than the backing store.
	Load(kind string, id ID, out Entity) error

	// Query runs q and decodes each matching row into a freshly
	// allocated Entity via newEntity, appending it to the returned
	// slice in result order.
	Query(q Query, newEntity func() Entity) ([]Entity, error)

	// EraseQuery deletes every row matching q without loading it.
	EraseQuery(q Query) (int, error)
}

// Tx is a single serializable database transaction. All writes performed
// through its Session become visible to other transactions only once
// Commit returns successfully; Rollback (or an unclosed Tx being
// abandoned) undoes them entirely.
type Tx interface {
	// Session returns the identity-mapping session for this
	// transaction. Calling Session more than once returns the same
	// instance.
	Session() Session

	// Commit finalizes the transaction's writes.
	Commit() error

	// Rollback discards the transaction's writes. Safe to call after a
	// successful Commit (a no-op in that case).
	Rollback() error
}

// DB is the top-level handle to a store backend.
type DB interface {
	// Begin opens a new serializable Tx. Callers must Commit or
	// Rollback exactly once.
	Begin(ctx context.Context) (Tx, error)

	// Close releases any resources (connections, file handles) held by
	// the backend.
	Close() error
}

var kindRegistry = map[string]func() Entity{}

// RegisterKind records the zero-value factory for a Kind so that
// adapters which store entities in an engine-agnostic encoding (JSON
// blobs, for instance) can decode rows for a Kind they were not handed an
// explicit factory for, such as inside EraseQuery. Packages that define
// Entity types call this from an init function.
func RegisterKind(kind string, newEntity func() Entity) {
	kindRegistry[kind] = newEntity
}

// NewEntity allocates a zero-value Entity for kind using a factory
// registered via RegisterKind, or nil if none was registered.
func NewEntity(kind string) Entity {
	f, ok := kindRegistry[kind]
	if !ok {
		return nil
	}
	return f()
}

// Match reports whether e's field (read via get) satisfies p.
func Match(get func(field string) any, p Pred) bool {
	switch p.Op {
	case OpNull:
		v := get(p.Field)
		return isZero(v)
	case OpNotNull:
		v := get(p.Field)
		return !isZero(v)
	case OpInRange:
		v := get(p.Field)
		values, _ := p.Value.([]any)
		for _, want := range values {
			if equal(v, want) {
				return true
			}
		}
		return false
	case OpEQ:
		return equal(get(p.Field), p.Value)
	case OpNE:
		return !equal(get(p.Field), p.Value)
	case OpLT:
		return less(get(p.Field), p.Value)
	case OpGE:
		return !less(get(p.Field), p.Value)
	default:
		return false
	}
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case ID:
		return t == 0
	case uint32:
		return t == 0
	case uint64:
		return t == 0
	case int:
		return t == 0
	case string:
		return t == ""
	}
	return false
}

func equal(a, b any) bool {
	if ah, ok := a.([]byte); ok {
		bh, ok := b.([]byte)
		if !ok {
			return false
		}
		if len(ah) != len(bh) {
			return false
		}
		for i := range ah {
			if ah[i] != bh[i] {
				return false
			}
		}
		return true
	}
	return a == b
}

func less(a, b any) bool {
	switch av := a.(type) {
	case uint32:
		bv, _ := b.(uint32)
		return av < bv
	case uint64:
		bv, _ := b.(uint64)
		return av < bv
	case int:
		bv, _ := b.(int)
		return av < bv
	case int32:
		bv, _ := b.(int32)
		return av < bv
	case int64:
		bv, _ := b.(int64)
		return av < bv
	case ID:
		bv, _ := b.(ID)
		return av < bv
	}
	return false
}
