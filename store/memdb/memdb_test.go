// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package memdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coindb/vault/store"
)

type widget struct {
	ID     store.ID
	Name   string
	Group  string
	Weight int
}

func (w *widget) Kind() string        { return "widget" }
func (w *widget) EntityID() store.ID  { return w.ID }
func (w *widget) SetEntityID(id store.ID) { w.ID = id }

func (w *widget) Field(name string) any {
	switch name {
	case "Name":
		return w.Name
	case "Group":
		return w.Group
	case "Weight":
		return w.Weight
	}
	return nil
}

func (w *widget) CloneInto(dst store.Entity) {
	d := dst.(*widget)
	*d = *w
}

func TestPersistAndLoad(t *testing.T) {
	db := New()
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	sess := tx.Session()
	w := &widget{Name: "bolt", Group: "hardware", Weight: 3}
	require.NoError(t, sess.Persist(w))
	require.NotZero(t, w.ID)

	var got widget
	require.NoError(t, sess.Load("widget", w.ID, &got))
	require.Equal(t, "bolt", got.Name)
	require.NoError(t, tx.Commit())

	tx2, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx2.Rollback()
	var got2 widget
	require.NoError(t, tx2.Session().Load("widget", w.ID, &got2))
	require.Equal(t, "bolt", got2.Name)
}

func TestLoadNotFound(t *testing.T) {
	db := New()
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	var out widget
	err = tx.Session().Load("widget", store.ID(99), &out)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestIdentityMapReturnsSameSnapshot(t *testing.T) {
	db := New()
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	sess := tx.Session()

	w := &widget{Name: "bolt", Weight: 1}
	require.NoError(t, sess.Persist(w))

	var a, b widget
	require.NoError(t, sess.Load("widget", w.ID, &a))
	a.Weight = 42
	require.NoError(t, sess.Update(&a))

	require.NoError(t, sess.Load("widget", w.ID, &b))
	require.Equal(t, 42, b.Weight)
}

func TestQueryFiltersAndOrders(t *testing.T) {
	db := New()
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	sess := tx.Session()

	require.NoError(t, sess.Persist(&widget{Name: "a", Group: "x", Weight: 3}))
	require.NoError(t, sess.Persist(&widget{Name: "b", Group: "x", Weight: 1}))
	require.NoError(t, sess.Persist(&widget{Name: "c", Group: "y", Weight: 2}))

	rows, err := sess.Query(store.Query{
		Kind:    "widget",
		Preds:   []store.Pred{store.EQ("Group", "x")},
		OrderBy: []store.OrderBy{{Field: "Weight", Dir: store.Asc}},
	}, func() store.Entity { return &widget{} })
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "b", rows[0].(*widget).Name)
	require.Equal(t, "a", rows[1].(*widget).Name)
}

func TestEraseQuery(t *testing.T) {
	db := New()
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	sess := tx.Session()

	require.NoError(t, sess.Persist(&widget{Name: "a", Group: "x"}))
	require.NoError(t, sess.Persist(&widget{Name: "b", Group: "x"}))
	require.NoError(t, sess.Persist(&widget{Name: "c", Group: "y"}))

	n, err := sess.EraseQuery(store.Query{Kind: "widget", Preds: []store.Pred{store.EQ("Group", "x")}})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	rows, err := sess.Query(store.Query{Kind: "widget"}, func() store.Entity { return &widget{} })
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	db := New()
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	w := &widget{Name: "temp"}
	require.NoError(t, tx.Session().Persist(w))
	require.NoError(t, tx.Rollback())

	tx2, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx2.Rollback()
	var out widget
	err = tx2.Session().Load("widget", w.ID, &out)
	require.ErrorIs(t, err, store.ErrNotFound)
}
