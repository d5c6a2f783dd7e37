// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sql_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coindb/vault/store"
	vsql "github.com/coindb/vault/store/sql"
)

const widgetKind = "widget"

func init() {
	store.RegisterKind(widgetKind, func() store.Entity { return &widget{} })
}

type widget struct {
	ID     store.ID
	Name   string
	Weight int64
}

func (w *widget) Kind() string            { return widgetKind }
func (w *widget) EntityID() store.ID      { return w.ID }
func (w *widget) SetEntityID(id store.ID) { w.ID = id }

func (w *widget) Field(name string) any {
	switch name {
	case "Name":
		return w.Name
	case "Weight":
		return w.Weight
	}
	return nil
}

func (w *widget) CloneInto(dst store.Entity) {
	d := dst.(*widget)
	*d = *w
}

func openTestDB(t *testing.T) *vsql.DB {
	t.Helper()
	db, err := vsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPersistLoadAndQueryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	sess := tx.Session()

	w := &widget{Name: "bolt", Weight: 7}
	require.NoError(t, sess.Persist(w))
	require.NotZero(t, w.ID)

	var out widget
	require.NoError(t, sess.Load(widgetKind, w.ID, &out))
	require.Equal(t, "bolt", out.Name)
	require.Equal(t, int64(7), out.Weight)

	results, err := sess.Query(store.Query{Kind: widgetKind}.Where(store.EQ("Name", "bolt")),
		func() store.Entity { return &widget{} })
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestUpdateAndErasePersistAcrossTransactions(t *testing.T) {
	db := openTestDB(t)

	tx1, err := db.Begin(context.Background())
	require.NoError(t, err)
	sess1 := tx1.Session()
	w := &widget{Name: "nut", Weight: 1}
	require.NoError(t, sess1.Persist(w))
	require.NoError(t, tx1.Commit())

	tx2, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx2.Rollback()
	sess2 := tx2.Session()

	var loaded widget
	require.NoError(t, sess2.Load(widgetKind, w.ID, &loaded))
	loaded.Weight = 99
	require.NoError(t, sess2.Update(&loaded))

	var reloaded widget
	require.NoError(t, sess2.Load(widgetKind, w.ID, &reloaded))
	require.Equal(t, int64(99), reloaded.Weight)

	require.NoError(t, sess2.Erase(&reloaded))
	require.Error(t, sess2.Load(widgetKind, w.ID, &widget{}))
	require.NoError(t, tx2.Commit())
}

func TestRollbackDiscardsWrites(t *testing.T) {
	db := openTestDB(t)

	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	sess := tx.Session()
	w := &widget{Name: "washer", Weight: 2}
	require.NoError(t, sess.Persist(w))
	require.NoError(t, tx.Rollback())

	tx2, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx2.Rollback()
	require.Error(t, tx2.Session().Load(widgetKind, w.ID, &widget{}))
}

func TestEraseQueryDeletesMatchingRows(t *testing.T) {
	db := openTestDB(t)
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	sess := tx.Session()

	require.NoError(t, sess.Persist(&widget{Name: "a", Weight: 1}))
	require.NoError(t, sess.Persist(&widget{Name: "b", Weight: 2}))

	n, err := sess.EraseQuery(store.Query{Kind: widgetKind}.Where(store.EQ("Name", "a")))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	results, err := sess.Query(store.Query{Kind: widgetKind}, func() store.Entity { return &widget{} })
	require.NoError(t, err)
	require.Len(t, results, 1)
}
