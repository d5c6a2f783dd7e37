// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import "testing"

func TestMatchEQ(t *testing.T) {
	get := func(string) any { return "alice" }
	if !Match(get, EQ("Name", "alice")) {
		t.Fatal("expected EQ match")
	}
	if Match(get, EQ("Name", "bob")) {
		t.Fatal("expected EQ mismatch")
	}
}

func TestMatchNullAndNotNull(t *testing.T) {
	zero := func(string) any { return ID(0) }
	set := func(string) any { return ID(7) }
	if !Match(zero, IsNull("HeaderID")) {
		t.Fatal("expected zero ID to be null")
	}
	if Match(zero, IsNotNull("HeaderID")) {
		t.Fatal("zero ID should not be not-null")
	}
	if !Match(set, IsNotNull("HeaderID")) {
		t.Fatal("expected nonzero ID to be not-null")
	}
}

func TestMatchInRange(t *testing.T) {
	get := func(string) any { return ID(3) }
	p := InRange("BinID", ID(1), ID(2), ID(3))
	if !Match(get, p) {
		t.Fatal("expected 3 to be in range")
	}
	p2 := InRange("BinID", ID(1), ID(2))
	if Match(get, p2) {
		t.Fatal("expected 3 to not be in range")
	}
}

func TestMatchLTAndGE(t *testing.T) {
	get := func(string) any { return int64(5) }
	if !Match(get, LT("Height", int64(10))) {
		t.Fatal("expected 5 < 10")
	}
	if Match(get, LT("Height", int64(5))) {
		t.Fatal("expected 5 not< 5")
	}
	if !Match(get, GE("Height", int64(5))) {
		t.Fatal("expected 5 >= 5")
	}
	if Match(get, GE("Height", int64(6))) {
		t.Fatal("expected 5 not>= 6")
	}
}

// chainmgr.BlockHeader.Height is int32; GE/LT must discriminate on it the
// same way they do for the other integer kinds, or a reorg-detection query
// like "headers at or above height N" silently matches everything.
func TestMatchLTAndGEInt32(t *testing.T) {
	get := func(string) any { return int32(100) }
	if !Match(get, GE("Height", int32(100))) {
		t.Fatal("expected 100 >= 100")
	}
	if Match(get, GE("Height", int32(101))) {
		t.Fatal("expected 100 not>= 101")
	}
	if !Match(get, LT("Height", int32(101))) {
		t.Fatal("expected 100 < 101")
	}
	if Match(get, LT("Height", int32(100))) {
		t.Fatal("expected 100 not< 100")
	}
}

func TestMatchByteSliceEquality(t *testing.T) {
	get := func(string) any { return []byte{1, 2, 3} }
	if !Match(get, EQ("Script", []byte{1, 2, 3})) {
		t.Fatal("expected byte slices to compare equal")
	}
	if Match(get, EQ("Script", []byte{1, 2, 4})) {
		t.Fatal("expected byte slices to differ")
	}
	if Match(get, EQ("Script", []byte{1, 2})) {
		t.Fatal("expected different-length byte slices to differ")
	}
}

func TestQueryWhereAndSortByAreImmutable(t *testing.T) {
	base := Query{Kind: "widget"}
	q1 := base.Where(EQ("Group", "x"))
	q2 := base.Where(EQ("Group", "y"))

	if len(base.Preds) != 0 {
		t.Fatal("base query mutated")
	}
	if len(q1.Preds) != 1 || q1.Preds[0].Value != "x" {
		t.Fatal("q1 missing its own predicate")
	}
	if len(q2.Preds) != 1 || q2.Preds[0].Value != "y" {
		t.Fatal("q2 missing its own predicate")
	}

	s1 := q1.SortBy("Weight", Asc)
	if len(q1.OrderBy) != 0 {
		t.Fatal("q1 mutated by SortBy")
	}
	if len(s1.OrderBy) != 1 || s1.OrderBy[0].Dir != Asc {
		t.Fatal("s1 missing its own ordering")
	}
}
