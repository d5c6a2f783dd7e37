// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txmgr implements the Transaction Engine (spec §4.6): insertion,
// construction, signing and deletion of transactions that touch the
// vault's accounts, plus the outpoint/credit bookkeeping that backs
// balance queries.
package txmgr

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/store"
)

// Status is a Tx's lifecycle state. Values are ordered so that
// "upgrade-only" updates can compare them numerically.
type Status int

const (
	Unsigned Status = iota
	Unsent
	Sent
	Propagated
	Confirmed
	Conflicting
)

func (s Status) String() string {
	switch s {
	case Unsigned:
		return "UNSIGNED"
	case Unsent:
		return "UNSENT"
	case Sent:
		return "SENT"
	case Propagated:
		return "PROPAGATED"
	case Confirmed:
		return "CONFIRMED"
	case Conflicting:
		return "CONFLICTING"
	default:
		return "UNKNOWN"
	}
}

// OutStatus is a TxOut's spend state, flipped by its SpentBy back-reference
// being set or cleared.
type OutStatus int

const (
	Unspent OutStatus = iota
	Spent
)

const (
	// KindTx is the store.Kind for Tx rows.
	KindTx = "tx"
	// KindTxIn is the store.Kind for TxIn rows.
	KindTxIn = "txin"
	// KindTxOut is the store.Kind for TxOut rows.
	KindTxOut = "txout"
)

func init() {
	store.RegisterKind(KindTx, func() store.Entity { return &Tx{} })
	store.RegisterKind(KindTxIn, func() store.Entity { return &TxIn{} })
	store.RegisterKind(KindTxOut, func() store.Entity { return &TxOut{} })
}

// Tx is a transaction known to the vault, spec §3. FeeKnown is false until
// every referenced outpoint is resolved locally (invariant 5).
type Tx struct {
	ID            store.ID
	UnsignedHash  chainhash.Hash
	Hash          chainhash.Hash // zero until fully signed
	Version       int32
	LockTime      uint32
	Timestamp     uint32
	Status        Status
	FeeKnown      bool
	Fee           int64
	BlockHeaderID store.ID // 0 if not yet linked to a block
}

// Kind implements store.Entity.
func (t *Tx) Kind() string { return KindTx }

// EntityID implements store.Entity.
func (t *Tx) EntityID() store.ID { return t.ID }

// SetEntityID implements store.Entity.
func (t *Tx) SetEntityID(id store.ID) { t.ID = id }

// Field implements store.Entity.
func (t *Tx) Field(name string) any {
	switch name {
	case "ID":
		return t.ID
	case "UnsignedHash":
		return t.UnsignedHash[:]
	case "Hash":
		return t.Hash[:]
	case "Status":
		return int(t.Status)
	case "BlockHeaderID":
		return t.BlockHeaderID
	default:
		return nil
	}
}

// CloneInto implements store.Cloner.
func (t *Tx) CloneInto(dst store.Entity) {
	out, ok := dst.(*Tx)
	if !ok {
		return
	}
	*out = *t
}

// Signed reports whether t carries a final signed hash.
func (t *Tx) Signed() bool { return t.Hash != (chainhash.Hash{}) }

// TxIn is one input of a Tx, spec §3.
type TxIn struct {
	ID       store.ID
	TxID     store.ID
	Index    uint32
	OutHash  chainhash.Hash
	OutIndex uint32
	// ScriptSig is the input script as currently known, serialized by the
	// Script contract in EDIT mode (a partially or fully signed scriptSig
	// built from the outpoint's SigningScript redeem template).
	ScriptSig []byte
	Sequence  uint32
}

// Kind implements store.Entity.
func (i *TxIn) Kind() string { return KindTxIn }

// EntityID implements store.Entity.
func (i *TxIn) EntityID() store.ID { return i.ID }

// SetEntityID implements store.Entity.
func (i *TxIn) SetEntityID(id store.ID) { i.ID = id }

// Field implements store.Entity.
func (i *TxIn) Field(name string) any {
	switch name {
	case "ID":
		return i.ID
	case "TxID":
		return i.TxID
	case "OutHash":
		return i.OutHash[:]
	case "OutIndex":
		return i.OutIndex
	default:
		return nil
	}
}

// CloneInto implements store.Cloner.
func (i *TxIn) CloneInto(dst store.Entity) {
	out, ok := dst.(*TxIn)
	if !ok {
		return
	}
	*out = *i
	out.ScriptSig = append([]byte(nil), i.ScriptSig...)
}

// TxOut is one output of a Tx, spec §3. ScriptID links to the
// account.SigningScript this output pays, if any. SpentByTxInID is the
// owning back-reference (invariant 4); AccountHint names the account this
// output is understood to belong to even when no exact script matched
// (e.g. the sending side of a transfer out of the vault).
type TxOut struct {
	ID            store.ID
	TxID          store.ID
	Index         uint32
	Value         int64
	Script        []byte
	ScriptID      store.ID
	SpentByTxInID store.ID
	AccountHint   string
	Status        OutStatus
}

// Kind implements store.Entity.
func (o *TxOut) Kind() string { return KindTxOut }

// EntityID implements store.Entity.
func (o *TxOut) EntityID() store.ID { return o.ID }

// SetEntityID implements store.Entity.
func (o *TxOut) SetEntityID(id store.ID) { o.ID = id }

// Field implements store.Entity.
func (o *TxOut) Field(name string) any {
	switch name {
	case "ID":
		return o.ID
	case "TxID":
		return o.TxID
	case "ScriptID":
		return o.ScriptID
	case "Status":
		return int(o.Status)
	case "AccountHint":
		return o.AccountHint
	case "SpentByTxInID":
		return o.SpentByTxInID
	default:
		return nil
	}
}

// CloneInto implements store.Cloner.
func (o *TxOut) CloneInto(dst store.Entity) {
	out, ok := dst.(*TxOut)
	if !ok {
		return
	}
	*out = *o
	out.Script = append([]byte(nil), o.Script...)
}
