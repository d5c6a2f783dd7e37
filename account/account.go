// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package account implements the Account Engine and Script Pool Manager
// (spec §4.4, §4.5): multi-signature accounts grouping keychains, their
// bins, and the unused-script pool each bin maintains.
package account

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/store"
)

// Status values for a SigningScript, spec §3. Transitions are monotonic:
// UNUSED -> ISSUED -> USED, UNUSED -> CHANGE -> USED, or UNUSED -> USED
// directly. Once USED, a script never moves again.
type ScriptStatus int

const (
	// Unused scripts have never been handed out or received funds.
	Unused ScriptStatus = iota
	// Change scripts were generated by create_tx to receive change.
	Change
	// Issued scripts were handed to issue_script's caller.
	Issued
	// Used scripts have appeared as a TxOut's destination on chain.
	Used
)

// rank assigns each status a position in the monotonic status ordering.
// CanTransition lists the permitted transitions directly and does not
// consult it.
var rank = map[ScriptStatus]int{Unused: 0, Change: 1, Issued: 1, Used: 2}

func (s ScriptStatus) String() string {
	switch s {
	case Unused:
		return "UNUSED"
	case Change:
		return "CHANGE"
	case Issued:
		return "ISSUED"
	case Used:
		return "USED"
	default:
		return "UNKNOWN"
	}
}

// CanTransition reports whether moving from s to next is a legal
// monotonic status transition.
func CanTransition(s, next ScriptStatus) bool {
	if s == next {
		return true
	}
	if s == Used {
		return false
	}
	if s == Unused {
		return true
	}
	// Change/Issued can only advance to Used.
	return next == Used
}

const (
	// KindAccount is the store.Kind for Account rows.
	KindAccount = "account"
	// KindBin is the store.Kind for AccountBin rows.
	KindBin = "accountbin"
	// KindScript is the store.Kind for SigningScript rows.
	KindScript = "signingscript"
)

func init() {
	store.RegisterKind(KindAccount, func() store.Entity { return &Account{} })
	store.RegisterKind(KindBin, func() store.Entity { return &Bin{} })
	store.RegisterKind(KindScript, func() store.Entity { return &SigningScript{} })
}

// ChangeBinName and DefaultBinName are the two bins created automatically
// at account birth, spec invariant 1.
const (
	ChangeBinName  = "@change"
	DefaultBinName = "@default"
	// AllSelector is the meta-name selecting every bin/account in a
	// query (spec §6).
	AllSelector = "@all"
)

// Account is a multi-signature policy over a set of keychains, spec §3.
type Account struct {
	ID             store.ID
	Name           string
	Hash           chainhash.Hash
	MinSigs        int
	KeychainNames  []string // ordered; defines pubkey ordering in scripts
	KeychainHashes []chainhash.Hash
	UnusedPoolSize int
	CreatedAt      uint32 // unix seconds
}

// Kind implements store.Entity.
func (a *Account) Kind() string { return KindAccount }

// EntityID implements store.Entity.
func (a *Account) EntityID() store.ID { return a.ID }

// SetEntityID implements store.Entity.
func (a *Account) SetEntityID(id store.ID) { a.ID = id }

// Field implements store.Entity.
func (a *Account) Field(name string) any {
	switch name {
	case "ID":
		return a.ID
	case "Name":
		return a.Name
	case "Hash":
		return a.Hash[:]
	case "CreatedAt":
		return a.CreatedAt
	default:
		return nil
	}
}

// CloneInto implements store.Cloner.
func (a *Account) CloneInto(dst store.Entity) {
	out, ok := dst.(*Account)
	if !ok {
		return
	}
	*out = *a
	out.KeychainNames = append([]string(nil), a.KeychainNames...)
	out.KeychainHashes = append([]chainhash.Hash(nil), a.KeychainHashes...)
}

// ComputeHash derives the account's content hash from its threshold and
// constituent keychain hashes in order (spec invariant 8's account
// analogue).
func (a *Account) ComputeHash() chainhash.Hash {
	buf := make([]byte, 0, 4+len(a.KeychainHashes)*chainhash.HashSize)
	buf = append(buf, byte(a.MinSigs))
	for _, h := range a.KeychainHashes {
		buf = append(buf, h[:]...)
	}
	return chainhash.HashH(buf)
}

// Bin is a named sub-collection of signing scripts within an account,
// spec §3.
type Bin struct {
	ID              store.ID
	AccountID       store.ID
	Name            string
	Index           int
	IsChange        bool
	NextScriptIndex uint32
}

// Kind implements store.Entity.
func (b *Bin) Kind() string { return KindBin }

// EntityID implements store.Entity.
func (b *Bin) EntityID() store.ID { return b.ID }

// SetEntityID implements store.Entity.
func (b *Bin) SetEntityID(id store.ID) { b.ID = id }

// Field implements store.Entity.
func (b *Bin) Field(name string) any {
	switch name {
	case "ID":
		return b.ID
	case "AccountID":
		return b.AccountID
	case "Name":
		return b.Name
	case "IsChange":
		return b.IsChange
	default:
		return nil
	}
}

// CloneInto implements store.Cloner.
func (b *Bin) CloneInto(dst store.Entity) {
	out, ok := dst.(*Bin)
	if !ok {
		return
	}
	*out = *b
}

// SigningKey is one keychain's contribution to a SigningScript: the
// derived public key for this script's index, and (if the owning
// keychain's private key is unlocked when the script is signed) the
// derived private scalar is never stored — it is recomputed on demand by
// txmgr from the keychain and ChildIndex, per spec's
// cyclic-relationship design note: keys are represented by reference, not
// by persisted private material.
type SigningKey struct {
	KeychainName string
	ChildIndex   uint32
	PubKey       []byte
}

// SigningScript is an output/input script pair prepared from an
// account's keychains at a specific derivation index, spec §3.
type SigningScript struct {
	ID              store.ID
	BinID           store.ID
	Index           uint32
	Status          ScriptStatus
	Label           string
	Keys            []SigningKey
	MinSigs         int
	RedeemScript    []byte // input-script template (SIGN mode payload)
	OutputScript    []byte
}

// Kind implements store.Entity.
func (s *SigningScript) Kind() string { return KindScript }

// EntityID implements store.Entity.
func (s *SigningScript) EntityID() store.ID { return s.ID }

// SetEntityID implements store.Entity.
func (s *SigningScript) SetEntityID(id store.ID) { s.ID = id }

// Field implements store.Entity.
func (s *SigningScript) Field(name string) any {
	switch name {
	case "ID":
		return s.ID
	case "BinID":
		return s.BinID
	case "Index":
		return s.Index
	case "Status":
		return int(s.Status)
	case "OutputScript":
		return s.OutputScript
	default:
		return nil
	}
}

// CloneInto implements store.Cloner.
func (s *SigningScript) CloneInto(dst store.Entity) {
	out, ok := dst.(*SigningScript)
	if !ok {
		return
	}
	*out = *s
	out.Keys = append([]SigningKey(nil), s.Keys...)
	out.RedeemScript = append([]byte(nil), s.RedeemScript...)
	out.OutputScript = append([]byte(nil), s.OutputScript...)
}
