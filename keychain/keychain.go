// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/store"
)

// KindKeychain is the store.Kind for Keychain rows.
const KindKeychain = "keychain"

func init() {
	store.RegisterKind(KindKeychain, func() store.Entity { return &Keychain{} })
}

// Keychain is a hierarchical set of keys sharing a chain code, per spec §3.
//
// The chain code is carried twice: PubChainCode in the clear (so a
// watch-only export can hand it to an external derivation tool), and
// EncChainCode as a ciphertext of the identical bytes that this engine
// itself insists on decrypting before it will derive a new child key.
// That duplication is deliberate policy, not cryptographic necessity: it
// is what lets an account's script pool stay un-refillable
// (AccountChainCodeLocked) until somebody supplies the chain-code unlock
// secret, even though deriving public child keys needs no private key at
// all.
type Keychain struct {
	ID     store.ID
	Name   string
	Hash   chainhash.Hash
	IsRoot bool // true for keychains created by NewKeychain/ImportKeychain

	ParentID   store.ID // 0 if IsRoot
	Depth      uint32
	ChildIndex uint32

	PubKey       []byte // compressed secp256k1 point, 33 bytes
	PubChainCode []byte // 32 bytes, cleartext

	EncChainCode     []byte
	EncChainCodeSalt []byte

	IsPrivate     bool
	EncPrivKey    []byte
	EncPrivKeySalt []byte
}

// Kind implements store.Entity.
func (k *Keychain) Kind() string { return KindKeychain }

// EntityID implements store.Entity.
func (k *Keychain) EntityID() store.ID { return k.ID }

// SetEntityID implements store.Entity.
func (k *Keychain) SetEntityID(id store.ID) { k.ID = id }

// Field implements store.Entity.
func (k *Keychain) Field(name string) any {
	switch name {
	case "ID":
		return k.ID
	case "Name":
		return k.Name
	case "Hash":
		return k.Hash[:]
	case "ParentID":
		return k.ParentID
	case "IsRoot":
		return k.IsRoot
	case "IsPrivate":
		return k.IsPrivate
	default:
		return nil
	}
}

// CloneInto implements store.Cloner.
func (k *Keychain) CloneInto(dst store.Entity) {
	out, ok := dst.(*Keychain)
	if !ok {
		return
	}
	*out = *k
	out.PubKey = append([]byte(nil), k.PubKey...)
	out.PubChainCode = append([]byte(nil), k.PubChainCode...)
	out.EncChainCode = append([]byte(nil), k.EncChainCode...)
	out.EncChainCodeSalt = append([]byte(nil), k.EncChainCodeSalt...)
	out.EncPrivKey = append([]byte(nil), k.EncPrivKey...)
	out.EncPrivKeySalt = append([]byte(nil), k.EncPrivKeySalt...)
}

// ComputeHash derives the keychain's content hash: a stable function of
// its public key and chain code, used as cross-deployment identity (spec
// invariant 8).
func (k *Keychain) ComputeHash() chainhash.Hash {
	buf := make([]byte, 0, len(k.PubKey)+len(k.PubChainCode))
	buf = append(buf, k.PubKey...)
	buf = append(buf, k.PubChainCode...)
	return chainhash.HashH(buf)
}
