// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainmgr implements the Blockchain Engine (spec §4.7): merkle
// block ingestion, reorganization, and confirmation linking.
package chainmgr

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/store"
)

const (
	// KindHeader is the store.Kind for BlockHeader rows.
	KindHeader = "blockheader"
	// KindMerkleBlock is the store.Kind for MerkleBlock rows.
	KindMerkleBlock = "merkleblock"
)

func init() {
	store.RegisterKind(KindHeader, func() store.Entity { return &BlockHeader{} })
	store.RegisterKind(KindMerkleBlock, func() store.Entity { return &MerkleBlock{} })
}

// BlockHeader is a Bitcoin block header, spec §3.
type BlockHeader struct {
	ID        store.ID
	Hash      chainhash.Hash
	Height    int32
	PrevHash  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp uint32
	Bits      uint32
	Nonce     uint32
}

// Kind implements store.Entity.
func (h *BlockHeader) Kind() string { return KindHeader }

// EntityID implements store.Entity.
func (h *BlockHeader) EntityID() store.ID { return h.ID }

// SetEntityID implements store.Entity.
func (h *BlockHeader) SetEntityID(id store.ID) { h.ID = id }

// Field implements store.Entity.
func (h *BlockHeader) Field(name string) any {
	switch name {
	case "ID":
		return h.ID
	case "Hash":
		return h.Hash[:]
	case "Height":
		return h.Height
	case "PrevHash":
		return h.PrevHash[:]
	default:
		return nil
	}
}

// CloneInto implements store.Cloner.
func (h *BlockHeader) CloneInto(dst store.Entity) {
	out, ok := dst.(*BlockHeader)
	if !ok {
		return
	}
	*out = *h
}

// MerkleBlock records the subset of a block's transaction hashes relevant
// to the vault, spec §3. Index tracking within the original block is not
// preserved; Hashes entries that belong to locally known Txs are linked by
// hash alone (see Open Question decision 3 in DESIGN.md).
type MerkleBlock struct {
	ID       store.ID
	HeaderID store.ID
	Hashes   []chainhash.Hash
	Flags    []byte
}

// Kind implements store.Entity.
func (m *MerkleBlock) Kind() string { return KindMerkleBlock }

// EntityID implements store.Entity.
func (m *MerkleBlock) EntityID() store.ID { return m.ID }

// SetEntityID implements store.Entity.
func (m *MerkleBlock) SetEntityID(id store.ID) { m.ID = id }

// Field implements store.Entity.
func (m *MerkleBlock) Field(name string) any {
	switch name {
	case "ID":
		return m.ID
	case "HeaderID":
		return m.HeaderID
	default:
		return nil
	}
}

// CloneInto implements store.Cloner.
func (m *MerkleBlock) CloneInto(dst store.Entity) {
	out, ok := dst.(*MerkleBlock)
	if !ok {
		return
	}
	*out = *m
	out.Hashes = append([]chainhash.Hash(nil), m.Hashes...)
	out.Flags = append([]byte(nil), m.Flags...)
}

// containsHash reports whether hash appears in mb.Hashes.
func (m *MerkleBlock) containsHash(hash chainhash.Hash) bool {
	for _, h := range m.Hashes {
		if h == hash {
			return true
		}
	}
	return false
}
