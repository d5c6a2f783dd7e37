// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainmgr

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/account"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/txmgr"
)

// timeHorizonWindow is how far before the horizon timestamp a block whose
// parent is not stored must lie: insert_merkle_block refuses such a block
// when its timestamp plus this window exceeds the horizon timestamp
// (spec §4.7 step 1). Grounded on btcd's own
// 2-hour future-block tolerance (blockchain.MaxTimeOffsetSeconds).
const timeHorizonWindow = 2 * 60 * 60

// sentinelHorizon is returned by horizonTimestamp when no account exists
// yet to anchor one, spec §4.7.
const sentinelHorizon uint32 = 0xffffffff

// Engine implements the Blockchain Engine (spec §4.7). Like the other
// engines, it assumes the façade already holds the mutex and an open
// store.Session.
type Engine struct {
	txs      *txmgr.Engine
	accounts *account.Engine
}

// New returns a Blockchain Engine.
func New(txs *txmgr.Engine, accounts *account.Engine) *Engine {
	return &Engine{txs: txs, accounts: accounts}
}

// LinkIfKnown implements txmgr.BlockLinker: called by InsertTx right after
// persisting a SENT-or-later Tx, in case a header already carries its hash.
func (e *Engine) LinkIfKnown(sess store.Session, tx *txmgr.Tx) error {
	if !tx.Signed() {
		return nil
	}
	mb, err := e.merkleBlockContaining(sess, tx.Hash)
	if err != nil {
		return nil // nolint: no header known yet, not an error
	}
	return e.txs.LinkToHeader(sess, tx, mb.HeaderID)
}

// Height implements txmgr.HeightLookup.
func (e *Engine) Height(sess store.Session, headerID store.ID) (int32, bool) {
	h := &BlockHeader{}
	if err := sess.Load(KindHeader, headerID, h); err != nil {
		return 0, false
	}
	return h.Height, true
}

func (e *Engine) headerByHash(sess store.Session, hash chainhash.Hash) (*BlockHeader, error) {
	rows, err := sess.Query(store.Query{Kind: KindHeader, Preds: []store.Pred{store.EQ("Hash", hash[:])}},
		func() store.Entity { return &BlockHeader{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrNotFound, hash.String(), nil)
	}
	return rows[0].(*BlockHeader), nil
}

func (e *Engine) headersAtOrAbove(sess store.Session, height int32) ([]*BlockHeader, error) {
	rows, err := sess.Query(store.Query{Kind: KindHeader, Preds: []store.Pred{store.GE("Height", height)}},
		func() store.Entity { return &BlockHeader{} })
	if err != nil {
		return nil, err
	}
	out := make([]*BlockHeader, len(rows))
	for i, r := range rows {
		out[i] = r.(*BlockHeader)
	}
	return out, nil
}

func (e *Engine) headerAtHeight(sess store.Session, height int32) (*BlockHeader, error) {
	rows, err := sess.Query(store.Query{Kind: KindHeader, Preds: []store.Pred{store.EQ("Height", height)}},
		func() store.Entity { return &BlockHeader{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].(*BlockHeader), nil
}

func (e *Engine) merkleBlockByHeader(sess store.Session, headerID store.ID) (*MerkleBlock, error) {
	rows, err := sess.Query(store.Query{Kind: KindMerkleBlock, Preds: []store.Pred{store.EQ("HeaderID", headerID)}},
		func() store.Entity { return &MerkleBlock{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].(*MerkleBlock), nil
}

// merkleBlockContaining scans every stored merkle block for one carrying
// hash. The predicate algebra has no containment operator over a
// []chainhash.Hash field, so this is a linear scan in Go, acceptable at the
// scale the Store Adapter targets (spec §4.1 leaves query planning to the
// adapter, not the engine).
func (e *Engine) merkleBlockContaining(sess store.Session, hash chainhash.Hash) (*MerkleBlock, error) {
	rows, err := sess.Query(store.Query{Kind: KindMerkleBlock}, func() store.Entity { return &MerkleBlock{} })
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		mb := r.(*MerkleBlock)
		if mb.containsHash(hash) {
			return mb, nil
		}
	}
	return nil, store.ErrNotFound
}

// InsertMerkleBlock implements insert_merkle_block (spec §4.7). Returns
// false when the block is rejected as too-far-orphaned or already known.
func (e *Engine) InsertMerkleBlock(sess store.Session, header *BlockHeader, mb *MerkleBlock) (bool, error) {
	if _, err := e.headerByHash(sess, header.PrevHash); err != nil {
		horizon, herr := e.horizonTimestamp(sess)
		if herr != nil {
			return false, herr
		}
		if uint64(header.Timestamp)+timeHorizonWindow > uint64(horizon) {
			return false, nil
		}
	}

	if _, err := e.headerByHash(sess, header.Hash); err == nil {
		return false, nil
	}

	sidechain, err := e.headersAtOrAbove(sess, header.Height)
	if err != nil {
		return false, err
	}
	for _, sc := range sidechain {
		scmb, merr := e.merkleBlockByHeader(sess, sc.ID)
		if merr == nil {
			if err := sess.Erase(scmb); err != nil {
				return false, err
			}
		}
		if err := e.txs.UnlinkFromHeader(sess, sc.ID); err != nil {
			return false, err
		}
		if err := sess.Erase(sc); err != nil {
			return false, err
		}
	}

	if err := sess.Persist(header); err != nil {
		return false, err
	}
	mb.HeaderID = header.ID
	if err := sess.Persist(mb); err != nil {
		return false, err
	}

	for _, hash := range mb.Hashes {
		tx, terr := e.txs.TxByHash(sess, hash)
		if terr != nil {
			continue
		}
		if tx.BlockHeaderID == 0 {
			if err := e.txs.LinkToHeader(sess, tx, header.ID); err != nil {
				return false, err
			}
		}
	}

	if err := e.updateConfirmations(sess); err != nil {
		return false, err
	}

	return true, nil
}

// updateConfirmations re-checks every non-confirmed signed Tx against the
// currently known merkle blocks, linking any stragglers (spec §4.7 step 6).
func (e *Engine) updateConfirmations(sess store.Session) error {
	pending, err := e.txs.NonConfirmedSignedTxs(sess)
	if err != nil {
		return err
	}
	for _, tx := range pending {
		mb, merr := e.merkleBlockContaining(sess, tx.Hash)
		if merr != nil {
			continue
		}
		if err := e.txs.LinkToHeader(sess, tx, mb.HeaderID); err != nil {
			return err
		}
	}
	return nil
}

// horizonTimestamp returns the earliest account creation timestamp across
// all accounts, or sentinelHorizon if none exist (spec §4.7).
func (e *Engine) horizonTimestamp(sess store.Session) (uint32, error) {
	infos, err := e.accounts.AllAccountInfo(sess)
	if err != nil {
		return 0, err
	}
	if len(infos) == 0 {
		return sentinelHorizon, nil
	}
	earliest := sentinelHorizon
	for _, info := range infos {
		if info.Account.CreatedAt < earliest {
			earliest = info.Account.CreatedAt
		}
	}
	return earliest, nil
}

// HorizonTimestamp exposes horizonTimestamp for the façade's Query/View
// Layer.
func (e *Engine) HorizonTimestamp(sess store.Session) (uint32, error) {
	return e.horizonTimestamp(sess)
}

// LocatorHashes samples block hashes at heights bestHeight, bestHeight-1,
// bestHeight-2, bestHeight-4, bestHeight-8, … down to height 0, spec §4.7.
func (e *Engine) LocatorHashes(sess store.Session, bestHeight int32) ([]chainhash.Hash, error) {
	var hashes []chainhash.Hash
	offset := int32(0)
	for {
		height := bestHeight - offset
		if height < 0 {
			height = 0
		}
		h, err := e.headerAtHeight(sess, height)
		if err == nil {
			hashes = append(hashes, h.Hash)
		}
		if height == 0 {
			break
		}
		if offset == 0 {
			offset = 1
		} else {
			offset *= 2
		}
	}
	return hashes, nil
}
