// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txmgr

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/store"
)

// TxByHash resolves a fully signed Tx by its final hash, used by the
// Blockchain Engine to link a merkle block's contained hashes to locally
// known transactions.
func (e *Engine) TxByHash(sess store.Session, hash chainhash.Hash) (*Tx, error) {
	return e.byHash(sess, hash)
}

// LinkToHeader marks tx as confirmed under the block header identified by
// headerID, spec §4.7 step 5 / invariant 7.
func (e *Engine) LinkToHeader(sess store.Session, tx *Tx, headerID store.ID) error {
	tx.BlockHeaderID = headerID
	tx.Status = Confirmed
	return sess.Update(tx)
}

// UnlinkFromHeader clears the block-header reference of every Tx linked to
// headerID, reverting it to SENT (pending re-confirmation), spec §4.7
// step 3's reorg rollback.
func (e *Engine) UnlinkFromHeader(sess store.Session, headerID store.ID) error {
	rows, err := sess.Query(store.Query{Kind: KindTx, Preds: []store.Pred{store.EQ("BlockHeaderID", headerID)}},
		func() store.Entity { return &Tx{} })
	if err != nil {
		return err
	}
	for _, r := range rows {
		tx := r.(*Tx)
		tx.BlockHeaderID = 0
		tx.Status = Sent
		if err := sess.Update(tx); err != nil {
			return err
		}
	}
	return nil
}

// NonConfirmedSignedTxs returns every fully signed Tx not yet linked to a
// block header, the candidate set update_confirmations re-checks against
// newly available merkle blocks (spec §4.7 step 6).
func (e *Engine) NonConfirmedSignedTxs(sess store.Session) ([]*Tx, error) {
	rows, err := sess.Query(store.Query{Kind: KindTx, Preds: []store.Pred{store.NE("Status", int(Confirmed))}},
		func() store.Entity { return &Tx{} })
	if err != nil {
		return nil, err
	}
	var out []*Tx
	for _, r := range rows {
		tx := r.(*Tx)
		if tx.Signed() {
			out = append(out, tx)
		}
	}
	return out, nil
}
