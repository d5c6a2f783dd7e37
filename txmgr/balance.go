// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txmgr

import "github.com/coindb/vault/store"

// HeightLookup resolves the confirmed height of a stored block header,
// letting AccountBalance reason about confirmation depth without txmgr
// importing chainmgr. Wired in by the façade via SetHeightLookup, the same
// pattern BlockLinker uses to avoid the reverse import.
type HeightLookup interface {
	Height(sess store.Session, headerID store.ID) (int32, bool)
}

// SetHeightLookup wires in the Blockchain Engine's header index.
func (e *Engine) SetHeightLookup(h HeightLookup) { e.heights = h }

// AccountBalance implements account_balance (spec §4.4): the sum of
// unspent TxOut values belonging to account whose owning Tx's status is
// one of statuses, optionally restricted by confirmation depth.
//
// When minConfirmations > 0, a TxOut only counts if its Tx is linked to a
// header at height <= bestHeight+1-minConfirmations; unlinked (unconfirmed)
// TxOuts never count in that case. If minConfirmations exceeds bestHeight
// the result is always 0, since no header could possibly satisfy it.
func (e *Engine) AccountBalance(sess store.Session, accountName string, minConfirmations int, statuses []Status, bestHeight int32) (int64, error) {
	if minConfirmations > 0 && int64(minConfirmations) > int64(bestHeight) {
		return 0, nil
	}

	allowed := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}

	rows, err := sess.Query(store.Query{
		Kind: KindTxOut,
		Preds: []store.Pred{
			store.EQ("AccountHint", accountName),
			store.EQ("Status", int(Unspent)),
		},
	}, func() store.Entity { return &TxOut{} })
	if err != nil {
		return 0, err
	}

	var total int64
	for _, r := range rows {
		out := r.(*TxOut)
		owner := &Tx{}
		if err := sess.Load(KindTx, out.TxID, owner); err != nil {
			return 0, err
		}
		if len(allowed) > 0 && !allowed[owner.Status] {
			continue
		}
		if minConfirmations > 0 {
			if owner.BlockHeaderID == 0 || e.heights == nil {
				continue
			}
			height, ok := e.heights.Height(sess, owner.BlockHeaderID)
			if !ok || int64(height) > int64(bestHeight)+1-int64(minConfirmations) {
				continue
			}
		}
		total += out.Value
	}
	return total, nil
}
