// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/txmgr"
)

// CreateTx implements create_tx (spec §4.6.2).
func (v *Vault) CreateTx(req txmgr.CreateTxRequest) (*txmgr.Tx, error) {
	var tx *txmgr.Tx
	err := v.withSession(func(sess store.Session) error {
		var err error
		tx, err = v.txs.CreateTx(sess, req)
		return err
	})
	return tx, err
}

// SignTx implements the Signing operation (spec §4.6.3).
func (v *Vault) SignTx(unsignedHash chainhash.Hash) (bool, error) {
	var added bool
	err := v.withSession(func(sess store.Session) error {
		var err error
		added, err = v.txs.SignTx(sess, unsignedHash, true)
		return err
	})
	return added, err
}

// DeleteTx implements the Deletion operation (spec §4.6.4).
func (v *Vault) DeleteTx(hash chainhash.Hash) error {
	return v.withSession(func(sess store.Session) error {
		return v.txs.DeleteTx(sess, hash)
	})
}

// GetTx resolves a Tx by either its unsigned or final hash.
func (v *Vault) GetTx(hash chainhash.Hash) (*txmgr.Tx, error) {
	var tx *txmgr.Tx
	err := v.withSession(func(sess store.Session) error {
		var err error
		tx, err = v.txs.GetTx(sess, hash)
		return err
	})
	return tx, err
}

// GetSigningRequest implements the Signing Request view (spec §4.6.5).
func (v *Vault) GetSigningRequest(unsignedHash chainhash.Hash) (*txmgr.SigningRequest, error) {
	var req *txmgr.SigningRequest
	err := v.withSession(func(sess store.Session) error {
		var err error
		req, err = v.txs.GetSigningRequest(sess, unsignedHash)
		return err
	})
	return req, err
}

// InsertTx implements insert_tx directly, for callers ingesting a tx
// observed on the network rather than constructed locally.
func (v *Vault) InsertTx(tx *txmgr.Tx, ins []*txmgr.TxIn, outs []*txmgr.TxOut) (*txmgr.Tx, bool, error) {
	var (
		stored *txmgr.Tx
		ok     bool
	)
	err := v.withSession(func(sess store.Session) error {
		var err error
		stored, ok, err = v.txs.InsertTx(sess, tx, ins, outs)
		return err
	})
	return stored, ok, err
}

