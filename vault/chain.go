// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/chainmgr"
	"github.com/coindb/vault/store"
)

// InsertMerkleBlock implements insert_merkle_block (spec §4.7).
func (v *Vault) InsertMerkleBlock(header *chainmgr.BlockHeader, mb *chainmgr.MerkleBlock) (bool, error) {
	var ok bool
	err := v.withSession(func(sess store.Session) error {
		var err error
		ok, err = v.chains.InsertMerkleBlock(sess, header, mb)
		return err
	})
	return ok, err
}

// HorizonTimestamp implements horizon_timestamp (spec §4.7).
func (v *Vault) HorizonTimestamp() (uint32, error) {
	var ts uint32
	err := v.withSession(func(sess store.Session) error {
		var err error
		ts, err = v.chains.HorizonTimestamp(sess)
		return err
	})
	return ts, err
}

// LocatorHashes implements locator_hashes (spec §4.7).
func (v *Vault) LocatorHashes(bestHeight int32) ([]chainhash.Hash, error) {
	var hashes []chainhash.Hash
	err := v.withSession(func(sess store.Session) error {
		var err error
		hashes, err = v.chains.LocatorHashes(sess, bestHeight)
		return err
	})
	return hashes, err
}
