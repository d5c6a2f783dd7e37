// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/coindb/vault/cryptoprovider"
	"github.com/coindb/vault/unlock"
)

// extendedKeyVersion is a fixed, arbitrary BIP32 version prefix. Vault
// never serializes an ExtendedKey to the wire xpub/xprv text format, so
// the version bytes never escape the process; any fixed choice works.
var extendedKeyVersion = []byte{0x04, 0x88, 0xB2, 0x1E} // mainnet xpub

// masterExtendedKey reconstructs the root ExtendedKey for kc from its
// stored public material plus the chain code (and, if available, private
// scalar) held in the unlock cache, so cryptoprovider.DeriveChild can walk
// to any child index.
func masterExtendedKey(kc *Keychain, chainCode unlock.Secret, priv unlock.Secret) (*cryptoprovider.ExtendedKey, error) {
	parentFP := []byte{0, 0, 0, 0}
	depth := uint8(kc.Depth)
	if priv != nil {
		key := hdkeychain.NewExtendedKey(
			extendedKeyVersion, priv, chainCode, parentFP, depth, kc.ChildIndex, true)
		return key, nil
	}
	key := hdkeychain.NewExtendedKey(
		extendedKeyVersion, kc.PubKey, chainCode, parentFP, depth, kc.ChildIndex, false)
	return key, nil
}
