// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cryptoprovider is the concrete implementation of the
// Cryptography contract named in spec §6: secp256k1 ECDSA sign/verify,
// public-point derivation, and BIP32-style child key derivation. The core
// packages (keychain, txmgr) depend only on the Provider interface so that
// the curve library stays swappable in principle, even though in practice
// this module ships exactly one implementation.
package cryptoprovider

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	ecdsabtc "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// chaincfgParams only affects the extended-key version bytes hdkeychain
// prefixes onto serialized keys; the vault never serializes a key to the
// wire format keyed by network, so any fixed choice is safe here.
var chaincfgParams = chaincfg.MainNetParams

// ErrInvalidChild is returned by DeriveChild when the requested index
// produces an invalid child key; callers must retry at index+1, per
// BIP32.
var ErrInvalidChild = hdkeychain.ErrInvalidChild

// PrivateKey is a 32-byte secp256k1 scalar.
type PrivateKey = btcec.PrivateKey

// PublicKey is a secp256k1 curve point.
type PublicKey = btcec.PublicKey

// ExtendedKey is a BIP32 extended key: a private or public key plus chain
// code, depth, and derivation metadata.
type ExtendedKey = hdkeychain.ExtendedKey

// Provider is the Cryptography contract consumed by the rest of the
// module.
type Provider interface {
	// Sign produces a deterministic ECDSA signature over a 32-byte hash.
	Sign(priv *PrivateKey, hash [32]byte) (*ecdsabtc.Signature, error)

	// PubkeyFromPriv derives the public key for a private scalar.
	PubkeyFromPriv(priv *PrivateKey) *PublicKey

	// PubkeyEqual reports whether two public keys are the same point.
	PubkeyEqual(a, b *PublicKey) bool

	// NewMasterKey derives a root extended key from entropy.
	NewMasterKey(entropy []byte) (*ExtendedKey, error)

	// DeriveChild derives the child at index from parent. Returns
	// ErrInvalidChild if index must be skipped (BIP32 edge case).
	DeriveChild(parent *ExtendedKey, index uint32) (*ExtendedKey, error)
}

// Secp256k1 is the only Provider implementation in this module.
type Secp256k1 struct{}

// New returns the secp256k1 Provider.
func New() Provider { return Secp256k1{} }

// Sign implements Provider.
func (Secp256k1) Sign(priv *PrivateKey, hash [32]byte) (*ecdsabtc.Signature, error) {
	if priv == nil {
		return nil, errors.New("cryptoprovider: nil private key")
	}
	return ecdsabtc.Sign(priv, hash[:]), nil
}

// PubkeyFromPriv implements Provider.
func (Secp256k1) PubkeyFromPriv(priv *PrivateKey) *PublicKey {
	return priv.PubKey()
}

// PubkeyEqual implements Provider.
func (Secp256k1) PubkeyEqual(a, b *PublicKey) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IsEqual(b)
}

// NewMasterKey implements Provider.
func (Secp256k1) NewMasterKey(entropy []byte) (*ExtendedKey, error) {
	key, err := hdkeychain.NewMaster(entropy, &chaincfgParams)
	if err != nil {
		return nil, fmt.Errorf("cryptoprovider: new master key: %w", err)
	}
	return key, nil
}

// DeriveChild implements Provider.
func (Secp256k1) DeriveChild(parent *ExtendedKey, index uint32) (*ExtendedKey, error) {
	child, err := parent.Child(index)
	if err != nil {
		if errors.Is(err, hdkeychain.ErrInvalidChild) {
			return nil, ErrInvalidChild
		}
		return nil, fmt.Errorf("cryptoprovider: derive child %d: %w", index, err)
	}
	return child, nil
}

// HashForSigning doubles-SHA256 the message the way chainhash does, used
// to obtain the 32-byte digest ECDSA signs over.
func HashForSigning(msg []byte) [32]byte {
	return chainhash.DoubleHashH(msg)
}

// ToECDSA adapts a btcec private key to the standard library's type, for
// interop with code outside this module that expects crypto/ecdsa.
func ToECDSA(priv *PrivateKey) *ecdsa.PrivateKey {
	return priv.ToECDSA()
}
