// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cryptoprovider

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func TestPubkeyFromPrivAndEqual(t *testing.T) {
	p := New()
	entropy := make([]byte, 32)
	if _, err := rand.Read(entropy); err != nil {
		t.Fatal(err)
	}
	master, err := p.NewMasterKey(entropy)
	if err != nil {
		t.Fatal(err)
	}
	priv, err := master.ECPrivKey()
	if err != nil {
		t.Fatal(err)
	}

	pub1 := p.PubkeyFromPriv(priv)
	pub2 := p.PubkeyFromPriv(priv)
	if !p.PubkeyEqual(pub1, pub2) {
		t.Fatal("expected derived pubkeys from the same priv to be equal")
	}

	entropy2 := make([]byte, 32)
	if _, err := rand.Read(entropy2); err != nil {
		t.Fatal(err)
	}
	master2, err := p.NewMasterKey(entropy2)
	if err != nil {
		t.Fatal(err)
	}
	priv2, err := master2.ECPrivKey()
	if err != nil {
		t.Fatal(err)
	}
	pub3 := p.PubkeyFromPriv(priv2)
	if p.PubkeyEqual(pub1, pub3) {
		t.Fatal("expected different master keys to produce different pubkeys")
	}
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	p := New()
	entropy := bytes.Repeat([]byte{0x07}, 32)
	master, err := p.NewMasterKey(entropy)
	if err != nil {
		t.Fatal(err)
	}
	priv, err := master.ECPrivKey()
	if err != nil {
		t.Fatal(err)
	}

	hash := HashForSigning([]byte("sign me"))
	sig, err := p.Sign(priv, hash)
	if err != nil {
		t.Fatal(err)
	}
	if !sig.Verify(hash[:], p.PubkeyFromPriv(priv)) {
		t.Fatal("expected signature to verify against its own pubkey")
	}
}

func TestSignNilPrivateKeyErrors(t *testing.T) {
	p := New()
	var hash [32]byte
	if _, err := p.Sign(nil, hash); err == nil {
		t.Fatal("expected error signing with nil private key")
	}
}

func TestDeriveChildDeterministic(t *testing.T) {
	p := New()
	entropy := bytes.Repeat([]byte{0x01}, 32)
	master, err := p.NewMasterKey(entropy)
	if err != nil {
		t.Fatal(err)
	}

	childA, err := p.DeriveChild(master, 0)
	if err != nil {
		t.Fatal(err)
	}
	childB, err := p.DeriveChild(master, 0)
	if err != nil {
		t.Fatal(err)
	}

	pubA, err := childA.ECPubKey()
	if err != nil {
		t.Fatal(err)
	}
	pubB, err := childB.ECPubKey()
	if err != nil {
		t.Fatal(err)
	}
	if !p.PubkeyEqual(pubA, pubB) {
		t.Fatal("expected deterministic child derivation")
	}

	childC, err := p.DeriveChild(master, 1)
	if err != nil {
		t.Fatal(err)
	}
	pubC, err := childC.ECPubKey()
	if err != nil {
		t.Fatal(err)
	}
	if p.PubkeyEqual(pubA, pubC) {
		t.Fatal("expected different indices to derive different children")
	}
}

func TestDeriveChildInvalidChildIsSentinel(t *testing.T) {
	// ErrInvalidChild must wrap through to the sentinel so callers can
	// retry at index+1 per BIP32, without depending on hdkeychain's type.
	if !errors.Is(ErrInvalidChild, ErrInvalidChild) {
		t.Fatal("sentinel must be comparable via errors.Is")
	}
}
