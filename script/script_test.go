// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

func testPubkeys(t *testing.T, n int) []*btcec.PublicKey {
	t.Helper()
	pubs := make([]*btcec.PublicKey, n)
	for i := 0; i < n; i++ {
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			t.Fatal(err)
		}
		pubs[i] = priv.PubKey()
	}
	return pubs
}

func TestBuildMultisigRejectsBadThreshold(t *testing.T) {
	pubs := testPubkeys(t, 2)
	if _, _, err := BuildMultisig(pubs, 0); err == nil {
		t.Fatal("expected error for threshold 0")
	}
	if _, _, err := BuildMultisig(pubs, 3); err == nil {
		t.Fatal("expected error for threshold exceeding key count")
	}
}

func TestBuildMultisigDeterministicByOrder(t *testing.T) {
	pubs := testPubkeys(t, 3)
	redeemA, outputA, err := BuildMultisig(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}
	redeemB, outputB, err := BuildMultisig(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(redeemA, redeemB) {
		t.Fatal("expected identical redeem script for identical input order")
	}
	if !bytes.Equal(outputA, outputB) {
		t.Fatal("expected identical output script for identical input order")
	}

	reversed := []*btcec.PublicKey{pubs[2], pubs[1], pubs[0]}
	redeemC, _, err := BuildMultisig(reversed, 2)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(redeemA, redeemC) {
		t.Fatal("expected different pubkey order to produce a different redeem script")
	}
}

func TestPayeeElementP2SH(t *testing.T) {
	pubs := testPubkeys(t, 2)
	redeem, output, err := BuildMultisig(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}
	payee, err := PayeeElement(output)
	if err != nil {
		t.Fatal(err)
	}
	if len(payee) != 20 {
		t.Fatalf("expected a 20-byte script hash, got %d bytes", len(payee))
	}
	_ = redeem
}

func TestInputScriptInsertAndSatisfied(t *testing.T) {
	pubs := testPubkeys(t, 3)
	redeem, _, err := BuildMultisig(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}
	in := NewInputScript(redeem, pubs, 2)
	if in.Satisfied() {
		t.Fatal("should not be satisfied with zero signatures")
	}

	if !in.InsertSignature(pubs[0], []byte{0xaa}) {
		t.Fatal("expected first insert to succeed")
	}
	if in.InsertSignature(pubs[0], []byte{0xbb}) {
		t.Fatal("expected second insert for the same pubkey to be a no-op")
	}
	if in.Satisfied() {
		t.Fatal("should not be satisfied with one of two required signatures")
	}

	if !in.InsertSignature(pubs[1], []byte{0xcc}) {
		t.Fatal("expected insert for second pubkey to succeed")
	}
	if !in.Satisfied() {
		t.Fatal("expected threshold to be met")
	}

	unknown, _ := btcec.NewPrivateKey()
	if in.InsertSignature(unknown.PubKey(), []byte{0xdd}) {
		t.Fatal("expected insert for unrelated pubkey to fail")
	}
}

func TestInputScriptMergeSignatures(t *testing.T) {
	pubs := testPubkeys(t, 3)
	redeem, _, err := BuildMultisig(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}

	a := NewInputScript(redeem, pubs, 2)
	a.InsertSignature(pubs[0], []byte{0x01})

	b := NewInputScript(redeem, pubs, 2)
	b.InsertSignature(pubs[1], []byte{0x02})

	added := a.MergeSignatures(b)
	if added != 1 {
		t.Fatalf("expected 1 new signature merged, got %d", added)
	}
	if !a.Satisfied() {
		t.Fatal("expected merged script to satisfy threshold")
	}

	addedAgain := a.MergeSignatures(b)
	if addedAgain != 0 {
		t.Fatal("expected re-merging the same script to add nothing")
	}
}

func TestEmitBroadcastRequiresThreshold(t *testing.T) {
	pubs := testPubkeys(t, 2)
	redeem, _, err := BuildMultisig(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}
	in := NewInputScript(redeem, pubs, 2)
	in.InsertSignature(pubs[0], []byte{0x01})

	if _, err := in.Emit(BROADCAST); err == nil {
		t.Fatal("expected broadcast to fail with insufficient signatures")
	}

	in.InsertSignature(pubs[1], []byte{0x02})
	sig, err := in.Emit(BROADCAST)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) == 0 {
		t.Fatal("expected non-empty scriptSig")
	}
}

func TestEmitSignReturnsRedeemScript(t *testing.T) {
	pubs := testPubkeys(t, 2)
	redeem, _, err := BuildMultisig(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}
	in := NewInputScript(redeem, pubs, 2)
	got, err := in.Emit(SIGN)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, redeem) {
		t.Fatal("expected SIGN mode to return the bare redeem script")
	}
}

func TestParseRoundTripsSignatureCount(t *testing.T) {
	pubs := testPubkeys(t, 2)
	redeem, _, err := BuildMultisig(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}
	in := NewInputScript(redeem, pubs, 2)
	in.InsertSignature(pubs[0], []byte{0x01, 0x02})
	in.InsertSignature(pubs[1], []byte{0x03, 0x04})

	sig, err := in.Emit(EDIT)
	if err != nil {
		t.Fatal(err)
	}

	tmpl := NewInputScript(redeem, pubs, 2)
	parsed, err := Parse(sig, tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.SignatureCount() != 2 {
		t.Fatalf("expected 2 signatures after round trip, got %d", parsed.SignatureCount())
	}
}

func TestMissingPubkeys(t *testing.T) {
	pubs := testPubkeys(t, 3)
	redeem, _, err := BuildMultisig(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}
	in := NewInputScript(redeem, pubs, 2)
	in.InsertSignature(pubs[1], []byte{0x01})

	missing := in.MissingPubkeys()
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing pubkeys, got %d", len(missing))
	}
}
