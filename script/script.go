// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package script is the concrete implementation of the Script contract
// named in spec §6: building a multisig redeem/output script pair,
// classifying an output script's payee, and parsing/merging/emitting a
// partially-or-fully-signed multisig input script in its three wire
// modes (SIGN, EDIT, BROADCAST).
package script

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Mode selects how an InputScript is serialized.
type Mode int

const (
	// SIGN emits the redeem script alone — the "script code" substituted
	// for the real output script when computing a signature-hash
	// preimage for one input of a multisig transaction.
	SIGN Mode = iota
	// EDIT emits a scriptSig carrying whatever signatures are currently
	// present, suitable for persisting a partially-signed Tx.
	EDIT
	// BROADCAST emits the final scriptSig; callers must only request it
	// once the signature threshold is met.
	BROADCAST
)

var netParams = &chaincfg.MainNetParams

// BuildMultisig builds the bare multisig redeem script for pubkeys
// requiring minSigs signatures, plus the P2SH output script that pays to
// its hash. Pubkeys are serialized in compressed form and included in the
// order given — callers are expected to pass a stable order (e.g.
// lexicographic by keychain name) so independently-constructed scripts
// for the same logical script match byte for byte.
func BuildMultisig(pubkeys []*btcec.PublicKey, minSigs int) (redeem, output []byte, err error) {
	if minSigs <= 0 || minSigs > len(pubkeys) {
		return nil, nil, fmt.Errorf("script: invalid threshold %d of %d keys", minSigs, len(pubkeys))
	}
	builder := txscript.NewScriptBuilder()
	builder.AddInt64(int64(minSigs))
	for _, pk := range pubkeys {
		builder.AddData(pk.SerializeCompressed())
	}
	builder.AddInt64(int64(len(pubkeys)))
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	redeem, err = builder.Script()
	if err != nil {
		return nil, nil, fmt.Errorf("script: build redeem script: %w", err)
	}

	addr, err := btcutil.NewAddressScriptHash(redeem, netParams)
	if err != nil {
		return nil, nil, fmt.Errorf("script: script-hash address: %w", err)
	}
	output, err = txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("script: build output script: %w", err)
	}
	return redeem, output, nil
}

// PayeeElement classifies an output script, returning the element that
// should be inserted into a bloom filter to watch for spends of it (the
// script hash for P2SH, the pubkey hash for P2PKH, and so on). This is
// the Script contract's "classify an output script -> payee element".
func PayeeElement(outputScript []byte) ([]byte, error) {
	class := txscript.GetScriptClass(outputScript)
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(outputScript, netParams)
	if err != nil {
		return nil, fmt.Errorf("script: classify output script: %w", err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("script: no payee in %s script", class)
	}
	return addrs[0].ScriptAddress(), nil
}

// InputScript is a (possibly partial) multisig input script: a redeem
// script, the ordered pubkeys it names, and a signature (or nil) for each
// pubkey slot.
type InputScript struct {
	Redeem     []byte
	Pubkeys    []*btcec.PublicKey
	Signatures [][]byte // parallel to Pubkeys; nil entries are missing
	MinSigs    int
}

// NewInputScript builds an empty (unsigned) InputScript for a redeem
// script built by BuildMultisig.
func NewInputScript(redeem []byte, pubkeys []*btcec.PublicKey, minSigs int) *InputScript {
	return &InputScript{
		Redeem:     redeem,
		Pubkeys:    pubkeys,
		Signatures: make([][]byte, len(pubkeys)),
		MinSigs:    minSigs,
	}
}

// Parse decodes a scriptSig produced by Emit(EDIT) or Emit(BROADCAST)
// back into an InputScript. The present signatures are placed in slots
// 0, 1, ... in the order they appear; no signature is verified against a
// pubkey, so a signature's original slot is not recovered. tmpl supplies
// the redeem script and pubkey order, since a bare scriptSig does not
// self-describe them once partially signed.
func Parse(scriptSig []byte, tmpl *InputScript) (*InputScript, error) {
	out := &InputScript{
		Redeem:     tmpl.Redeem,
		Pubkeys:    tmpl.Pubkeys,
		Signatures: make([][]byte, len(tmpl.Pubkeys)),
		MinSigs:    tmpl.MinSigs,
	}
	sigs, err := extractPushes(scriptSig)
	if err != nil {
		return nil, fmt.Errorf("script: parse input script: %w", err)
	}
	// The last push is the redeem script itself (P2SH convention); the
	// rest, in order, are present signatures. We don't know which pubkey
	// each corresponds to without the sighash, so callers that need to
	// preserve slot identity should prefer MergeSignatures over
	// round-tripping through Parse.
	if len(sigs) > 0 {
		sigs = sigs[:len(sigs)-1]
	}
	for i := 0; i < len(sigs) && i < len(out.Signatures); i++ {
		out.Signatures[i] = sigs[i]
	}
	return out, nil
}

func extractPushes(scriptSig []byte) ([][]byte, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, scriptSig)
	var pushes [][]byte
	for tokenizer.Next() {
		if d := tokenizer.Data(); d != nil {
			pushes = append(pushes, d)
		}
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return pushes, nil
}

// MissingPubkeys returns the pubkeys that have not yet supplied a
// signature.
func (s *InputScript) MissingPubkeys() []*btcec.PublicKey {
	var missing []*btcec.PublicKey
	for i, sig := range s.Signatures {
		if sig == nil {
			missing = append(missing, s.Pubkeys[i])
		}
	}
	return missing
}

// SignatureCount returns how many signature slots are filled.
func (s *InputScript) SignatureCount() int {
	n := 0
	for _, sig := range s.Signatures {
		if sig != nil {
			n++
		}
	}
	return n
}

// Satisfied reports whether enough signatures are present to broadcast.
func (s *InputScript) Satisfied() bool {
	return s.SignatureCount() >= s.MinSigs
}

// InsertSignature records sig for pubkey, returning false if pubkey is
// not part of this script or already has a signature (insertion is a
// no-op in that case, matching the spec's "union of present signatures"
// merge semantics).
func (s *InputScript) InsertSignature(pubkey *btcec.PublicKey, sig []byte) bool {
	for i, pk := range s.Pubkeys {
		if pk.IsEqual(pubkey) {
			if s.Signatures[i] != nil {
				return false
			}
			s.Signatures[i] = sig
			return true
		}
	}
	return false
}

// MergeSignatures unions the signatures present in other into s,
// returning how many new signatures were added. Both must share the same
// redeem script / pubkey ordering.
func (s *InputScript) MergeSignatures(other *InputScript) int {
	added := 0
	for i := range s.Signatures {
		if s.Signatures[i] == nil && i < len(other.Signatures) && other.Signatures[i] != nil {
			s.Signatures[i] = other.Signatures[i]
			added++
		}
	}
	return added
}

// Emit serializes s per mode.
func (s *InputScript) Emit(mode Mode) ([]byte, error) {
	switch mode {
	case SIGN:
		return s.Redeem, nil
	case EDIT, BROADCAST:
		if mode == BROADCAST && !s.Satisfied() {
			return nil, fmt.Errorf("script: cannot broadcast, have %d of %d signatures",
				s.SignatureCount(), s.MinSigs)
		}
		builder := txscript.NewScriptBuilder()
		builder.AddOp(txscript.OP_0) // multisig CHECKMULTISIG off-by-one
		for _, sig := range s.Signatures {
			if sig == nil {
				continue
			}
			builder.AddData(sig)
		}
		builder.AddData(s.Redeem)
		return builder.Script()
	default:
		return nil, fmt.Errorf("script: unknown mode %d", mode)
	}
}
