// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package account

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/coindb/vault/script"
	"github.com/coindb/vault/store"
)

// scriptChildIndex maps a (bin index, script index) pair onto a single
// BIP32 child index, giving every bin of an account its own non-
// overlapping derivation range. Bin 0 (change) and bin 1 (default) get
// the two lowest ranges; bins added later via AddAccountBin continue the
// sequence.
func scriptChildIndex(binIndex int, scriptIndex uint32) uint32 {
	const rangeSize = 1 << 24 // 16.7M scripts per bin before collision
	return uint32(binIndex)*rangeSize + scriptIndex
}

// countUnused returns the number of UNUSED scripts in bin.
func (e *Engine) countUnused(sess store.Session, binID store.ID) (int, error) {
	rows, err := sess.Query(store.Query{
		Kind: KindScript,
		Preds: []store.Pred{
			store.EQ("BinID", binID),
			store.EQ("Status", int(Unused)),
		},
	}, func() store.Entity { return &SigningScript{} })
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// deriveScript builds a new SigningScript for bin at the next monotonic
// index, deriving one public key per constituent keychain. The chain
// codes of every constituent keychain must already be unlocked.
func (e *Engine) deriveScript(sess store.Session, acct *Account, bin *Bin) (*SigningScript, error) {
	childIndex := scriptChildIndex(bin.Index, bin.NextScriptIndex)

	keys := make([]SigningKey, len(acct.KeychainNames))
	pubkeys := make([]*btcec.PublicKey, len(acct.KeychainNames))
	for i, name := range acct.KeychainNames {
		pk, err := e.keychains.DeriveChildPubkey(sess, name, childIndex)
		if err != nil {
			return nil, err
		}
		keys[i] = SigningKey{KeychainName: name, ChildIndex: childIndex, PubKey: pk.SerializeCompressed()}
		pubkeys[i] = pk
	}

	redeem, output, err := script.BuildMultisig(pubkeys, acct.MinSigs)
	if err != nil {
		return nil, err
	}

	s := &SigningScript{
		BinID:        bin.ID,
		Index:        bin.NextScriptIndex,
		Status:       Unused,
		Keys:         keys,
		MinSigs:      acct.MinSigs,
		RedeemScript: redeem,
		OutputScript: output,
	}
	if err := sess.Persist(s); err != nil {
		return nil, err
	}
	bin.NextScriptIndex++
	if err := sess.Update(bin); err != nil {
		return nil, err
	}
	return s, nil
}

// RefillBinPool tops bin up to account.UnusedPoolSize UNUSED scripts.
// Requires the account's constituent keychains' chain codes to be
// unlocked; returns a *ChainCodeLockedError otherwise (spec §4.5).
func (e *Engine) RefillBinPool(sess store.Session, acct *Account, bin *Bin) error {
	if failing := e.keychains.TryUnlockChainCodes(acct.KeychainNames); len(failing) > 0 {
		return &ChainCodeLockedError{Account: acct.Name, FailingKeychains: failing}
	}
	count, err := e.countUnused(sess, bin.ID)
	if err != nil {
		return err
	}
	for count < acct.UnusedPoolSize {
		if _, err := e.deriveScript(sess, acct, bin); err != nil {
			return err
		}
		count++
	}
	return nil
}

// IssueScript hands out the UNUSED script of smallest index in bin,
// labels it, and transitions it to ISSUED. Forbidden on the change bin.
// A pool refill is attempted before and after issuing on a best-effort
// basis: a ChainCodeLockedError there is swallowed (spec §7's single internally-
// caught error case), since the pool merely fails to grow, it does not
// block issuing from scripts already on hand.
func (e *Engine) IssueScript(sess store.Session, acct *Account, bin *Bin, label string) (*SigningScript, error) {
	if bin.IsChange {
		return nil, newError(ErrCannotIssueChangeScript, acct.Name, nil)
	}
	return e.issueFromBin(sess, acct, bin, label, Issued)
}

// IssueChangeScript is the Transaction Engine's internal counterpart to
// IssueScript: it pulls the next UNUSED script from bin without the
// change-bin guard, since create_tx is the one legitimate caller allowed
// to hand out change-bin scripts (spec §4.6.2 step 4). Unlike IssueScript
// it leaves the script UNUSED rather than marking it ISSUED: the script
// isn't really "issued" to anyone until the change output it backs lands
// in a tx, and insert_tx's credit bookkeeping already moves an UNUSED
// script to CHANGE at that point (spec §4.6.1). Pre-marking it ISSUED
// here would divert that output onto the ISSUED->USED transition instead,
// making CHANGE unreachable.
func (e *Engine) IssueChangeScript(sess store.Session, acct *Account, bin *Bin) (*SigningScript, error) {
	return e.issueFromBin(sess, acct, bin, "", Unused)
}

func (e *Engine) issueFromBin(sess store.Session, acct *Account, bin *Bin, label string, status ScriptStatus) (*SigningScript, error) {
	if err := e.RefillBinPool(sess, acct, bin); err != nil {
		if _, ok := err.(*ChainCodeLockedError); !ok {
			return nil, err
		}
		log.Debugf("account %s: pool refill skipped, chain codes locked", acct.Name)
	}

	rows, err := sess.Query(store.Query{
		Kind: KindScript,
		Preds: []store.Pred{
			store.EQ("BinID", bin.ID),
			store.EQ("Status", int(Unused)),
		},
		OrderBy: []store.OrderBy{{Field: "Index", Dir: store.Asc}},
		Limit:   1,
	}, func() store.Entity { return &SigningScript{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrBinOutOfScripts, acct.Name, nil)
	}
	s := rows[0].(*SigningScript)
	s.Label = label
	s.Status = status
	if err := sess.Update(s); err != nil {
		return nil, err
	}
	if err := e.RefillBinPool(sess, acct, bin); err != nil {
		if _, ok := err.(*ChainCodeLockedError); !ok {
			return nil, err
		}
		log.Debugf("account %s: pool refill skipped, chain codes locked", acct.Name)
	}
	return s, nil
}
