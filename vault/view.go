// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"github.com/btcsuite/btcd/btcutil/bloom"
	"github.com/btcsuite/btcd/wire"
	"github.com/coindb/vault/account"
	"github.com/coindb/vault/script"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/txmgr"
)

// AccountSummary is a Query/View Layer read combining an account's bins
// and its current UTXO set, for callers that want both without issuing
// two round trips.
type AccountSummary struct {
	Info  *account.Info
	UTXOs []*txmgr.TxOut
}

// GetAccountSummary implements the account-summary view (spec §4.9's
// Query/View Layer).
func (v *Vault) GetAccountSummary(name string) (*AccountSummary, error) {
	var summary AccountSummary
	err := v.withSession(func(sess store.Session) error {
		info, err := v.accounts.AccountInfo(sess, name)
		if err != nil {
			return err
		}
		utxos, err := v.txs.UTXOsForAccount(sess, name)
		if err != nil {
			return err
		}
		summary = AccountSummary{Info: info, UTXOs: utxos}
		return nil
	})
	return &summary, err
}

// AccountScripts implements the signing-script view: every SigningScript
// across all of an account's bins.
func (v *Vault) AccountScripts(name string) ([]*account.SigningScript, error) {
	var scripts []*account.SigningScript
	err := v.withSession(func(sess store.Session) error {
		acct, err := v.accounts.GetAccount(sess, name)
		if err != nil {
			return err
		}
		scripts, err = v.accounts.AccountScripts(sess, acct)
		return err
	})
	return scripts, err
}

// AccountUTXOs implements the UTXO view for a single account.
func (v *Vault) AccountUTXOs(name string) ([]*txmgr.TxOut, error) {
	var utxos []*txmgr.TxOut
	err := v.withSession(func(sess store.Session) error {
		var err error
		utxos, err = v.txs.UTXOsForAccount(sess, name)
		return err
	})
	return utxos, err
}

// BloomFilter implements bloom_filter (spec §4.7): enumerate every
// SigningScript across every account and insert both its input-script
// signing element (the redeem script, the data a spend's scriptSig will
// push) and its output-script payee element into a freshly sized filter.
func (v *Vault) BloomFilter(fpRate float64, tweak uint32, flags wire.BloomUpdateType) (*bloom.Filter, error) {
	var elementCount int
	var scripts []*account.SigningScript
	err := v.withSession(func(sess store.Session) error {
		infos, err := v.accounts.AllAccountInfo(sess)
		if err != nil {
			return err
		}
		for _, info := range infos {
			scs, err := v.accounts.AccountScripts(sess, info.Account)
			if err != nil {
				return err
			}
			scripts = append(scripts, scs...)
		}
		elementCount = len(scripts) * 2
		return nil
	})
	if err != nil {
		return nil, err
	}

	if elementCount == 0 {
		elementCount = 1
	}
	filter := bloom.NewFilter(uint32(elementCount), tweak, fpRate, flags)
	for _, sc := range scripts {
		filter.Add(sc.RedeemScript)
		if payee, perr := script.PayeeElement(sc.OutputScript); perr == nil {
			filter.Add(payee)
		}
	}
	return filter, nil
}
