// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txmgr

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/coindb/vault/account"
	"github.com/coindb/vault/cryptoprovider"
	"github.com/coindb/vault/keychain"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/store/memdb"
	"github.com/coindb/vault/unlock"
)

func chainhashOf(t *testing.T, s string) chainhash.Hash {
	t.Helper()
	return chainhash.HashH([]byte(s))
}

type txFixture struct {
	kcEngine  *keychain.Engine
	acctEngine *account.Engine
	engine    *Engine
	sess      store.Session
	account   *account.Account
}

func newTxFixture(t *testing.T, minSigs, numKeychains int) *txFixture {
	t.Helper()
	db := memdb.New()
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback() })
	sess := tx.Session()

	crypto := cryptoprovider.New()
	cache := unlock.New()
	kcEngine := keychain.New(crypto, cache)
	acctEngine := account.New(kcEngine, crypto)
	engine := New(acctEngine, kcEngine, crypto, cache)

	names := make([]string, numKeychains)
	for i := 0; i < numKeychains; i++ {
		entropy := make([]byte, 32)
		entropy[0] = byte(i + 1)
		name := "kc" + string(rune('a'+i))
		_, err := kcEngine.NewKeychain(sess, keychain.NewKeychainRequest{
			Name: name, Entropy: entropy, LockKey: []byte("lockkey"), Salt: []byte("salt-0123456789012345"),
		})
		require.NoError(t, err)
		names[i] = name
	}

	acct, err := acctEngine.NewAccount(sess, account.NewAccountRequest{
		Name: "wallet", MinSigs: minSigs, KeychainNames: names, UnusedPoolSize: 2, CreatedAt: 1000,
	})
	require.NoError(t, err)

	return &txFixture{kcEngine: kcEngine, acctEngine: acctEngine, engine: engine, sess: sess, account: acct}
}

// fundAccount inserts a coinbase-style Tx paying value directly to the
// account's next default-bin script, returning the funding Tx.
func (f *txFixture) fundAccount(t *testing.T, value int64) *Tx {
	t.Helper()
	bin, err := f.acctEngine.GetBin(f.sess, f.account, account.DefaultBinName)
	require.NoError(t, err)
	scripts, err := f.acctEngine.AccountScripts(f.sess, f.account)
	require.NoError(t, err)
	var target *account.SigningScript
	for _, s := range scripts {
		if s.BinID == bin.ID && s.Status == account.Unused {
			target = s
			break
		}
	}
	require.NotNil(t, target)

	funding := &Tx{Version: 1, Status: Sent, Hash: chainhashOf(t, "funding")}
	out := &TxOut{Index: 0, Value: value, Script: target.OutputScript, Status: Unspent}
	funding.UnsignedHash = funding.Hash
	stored, ok, err := f.engine.InsertTx(f.sess, funding, nil, []*TxOut{out})
	require.NoError(t, err)
	require.True(t, ok)
	return stored
}

func TestInsertTxFundingCreditsAccount(t *testing.T) {
	f := newTxFixture(t, 2, 2)
	f.fundAccount(t, 50000)

	utxos, err := f.engine.UTXOsForAccount(f.sess, "wallet")
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	require.Equal(t, int64(50000), utxos[0].Value)
}

func TestCreateTxSelectsUTXOsAndProducesChange(t *testing.T) {
	f := newTxFixture(t, 2, 2)
	f.fundAccount(t, 50000)

	payeePriv := make([]byte, 32)
	payeePriv[0] = 0x09

	tx, err := f.engine.CreateTx(f.sess, CreateTxRequest{
		Account:  f.account,
		Version:  1,
		Outputs:  []TxOutputSpec{{Value: 10000, Script: []byte{0x51}}},
		Fee:      500,
		Insert:   true,
		Timestamp: 2000,
	})
	require.NoError(t, err)
	require.Equal(t, Unsigned, tx.Status)

	outs, err := f.engine.outsForTx(f.sess, tx.ID)
	require.NoError(t, err)
	require.Len(t, outs, 2) // payee output + change output

	var total int64
	for _, o := range outs {
		total += o.Value
	}
	require.Equal(t, int64(49500), total) // 50000 - 500 fee
}

func TestCreateTxInsufficientFunds(t *testing.T) {
	f := newTxFixture(t, 2, 2)
	f.fundAccount(t, 1000)

	_, err := f.engine.CreateTx(f.sess, CreateTxRequest{
		Account: f.account,
		Version: 1,
		Outputs: []TxOutputSpec{{Value: 10000, Script: []byte{0x51}}},
		Insert:  true,
	})
	require.Error(t, err)
	terr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrInsufficientFunds, terr.Code)
}

func TestSignTxReachesUnsentWithBothSignatures(t *testing.T) {
	f := newTxFixture(t, 2, 2)
	f.fundAccount(t, 50000)

	tx, err := f.engine.CreateTx(f.sess, CreateTxRequest{
		Account: f.account,
		Version: 1,
		Outputs: []TxOutputSpec{{Value: 10000, Script: []byte{0x51}}},
		Fee:     500,
		Insert:  true,
	})
	require.NoError(t, err)

	added, err := f.engine.SignTx(f.sess, tx.UnsignedHash, true)
	require.NoError(t, err)
	require.True(t, added)

	refreshed, err := f.engine.GetTx(f.sess, tx.UnsignedHash)
	require.NoError(t, err)
	require.Equal(t, Unsent, refreshed.Status)
}

func TestGetSigningRequestListsNeededKeychains(t *testing.T) {
	f := newTxFixture(t, 2, 2)
	f.fundAccount(t, 50000)

	tx, err := f.engine.CreateTx(f.sess, CreateTxRequest{
		Account: f.account,
		Version: 1,
		Outputs: []TxOutputSpec{{Value: 10000, Script: []byte{0x51}}},
		Fee:     500,
		Insert:  true,
	})
	require.NoError(t, err)

	req, err := f.engine.GetSigningRequest(f.sess, tx.UnsignedHash)
	require.NoError(t, err)
	require.Equal(t, 2, req.SignaturesNeeded)
	require.Len(t, req.NeededKeychains, 2)
}

func TestDeleteTxFreesSpentOutpoint(t *testing.T) {
	f := newTxFixture(t, 2, 2)
	funding := f.fundAccount(t, 50000)

	tx, err := f.engine.CreateTx(f.sess, CreateTxRequest{
		Account: f.account,
		Version: 1,
		Outputs: []TxOutputSpec{{Value: 10000, Script: []byte{0x51}}},
		Fee:     500,
		Insert:  true,
	})
	require.NoError(t, err)

	err = f.engine.DeleteTx(f.sess, tx.UnsignedHash)
	require.NoError(t, err)

	_, err = f.engine.GetTx(f.sess, tx.UnsignedHash)
	require.Error(t, err)

	fundingOuts, err := f.engine.outsForTx(f.sess, funding.ID)
	require.NoError(t, err)
	require.Equal(t, Unspent, fundingOuts[0].Status)
	require.Equal(t, store.ID(0), fundingOuts[0].SpentByTxInID)
}

func TestAccountBalanceCountsUnspentByStatus(t *testing.T) {
	f := newTxFixture(t, 2, 2)
	f.fundAccount(t, 50000)

	balance, err := f.engine.AccountBalance(f.sess, "wallet", 0, []Status{Sent, Unsent, Confirmed}, 100)
	require.NoError(t, err)
	require.Equal(t, int64(50000), balance)

	noneMatched, err := f.engine.AccountBalance(f.sess, "wallet", 0, []Status{Confirmed}, 100)
	require.NoError(t, err)
	require.Equal(t, int64(0), noneMatched)
}

func TestAccountBalanceZeroWhenMinConfirmationsExceedsHeight(t *testing.T) {
	f := newTxFixture(t, 2, 2)
	f.fundAccount(t, 50000)

	balance, err := f.engine.AccountBalance(f.sess, "wallet", 10, []Status{Sent}, 5)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}
