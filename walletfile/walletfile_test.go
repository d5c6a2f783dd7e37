// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletfile

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/coindb/vault/account"
	"github.com/coindb/vault/keychain"
)

func sampleKeychain(name string) *keychain.Keychain {
	return &keychain.Keychain{
		Name:             name,
		Hash:             chainhash.HashH([]byte(name)),
		IsRoot:           true,
		Depth:            0,
		ChildIndex:       0,
		PubKey:           bytes.Repeat([]byte{0x02}, 33),
		PubChainCode:     bytes.Repeat([]byte{0x03}, 32),
		EncChainCode:     bytes.Repeat([]byte{0x04}, 48),
		EncChainCodeSalt: bytes.Repeat([]byte{0x05}, 16),
		IsPrivate:        true,
		EncPrivKey:       bytes.Repeat([]byte{0x06}, 48),
		EncPrivKeySalt:   bytes.Repeat([]byte{0x07}, 16),
	}
}

func TestWriteReadKeychainRoundTrip(t *testing.T) {
	kc := sampleKeychain("alice")

	var buf bytes.Buffer
	require.NoError(t, WriteKeychain(&buf, kc))

	got, err := ReadKeychain(&buf)
	require.NoError(t, err)
	require.Equal(t, kc.Name, got.Name)
	require.Equal(t, kc.Hash, got.Hash)
	require.Equal(t, kc.IsRoot, got.IsRoot)
	require.Equal(t, kc.PubKey, got.PubKey)
	require.Equal(t, kc.PubChainCode, got.PubChainCode)
	require.Equal(t, kc.EncChainCode, got.EncChainCode)
	require.Equal(t, kc.EncChainCodeSalt, got.EncChainCodeSalt)
	require.Equal(t, kc.IsPrivate, got.IsPrivate)
	require.Equal(t, kc.EncPrivKey, got.EncPrivKey)
	require.Equal(t, kc.EncPrivKeySalt, got.EncPrivKeySalt)
}

func TestReadKeychainRejectsWrongMagic(t *testing.T) {
	_, err := ReadKeychain(bytes.NewBufferString("not-a-keychain-archive\tfoo\n"))
	require.Error(t, err)
}

func TestReadKeychainRejectsMissingRecord(t *testing.T) {
	_, err := ReadKeychain(bytes.NewBufferString(keychainMagic + "\n"))
	require.Error(t, err)
}

func TestWriteReadAccountRoundTrip(t *testing.T) {
	acct := &account.Account{
		Name:           "wallet",
		Hash:           chainhash.HashH([]byte("wallet")),
		MinSigs:        2,
		KeychainNames:  []string{"alice", "bob"},
		KeychainHashes: make([]chainhash.Hash, 2),
		UnusedPoolSize: 5,
		CreatedAt:      123456,
	}
	bins := []*account.Bin{
		{Name: account.ChangeBinName, Index: 0, IsChange: true, NextScriptIndex: 3},
		{Name: account.DefaultBinName, Index: 1, IsChange: false, NextScriptIndex: 7},
	}
	alice := sampleKeychain("alice")
	bob := sampleKeychain("bob")

	var buf bytes.Buffer
	require.NoError(t, WriteAccount(&buf, acct, bins, []*keychain.Keychain{alice, bob}))

	gotAcct, gotBins, gotKcs, err := ReadAccount(&buf)
	require.NoError(t, err)

	require.Equal(t, acct.Name, gotAcct.Name)
	require.Equal(t, acct.Hash, gotAcct.Hash)
	require.Equal(t, acct.MinSigs, gotAcct.MinSigs)
	require.Equal(t, acct.KeychainNames, gotAcct.KeychainNames)
	require.Equal(t, acct.UnusedPoolSize, gotAcct.UnusedPoolSize)
	require.Equal(t, acct.CreatedAt, gotAcct.CreatedAt)
	require.Equal(t, []chainhash.Hash{alice.Hash, bob.Hash}, gotAcct.KeychainHashes)

	require.Len(t, gotBins, 2)
	require.Equal(t, account.ChangeBinName, gotBins[0].Name)
	require.True(t, gotBins[0].IsChange)
	require.Equal(t, uint32(3), gotBins[0].NextScriptIndex)
	require.Equal(t, account.DefaultBinName, gotBins[1].Name)
	require.Equal(t, uint32(7), gotBins[1].NextScriptIndex)

	require.Len(t, gotKcs, 2)
	names := map[string]bool{gotKcs[0].Name: true, gotKcs[1].Name: true}
	require.True(t, names["alice"])
	require.True(t, names["bob"])
}

func TestReadAccountRejectsWrongMagic(t *testing.T) {
	_, _, _, err := ReadAccount(bytes.NewBufferString("garbage\n"))
	require.Error(t, err)
}

func TestReadAccountRejectsMissingAccountRecord(t *testing.T) {
	_, _, _, err := ReadAccount(bytes.NewBufferString(accountMagic + "\n"))
	require.Error(t, err)
}
