// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package vault implements the Public API / Façade (spec §4.9) and the
// Concurrency Guard (spec §5): a single process-wide mutex serializing
// every public operation, one store transaction per call, committed on
// success and rolled back otherwise.
package vault

import (
	"context"
	"sync"

	"github.com/coindb/vault/account"
	"github.com/coindb/vault/chainmgr"
	"github.com/coindb/vault/cryptoprovider"
	"github.com/coindb/vault/keychain"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/txmgr"
	"github.com/coindb/vault/unlock"
)

// Vault is the top-level handle presented to callers. Every exported
// method acquires mu for its full duration, including the underlying
// store transaction, either directly or through withSession; the engine
// methods it calls assume the lock is already held.
type Vault struct {
	mu sync.Mutex

	db     store.DB
	cache  *unlock.Cache
	crypto cryptoprovider.Provider

	keychains *keychain.Engine
	accounts  *account.Engine
	txs       *txmgr.Engine
	chains    *chainmgr.Engine
}

// New wires a fresh Vault around an already-open store.DB. Both a
// brand-new and a previously populated backend use the same
// construction — "new" vs. "open" is a property of the caller's schema
// migration step, not of how the engines are wired together.
func New(db store.DB) *Vault {
	cache := unlock.New()
	crypto := cryptoprovider.New()

	kc := keychain.New(crypto, cache)
	acct := account.New(kc, crypto)
	txs := txmgr.New(acct, kc, crypto, cache)
	chains := chainmgr.New(txs, acct)
	txs.SetBlockLinker(chains)
	txs.SetHeightLookup(chains)

	return &Vault{
		db:        db,
		cache:     cache,
		crypto:    crypto,
		keychains: kc,
		accounts:  acct,
		txs:       txs,
		chains:    chains,
	}
}

// Open is an alias for New, named to match the spec's new_vault/open_vault
// terminology at call sites that open an existing file-backed store.
func Open(db store.DB) *Vault { return New(db) }

// Close releases the underlying store.
func (v *Vault) Close() error {
	return v.db.Close()
}

// withSession runs fn under the vault-wide mutex inside one store
// transaction, committing on success and rolling back otherwise.
func (v *Vault) withSession(fn func(sess store.Session) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	tx, err := v.db.Begin(context.Background())
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx.Session()); err != nil {
		return wrapErr(err)
	}
	return tx.Commit()
}

// LockAllChainCodes implements lock_all_chain_codes (spec §4.2).
func (v *Vault) LockAllChainCodes() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache.LockAllChainCodes()
}

// LockAllPrivateKeys implements lock_all_private_keys (spec §4.2).
func (v *Vault) LockAllPrivateKeys() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache.LockAllPrivateKeys()
}

// UnlockKeychainChainCode implements unlock_keychain_chain_code.
func (v *Vault) UnlockKeychainChainCode(name string, key []byte) error {
	return v.withSession(func(sess store.Session) error {
		return v.keychains.UnlockChainCode(sess, name, key)
	})
}

// UnlockKeychainPrivateKey implements unlock_keychain_private_key.
func (v *Vault) UnlockKeychainPrivateKey(name string, key []byte) error {
	return v.withSession(func(sess store.Session) error {
		return v.keychains.UnlockPrivateKey(sess, name, key)
	})
}
