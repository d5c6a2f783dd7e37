// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/cryptoprovider"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/unlock"
)

// Engine implements the Keychain Engine (spec §4.3). It never opens its
// own store transaction: the vault façade hands it an already-open
// store.Session and holds the vault-wide mutex around the call.
type Engine struct {
	crypto cryptoprovider.Provider
	cache  *unlock.Cache
}

// New returns a Keychain Engine sharing cache with the rest of the vault.
func New(crypto cryptoprovider.Provider, cache *unlock.Cache) *Engine {
	return &Engine{crypto: crypto, cache: cache}
}

// NewKeychainRequest carries the parameters of NewKeychain.
type NewKeychainRequest struct {
	Name    string
	Entropy []byte
	LockKey []byte
	Salt    []byte
}

// NewKeychain creates a fresh root keychain from entropy, encrypting its
// chain code and private key under LockKey+Salt. Fails with
// ErrAlreadyExists if Name is taken.
func (e *Engine) NewKeychain(sess store.Session, req NewKeychainRequest) (*Keychain, error) {
	if _, err := e.getByName(sess, req.Name); err == nil {
		return nil, newError(ErrAlreadyExists, req.Name, nil)
	} else if _, ok := err.(*Error); !ok {
		return nil, err
	}

	master, err := e.crypto.NewMasterKey(req.Entropy)
	if err != nil {
		return nil, newError(ErrInvalidPrivateKey, req.Name, err)
	}
	priv, err := master.ECPrivKey()
	if err != nil {
		return nil, newError(ErrInvalidPrivateKey, req.Name, err)
	}
	pub, err := master.ECPubKey()
	if err != nil {
		return nil, newError(ErrInvalidPrivateKey, req.Name, err)
	}
	chainCode := master.ChainCode()

	encChainCode, err := encryptWith(req.LockKey, req.Salt, chainCode)
	if err != nil {
		return nil, newError(ErrChainCodeUnlockFailed, req.Name, err)
	}
	encPrivKey, err := encryptWith(req.LockKey, req.Salt, priv.Serialize())
	if err != nil {
		return nil, newError(ErrPrivateKeyUnlockFailed, req.Name, err)
	}

	kc := &Keychain{
		Name:             req.Name,
		IsRoot:           true,
		PubKey:           pub.SerializeCompressed(),
		PubChainCode:     append([]byte(nil), chainCode...),
		EncChainCode:     encChainCode,
		EncChainCodeSalt: append([]byte(nil), req.Salt...),
		IsPrivate:        true,
		EncPrivKey:       encPrivKey,
		EncPrivKeySalt:   append([]byte(nil), req.Salt...),
	}
	kc.Hash = kc.ComputeHash()
	if err := sess.Persist(kc); err != nil {
		return nil, err
	}

	e.cache.PutChainCode(kc.Name, unlock.Secret(chainCode))
	e.cache.PutPrivateKey(kc.Name, unlock.Secret(priv.Serialize()))
	log.Infof("Created keychain %q (hash %s)", kc.Name, kc.Hash)
	return kc, nil
}

// ImportRequest carries the parameters of ImportKeychain.
type ImportRequest struct {
	Keychain      *Keychain // decoded from a portable file by walletfile
	WantPrivKeys  bool
}

// ImportReport is ImportKeychain's output report, replacing the
// boolean in/out "privkeys_imported" reference parameter from the
// original source (spec §9 Design Note on boolean ref-parameters).
type ImportReport struct {
	PrivKeysImported bool
}

// ImportKeychain folds an externally-serialized Keychain into the store.
// If a stored keychain with the same content hash exists and the
// imported one carries private key material the stored one lacks, the
// private material is folded into the stored record and that record is
// returned. Otherwise, on a name collision with a *different* keychain,
// the name is suffixed with 1, 2, ... until unique.
func (e *Engine) ImportKeychain(sess store.Session, req ImportRequest) (*Keychain, ImportReport, error) {
	incoming := req.Keychain
	existing, err := e.getByHash(sess, incoming.Hash)
	if err == nil {
		if incoming.IsPrivate && !existing.IsPrivate {
			existing.IsPrivate = true
			existing.EncPrivKey = incoming.EncPrivKey
			existing.EncPrivKeySalt = incoming.EncPrivKeySalt
			if err := sess.Update(existing); err != nil {
				return nil, ImportReport{}, err
			}
			return existing, ImportReport{PrivKeysImported: true}, nil
		}
		return nil, ImportReport{}, newError(ErrAlreadyExists, existing.Name, nil)
	}

	name := incoming.Name
	for i := 1; ; i++ {
		if _, err := e.getByName(sess, name); err != nil {
			break
		}
		name = fmt.Sprintf("%s%d", incoming.Name, i)
	}
	incoming.Name = name
	incoming.ID = 0
	if err := sess.Persist(incoming); err != nil {
		return nil, ImportReport{}, err
	}
	return incoming, ImportReport{PrivKeysImported: incoming.IsPrivate}, nil
}

// ExportKeychain prepares a Keychain for serialization by walletfile. If
// withPrivKeys is true and the keychain has no private material, this
// fails with ErrNotPrivate. If false, the returned copy has its private
// material cleared.
func (e *Engine) ExportKeychain(sess store.Session, name string, withPrivKeys bool) (*Keychain, error) {
	kc, err := e.getByName(sess, name)
	if err != nil {
		return nil, err
	}
	if withPrivKeys && !kc.IsPrivate {
		return nil, newError(ErrNotPrivate, name, nil)
	}
	out := &Keychain{}
	kc.CloneInto(out)
	if !withPrivKeys {
		out.IsPrivate = false
		out.EncPrivKey = nil
		out.EncPrivKeySalt = nil
	}
	return out, nil
}

// RenameKeychain renames old to new. No-op if they're equal.
func (e *Engine) RenameKeychain(sess store.Session, oldName, newName string) (*Keychain, error) {
	if oldName == newName {
		return e.getByName(sess, oldName)
	}
	kc, err := e.getByName(sess, oldName)
	if err != nil {
		return nil, err
	}
	if _, err := e.getByName(sess, newName); err == nil {
		return nil, newError(ErrAlreadyExists, newName, nil)
	}
	kc.Name = newName
	if err := sess.Update(kc); err != nil {
		return nil, err
	}
	e.cache.ForgetKeychain(oldName)
	return kc, nil
}

// GetKeychain looks up a keychain by name.
func (e *Engine) GetKeychain(sess store.Session, name string) (*Keychain, error) {
	return e.getByName(sess, name)
}

// AllKeychains returns every keychain, optionally restricted to roots.
func (e *Engine) AllKeychains(sess store.Session, rootOnly bool) ([]*Keychain, error) {
	q := store.Query{Kind: KindKeychain}
	if rootOnly {
		q = q.Where(store.EQ("IsRoot", true))
	}
	rows, err := sess.Query(q, func() store.Entity { return &Keychain{} })
	if err != nil {
		return nil, err
	}
	out := make([]*Keychain, len(rows))
	for i, r := range rows {
		out[i] = r.(*Keychain)
	}
	return out, nil
}

// UnlockChainCode attempts to decrypt name's chain code with key, caching
// it on success.
func (e *Engine) UnlockChainCode(sess store.Session, name string, key []byte) error {
	kc, err := e.getByName(sess, name)
	if err != nil {
		return err
	}
	plain, err := decryptWith(key, kc.EncChainCodeSalt, kc.EncChainCode)
	if err != nil {
		return newError(ErrChainCodeUnlockFailed, name, err)
	}
	e.cache.PutChainCode(name, unlock.Secret(plain))
	return nil
}

// UnlockPrivateKey attempts to decrypt name's private key with key,
// caching it on success.
func (e *Engine) UnlockPrivateKey(sess store.Session, name string, key []byte) error {
	kc, err := e.getByName(sess, name)
	if err != nil {
		return err
	}
	if !kc.IsPrivate {
		return newError(ErrNotPrivate, name, nil)
	}
	plain, err := decryptWith(key, kc.EncPrivKeySalt, kc.EncPrivKey)
	if err != nil {
		return newError(ErrPrivateKeyUnlockFailed, name, err)
	}
	e.cache.PutPrivateKey(name, unlock.Secret(plain))
	return nil
}

// RelockChainCode re-encrypts name's chain code under a new (key, salt)
// pair, pulling the plaintext from the unlock cache (it must already be
// unlocked). This is the side effect account import performs on every
// already-stored constituent keychain (spec §9 open question 2, decided
// in DESIGN.md): a deliberate, documented consequence of importing an
// account, not an incidental one.
func (e *Engine) RelockChainCode(sess store.Session, name string, key, salt []byte) error {
	kc, err := e.getByName(sess, name)
	if err != nil {
		return err
	}
	plain, ok := e.cache.ChainCode(name)
	if !ok {
		return newError(ErrChainCodeUnlockFailed, name, nil)
	}
	enc, err := encryptWith(key, salt, plain)
	if err != nil {
		return err
	}
	kc.EncChainCode = enc
	kc.EncChainCodeSalt = append([]byte(nil), salt...)
	return sess.Update(kc)
}

// TryUnlockChainCodes attempts UnlockChainCode for every name using
// secrets already present in the cache (it does not prompt; it re-derives
// nothing). Names whose chain code is not cached are returned as failing.
// This backs the Account Engine's try_unlock_account_chain_codes helper
// (spec §4.3).
func (e *Engine) TryUnlockChainCodes(names []string) (failing []string) {
	for _, name := range names {
		if _, ok := e.cache.ChainCode(name); !ok {
			failing = append(failing, name)
		}
	}
	return failing
}

// DeriveChildPubkey derives the public key at child index from keychain
// name's unlocked chain code and stored master public key, without
// needing the private key.
func (e *Engine) DeriveChildPubkey(sess store.Session, name string, index uint32) (*btcec.PublicKey, error) {
	kc, err := e.getByName(sess, name)
	if err != nil {
		return nil, err
	}
	chainCode, ok := e.cache.ChainCode(name)
	if !ok {
		return nil, newError(ErrChainCodeUnlockFailed, name, nil)
	}
	master, err := masterExtendedKey(kc, chainCode, nil)
	if err != nil {
		return nil, err
	}
	child, err := e.crypto.DeriveChild(master, index)
	if err != nil {
		return nil, fmt.Errorf("keychain: derive child %d of %q: %w", index, name, err)
	}
	return child.ECPubKey()
}

// DeriveChildPrivkey derives the private scalar at child index. Both the
// chain code and private key must already be unlocked for name.
func (e *Engine) DeriveChildPrivkey(sess store.Session, name string, index uint32) (*btcec.PrivateKey, error) {
	kc, err := e.getByName(sess, name)
	if err != nil {
		return nil, err
	}
	chainCode, ok := e.cache.ChainCode(name)
	if !ok {
		return nil, newError(ErrChainCodeUnlockFailed, name, nil)
	}
	priv, ok := e.cache.PrivateKey(name)
	if !ok {
		return nil, newError(ErrPrivateKeyUnlockFailed, name, nil)
	}
	master, err := masterExtendedKey(kc, chainCode, priv)
	if err != nil {
		return nil, err
	}
	child, err := e.crypto.DeriveChild(master, index)
	if err != nil {
		return nil, fmt.Errorf("keychain: derive child %d of %q: %w", index, name, err)
	}
	return child.ECPrivKey()
}

func (e *Engine) getByName(sess store.Session, name string) (*Keychain, error) {
	rows, err := sess.Query(store.Query{Kind: KindKeychain, Preds: []store.Pred{store.EQ("Name", name)}},
		func() store.Entity { return &Keychain{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrNotFound, name, nil)
	}
	return rows[0].(*Keychain), nil
}

func (e *Engine) getByHash(sess store.Session, hash chainhash.Hash) (*Keychain, error) {
	rows, err := sess.Query(store.Query{Kind: KindKeychain, Preds: []store.Pred{store.EQ("Hash", hash[:])}},
		func() store.Entity { return &Keychain{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrNotFound, "", nil)
	}
	return rows[0].(*Keychain), nil
}
