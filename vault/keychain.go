// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"io"

	"github.com/coindb/vault/keychain"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/walletfile"
)

// NewKeychain implements new_keychain.
func (v *Vault) NewKeychain(name string, entropy, lockKey, salt []byte) (*keychain.Keychain, error) {
	var kc *keychain.Keychain
	err := v.withSession(func(sess store.Session) error {
		var err error
		kc, err = v.keychains.NewKeychain(sess, keychain.NewKeychainRequest{
			Name: name, Entropy: entropy, LockKey: lockKey, Salt: salt,
		})
		return err
	})
	return kc, err
}

// ImportKeychain implements import_keychain, reading the archive from r.
func (v *Vault) ImportKeychain(r io.Reader) (*keychain.Keychain, keychain.ImportReport, error) {
	incoming, err := walletfile.ReadKeychain(r)
	if err != nil {
		return nil, keychain.ImportReport{}, err
	}
	var (
		kc     *keychain.Keychain
		report keychain.ImportReport
	)
	err = v.withSession(func(sess store.Session) error {
		var ierr error
		kc, report, ierr = v.keychains.ImportKeychain(sess, keychain.ImportRequest{Keychain: incoming})
		return ierr
	})
	return kc, report, err
}

// ExportKeychain implements export_keychain, writing the archive to w.
func (v *Vault) ExportKeychain(w io.Writer, name string, withPrivKeys bool) error {
	var kc *keychain.Keychain
	err := v.withSession(func(sess store.Session) error {
		var err error
		kc, err = v.keychains.ExportKeychain(sess, name, withPrivKeys)
		return err
	})
	if err != nil {
		return err
	}
	return walletfile.WriteKeychain(w, kc)
}

// RenameKeychain implements rename_keychain.
func (v *Vault) RenameKeychain(oldName, newName string) (*keychain.Keychain, error) {
	var kc *keychain.Keychain
	err := v.withSession(func(sess store.Session) error {
		var err error
		kc, err = v.keychains.RenameKeychain(sess, oldName, newName)
		return err
	})
	return kc, err
}

// GetKeychain implements get_keychain.
func (v *Vault) GetKeychain(name string) (*keychain.Keychain, error) {
	var kc *keychain.Keychain
	err := v.withSession(func(sess store.Session) error {
		var err error
		kc, err = v.keychains.GetKeychain(sess, name)
		return err
	})
	return kc, err
}

// AllKeychains implements all_keychains.
func (v *Vault) AllKeychains(rootOnly bool) ([]*keychain.Keychain, error) {
	var kcs []*keychain.Keychain
	err := v.withSession(func(sess store.Session) error {
		var err error
		kcs, err = v.keychains.AllKeychains(sess, rootOnly)
		return err
	})
	return kcs, err
}
