// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"io"

	"github.com/coindb/vault/account"
	"github.com/coindb/vault/keychain"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/txmgr"
	"github.com/coindb/vault/walletfile"
)

// NewAccount implements new_account.
func (v *Vault) NewAccount(name string, minSigs int, keychainNames []string, unusedPoolSize int, createdAt uint32) (*account.Account, error) {
	var acct *account.Account
	err := v.withSession(func(sess store.Session) error {
		var err error
		acct, err = v.accounts.NewAccount(sess, account.NewAccountRequest{
			Name: name, MinSigs: minSigs, KeychainNames: keychainNames,
			UnusedPoolSize: unusedPoolSize, CreatedAt: createdAt,
		})
		return err
	})
	return acct, err
}

// ImportAccount implements import_account, reading the archive from r and
// unlocking each constituent keychain's chain code with chainCodeKey.
func (v *Vault) ImportAccount(r io.Reader, chainCodeKey []byte) (*account.Account, account.ImportReport, error) {
	acct, bins, kcs, err := walletfile.ReadAccount(r)
	if err != nil {
		return nil, account.ImportReport{}, err
	}
	var report account.ImportReport
	err = v.withSession(func(sess store.Session) error {
		var ierr error
		acct, report, ierr = v.accounts.ImportAccount(sess, account.ImportAccountRequest{
			Account: acct, Bins: bins, Keychains: kcs, ChainCodeKey: chainCodeKey,
		})
		return ierr
	})
	return acct, report, err
}

// ExportAccount implements export_account, writing the archive to w.
func (v *Vault) ExportAccount(w io.Writer, name string, chainCodeLockKey, salt []byte, withPrivKeys bool) error {
	var (
		acct *account.Account
		kcs  []*keychain.Keychain
		bins []*account.Bin
	)
	err := v.withSession(func(sess store.Session) error {
		var err error
		acct, kcs, bins, err = v.accounts.ExportAccount(sess, name, chainCodeLockKey, salt, withPrivKeys)
		return err
	})
	if err != nil {
		return err
	}
	return walletfile.WriteAccount(w, acct, bins, kcs)
}

// RenameAccount implements rename_account.
func (v *Vault) RenameAccount(oldName, newName string) (*account.Account, error) {
	var acct *account.Account
	err := v.withSession(func(sess store.Session) error {
		var err error
		acct, err = v.accounts.RenameAccount(sess, oldName, newName)
		return err
	})
	return acct, err
}

// GetAccount implements get_account.
func (v *Vault) GetAccount(name string) (*account.Account, error) {
	var acct *account.Account
	err := v.withSession(func(sess store.Session) error {
		var err error
		acct, err = v.accounts.GetAccount(sess, name)
		return err
	})
	return acct, err
}

// AccountInfo implements account_info.
func (v *Vault) AccountInfo(name string) (*account.Info, error) {
	var info *account.Info
	err := v.withSession(func(sess store.Session) error {
		var err error
		info, err = v.accounts.AccountInfo(sess, name)
		return err
	})
	return info, err
}

// AllAccountInfo implements all_account_info.
func (v *Vault) AllAccountInfo() ([]*account.Info, error) {
	var infos []*account.Info
	err := v.withSession(func(sess store.Session) error {
		var err error
		infos, err = v.accounts.AllAccountInfo(sess)
		return err
	})
	return infos, err
}

// AccountBalance implements account_balance (spec §4.4). bestHeight is
// supplied by the caller, since the Blockchain Engine tracks no notion of
// "current chain tip" beyond the headers it has been fed.
func (v *Vault) AccountBalance(name string, minConfirmations int, statuses []txmgr.Status, bestHeight int32) (int64, error) {
	var balance int64
	err := v.withSession(func(sess store.Session) error {
		var err error
		balance, err = v.txs.AccountBalance(sess, name, minConfirmations, statuses, bestHeight)
		return err
	})
	return balance, err
}

// AddAccountBin implements add_account_bin.
func (v *Vault) AddAccountBin(accountName, binName string) (*account.Bin, error) {
	var bin *account.Bin
	err := v.withSession(func(sess store.Session) error {
		acct, err := v.accounts.GetAccount(sess, accountName)
		if err != nil {
			return err
		}
		bin, err = v.accounts.AddAccountBin(sess, acct, binName)
		return err
	})
	return bin, err
}

// IssueScript implements issue_script.
func (v *Vault) IssueScript(accountName, binName, label string) (*account.SigningScript, error) {
	var sc *account.SigningScript
	err := v.withSession(func(sess store.Session) error {
		acct, err := v.accounts.GetAccount(sess, accountName)
		if err != nil {
			return err
		}
		bin, err := v.accounts.GetBin(sess, acct, binName)
		if err != nil {
			return err
		}
		sc, err = v.accounts.IssueScript(sess, acct, bin, label)
		return err
	})
	return sc, err
}
