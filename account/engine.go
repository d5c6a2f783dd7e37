// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package account

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/cryptoprovider"
	"github.com/coindb/vault/keychain"
	"github.com/coindb/vault/store"
)

// Engine implements the Account Engine and Script Pool Manager (spec
// §4.4, §4.5). Like keychain.Engine, it assumes the vault façade already
// holds the mutex and an open store.Session.
type Engine struct {
	keychains *keychain.Engine
	crypto    cryptoprovider.Provider
}

// New returns an Account Engine built on top of a Keychain Engine.
func New(keychains *keychain.Engine, crypto cryptoprovider.Provider) *Engine {
	return &Engine{keychains: keychains, crypto: crypto}
}

// NewAccountRequest carries the parameters of NewAccount.
type NewAccountRequest struct {
	Name           string
	MinSigs        int
	KeychainNames  []string
	UnusedPoolSize int
	CreatedAt      uint32
}

// NewAccount creates a multi-signature account over the named keychains,
// with CHANGE (index 0) and DEFAULT (index 1) bins, each pre-filled to
// UnusedPoolSize scripts. Requires every keychain's chain code to be
// unlockable (spec §4.4).
func (e *Engine) NewAccount(sess store.Session, req NewAccountRequest) (*Account, error) {
	if _, err := e.getByName(sess, req.Name); err == nil {
		return nil, newError(ErrAlreadyExists, req.Name, nil)
	} else if _, ok := err.(*Error); !ok {
		return nil, err
	}

	hashes := make([]chainhash.Hash, len(req.KeychainNames))
	for i, name := range req.KeychainNames {
		kc, err := e.keychains.GetKeychain(sess, name)
		if err != nil {
			return nil, err
		}
		hashes[i] = kc.Hash
	}

	acct := &Account{
		Name:           req.Name,
		MinSigs:        req.MinSigs,
		KeychainNames:  append([]string(nil), req.KeychainNames...),
		KeychainHashes: hashes,
		UnusedPoolSize: req.UnusedPoolSize,
		CreatedAt:      req.CreatedAt,
	}
	acct.Hash = acct.ComputeHash()

	if failing := e.keychains.TryUnlockChainCodes(acct.KeychainNames); len(failing) > 0 {
		return nil, &ChainCodeLockedError{Account: acct.Name, FailingKeychains: failing}
	}

	if err := sess.Persist(acct); err != nil {
		return nil, err
	}

	changeBin := &Bin{AccountID: acct.ID, Name: ChangeBinName, Index: 0, IsChange: true}
	defaultBin := &Bin{AccountID: acct.ID, Name: DefaultBinName, Index: 1, IsChange: false}
	if err := sess.Persist(changeBin); err != nil {
		return nil, err
	}
	if err := sess.Persist(defaultBin); err != nil {
		return nil, err
	}
	if err := e.RefillBinPool(sess, acct, changeBin); err != nil {
		return nil, err
	}
	if err := e.RefillBinPool(sess, acct, defaultBin); err != nil {
		return nil, err
	}

	log.Infof("Created account %q (hash %s, %d-of-%d)", acct.Name, acct.Hash, acct.MinSigs, len(acct.KeychainNames))
	return acct, nil
}

// ImportAccountRequest carries the parameters of ImportAccount.
type ImportAccountRequest struct {
	Account       *Account
	Bins          []*Bin // parallel semantics: bin.NextScriptIndex is honored
	Keychains     []*keychain.Keychain
	ChainCodeKey  []byte
}

// ImportReport is ImportAccount's output report (spec §9 boolean
// ref-parameter design note): how many keychains brought private material
// into the store, either folded into an already-stored watch-only
// keychain or stored as a new private keychain.
type ImportReport struct {
	PrivKeysImported int
}

// ImportAccount deserializes an account, failing with ErrAlreadyExists if
// one with the same content hash is already stored. On a name collision
// with a different account, the name is suffixed 1, 2, .... Every
// constituent keychain's chain code must unlock under ChainCodeKey; when a
// stored keychain with the same hash already exists, its private material
// is merged in and its chain code is re-encrypted under ChainCodeKey — an
// intentional side effect (spec §9 open question 2; see DESIGN.md).
func (e *Engine) ImportAccount(sess store.Session, req ImportAccountRequest) (*Account, ImportReport, error) {
	acct := req.Account
	if existing, err := e.getByHash(sess, acct.Hash); err == nil {
		return nil, ImportReport{}, newError(ErrAlreadyExists, existing.Name, nil)
	}

	name := acct.Name
	for i := 1; ; i++ {
		if _, err := e.getByName(sess, name); err != nil {
			break
		}
		name = fmt.Sprintf("%s%d", acct.Name, i)
	}
	acct.Name = name

	var report ImportReport
	resolvedNames := make([]string, len(req.Keychains))
	for i, kc := range req.Keychains {
		importedKC, kcReport, ierr := e.keychains.ImportKeychain(sess, keychain.ImportRequest{Keychain: kc})
		if ierr != nil {
			kerr, ok := ierr.(*keychain.Error)
			if !ok || kerr.Code != keychain.ErrAlreadyExists {
				return nil, ImportReport{}, ierr
			}
			stored, gerr := e.keychains.GetKeychain(sess, kerr.Name)
			if gerr != nil {
				return nil, ImportReport{}, gerr
			}
			importedKC = stored
		} else if kcReport.PrivKeysImported {
			report.PrivKeysImported++
		}
		resolvedNames[i] = importedKC.Name

		if err := e.keychains.UnlockChainCode(sess, importedKC.Name, req.ChainCodeKey); err != nil {
			return nil, ImportReport{}, newError(ErrChainCodeLocked, acct.Name, err)
		}
		if err := e.keychains.RelockChainCode(sess, importedKC.Name, req.ChainCodeKey, importedKC.EncChainCodeSalt); err != nil {
			return nil, ImportReport{}, err
		}
	}
	acct.KeychainNames = resolvedNames

	if err := sess.Persist(acct); err != nil {
		return nil, ImportReport{}, err
	}

	for _, bin := range req.Bins {
		bin.AccountID = acct.ID
		target := bin.NextScriptIndex
		bin.NextScriptIndex = 0
		if err := sess.Persist(bin); err != nil {
			return nil, ImportReport{}, err
		}
		for bin.NextScriptIndex < target {
			s, err := e.deriveScript(sess, acct, bin)
			if err != nil {
				return nil, ImportReport{}, err
			}
			if bin.IsChange {
				s.Status = Change
			} else {
				s.Status = Issued
			}
			if err := sess.Update(s); err != nil {
				return nil, ImportReport{}, err
			}
		}
		if err := e.RefillBinPool(sess, acct, bin); err != nil {
			if _, ok := err.(*ChainCodeLockedError); !ok {
				return nil, ImportReport{}, err
			}
		}
	}

	return acct, report, nil
}

// ExportAccount re-encrypts every constituent keychain's chain code under
// (chainCodeLockKey, salt) so the resulting file is self-contained, and
// clears private material unless withPrivKeys is set.
func (e *Engine) ExportAccount(sess store.Session, name string, chainCodeLockKey, salt []byte, withPrivKeys bool) (*Account, []*keychain.Keychain, []*Bin, error) {
	acct, err := e.getByName(sess, name)
	if err != nil {
		return nil, nil, nil, err
	}
	bins, err := e.binsFor(sess, acct.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	kcs := make([]*keychain.Keychain, len(acct.KeychainNames))
	for i, kname := range acct.KeychainNames {
		if err := e.keychains.RelockChainCode(sess, kname, chainCodeLockKey, salt); err != nil {
			return nil, nil, nil, err
		}
		kc, err := e.keychains.ExportKeychain(sess, kname, withPrivKeys)
		if err != nil {
			return nil, nil, nil, err
		}
		kcs[i] = kc
	}
	return acct, kcs, bins, nil
}

// RenameAccount renames old to new.
func (e *Engine) RenameAccount(sess store.Session, oldName, newName string) (*Account, error) {
	if oldName == newName {
		return e.getByName(sess, oldName)
	}
	acct, err := e.getByName(sess, oldName)
	if err != nil {
		return nil, err
	}
	if _, err := e.getByName(sess, newName); err == nil {
		return nil, newError(ErrAlreadyExists, newName, nil)
	}
	acct.Name = newName
	if err := sess.Update(acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// GetAccount looks up an account by name.
func (e *Engine) GetAccount(sess store.Session, name string) (*Account, error) {
	return e.getByName(sess, name)
}

// Info summarizes an account for account_info/all_account_info.
type Info struct {
	Account *Account
	Bins    []*Bin
}

// AccountInfo returns an account's bins alongside it.
func (e *Engine) AccountInfo(sess store.Session, name string) (*Info, error) {
	acct, err := e.getByName(sess, name)
	if err != nil {
		return nil, err
	}
	bins, err := e.binsFor(sess, acct.ID)
	if err != nil {
		return nil, err
	}
	return &Info{Account: acct, Bins: bins}, nil
}

// AllAccountInfo returns Info for every account.
func (e *Engine) AllAccountInfo(sess store.Session) ([]*Info, error) {
	rows, err := sess.Query(store.Query{Kind: KindAccount}, func() store.Entity { return &Account{} })
	if err != nil {
		return nil, err
	}
	out := make([]*Info, len(rows))
	for i, r := range rows {
		acct := r.(*Account)
		bins, err := e.binsFor(sess, acct.ID)
		if err != nil {
			return nil, err
		}
		out[i] = &Info{Account: acct, Bins: bins}
	}
	return out, nil
}

// AddAccountBin creates a new bin with the given name, which must not
// start with '@' (reserved for meta-names like "@all"), and refills its
// pool.
func (e *Engine) AddAccountBin(sess store.Session, acct *Account, name string) (*Bin, error) {
	if len(name) > 0 && name[0] == '@' {
		return nil, newError(ErrBinNotFound, acct.Name, fmt.Errorf("bin name %q is reserved", name))
	}
	bins, err := e.binsFor(sess, acct.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range bins {
		if b.Name == name {
			return nil, newError(ErrBinAlreadyExists, acct.Name, nil)
		}
	}
	bin := &Bin{AccountID: acct.ID, Name: name, Index: len(bins), IsChange: false}
	if err := sess.Persist(bin); err != nil {
		return nil, err
	}
	if err := e.RefillBinPool(sess, acct, bin); err != nil {
		if _, ok := err.(*ChainCodeLockedError); !ok {
			return nil, err
		}
	}
	return bin, nil
}

// GetBin looks up a bin by name within an account.
func (e *Engine) GetBin(sess store.Session, acct *Account, name string) (*Bin, error) {
	bins, err := e.binsFor(sess, acct.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range bins {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, newError(ErrBinNotFound, acct.Name, nil)
}

// AccountScripts returns every SigningScript belonging to any bin of acct,
// the signing-script view underlying the façade's Query/View Layer.
func (e *Engine) AccountScripts(sess store.Session, acct *Account) ([]*SigningScript, error) {
	bins, err := e.binsFor(sess, acct.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]any, len(bins))
	for i, b := range bins {
		ids[i] = b.ID
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := sess.Query(store.Query{
		Kind:  KindScript,
		Preds: []store.Pred{store.InRange("BinID", ids...)},
	}, func() store.Entity { return &SigningScript{} })
	if err != nil {
		return nil, err
	}
	out := make([]*SigningScript, len(rows))
	for i, r := range rows {
		out[i] = r.(*SigningScript)
	}
	return out, nil
}

func (e *Engine) binsFor(sess store.Session, acctID store.ID) ([]*Bin, error) {
	rows, err := sess.Query(store.Query{
		Kind:    KindBin,
		Preds:   []store.Pred{store.EQ("AccountID", acctID)},
		OrderBy: []store.OrderBy{{Field: "ID", Dir: store.Asc}},
	}, func() store.Entity { return &Bin{} })
	if err != nil {
		return nil, err
	}
	out := make([]*Bin, len(rows))
	for i, r := range rows {
		out[i] = r.(*Bin)
	}
	return out, nil
}

func (e *Engine) getByName(sess store.Session, name string) (*Account, error) {
	rows, err := sess.Query(store.Query{Kind: KindAccount, Preds: []store.Pred{store.EQ("Name", name)}},
		func() store.Entity { return &Account{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrNotFound, name, nil)
	}
	return rows[0].(*Account), nil
}

func (e *Engine) getByHash(sess store.Session, hash chainhash.Hash) (*Account, error) {
	rows, err := sess.Query(store.Query{Kind: KindAccount, Preds: []store.Pred{store.EQ("Hash", hash[:])}},
		func() store.Entity { return &Account{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrNotFound, "", nil)
	}
	return rows[0].(*Account), nil
}
