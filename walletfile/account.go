// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/account"
	"github.com/coindb/vault/keychain"
)

// WriteAccount serializes acct together with its bins and constituent
// keychains into a single self-contained archive.
func WriteAccount(w io.Writer, acct *account.Account, bins []*account.Bin, kcs []*keychain.Keychain) error {
	bw := bufio.NewWriter(w)
	if err := writeRecord(bw, accountMagic); err != nil {
		return err
	}
	if err := writeRecord(bw, "account",
		acct.Name,
		hashStr(acct.Hash),
		fmt.Sprint(acct.MinSigs),
		strings.Join(acct.KeychainNames, ","),
		fmt.Sprint(acct.UnusedPoolSize),
		fmt.Sprint(acct.CreatedAt),
	); err != nil {
		return err
	}
	for _, bin := range bins {
		if err := writeRecord(bw, "bin",
			bin.Name,
			fmt.Sprint(bin.Index),
			boolStr(bin.IsChange),
			fmt.Sprint(bin.NextScriptIndex),
		); err != nil {
			return err
		}
	}
	for _, kc := range kcs {
		if err := writeKeychainRecord(bw, kc); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadAccount deserializes an account archive written by WriteAccount.
func ReadAccount(r io.Reader) (*account.Account, []*account.Bin, []*keychain.Keychain, error) {
	recs, err := readRecords(r)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(recs) == 0 || recs[0].tag != accountMagic {
		return nil, nil, nil, fmt.Errorf("walletfile: not an account archive")
	}

	var (
		acct *account.Account
		bins []*account.Bin
		kcs  []*keychain.Keychain
	)
	for _, rec := range recs[1:] {
		switch rec.tag {
		case "account":
			acct, err = parseAccountRecord(rec.fields)
			if err != nil {
				return nil, nil, nil, err
			}
		case "bin":
			bin, err := parseBinRecord(rec.fields)
			if err != nil {
				return nil, nil, nil, err
			}
			bins = append(bins, bin)
		case "keychain":
			kc, err := parseKeychainRecord(rec.fields)
			if err != nil {
				return nil, nil, nil, err
			}
			kcs = append(kcs, kc)
		}
	}
	if acct == nil {
		return nil, nil, nil, fmt.Errorf("walletfile: missing account record")
	}
	byName := make(map[string]*keychain.Keychain, len(kcs))
	for _, kc := range kcs {
		byName[kc.Name] = kc
	}
	for i, name := range acct.KeychainNames {
		if kc, ok := byName[name]; ok {
			acct.KeychainHashes[i] = kc.Hash
		}
	}
	return acct, bins, kcs, nil
}

func parseAccountRecord(f []string) (*account.Account, error) {
	hash, err := parseHash(field(f, 1))
	if err != nil {
		return nil, err
	}
	minSigs, err := parseInt(field(f, 2))
	if err != nil {
		return nil, err
	}
	var names []string
	if s := field(f, 3); s != "" {
		names = strings.Split(s, ",")
	}
	poolSize, err := parseInt(field(f, 4))
	if err != nil {
		return nil, err
	}
	createdAt, err := parseUint32(field(f, 5))
	if err != nil {
		return nil, err
	}
	hashes := make([]chainhash.Hash, len(names))
	return &account.Account{
		Name:           field(f, 0),
		Hash:           hash,
		MinSigs:        minSigs,
		KeychainNames:  names,
		KeychainHashes: hashes,
		UnusedPoolSize: poolSize,
		CreatedAt:      createdAt,
	}, nil
}

func parseBinRecord(f []string) (*account.Bin, error) {
	index, err := parseInt(field(f, 1))
	if err != nil {
		return nil, err
	}
	nextIndex, err := parseUint32(field(f, 3))
	if err != nil {
		return nil, err
	}
	return &account.Bin{
		Name:            field(f, 0),
		Index:           index,
		IsChange:        parseBool(field(f, 2)),
		NextScriptIndex: nextIndex,
	}, nil
}
