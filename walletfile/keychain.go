// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/coindb/vault/keychain"
)

// WriteKeychain serializes kc as a standalone archive.
func WriteKeychain(w io.Writer, kc *keychain.Keychain) error {
	bw := bufio.NewWriter(w)
	if err := writeRecord(bw, keychainMagic); err != nil {
		return err
	}
	if err := writeKeychainRecord(bw, kc); err != nil {
		return err
	}
	return bw.Flush()
}

func writeKeychainRecord(bw *bufio.Writer, kc *keychain.Keychain) error {
	return writeRecord(bw, "keychain",
		kc.Name,
		hashStr(kc.Hash),
		boolStr(kc.IsRoot),
		fmt.Sprint(kc.Depth),
		fmt.Sprint(kc.ChildIndex),
		b64(kc.PubKey),
		b64(kc.PubChainCode),
		b64(kc.EncChainCode),
		b64(kc.EncChainCodeSalt),
		boolStr(kc.IsPrivate),
		b64(kc.EncPrivKey),
		b64(kc.EncPrivKeySalt),
	)
}

// ReadKeychain deserializes a standalone keychain archive.
func ReadKeychain(r io.Reader) (*keychain.Keychain, error) {
	recs, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 || recs[0].tag != keychainMagic {
		return nil, fmt.Errorf("walletfile: not a keychain archive")
	}
	for _, rec := range recs[1:] {
		if rec.tag == "keychain" {
			return parseKeychainRecord(rec.fields)
		}
	}
	return nil, fmt.Errorf("walletfile: missing keychain record")
}

func parseKeychainRecord(f []string) (*keychain.Keychain, error) {
	hash, err := parseHash(field(f, 1))
	if err != nil {
		return nil, err
	}
	depth, err := parseUint32(field(f, 3))
	if err != nil {
		return nil, err
	}
	childIndex, err := parseUint32(field(f, 4))
	if err != nil {
		return nil, err
	}
	pubKey, err := unb64(field(f, 5))
	if err != nil {
		return nil, err
	}
	pubChainCode, err := unb64(field(f, 6))
	if err != nil {
		return nil, err
	}
	encChainCode, err := unb64(field(f, 7))
	if err != nil {
		return nil, err
	}
	encChainCodeSalt, err := unb64(field(f, 8))
	if err != nil {
		return nil, err
	}
	encPrivKey, err := unb64(field(f, 10))
	if err != nil {
		return nil, err
	}
	encPrivKeySalt, err := unb64(field(f, 11))
	if err != nil {
		return nil, err
	}
	return &keychain.Keychain{
		Name:             field(f, 0),
		Hash:             hash,
		IsRoot:           parseBool(field(f, 2)),
		Depth:            depth,
		ChildIndex:       childIndex,
		PubKey:           pubKey,
		PubChainCode:     pubChainCode,
		EncChainCode:     encChainCode,
		EncChainCodeSalt: encChainCodeSalt,
		IsPrivate:        parseBool(field(f, 9)),
		EncPrivKey:       encPrivKey,
		EncPrivKeySalt:   encPrivKeySalt,
	}, nil
}
