// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coindb/vault/cryptoprovider"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/store/memdb"
	"github.com/coindb/vault/unlock"
)

func newTestEngine(t *testing.T) (*Engine, store.Session) {
	t.Helper()
	db := memdb.New()
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback() })
	e := New(cryptoprovider.New(), unlock.New())
	return e, tx.Session()
}

func TestNewKeychainPersistsAndCachesSecrets(t *testing.T) {
	e, sess := newTestEngine(t)
	kc, err := e.NewKeychain(sess, NewKeychainRequest{
		Name:    "primary",
		Entropy: make([]byte, 32),
		LockKey: []byte("lockkey"),
		Salt:    []byte("salt12345678901234567890"),
	})
	require.NoError(t, err)
	require.NotZero(t, kc.ID)
	require.True(t, kc.IsRoot)
	require.True(t, kc.IsPrivate)

	if _, ok := e.cache.ChainCode("primary"); !ok {
		t.Fatal("expected chain code to be cached after creation")
	}
	if _, ok := e.cache.PrivateKey("primary"); !ok {
		t.Fatal("expected private key to be cached after creation")
	}
}

func TestNewKeychainDuplicateNameFails(t *testing.T) {
	e, sess := newTestEngine(t)
	req := NewKeychainRequest{Name: "primary", Entropy: make([]byte, 32), LockKey: []byte("k"), Salt: []byte("s")}
	_, err := e.NewKeychain(sess, req)
	require.NoError(t, err)

	_, err = e.NewKeychain(sess, req)
	require.Error(t, err)
	kerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrAlreadyExists, kerr.Code)
}

func TestUnlockChainCodeWrongKeyFails(t *testing.T) {
	e, sess := newTestEngine(t)
	_, err := e.NewKeychain(sess, NewKeychainRequest{
		Name: "primary", Entropy: make([]byte, 32), LockKey: []byte("right"), Salt: []byte("salt"),
	})
	require.NoError(t, err)

	e.cache = unlock.New() // simulate a fresh process with nothing cached
	err = e.UnlockChainCode(sess, "primary", []byte("wrong"))
	require.Error(t, err)
	kerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrChainCodeUnlockFailed, kerr.Code)

	err = e.UnlockChainCode(sess, "primary", []byte("right"))
	require.NoError(t, err)
	if _, ok := e.cache.ChainCode("primary"); !ok {
		t.Fatal("expected chain code to be cached after successful unlock")
	}
}

func TestRenameKeychainForgetsOldCacheEntry(t *testing.T) {
	e, sess := newTestEngine(t)
	_, err := e.NewKeychain(sess, NewKeychainRequest{
		Name: "old", Entropy: make([]byte, 32), LockKey: []byte("k"), Salt: []byte("s"),
	})
	require.NoError(t, err)

	renamed, err := e.RenameKeychain(sess, "old", "new")
	require.NoError(t, err)
	require.Equal(t, "new", renamed.Name)

	if _, ok := e.cache.ChainCode("old"); ok {
		t.Fatal("expected old cache entry to be forgotten")
	}

	_, err = e.GetKeychain(sess, "old")
	require.Error(t, err)

	got, err := e.GetKeychain(sess, "new")
	require.NoError(t, err)
	require.Equal(t, renamed.ID, got.ID)
}

func TestRenameKeychainCollision(t *testing.T) {
	e, sess := newTestEngine(t)
	_, err := e.NewKeychain(sess, NewKeychainRequest{Name: "a", Entropy: make([]byte, 32), LockKey: []byte("k"), Salt: []byte("s")})
	require.NoError(t, err)
	_, err = e.NewKeychain(sess, NewKeychainRequest{Name: "b", Entropy: append(make([]byte, 31), 1), LockKey: []byte("k"), Salt: []byte("s")})
	require.NoError(t, err)

	_, err = e.RenameKeychain(sess, "a", "b")
	require.Error(t, err)
	kerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrAlreadyExists, kerr.Code)
}

func TestExportKeychainWithoutPrivKeysClearsPrivateMaterial(t *testing.T) {
	e, sess := newTestEngine(t)
	_, err := e.NewKeychain(sess, NewKeychainRequest{
		Name: "primary", Entropy: make([]byte, 32), LockKey: []byte("k"), Salt: []byte("s"),
	})
	require.NoError(t, err)

	out, err := e.ExportKeychain(sess, "primary", false)
	require.NoError(t, err)
	require.False(t, out.IsPrivate)
	require.Nil(t, out.EncPrivKey)
}

func TestExportKeychainWithPrivKeysRequiresPrivateMaterial(t *testing.T) {
	e, sess := newTestEngine(t)
	_, err := e.NewKeychain(sess, NewKeychainRequest{
		Name: "primary", Entropy: make([]byte, 32), LockKey: []byte("k"), Salt: []byte("s"),
	})
	require.NoError(t, err)

	watchOnly, err := e.ExportKeychain(sess, "primary", false)
	require.NoError(t, err)
	watchOnly.Name = "watch-only"
	watchOnly.ID = 0
	require.NoError(t, sess.Persist(watchOnly))

	_, err = e.ExportKeychain(sess, "watch-only", true)
	require.Error(t, err)
	kerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrNotPrivate, kerr.Code)
}

func TestImportKeychainFoldsPrivateMaterialIntoExisting(t *testing.T) {
	e, sess := newTestEngine(t)
	full, err := e.NewKeychain(sess, NewKeychainRequest{
		Name: "primary", Entropy: make([]byte, 32), LockKey: []byte("k"), Salt: []byte("s"),
	})
	require.NoError(t, err)

	watchOnly, err := e.ExportKeychain(sess, "primary", false)
	require.NoError(t, err)
	watchOnly.Name = "watch-only"
	watchOnly.ID = 0
	require.NoError(t, sess.Persist(watchOnly))
	require.NoError(t, sess.Erase(full))

	withPriv := &Keychain{}
	full.CloneInto(withPriv)
	withPriv.ID = 0
	withPriv.Name = "whatever"

	merged, report, err := e.ImportKeychain(sess, ImportRequest{Keychain: withPriv})
	require.NoError(t, err)
	require.True(t, report.PrivKeysImported)
	require.Equal(t, "watch-only", merged.Name)
	require.True(t, merged.IsPrivate)
}

func TestImportKeychainDeduplicatesNameOnCollision(t *testing.T) {
	e, sess := newTestEngine(t)
	_, err := e.NewKeychain(sess, NewKeychainRequest{Name: "primary", Entropy: make([]byte, 32), LockKey: []byte("k"), Salt: []byte("s")})
	require.NoError(t, err)

	other, err := e.NewKeychain(sess, NewKeychainRequest{Name: "other", Entropy: append(make([]byte, 31), 9), LockKey: []byte("k"), Salt: []byte("s")})
	require.NoError(t, err)
	incoming := &Keychain{}
	other.CloneInto(incoming)
	incoming.ID = 0
	incoming.Name = "primary" // collides by name but not by hash

	imported, _, err := e.ImportKeychain(sess, ImportRequest{Keychain: incoming})
	require.NoError(t, err)
	require.Equal(t, "primary1", imported.Name)
}

func TestDeriveChildPubkeyAndPrivkeyAgree(t *testing.T) {
	e, sess := newTestEngine(t)
	_, err := e.NewKeychain(sess, NewKeychainRequest{
		Name: "primary", Entropy: make([]byte, 32), LockKey: []byte("k"), Salt: []byte("s"),
	})
	require.NoError(t, err)

	pub, err := e.DeriveChildPubkey(sess, "primary", 0)
	require.NoError(t, err)

	priv, err := e.DeriveChildPrivkey(sess, "primary", 0)
	require.NoError(t, err)

	require.True(t, e.crypto.PubkeyFromPriv(priv).IsEqual(pub))
}

func TestTryUnlockChainCodes(t *testing.T) {
	e, sess := newTestEngine(t)
	_, err := e.NewKeychain(sess, NewKeychainRequest{
		Name: "unlocked", Entropy: make([]byte, 32), LockKey: []byte("k"), Salt: []byte("s"),
	})
	require.NoError(t, err)

	failing := e.TryUnlockChainCodes([]string{"unlocked", "missing"})
	require.Equal(t, []string{"missing"}, failing)
}
