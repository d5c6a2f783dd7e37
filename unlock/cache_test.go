// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package unlock

import "testing"

func TestCachePutAndGet(t *testing.T) {
	c := New()
	if _, ok := c.ChainCode("alice"); ok {
		t.Fatal("expected no chain code cached")
	}

	c.PutChainCode("alice", Secret("secret-cc"))
	got, ok := c.ChainCode("alice")
	if !ok || string(got) != "secret-cc" {
		t.Fatalf("got %q, %v", got, ok)
	}

	c.PutPrivateKey("alice", Secret("secret-pk"))
	got, ok = c.PrivateKey("alice")
	if !ok || string(got) != "secret-pk" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

func TestForgetKeychainDropsBoth(t *testing.T) {
	c := New()
	c.PutChainCode("alice", Secret("cc"))
	c.PutPrivateKey("alice", Secret("pk"))

	c.ForgetKeychain("alice")

	if _, ok := c.ChainCode("alice"); ok {
		t.Fatal("chain code should be forgotten")
	}
	if _, ok := c.PrivateKey("alice"); ok {
		t.Fatal("private key should be forgotten")
	}
}

func TestLockAllChainCodesLeavesPrivateKeys(t *testing.T) {
	c := New()
	c.PutChainCode("alice", Secret("cc"))
	c.PutPrivateKey("alice", Secret("pk"))

	c.LockAllChainCodes()

	if _, ok := c.ChainCode("alice"); ok {
		t.Fatal("chain code should be locked")
	}
	if _, ok := c.PrivateKey("alice"); !ok {
		t.Fatal("private key should remain unlocked")
	}
}

func TestLockAllPrivateKeysLeavesChainCodes(t *testing.T) {
	c := New()
	c.PutChainCode("alice", Secret("cc"))
	c.PutPrivateKey("alice", Secret("pk"))

	c.LockAllPrivateKeys()

	if _, ok := c.PrivateKey("alice"); ok {
		t.Fatal("private key should be locked")
	}
	if _, ok := c.ChainCode("alice"); !ok {
		t.Fatal("chain code should remain unlocked")
	}
}
