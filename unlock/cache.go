// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package unlock holds the process-scoped, in-memory secrets that result
// from successfully decrypting a keychain's chain code or private key. It
// never touches the store and is never itself a source of truth: locking
// always clears it, and unlocking always re-derives the secret from the
// keychain's ciphertext.
package unlock

// Secret is the decrypted chain code or the decrypted private key of one
// keychain. It is held only in memory.
type Secret []byte

// Cache holds two name-keyed maps of unlocked secrets: one for chain
// codes, one for private keys. It carries no lock of its own — every
// caller in this module reaches it only while already holding the
// vault-wide mutex, per the spec's "process-wide unlock state" design
// note, mirroring how waddrmgr.Manager's cached keys are safe only
// because Manager.mtx is already held around every access.
type Cache struct {
	chainCodes  map[string]Secret
	privateKeys map[string]Secret
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		chainCodes:  make(map[string]Secret),
		privateKeys: make(map[string]Secret),
	}
}

// ChainCode returns the cached chain-code secret for keychain name, and
// whether one is present.
func (c *Cache) ChainCode(name string) (Secret, bool) {
	s, ok := c.chainCodes[name]
	return s, ok
}

// PrivateKey returns the cached private-key secret for keychain name, and
// whether one is present.
func (c *Cache) PrivateKey(name string) (Secret, bool) {
	s, ok := c.privateKeys[name]
	return s, ok
}

// PutChainCode caches the plaintext chain code for keychain name, either
// just decrypted or just generated for a new keychain.
func (c *Cache) PutChainCode(name string, secret Secret) {
	c.chainCodes[name] = secret
}

// PutPrivateKey caches the plaintext private key for keychain name, either
// just decrypted or just generated for a new keychain.
func (c *Cache) PutPrivateKey(name string, secret Secret) {
	c.privateKeys[name] = secret
}

// ForgetKeychain drops any cached secrets for name; keychain renaming uses
// it to drop the entries held under the old name.
func (c *Cache) ForgetKeychain(name string) {
	delete(c.chainCodes, name)
	delete(c.privateKeys, name)
}

// LockAllChainCodes clears every cached chain-code secret.
func (c *Cache) LockAllChainCodes() {
	c.chainCodes = make(map[string]Secret)
}

// LockAllPrivateKeys clears every cached private-key secret.
func (c *Cache) LockAllPrivateKeys() {
	c.privateKeys = make(map[string]Secret)
}
