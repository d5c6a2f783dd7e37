// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"errors"
	"fmt"

	"github.com/coindb/vault/account"
	"github.com/coindb/vault/chainmgr"
	"github.com/coindb/vault/keychain"
	"github.com/coindb/vault/txmgr"
)

// ErrorCode is the façade-level error taxonomy (spec §7), collapsing each
// engine's own error codes into the small set of names a caller of the
// public API is expected to switch on.
type ErrorCode int

const (
	ErrKeychainNotFound ErrorCode = iota
	ErrKeychainAlreadyExists
	ErrKeychainChainCodeUnlockFailed
	ErrKeychainNotPrivate
	ErrAccountNotFound
	ErrAccountAlreadyExists
	ErrAccountBinNotFound
	ErrAccountBinAlreadyExists
	ErrAccountBinOutOfScripts
	ErrAccountChainCodeLocked
	ErrAccountCannotIssueChangeScript
	ErrAccountInsufficientFunds
	ErrTxNotFound
	ErrInvariant
)

var errorCodeStrings = map[ErrorCode]string{
	ErrKeychainNotFound:               "ErrKeychainNotFound",
	ErrKeychainAlreadyExists:          "ErrKeychainAlreadyExists",
	ErrKeychainChainCodeUnlockFailed:  "ErrKeychainChainCodeUnlockFailed",
	ErrKeychainNotPrivate:             "ErrKeychainNotPrivate",
	ErrAccountNotFound:                "ErrAccountNotFound",
	ErrAccountAlreadyExists:           "ErrAccountAlreadyExists",
	ErrAccountBinNotFound:             "ErrAccountBinNotFound",
	ErrAccountBinAlreadyExists:        "ErrAccountBinAlreadyExists",
	ErrAccountBinOutOfScripts:         "ErrAccountBinOutOfScripts",
	ErrAccountChainCodeLocked:         "ErrAccountChainCodeLocked",
	ErrAccountCannotIssueChangeScript: "ErrAccountCannotIssueChangeScript",
	ErrAccountInsufficientFunds:       "ErrAccountInsufficientFunds",
	ErrTxNotFound:                     "ErrTxNotFound",
	ErrInvariant:                      "ErrInvariant",
}

func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// Error is returned by every Vault method that fails for a reason the
// caller might want to branch on.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vault: %s: %s", e.Code, e.Err)
	}
	return fmt.Sprintf("vault: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapErr maps an underlying engine error onto the façade's taxonomy via
// errors.As, preserving the original as the cause. Errors this function
// doesn't recognize (session/transport failures) pass through unchanged,
// per spec §7's "generic invariant-violation" catch-all being reserved for
// genuinely internal faults.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}

	var kerr *keychain.Error
	if errors.As(err, &kerr) {
		switch kerr.Code {
		case keychain.ErrNotFound:
			return &Error{Code: ErrKeychainNotFound, Err: err}
		case keychain.ErrAlreadyExists:
			return &Error{Code: ErrKeychainAlreadyExists, Err: err}
		case keychain.ErrChainCodeUnlockFailed, keychain.ErrPrivateKeyUnlockFailed:
			return &Error{Code: ErrKeychainChainCodeUnlockFailed, Err: err}
		case keychain.ErrNotPrivate:
			return &Error{Code: ErrKeychainNotPrivate, Err: err}
		}
		return &Error{Code: ErrInvariant, Err: err}
	}

	var lockErr *account.ChainCodeLockedError
	if errors.As(err, &lockErr) {
		return &Error{Code: ErrAccountChainCodeLocked, Err: err}
	}
	var aerr *account.Error
	if errors.As(err, &aerr) {
		switch aerr.Code {
		case account.ErrNotFound:
			return &Error{Code: ErrAccountNotFound, Err: err}
		case account.ErrAlreadyExists:
			return &Error{Code: ErrAccountAlreadyExists, Err: err}
		case account.ErrBinNotFound:
			return &Error{Code: ErrAccountBinNotFound, Err: err}
		case account.ErrBinAlreadyExists:
			return &Error{Code: ErrAccountBinAlreadyExists, Err: err}
		case account.ErrBinOutOfScripts:
			return &Error{Code: ErrAccountBinOutOfScripts, Err: err}
		case account.ErrCannotIssueChangeScript:
			return &Error{Code: ErrAccountCannotIssueChangeScript, Err: err}
		case account.ErrChainCodeLocked:
			return &Error{Code: ErrAccountChainCodeLocked, Err: err}
		case account.ErrInsufficientFunds:
			return &Error{Code: ErrAccountInsufficientFunds, Err: err}
		}
		return &Error{Code: ErrInvariant, Err: err}
	}

	var terr *txmgr.Error
	if errors.As(err, &terr) {
		switch terr.Code {
		case txmgr.ErrNotFound:
			return &Error{Code: ErrTxNotFound, Err: err}
		case txmgr.ErrInsufficientFunds:
			return &Error{Code: ErrAccountInsufficientFunds, Err: err}
		}
		return &Error{Code: ErrInvariant, Err: err}
	}

	var cerr *chainmgr.Error
	if errors.As(err, &cerr) {
		return &Error{Code: ErrInvariant, Err: err}
	}

	return err
}
