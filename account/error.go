// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package account

import "fmt"

// ErrorCode identifies a kind of account error.
type ErrorCode int

const (
	// ErrNotFound indicates the named account does not exist.
	ErrNotFound ErrorCode = iota
	// ErrAlreadyExists indicates an account with that name already
	// exists.
	ErrAlreadyExists
	// ErrBinNotFound indicates the named bin does not exist.
	ErrBinNotFound
	// ErrBinAlreadyExists indicates a bin with that name already exists.
	ErrBinAlreadyExists
	// ErrBinOutOfScripts indicates a bin has no UNUSED script to issue.
	ErrBinOutOfScripts
	// ErrCannotIssueChangeScript indicates issue_script was called
	// against the change bin.
	ErrCannotIssueChangeScript
	// ErrChainCodeLocked indicates one or more constituent keychains'
	// chain codes are not unlocked.
	ErrChainCodeLocked
	// ErrInsufficientFunds indicates create_tx could not reach its
	// desired total from available UTXOs.
	ErrInsufficientFunds
)

var errorCodeStrings = map[ErrorCode]string{
	ErrNotFound:                "ErrNotFound",
	ErrAlreadyExists:           "ErrAlreadyExists",
	ErrBinNotFound:             "ErrBinNotFound",
	ErrBinAlreadyExists:        "ErrBinAlreadyExists",
	ErrBinOutOfScripts:         "ErrBinOutOfScripts",
	ErrCannotIssueChangeScript: "ErrCannotIssueChangeScript",
	ErrChainCodeLocked:         "ErrChainCodeLocked",
	ErrInsufficientFunds:       "ErrInsufficientFunds",
}

func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// Error reports an account operation failure.
type Error struct {
	Code    ErrorCode
	Account string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("account %s: %s", e.Account, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, account string, err error) *Error {
	return &Error{Code: code, Account: account, Err: err}
}

// ChainCodeLockedError is ErrChainCodeLocked's payload, naming every
// keychain whose chain code could not be unlocked (spec §7:
// AccountChainCodeLocked{account, failing_keychains}).
type ChainCodeLockedError struct {
	Account         string
	FailingKeychains []string
}

func (e *ChainCodeLockedError) Error() string {
	return fmt.Sprintf("account %s: chain codes locked for keychains %v", e.Account, e.FailingKeychains)
}
