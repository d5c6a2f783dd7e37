// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txmgr

import "fmt"

// ErrorCode identifies a kind of transaction error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested Tx does not exist locally.
	ErrNotFound ErrorCode = iota
	// ErrInsufficientFunds indicates create_tx could not reach its
	// desired total from the account's UTXOs.
	ErrInsufficientFunds
	// ErrInvariant indicates an internal inconsistency, such as an
	// outpoint index out of range.
	ErrInvariant
)

var errorCodeStrings = map[ErrorCode]string{
	ErrNotFound:          "ErrNotFound",
	ErrInsufficientFunds: "ErrInsufficientFunds",
	ErrInvariant:         "ErrInvariant",
}

func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// Error reports a transaction operation failure.
type Error struct {
	Code ErrorCode
	Hash string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("tx %s: %s", e.Hash, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, hash string, err error) *Error {
	return &Error{Code: code, Hash: hash, Err: err}
}
