// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/coindb/vault/account"
	"github.com/coindb/vault/chainmgr"
	"github.com/coindb/vault/keychain"
	"github.com/coindb/vault/txmgr"
	"github.com/coindb/vault/vault"
)

// logWriter wraps the underlying log rotator in an io.Writer that also
// tees output to stdout, matching the teacher's LogTypeDefault behavior.
type logWriter struct {
	rotator *rotator.Rotator
}

func (w logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	return w.rotator.Write(p)
}

// initLogRotator creates the vaultd log file and wires a rotator.Rotator
// ahead of it, run in its own goroutine the same way the teacher's
// build.RotatingLogWriter runs the lightningnetwork-lnd pattern.
func initLogRotator(logDir string) (io.Writer, error) {
	logFile := filepath.Join(logDir, defaultLogFilename)
	r, err := rotator.New(logFile, defaultMaxLogFileSize, false, defaultMaxLogFiles)
	if err != nil {
		return nil, fmt.Errorf("create log rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		if err := r.Run(pr); err != nil {
			fmt.Fprintf(os.Stderr, "log rotator stopped: %v\n", err)
		}
	}()

	return logWriter{rotator: r}, nil
}

// subsystemLoggers maps every package that exposes UseLogger to the
// subsystem tag its lines are printed under.
var subsystemLoggers = map[string]func(btclog.Logger){
	"KCHN": keychain.UseLogger,
	"ACCT": account.UseLogger,
	"TXMG": txmgr.UseLogger,
	"CHNM": chainmgr.UseLogger,
	"VLTD": vault.UseLogger,
}

// initLogging points every engine package's logger at a single rotating
// backend, the same fan-out the teacher's useLogger does per subsystem.
func initLogging(w io.Writer, levelName string) btclog.Logger {
	backend := btclog.NewBackend(w)
	level, ok := btclog.LevelFromString(levelName)
	if !ok {
		level = btclog.LevelInfo
	}

	for tag, use := range subsystemLoggers {
		l := backend.Logger(tag)
		l.SetLevel(level)
		use(l)
	}

	mainLog := backend.Logger("VLTD")
	mainLog.SetLevel(level)
	return mainLog
}
