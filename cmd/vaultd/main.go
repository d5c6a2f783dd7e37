// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command vaultd hosts the multi-signature vault core as a long-running
// process: it opens a relational store, wires the engines together via
// vault.New, and serves callers that talk to it in-process or over a
// transport layered on top (left to the embedder, spec Non-goals exclude
// any bundled RPC server).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coindb/vault/store/sql"
	"github.com/coindb/vault/vault"
)

func vaultdMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w, err := initLogRotator(cfg.LogDir)
	if err != nil {
		return err
	}
	log := initLogging(w, cfg.DebugLevel)

	if cfg.Driver == "sqlite" {
		if _, err := os.Stat(cfg.DSN); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("stat database file: %w", err)
			}
			if !cfg.Create {
				return fmt.Errorf("no vault database found at %s (use --create to initialize one)", cfg.DSN)
			}
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	v := vault.New(db)
	defer v.Close()

	log.Infof("vaultd ready, driver=%s dsn=%s", cfg.Driver, cfg.DSN)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Infof("vaultd shutting down")
	return nil
}

func main() {
	if err := vaultdMain(); err != nil {
		fmt.Fprintf(os.Stderr, "vaultd: %v\n", err)
		os.Exit(1)
	}
}
