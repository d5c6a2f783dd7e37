// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "vaultd.conf"
	defaultLogFilename    = "vaultd.log"
	defaultLogLevel       = "info"
	defaultDriver         = "sqlite"
	defaultDSN            = "vault.sqlite"
	defaultMaxLogFileSize = 10 * 1024 // KB
	defaultMaxLogFiles    = 3
)

var (
	defaultHomeDir    = appDataDir("vaultd")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, "logs")
)

// appDataDir mirrors the teacher's btcutil.AppDataDir convention without
// pulling in the chain-params-aware variant: vaultd has no notion of
// mainnet/testnet subdirectories, so $HOME/.vaultd suffices.
func appDataDir(appName string) string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, "."+appName)
	}
	return "." + appName
}

// config holds every flag vaultd accepts, parsed via go-flags the same way
// the teacher's own cmd/ binaries do.
type config struct {
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store the vault database and logs"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	Driver      string `long:"driver" description:"Store driver: sqlite or pgx"`
	DSN         string `long:"dsn" description:"Store data source name (sqlite file path, or a postgres connection string for pgx)"`
	Create      bool   `long:"create" description:"Create the vault database if it does not already exist"`
}

// loadConfig parses command-line flags, then layers an optional ini config
// file underneath them the way the teacher's own loadConfig does: a
// pre-parse pass finds --configfile (if given), the ini file fills in
// defaults, and the final command-line parse wins over both.
func loadConfig() (*config, error) {
	cfg := config{
		ConfigFile: defaultConfigFile,
		DataDir:    defaultHomeDir,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
		Driver:     defaultDriver,
		DSN:        defaultDSN,
	}

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.Driver != "sqlite" && cfg.Driver != "pgx" {
		return nil, fmt.Errorf("unknown store driver %q: must be sqlite or pgx", cfg.Driver)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if cfg.Driver == "sqlite" && !filepath.IsAbs(cfg.DSN) {
		cfg.DSN = filepath.Join(cfg.DataDir, cfg.DSN)
	}

	return &cfg, nil
}
