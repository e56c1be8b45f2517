// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/interviewd/internal/config"
	"github.com/ManuGH/interviewd/internal/log"
)

// PerformStartupChecks validates the environment before starting the server.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	if cfg.Archive.Backend != "memory" {
		dir := archiveDir(cfg.Archive)
		if err := checkDataDir(logger, dir); err != nil {
			return fmt.Errorf("archive directory check failed: %w", err)
		}
	} else {
		logger.Warn().Msg("archive uses in-memory backend; history is lost on restart")
	}

	if err := checkListenAddr(logger, cfg.ListenAddr); err != nil {
		return fmt.Errorf("listen address check failed: %w", err)
	}

	if strings.HasPrefix(cfg.Evaluator.BaseURL, "http://") && cfg.Evaluator.Token != "" {
		logger.Warn().Msg("evaluator token is sent over plain http")
	}

	logger.Info().Msg("All startup checks passed")
	return nil
}

// archiveDir is the directory that must be writable for the archive backend.
// Badger owns a directory; sqlite a file inside one.
func archiveDir(a config.ArchiveConfig) string {
	if a.Backend == "badger" {
		return filepath.Clean(a.Path)
	}
	return filepath.Dir(filepath.Clean(a.Path))
}

func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("Archive directory is writable")
	return nil
}

// checkListenAddr binds the address once to surface "address in use" before
// the server goroutines start.
func checkListenAddr(logger zerolog.Logger, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	_ = ln.Close()
	logger.Info().Str("addr", addr).Msg("Listen address is available")
	return nil
}
