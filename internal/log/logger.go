// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultService = "interviewd"

// Config describes the process-wide logger. Zero fields fall back to info
// level, stdout and the default service name.
type Config struct {
	Level   string
	Output  io.Writer
	Service string
	Version string
}

var current atomic.Pointer[zerolog.Logger]

// Configure installs the global logger unless one has already been installed.
func Configure(cfg Config) {
	if current.Load() == nil {
		install(cfg)
	}
}

// Reconfigure replaces the global logger unconditionally. Config reloads go through here.
func Reconfigure(cfg Config) {
	install(cfg)
}

func install(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	service := cfg.Service
	if service == "" {
		service = defaultService
	}

	l := zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Str("version", cfg.Version).
		Logger()
	current.Store(&l)
}

func logger() zerolog.Logger {
	if l := current.Load(); l != nil {
		return *l
	}
	Configure(Config{})
	return *current.Load()
}

func Base() zerolog.Logger { return logger() }

// L returns a copy of the base logger for chained call sites such as log.L().Info().
func L() *zerolog.Logger {
	l := logger()
	return &l
}

func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}

// Derive returns a child of the base logger with fields added by build.
func Derive(build func(*zerolog.Context)) zerolog.Logger {
	c := logger().With()
	if build != nil {
		build(&c)
	}
	return c.Logger()
}
