// SPDX-License-Identifier: MIT

// Package validate collects field-level configuration problems so they can be
// reported together instead of failing on the first one.
package validate

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// Error is one rejected field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError is returned by Validator.Err and lists every rejected field
// in the order the checks ran.
type ValidationError []Error

func (e ValidationError) Errors() []Error { return e }

func (e ValidationError) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator accumulates problems. The zero value is ready to use.
type Validator struct {
	errs []Error
}

func New() *Validator { return &Validator{} }

func (v *Validator) AddError(field, message string, value any) {
	v.errs = append(v.errs, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) addf(field string, value any, format string, args ...any) {
	v.AddError(field, fmt.Sprintf(format, args...), value)
}

func (v *Validator) IsValid() bool { return len(v.errs) == 0 }

func (v *Validator) Errors() []Error { return v.errs }

// Err returns nil or a ValidationError holding a copy of the problems so far.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return ValidationError(slices.Clone(v.errs))
}

func between[T cmp.Ordered](v *Validator, field string, value, lo, hi T, verb string) {
	if value < lo || value > hi {
		v.addf(field, value, "must be between "+verb+" and "+verb+", got "+verb, lo, hi, value)
	}
}

func (v *Validator) Range(field string, value, minVal, maxVal int) {
	between(v, field, value, minVal, maxVal, "%d")
}

func (v *Validator) FloatRange(field string, value, minVal, maxVal float64) {
	between(v, field, value, minVal, maxVal, "%g")
}

func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.addf(field, value, "must not be negative, got %d", value)
	}
}

func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.addf(field, d, "duration must be positive, got %s", d)
	}
}

func (v *Validator) NonNegativeDuration(field string, d time.Duration) {
	if d < 0 {
		v.addf(field, d, "duration must not be negative, got %s", d)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "must not be empty", value)
	}
}

func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.addf(field, value, "must be one of [%s], got %q", strings.Join(allowed, ", "), value)
	}
}

// URL requires an absolute URL with a host. When allowedSchemes is non-empty
// the scheme must be one of them.
func (v *Validator) URL(field, value string, allowedSchemes []string) {
	if value == "" {
		v.AddError(field, "URL must not be empty", value)
		return
	}
	u, err := url.Parse(value)
	switch {
	case err != nil:
		v.addf(field, value, "invalid URL: %v", err)
	case u.Host == "":
		v.AddError(field, "URL must have a host", value)
	case len(allowedSchemes) > 0 && !slices.Contains(allowedSchemes, u.Scheme):
		v.addf(field, value, "unsupported URL scheme %q (allowed: %s)", u.Scheme, strings.Join(allowedSchemes, ", "))
	}
}

// ListenAddr accepts host:port with an optional host. Port 0 asks the kernel for one.
func (v *Validator) ListenAddr(field, addr string) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		v.addf(field, addr, "invalid listen address: %v", err)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.addf(field, addr, "port %q is not numeric", portStr)
		return
	}
	between(v, field, port, 0, 65535, "%d")
}

// FileParent checks that the directory holding path exists, creating it when
// missing. An empty path is accepted.
func (v *Validator) FileParent(field, path string) {
	if path == "" {
		return
	}
	if strings.Contains(path, "..") {
		v.AddError(field, "path must not contain ..", path)
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		v.addf(field, path, "invalid path: %v", err)
		return
	}
	dir := filepath.Dir(abs)
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0o750); err != nil {
			v.addf(field, path, "cannot create %s: %v", dir, err)
		}
	case err != nil:
		v.addf(field, path, "cannot access %s: %v", dir, err)
	case !info.IsDir():
		v.addf(field, path, "%s is not a directory", dir)
	}
}

// LanguageTag validates a BCP 47 tag such as "en-US".
func (v *Validator) LanguageTag(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "must not be empty", value)
		return
	}
	if _, err := language.Parse(value); err != nil {
		v.addf(field, value, "invalid language tag: %v", err)
	}
}

// LogLevel accepts zerolog level names from trace through error.
func (v *Validator) LogLevel(field, value string) {
	lvl, err := zerolog.ParseLevel(value)
	if err != nil || value == "" || lvl < zerolog.TraceLevel || lvl > zerolog.ErrorLevel {
		v.addf(field, value, "invalid log level %q (trace, debug, info, warn, error)", value)
	}
}
