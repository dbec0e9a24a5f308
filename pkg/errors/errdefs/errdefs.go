// Package errdefs defines the error classes an install run can fail with.
//
// Every fatal condition is one of four kinds: bad input (ConfigError), a
// local resource that cannot be read or fetched (IOError), a host whose
// identity does not match how it is addressed (PreflightError) or a remote
// operation that failed on one or more hosts (RemoteOperationError).
package errdefs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ConfigError reports invalid or contradictory user input. It is always
// raised before any remote operation runs.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(format string, args ...interface{}) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IOError reports a local resource access failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// PreflightError reports a host whose self-reported hostname differs from
// the identity it is addressed by.
type PreflightError struct {
	Expected string
	Reported string
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight error: hostname validation failed: expected %q, got %q", e.Expected, e.Reported)
}

// RemoteOperationError reports an operation that failed on at least one
// targeted host. Failures maps host to the per-host error.
type RemoteOperationError struct {
	Operation string
	Failures  map[string]error
}

func (e *RemoteOperationError) Error() string {
	hosts := e.Hosts()
	parts := make([]string, 0, len(hosts))
	for _, h := range hosts {
		parts = append(parts, fmt.Sprintf("%s: %v", h, e.Failures[h]))
	}
	return fmt.Sprintf("remote operation %q failed on %d host(s): %s", e.Operation, len(hosts), strings.Join(parts, "; "))
}

// Hosts returns the failed hosts in sorted order.
func (e *RemoteOperationError) Hosts() []string {
	hosts := make([]string, 0, len(e.Failures))
	for h := range e.Failures {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Unwrap exposes the per-host errors to errors.Is / errors.As.
func (e *RemoteOperationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, h := range e.Hosts() {
		errs = append(errs, e.Failures[h])
	}
	return errs
}

func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func IsIO(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}

func IsPreflight(err error) bool {
	var target *PreflightError
	return errors.As(err, &target)
}

func IsRemote(err error) bool {
	var target *RemoteOperationError
	return errors.As(err, &target)
}
