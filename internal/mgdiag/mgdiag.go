// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mgdiag carries the diagnostic logging and fatal-check plumbing
// shared by every primitive in this module. Its Fatal corresponds to the
// original library's "impossible precondition, abort the process" class of
// failure (spec.md §7 class 1): these are not recoverable errors, so they
// are never encoded as a returned mgerr.Code.
package mgdiag

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	loggerMu sync.RWMutex
	logger   *zap.Logger
)

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
}

// SetLogger replaces the package-level logger. Passing nil installs a
// no-op logger, useful in tests that don't want fatal-check output on
// stderr.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func currentLogger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// lastFailedCheck mirrors spec.md §9's single process-wide variable holding
// the most recently failed fatal-check name. It is set just before Fatal
// panics, so a recovering test harness can still inspect what failed.
var lastFailedCheck atomic.Value // holds string

// LastFailedCheck returns the name of the most recent check passed to
// Fatal, or "" if none has failed yet.
func LastFailedCheck() string {
	v, _ := lastFailedCheck.Load().(string)
	return v
}

// Fatal records check as the last failed fatal check, logs it at Error
// level, and panics. It is called only for programmer-precondition
// violations (engaging an engaged Toggle or Wheel, flipping or advancing
// one that is not engaged, enqueueing an already-linked item, dequeueing
// or read-unlocking an item that is not held) — conditions spec.md
// classifies as undefined behavior in the
// original C library and that this port instead turns into an immediate,
// loud failure rather than silent corruption.
func Fatal(check string, err error) {
	lastFailedCheck.Store(check)
	currentLogger().Error("mutexgear: fatal check failed",
		zap.String("check", check),
		zap.Error(err),
	)
	panic(fmt.Sprintf("mutexgear: fatal check %q failed: %v", check, err))
}

// Assert panics via Fatal if cond is false. check names the invariant for
// diagnostic purposes.
func Assert(cond bool, check string) {
	if !cond {
		Fatal(check, fmt.Errorf("assertion failed"))
	}
}
