// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mgattr collects the small configuration value types shared by the
// lock constructors in this module. In the original C library these are
// init/destroy-managed attribute objects; in Go there is no ABI boundary to
// cross, so they collapse into validated value types built by functional
// options.
package mgattr

import "github.com/mutexgear/go-mutexgear/mgerr"

// Protocol selects the priority-handling discipline a lock advertises.
// This module runs entirely on sync.Mutex, which already participates in
// Go's runtime scheduling the way a priority-inheriting futex does on
// Linux; Protocol is preserved as a descriptive, load-bearing-free flag so
// callers porting code from the original API keep a place to put it.
type Protocol int

const (
	ProtocolNone Protocol = iota
	ProtocolInherit
	ProtocolProtect
)

// Pshare selects process-shared vs. process-private placement. This port
// is in-process only; Pshared is accepted and stored but never changes
// behavior. See SPEC_FULL.md's "not implemented" note for the reasoning.
type Pshare int

const (
	PsharePrivate Pshare = iota
	PshareShared
)

// CommonAttr is embedded by every lock-specific attribute type below.
type CommonAttr struct {
	Pshare      Pshare
	Protocol    Protocol
	PrioCeiling int
}

// CommonOption mutates a CommonAttr being built.
type CommonOption func(*CommonAttr) error

// WithPshare sets the process-sharing flag.
func WithPshare(p Pshare) CommonOption {
	return func(a *CommonAttr) error {
		a.Pshare = p
		return nil
	}
}

// WithProtocol sets the priority protocol.
func WithProtocol(p Protocol) CommonOption {
	return func(a *CommonAttr) error {
		if p != ProtocolNone && p != ProtocolInherit && p != ProtocolProtect {
			return mgerr.INVAL
		}
		a.Protocol = p
		return nil
	}
}

// WithPrioCeiling sets the priority ceiling used under ProtocolProtect.
// A negative ceiling is rejected with mgerr.INVAL.
func WithPrioCeiling(ceiling int) CommonOption {
	return func(a *CommonAttr) error {
		if ceiling < 0 {
			return mgerr.INVAL
		}
		a.PrioCeiling = ceiling
		return nil
	}
}

func buildCommon(opts []CommonOption) (CommonAttr, error) {
	var a CommonAttr
	for _, opt := range opts {
		if err := opt(&a); err != nil {
			return CommonAttr{}, err
		}
	}
	return a, nil
}

// RWLockAttr configures rwlock.RWLock and rwlock.TRDL construction.
type RWLockAttr struct {
	CommonAttr
	WriteChannels    int
	RoundRobinWriter bool
}

// NewRWLockAttr validates opts and returns the resulting attribute bundle,
// or mgerr.INVAL if any option supplied an invalid value.
func NewRWLockAttr(opts ...RWLockOption) (RWLockAttr, error) {
	a := RWLockAttr{WriteChannels: 1}
	for _, opt := range opts {
		if err := opt(&a); err != nil {
			return RWLockAttr{}, err
		}
	}
	return a, nil
}

// RWLockOption mutates an RWLockAttr being built.
type RWLockOption func(*RWLockAttr) error

// WithCommon applies a CommonOption to the embedded CommonAttr.
func WithCommon(opt CommonOption) RWLockOption {
	return func(a *RWLockAttr) error {
		return opt(&a.CommonAttr)
	}
}

// roundUpWriteChannels maps 0 (the "use the default" sentinel) or any
// positive count to the nearest supported value in {1, 2, 4}, capping at
// 4, per spec.md §6.
func roundUpWriteChannels(n int) int {
	switch {
	case n <= 1:
		return 1
	case n == 2:
		return 2
	default:
		return 4
	}
}

// WithWriteChannels sets the number of writer-wait channels. n == 0 means
// "use the default channel count" (spec.md §6: "writechannels ∈ {0=default,
// 1, 2, 4}"; the original's rwlock.h docs this as "Pass 0 for the system
// default"). Any other n is rounded up to the nearest supported power of
// two and capped at 4. Only a negative n is rejected, with mgerr.INVAL.
func WithWriteChannels(n int) RWLockOption {
	return func(a *RWLockAttr) error {
		if n < 0 {
			return mgerr.INVAL
		}
		a.WriteChannels = roundUpWriteChannels(n)
		return nil
	}
}

// WithRoundRobinWriter selects round-robin writer-channel dispatch instead
// of the default address-hash dispatch (spec.md §4.5's "by pointer-hash of
// R or round-robin" alternatives).
func WithRoundRobinWriter(roundRobin bool) RWLockOption {
	return func(a *RWLockAttr) error {
		a.RoundRobinWriter = roundRobin
		return nil
	}
}

// MaintLockAttr configures maintlock.MaintLock construction.
type MaintLockAttr struct {
	CommonAttr
}

// NewMaintLockAttr validates opts and returns the resulting attribute
// bundle, or mgerr.INVAL if any option supplied an invalid value.
func NewMaintLockAttr(opts ...CommonOption) (MaintLockAttr, error) {
	common, err := buildCommon(opts)
	if err != nil {
		return MaintLockAttr{}, err
	}
	return MaintLockAttr{CommonAttr: common}, nil
}
