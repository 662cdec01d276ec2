// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wheel implements the three-mutex ring of spec.md §4.3: a Toggle
// extended with an independently-paced client that can grip the ring,
// observe state at its own cadence via Turn, and release without being in
// lockstep with the signaler's Advance calls.
package wheel

import (
	"sync"
	"sync/atomic"

	"github.com/mutexgear/go-mutexgear/internal/mgdiag"
	"github.com/mutexgear/go-mutexgear/mgerr"
)

const invalid = -1

// Wheel is a three-mutex ring. Engage/Advance/Disengage are called by the
// single signaler thread. GripOn/Turn/Release/PushOn are called by at most
// one gripped client thread at a time.
type Wheel struct {
	m [3]sync.Mutex

	// wheelSide is written only by the signaler thread (Engage/Advance/
	// Disengage) and read by the client thread's GripOn to find the slot
	// one behind the signaler; it is an atomic purely so that cross-
	// thread read races on it, which are otherwise unavoidable given the
	// wheel's two independently-paced roles, are race-detector clean.
	wheelSide atomic.Int32

	clientSide atomic.Int32
	gripped    atomic.Bool
}

// New returns a disengaged Wheel, ready for Engage.
func New() *Wheel {
	w := &Wheel{}
	w.wheelSide.Store(invalid)
	w.clientSide.Store(invalid)
	return w
}

// Engage acquires M[0] and marks the Wheel engaged.
func (w *Wheel) Engage() {
	if w.wheelSide.Load() != invalid {
		mgdiag.Fatal("wheel.Engage: already engaged", mgerr.BUSY)
	}
	w.m[0].Lock()
	w.wheelSide.Store(0)
}

// Advance moves the signaler to the next slot modulo 3, the same
// acquire-then-release pattern as Toggle.Flip, generalized to a three-slot
// ring so a gripped client sitting one slot behind never collides with
// the slot the signaler is about to vacate.
func (w *Wheel) Advance() {
	side := w.wheelSide.Load()
	if side == invalid {
		mgdiag.Fatal("wheel.Advance: not engaged", mgerr.BUSY)
	}
	next := (side + 1) % 3
	w.m[next].Lock()
	w.m[side].Unlock()
	w.wheelSide.Store(next)
}

// Disengage releases the currently-held mutex.
func (w *Wheel) Disengage() {
	side := w.wheelSide.Load()
	if side == invalid {
		mgdiag.Fatal("wheel.Disengage: not engaged", mgerr.BUSY)
	}
	w.m[side].Unlock()
	w.wheelSide.Store(invalid)
}

// GripOn attaches the calling client one slot behind the signaler's
// current side and acquires that slot's mutex. Precondition: no other
// client is currently gripped.
func (w *Wheel) GripOn() {
	if w.gripped.Load() {
		mgdiag.Fatal("wheel.GripOn: already gripped", mgerr.BUSY)
	}
	side := w.wheelSide.Load() - 1
	if side < 0 {
		side += 3
	}
	w.m[side].Lock()
	w.clientSide.Store(side)
	w.gripped.Store(true)
}

// Turn advances the client to the next slot, blocking iff the wheel has
// not Advanced since the client's last Turn/GripOn.
func (w *Wheel) Turn() {
	if !w.gripped.Load() {
		mgdiag.Fatal("wheel.Turn: not gripped", mgerr.BUSY)
	}
	side := int(w.clientSide.Load())
	next := (side + 1) % 3
	w.m[next].Lock()
	w.m[side].Unlock()
	w.clientSide.Store(int32(next))
}

// Release releases the client's currently-held mutex and detaches it from
// the wheel.
func (w *Wheel) Release() {
	if !w.gripped.Load() {
		mgdiag.Fatal("wheel.Release: not gripped", mgerr.BUSY)
	}
	side := int(w.clientSide.Load())
	w.m[side].Unlock()
	w.clientSide.Store(int32(invalid))
	w.gripped.Store(false)
}

// PushOn is the toggle-compatible convenience used when no client stays
// gripped between events: it grips, then immediately releases once,
// equivalent to a single Toggle.PushOn call.
func (w *Wheel) PushOn() {
	w.GripOn()
	w.Release()
}

// Close reports mgerr.BUSY if the Wheel is still engaged or has a gripped
// client.
func (w *Wheel) Close() error {
	if w.wheelSide.Load() != invalid || w.gripped.Load() {
		return mgerr.BUSY
	}
	return nil
}
