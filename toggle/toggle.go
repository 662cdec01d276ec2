// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package toggle implements the two-mutex ring described in spec.md §4.2:
// the smallest building block in this module, giving a single signaler
// thread a way to wake a single waiter thread, in order, using nothing but
// mutex acquisition and release. Package wheel extends the same idea to a
// three-mutex ring; neither wheel nor the completion queue imports it.
package toggle

import (
	"sync"

	"github.com/mutexgear/go-mutexgear/mgerr"
	"github.com/mutexgear/go-mutexgear/internal/mgdiag"
)

// invalid marks a disengaged Toggle's thumb index.
const invalid = -1

// Toggle is a two-mutex ring. Engage/Flip/Disengage are called by the
// single signaler thread; PushOn is called by the single waiter thread.
// A Toggle must not be used by more than one signaler or more than one
// waiter concurrently; it carries no internal locking of its own
// bookkeeping fields because the two roles never touch the same field.
type Toggle struct {
	m [2]sync.Mutex

	thumb int // signaler-owned: index of the mutex currently held, or invalid.
	push  int // waiter-owned: index of the mutex last targeted by PushOn.
}

// New returns a disengaged Toggle, ready for Engage.
func New() *Toggle {
	return &Toggle{thumb: invalid}
}

// Engage acquires M[0] and marks the Toggle engaged. Precondition: the
// Toggle is disengaged; violating it is a programmer error.
func (t *Toggle) Engage() {
	if t.thumb != invalid {
		mgdiag.Fatal("toggle.Engage: already engaged", mgerr.BUSY)
	}
	t.m[0].Lock()
	t.thumb = 0
}

// Flip moves the signaler from M[thumb] to M[1-thumb]: it acquires the
// other mutex first, then releases the one it was holding. Between the
// two, both mutexes are briefly held simultaneously — that overlap is the
// signaling edge that releases a waiter blocked in PushOn on the mutex
// just acquired.
func (t *Toggle) Flip() {
	if t.thumb == invalid {
		mgdiag.Fatal("toggle.Flip: not engaged", mgerr.BUSY)
	}
	next := 1 - t.thumb
	t.m[next].Lock()
	t.m[t.thumb].Unlock()
	t.thumb = next
}

// Disengage releases the currently-held mutex and returns the Toggle to
// the disengaged state.
func (t *Toggle) Disengage() {
	if t.thumb == invalid {
		mgdiag.Fatal("toggle.Disengage: not engaged", mgerr.BUSY)
	}
	t.m[t.thumb].Unlock()
	t.thumb = invalid
}

// PushOn blocks until the next Flip the signaler has not yet paired with
// a PushOn call. Successive PushOn calls observe successive Flips in
// strict order (spec.md §8's Toggle invariant).
func (t *Toggle) PushOn() {
	target := 1 - t.push
	t.m[target].Lock()
	t.m[target].Unlock()
	t.push = target
}

// Close reports mgerr.BUSY if the Toggle is still engaged, mirroring the
// original library's destroy-on-non-empty-object failure mode.
func (t *Toggle) Close() error {
	if t.thumb != invalid {
		return mgerr.BUSY
	}
	return nil
}
