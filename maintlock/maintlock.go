// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package maintlock implements the "quiesce-and-drain" lock of spec.md
// §4.6: readers register with try_rdlock, a single maintainer sets
// maintenance mode to stop new admissions, waits for every already-
// admitted reader to release, does its work, then clears the mode.
package maintlock

import (
	"sync/atomic"

	"github.com/mutexgear/go-mutexgear/completion"
	"github.com/mutexgear/go-mutexgear/internal/mgdiag"
	"github.com/mutexgear/go-mutexgear/mgattr"
	"github.com/mutexgear/go-mutexgear/mgerr"
)

// MaintLock is a quiesce-and-drain lock. The zero value is not usable;
// construct with New.
type MaintLock struct {
	attr mgattr.MaintLockAttr

	acquiredReads *completion.DrainableQueue // readers currently admitted.
	awaitedReads  *completion.Queue          // batch the maintainer drains into and waits on.

	maintenance atomic.Bool
}

// New constructs a MaintLock from the given attributes.
func New(attr mgattr.MaintLockAttr) *MaintLock {
	return &MaintLock{
		attr:          attr,
		acquiredReads: completion.NewDrainableQueue(),
		awaitedReads:  completion.NewQueue(),
	}
}

// TryRdLock admits a reader if maintenance mode is not set. On success it
// returns a token identifying the drain generation this reader belongs
// to; the token is informational only (spec.md §4.6) and is not required
// for a correct RdUnlock.
func (ml *MaintLock) TryRdLock(w *completion.Worker, item *completion.Item) (token uint64, err error) {
	if ml.maintenance.Load() {
		return 0, mgerr.BUSY
	}

	w.Lock()
	ml.acquiredReads.Lock()
	if ml.maintenance.Load() {
		ml.acquiredReads.Unlock()
		w.Unlock()
		return 0, mgerr.BUSY
	}
	token = ml.acquiredReads.NextDrainIndex()
	ml.acquiredReads.EnqueueLocked(w, item)
	ml.acquiredReads.Unlock()
	return token, nil
}

// RdUnlock releases a read lock acquired via TryRdLock. item may still be
// in the live acquiredReads queue, or may already have been moved into
// awaitedReads by a concurrent maintainer's WaitRdUnlock; both cases are
// handled. token is accepted for API fidelity with spec.md §4.6 but is
// not consulted.
func (ml *MaintLock) RdUnlock(item *completion.Item, token uint64) {
	_ = token

	ml.acquiredReads.Lock()
	if item.InQueue() {
		w := ml.acquiredReads.DequeueLocked(item)
		ml.acquiredReads.Unlock()
		w.Unlock()
		return
	}
	ml.acquiredReads.Unlock()

	ml.awaitedReads.Lock()
	if item.InQueue() {
		w := ml.awaitedReads.DequeueLocked(item)
		ml.awaitedReads.Unlock()
		w.Unlock()
		return
	}
	ml.awaitedReads.Unlock()
	mgdiag.Fatal("maintlock.RdUnlock: item not held", mgerr.BUSY)
}

// SetMaintenance atomically sets the maintenance bit, blocking further
// TryRdLock admissions. It returns mgerr.BUSY if maintenance mode was
// already set. Some readers may still win a race and succeed TryRdLock
// briefly after this call returns, until they observe the store — spec.md
// §4.6 explicitly allows this ("No serialization").
func (ml *MaintLock) SetMaintenance() error {
	if !ml.maintenance.CompareAndSwap(false, true) {
		return mgerr.BUSY
	}
	return nil
}

// ClearMaintenance atomically clears the maintenance bit, restoring
// TryRdLock admission.
func (ml *MaintLock) ClearMaintenance() {
	ml.maintenance.Store(false)
}

// WaitRdUnlock drains every currently-admitted reader into an internal
// batch and blocks, one at a time, until each has released. It is not
// safe for concurrent use by more than one maintainer thread (spec.md
// §4.6: "single-threaded, one maintainer at a time").
func (ml *MaintLock) WaitRdUnlock(waiter *completion.Waiter) {
	ml.acquiredReads.DrainInto(ml.awaitedReads)

	for {
		ml.awaitedReads.Lock()
		tail := ml.awaitedReads.TailLocked()
		ml.awaitedReads.Unlock()
		if tail == nil {
			break
		}
		completion.WaitFor(waiter, tail)
	}
}

// Close reports mgerr.BUSY if any reader is currently admitted or pending
// drain.
func (ml *MaintLock) Close() error {
	if ml.acquiredReads.Len() != 0 || ml.awaitedReads.Len() != 0 {
		return mgerr.BUSY
	}
	return nil
}
