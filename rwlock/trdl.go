// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rwlock

import (
	"sync"
	"sync/atomic"

	"github.com/mutexgear/go-mutexgear/completion"
	"github.com/mutexgear/go-mutexgear/mgattr"
	"github.com/mutexgear/go-mutexgear/mgerr"
)

// TRDL is the try-read variant of RWLock (spec.md §4.5.6): it adds a
// non-blocking TryRdLock admission path gated by wrlockWaits, a fast
// atomic counter of writers currently competing (enqueued, staged, or
// holding the lock) so a try-reader can fail fast without ever touching
// the access mutex a writer might be holding.
type TRDL struct {
	*RWLock

	wrlockWaits      atomic.Int64
	tryReadQueueLock sync.Mutex
	separator        *completion.Item
}

// NewTRDL constructs a TRDL rwlock from the given attributes.
func NewTRDL(attr mgattr.RWLockAttr) *TRDL {
	rw := New(attr)
	sep := completion.NewSentinelItem()
	rw.acquiredReads.PlaceSentinelFront(sep)
	return &TRDL{RWLock: rw, separator: sep}
}

// WrLock overrides RWLock.WrLock to maintain wrlockWaits for the entire
// span a writer is enqueued, staged, or holding the lock, and to pulse the
// tryread_queue_lock gate spec.md:195 requires: "bumping wrlock_waits and
// briefly acquiring+releasing tryread_queue_lock as a memory-ordering
// gate". The pulse closes the race window between a concurrent
// TryRdLock's wrlockWaits load and its own entry into the gate: once this
// call's Lock/Unlock has completed, any TryRdLock that subsequently
// acquires tryReadQueueLock is guaranteed to observe this writer's
// incremented count.
func (t *TRDL) WrLock(w *completion.Worker, waiter *completion.Waiter, item *completion.Item, readersTillWP int) {
	t.wrlockWaits.Add(1)
	t.tryReadQueueLock.Lock()
	t.tryReadQueueLock.Unlock()
	t.RWLock.WrLock(w, waiter, item, readersTillWP)
}

// WrUnlock overrides RWLock.WrUnlock to release the wrlockWaits count
// taken by the matching WrLock.
func (t *TRDL) WrUnlock() {
	t.RWLock.WrUnlock()
	t.wrlockWaits.Add(-1)
}

// TryWrLock overrides RWLock.TryWrLock to maintain wrlockWaits across a
// successful attempt and pulse the tryread_queue_lock gate, mirroring
// WrLock's bracketing (see its comment for why the gate pulse is needed).
func (t *TRDL) TryWrLock() error {
	t.wrlockWaits.Add(1)
	t.tryReadQueueLock.Lock()
	t.tryReadQueueLock.Unlock()
	if err := t.RWLock.TryWrLock(); err != nil {
		t.wrlockWaits.Add(-1)
		return err
	}
	return nil
}

// TryRdLock attempts a non-blocking read-lock admission into the
// try-read zone, per spec.md §4.5.6. It returns mgerr.BUSY if any writer
// is currently competing for the lock.
func (t *TRDL) TryRdLock(w *completion.Worker, item *completion.Item) error {
	if t.wrlockWaits.Load() != 0 {
		return mgerr.BUSY
	}

	t.tryReadQueueLock.Lock()
	defer t.tryReadQueueLock.Unlock()

	// Re-test under the gate: a writer's WrLock/TryWrLock pulses
	// tryReadQueueLock (Lock then immediate Unlock) right after
	// incrementing wrlockWaits, so any TryRdLock that gets past this
	// Lock() has a happens-before edge from that increment — closing the
	// race between the fast test above and a writer's concurrent bump.
	if t.wrlockWaits.Load() != 0 {
		return mgerr.BUSY
	}

	w.Lock()
	t.acquiredReads.Lock()
	t.acquiredReads.InsertAfterLocked(w, item, t.separator)
	t.acquiredReads.Unlock()
	return nil
}
