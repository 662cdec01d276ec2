// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rwlock implements the writer-priority reader/writer lock of
// spec.md §4.5, the reference design of this module: a shared/exclusive
// lock built entirely on top of package completion's queues, with no
// condition variables or polling anywhere in the wait paths. See
// SPEC_FULL.md for the TRDL (try-read) variant in trdl.go, which embeds a
// *RWLock and adds the separator-zone try-read admission path.
package rwlock

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/mutexgear/go-mutexgear/completion"
	"github.com/mutexgear/go-mutexgear/internal/mgdiag"
	"github.com/mutexgear/go-mutexgear/mgattr"
	"github.com/mutexgear/go-mutexgear/mgerr"
)

// RWLock is a writer-priority shared/exclusive lock. The zero value is
// not usable; construct with New.
type RWLock struct {
	attr mgattr.RWLockAttr

	acquiredReads *completion.Queue          // readers currently holding the lock.
	waitingWrites *completion.Queue          // writers waiting for readers to drain.
	waitingReads  *completion.DrainableQueue // readers staged behind a pending writer.
	readWaitDrain *completion.Queue          // batch a staging drain lands in.
	express       completion.ExpressStack    // lock-free newcomer-reader fast path.

	readerPushLocks [4]sync.Mutex
	numChannels     int
	rrCounter       atomic.Uint32

	// writerPriority counts writers that have asserted the
	// writer-priority bit and not yet released the write lock. It is
	// incremented exactly once per writer that crosses its
	// readers_till_wp threshold and decremented on that writer's
	// WrUnlock; readers treat "count > 0" as the bit being set. This
	// makes the flag self-resetting without needing to identify which
	// specific writer last set it, an Open-Question resolution recorded
	// in DESIGN.md.
	writerPriority atomic.Int64

	// heldPriority records, for the single writer currently holding the
	// lock, whether its WrLock call asserted writer priority — read and
	// written only by that writer, since at most one goroutine holds
	// a write lock at a time.
	heldPriority bool
}

// New constructs an RWLock from the given attributes.
func New(attr mgattr.RWLockAttr) *RWLock {
	n := attr.WriteChannels
	if n <= 0 {
		n = 1
	}
	return &RWLock{
		attr:          attr,
		acquiredReads: completion.NewQueue(),
		waitingWrites: completion.NewQueue(),
		waitingReads:  completion.NewDrainableQueue(),
		readWaitDrain: completion.NewQueue(),
		numChannels:   n,
	}
}

func (rw *RWLock) channelFor(waiter *completion.Waiter) int {
	if rw.attr.RoundRobinWriter {
		return int(rw.rrCounter.Add(1)-1) % rw.numChannels
	}
	h := uintptr(unsafe.Pointer(waiter))
	return int(h % uintptr(rw.numChannels))
}

// WrLock acquires the lock for exclusive (writer) access, per spec.md
// §4.5.1. readersTillWP controls writer-priority onset: 0 asserts it
// immediately; a positive N lets N more readers' departures complete
// before asserting it; a negative value never asserts it for this call
// (fair, reader-friendly mode).
func (rw *RWLock) WrLock(w *completion.Worker, waiter *completion.Waiter, item *completion.Item, readersTillWP int) {
	rw.heldPriority = false

	// Step 1: fast path — no readers at all.
	rw.acquiredReads.Lock()
	if rw.acquiredReads.EmptyLocked() && rw.express.Empty() {
		return // holding A.
	}
	rw.acquiredReads.Unlock()

	// Step 2: enqueue into waiting_writes under this writer's worker.
	w.Lock()
	rw.waitingWrites.Enqueue(w, item)

	// Step 3: pick a wait channel and hold it for the duration of the wait.
	k := rw.channelFor(waiter)
	rw.readerPushLocks[k].Lock()

	assertedPriority := readersTillWP == 0
	if assertedPriority {
		rw.writerPriority.Add(1)
	}
	remaining := readersTillWP

	// Step 4: drain existing readers one at a time.
	for {
		rw.acquiredReads.Lock()
		rw.express.DrainInto(rw.acquiredReads)
		tail := rw.acquiredReads.TailLocked()
		if tail == nil {
			break // exit loop holding A.
		}
		rw.acquiredReads.Unlock()

		completion.WaitFor(waiter, tail)

		if readersTillWP > 0 && remaining > 0 {
			remaining--
			if remaining == 0 && !assertedPriority {
				assertedPriority = true
				rw.writerPriority.Add(1)
			}
		}
	}

	rw.readerPushLocks[k].Unlock()
	rw.waitingWrites.Dequeue(item) // unlinks and releases w; wakes the next writer or a staged reader.

	rw.heldPriority = assertedPriority
	// Return holding A (rw.acquiredReads).
}

// WrUnlock releases a write lock acquired via WrLock or TryWrLock.
func (rw *RWLock) WrUnlock() {
	if rw.heldPriority {
		rw.writerPriority.Add(-1)
		rw.heldPriority = false
	}
	rw.acquiredReads.Unlock()
}

// TryWrLock attempts to acquire the write lock without blocking, per
// spec.md §4.5.5. It returns mgerr.BUSY if any reader currently holds the
// lock.
func (rw *RWLock) TryWrLock() error {
	if rw.acquiredReads.Len() != 0 || !rw.express.Empty() {
		return mgerr.BUSY
	}
	if !rw.acquiredReads.TryLock() {
		return mgerr.BUSY
	}
	if !rw.acquiredReads.EmptyLocked() || !rw.express.Empty() {
		rw.acquiredReads.Unlock()
		return mgerr.BUSY
	}
	rw.heldPriority = false
	return nil // holding A.
}

// RdLock acquires the lock for shared (reader) access, per spec.md §4.5.3.
func (rw *RWLock) RdLock(w *completion.Worker, waiter *completion.Waiter, item *completion.Item) {
	w.Lock()

	if rw.waitingWrites.Len() == 0 && rw.writerPriority.Load() == 0 {
		if rw.express.TryPush(item, completion.DefaultExpressAttempts) {
			if rw.acquiredReads.Len() > 0 {
				return // admitted; folded into acquired_reads lazily.
			}
			rw.acquiredReads.Lock()
			rw.express.DrainInto(rw.acquiredReads)
			rw.acquiredReads.Unlock()
			return
		}
	}

	rw.acquiredReads.Lock()
	if rw.writerPriority.Load() == 0 {
		rw.acquiredReads.EnqueueLocked(w, item)
		rw.express.DrainInto(rw.acquiredReads)
		rw.acquiredReads.Unlock()
		return
	}
	rw.acquiredReads.Unlock()

	rw.rdLockStaged(w, waiter, item)
}

// rdLockStaged implements spec.md §4.5.3 steps 3-5: the writer-priority
// staging path via waiting_reads.
func (rw *RWLock) rdLockStaged(w *completion.Worker, waiter *completion.Waiter, item *completion.Item) {
	rw.waitingReads.Lock()
	predecessor := rw.waitingReads.TailLocked()
	rw.waitingReads.EnqueueLocked(w, item)
	rw.waitingReads.Unlock()

	if predecessor == nil {
		// Leader: wait for the writer(s) ahead to finish, then release
		// the whole staged batch at once.
		rw.waitingWrites.Lock()
		lastWriter := rw.waitingWrites.TailLocked()
		rw.waitingWrites.Unlock()
		if lastWriter != nil {
			completion.WaitFor(waiter, lastWriter)
		}
		rw.waitingReads.DrainInto(rw.readWaitDrain)
	} else {
		// Follower: wait on the immediate predecessor's worker mutex.
		// The predecessor signals this wait by cycling its own worker
		// mutex (Unlock then immediately re-Lock) as it transitions out
		// of waiting_reads in foldStagedReader below — the same
		// signaling-edge idiom Toggle.Flip uses, chained one hop at a
		// time down the staged queue.
		completion.WaitFor(waiter, predecessor)
	}

	rw.foldStagedReader(w, item)
}

// foldStagedReader moves item out of readWaitDrain (where the leader's
// DrainInto placed the whole staged batch) and into acquiredReads,
// without releasing w's mutex — the reader's hold is continuous from
// admission through this fold. It then cycles w's mutex once, which wakes
// at most one follower blocked on it in rdLockStaged, propagating the
// release one hop further down the chain.
func (rw *RWLock) foldStagedReader(w *completion.Worker, item *completion.Item) {
	rw.readWaitDrain.Lock()
	rw.readWaitDrain.UnlinkLocked(item)
	rw.readWaitDrain.Unlock()

	rw.acquiredReads.Lock()
	rw.acquiredReads.EnqueueLocked(item.Worker(), item)
	rw.express.DrainInto(rw.acquiredReads)
	rw.acquiredReads.Unlock()

	w.Unlock()
	w.Lock()
}

// RdUnlock releases a read lock acquired via RdLock, per spec.md §4.5.4.
// item may currently be linked into acquiredReads directly, or may still
// be sitting on the express stack awaiting its first fold; both cases are
// handled under a single hold of the access mutex so the two checks below
// cannot race against a concurrent fold.
func (rw *RWLock) RdUnlock(item *completion.Item) {
	rw.acquiredReads.Lock()
	if item.InQueue() {
		worker := rw.acquiredReads.DequeueLocked(item)
		rw.acquiredReads.Unlock()
		worker.Unlock()
		return
	}
	worker, found := rw.express.ExtractAndFold(item, rw.acquiredReads)
	rw.acquiredReads.Unlock()
	if !found {
		mgdiag.Fatal("rwlock.RdUnlock: item not held", mgerr.BUSY)
		return
	}
	worker.Unlock()
}

// Close reports mgerr.BUSY if the lock currently has any reader or writer
// holding or waiting on it.
func (rw *RWLock) Close() error {
	if rw.acquiredReads.Len() != 0 || rw.waitingWrites.Len() != 0 || rw.waitingReads.Len() != 0 || !rw.express.Empty() {
		return mgerr.BUSY
	}
	// A held write lock is the access mutex itself.
	if !rw.acquiredReads.TryLock() {
		return mgerr.BUSY
	}
	rw.acquiredReads.Unlock()
	return nil
}
