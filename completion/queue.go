// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package completion implements the completion-item queue of spec.md
// §4.4: the low-level "wait for a specific item to finish" primitive every
// higher layer (rwlock, maintlock) is built from. A Queue's structural
// state is guarded by a single access mutex; each queued Item keeps its
// submitting Worker's mutex held for as long as the item stays queued, so
// a waiter blocking on that mutex inherits scheduling priority from the
// worker the same way it would blocking on an OS mutex.
package completion

import (
	"sync"
	"sync/atomic"

	"github.com/mutexgear/go-mutexgear/dlist"
	"github.com/mutexgear/go-mutexgear/internal/mgdiag"
	"github.com/mutexgear/go-mutexgear/mgerr"
)

// Queue is a plain completion queue: enqueue, dequeue-by-item, wait-on-
// tail. Its zero value is not usable; construct with NewQueue.
type Queue struct {
	mu    sync.Mutex // the access mutex "A".
	head  dlist.Link[Item]
	count atomic.Int64 // non-sentinel items currently linked; maintained under mu, read lock-free for fast-path probes.
}

// NewQueue returns an empty, ready-to-use Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.head.MakeEmpty()
	return q
}

// Len returns the number of non-sentinel items currently in the queue. It
// is read without acquiring the access mutex and is intended only for
// fast-path, best-effort probes (e.g. rwlock's try-write fast path);
// callers needing a linearizable answer must instead inspect EmptyLocked
// under their own Lock/Unlock of the queue.
func (q *Queue) Len() int64 {
	return q.count.Load()
}

// Lock acquires the queue's access mutex, for callers (rwlock, maintlock)
// that need to group several queue operations into one critical section.
func (q *Queue) Lock() { q.mu.Lock() }

// Unlock releases the queue's access mutex.
func (q *Queue) Unlock() { q.mu.Unlock() }

// TryLock attempts to acquire the access mutex without blocking.
func (q *Queue) TryLock() bool { return q.mu.TryLock() }

// Enqueue inserts item at the tail of the queue under worker's submission.
// Precondition: worker's mutex is already locked by the caller, and item
// is currently unlinked; violating either is a programmer error.
func (q *Queue) Enqueue(worker *Worker, item *Item) {
	q.mu.Lock()
	q.EnqueueLocked(worker, item)
	q.mu.Unlock()
}

// EnqueueLocked is Enqueue for a caller already holding the access mutex
// (q.Lock()).
func (q *Queue) EnqueueLocked(worker *Worker, item *Item) {
	if item.link.IsLinked() {
		mgdiag.Fatal("completion.Enqueue: item already linked", mgerr.BUSY)
	}
	item.worker = worker
	item.state.Store(int32(stateQueued))
	item.link.LinkBefore(&q.head)
	if !item.sentinel {
		q.count.Add(1)
	}
}

// Dequeue unlinks item from the queue and releases its worker's mutex,
// waking any waiter blocked in WaitFor on that item.
func (q *Queue) Dequeue(item *Item) {
	q.mu.Lock()
	worker := q.dequeueLockedNoRelease(item)
	q.mu.Unlock()
	worker.Unlock()
}

// DequeueLocked is the structural half of Dequeue for a caller already
// holding the access mutex; the caller is responsible for unlocking the
// queue and then the returned Worker, in that order, exactly as Dequeue
// does, so that WaitFor's priority-inheriting handoff is preserved.
func (q *Queue) DequeueLocked(item *Item) *Worker {
	return q.dequeueLockedNoRelease(item)
}

func (q *Queue) dequeueLockedNoRelease(item *Item) *Worker {
	if !item.link.IsLinked() {
		mgdiag.Fatal("completion.Dequeue: item not linked", mgerr.BUSY)
	}
	item.link.Unlink()
	item.state.Store(int32(stateFree))
	if !item.sentinel {
		q.count.Add(-1)
	}
	worker := item.worker
	item.worker = nil
	return worker
}

// UnlinkLocked removes item from the queue without releasing its worker's
// mutex. It is for internal moves of an item between two queues that
// represent the same uninterrupted logical hold (e.g. rwlock folding a
// staged reader into its live acquired-reads queue): unlike Dequeue, the
// worker's mutex stays locked throughout. The caller must hold the access
// mutex.
func (q *Queue) UnlinkLocked(item *Item) {
	if !item.link.IsLinked() {
		mgdiag.Fatal("completion.UnlinkLocked: item not linked", mgerr.BUSY)
	}
	item.link.Unlink()
	item.state.Store(int32(stateFree))
	if !item.sentinel {
		q.count.Add(-1)
	}
}

// EmptyLocked reports whether the queue holds no non-sentinel items. The
// caller must hold the access mutex.
func (q *Queue) EmptyLocked() bool {
	return q.tailLocked() == nil
}

// TailLocked returns the last non-sentinel item in the queue, or nil if
// there is none. The caller must hold the access mutex.
func (q *Queue) TailLocked() *Item {
	return q.tailLocked()
}

func (q *Queue) tailLocked() *Item {
	for n := q.head.Prev(); n != &q.head; n = n.Prev() {
		if !n.Owner.sentinel {
			return n.Owner
		}
	}
	return nil
}

// InsertAfterLocked links item into the queue immediately after mark,
// used by the TRDL variant to place try-readers after the zone separator.
// The caller must hold the access mutex.
func (q *Queue) InsertAfterLocked(worker *Worker, item *Item, mark *Item) {
	if item.link.IsLinked() {
		mgdiag.Fatal("completion.InsertAfterLocked: item already linked", mgerr.BUSY)
	}
	item.worker = worker
	item.state.Store(int32(stateQueued))
	item.link.LinkAfter(&mark.link)
	if !item.sentinel {
		q.count.Add(1)
	}
}

// PlaceSentinelFront links a sentinel item (see NewSentinelItem) at the
// front of the queue, establishing it as a fixed zone boundary. Used once,
// at construction, by the TRDL rwlock variant; the sentinel is never
// dequeued through the normal Worker-mutex path since it represents no
// real waiter.
func (q *Queue) PlaceSentinelFront(item *Item) {
	q.mu.Lock()
	item.state.Store(int32(stateQueued))
	item.link.LinkAfter(&q.head)
	q.mu.Unlock()
}

// WaitFor blocks the calling goroutine until item leaves whatever queue it
// is currently linked into. waiter serializes repeated use of the same
// Waiter by a single thread; it holds no relationship to which queue item
// lives in, matching spec.md §4.4's "wait_for(queue, waiter, item)" being
// expressible purely in terms of the item's worker.
//
// The caller is expected to have established, by its own synchronization
// (typically holding the queue's access mutex just before calling this),
// that item is still linked and item.worker is still valid; WaitFor itself
// does not touch any Queue's access mutex, so a caller coordinating a
// multi-step protocol (rwlock's wr_lock loop) is free to release the
// access mutex before calling WaitFor and reacquire it after, exactly as
// spec.md §4.5.1 step 4 describes.
func WaitFor(waiter *Waiter, item *Item) {
	waiter.mu.Lock()
	defer waiter.mu.Unlock()

	worker := item.worker
	worker.Lock()
	worker.Unlock()
}
