// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package completion

import "sync/atomic"

// DrainableQueue extends Queue with the atomic "splice everything into a
// batch" operation of spec.md §4.4: DrainInto moves every currently-queued
// item into a caller-provided destination Queue in one access-mutex
// critical section and stamps each moved item with a freshly issued,
// monotonically increasing drain index.
type DrainableQueue struct {
	Queue
	nextDrainIndex atomic.Uint64
}

// NewDrainableQueue returns an empty, ready-to-use DrainableQueue.
func NewDrainableQueue() *DrainableQueue {
	dq := &DrainableQueue{}
	dq.head.MakeEmpty()
	return dq
}

// NextDrainIndex returns the drain index that will be assigned by the
// next call to DrainInto, without consuming it. Used by callers (such as
// maintlock's try_rdlock) that need to hand a caller a token identifying
// "the generation this admission belongs to" before any drain has
// actually happened yet.
func (dq *DrainableQueue) NextDrainIndex() uint64 {
	return dq.nextDrainIndex.Load() + 1
}

// DrainInto splices every item out of dq into batch, preserving order,
// and returns the drain index stamped on each moved item. batch must be a
// distinct Queue the caller otherwise controls (typically a scratch Queue
// owned by the draining maintainer/writer, reset or discarded between
// drains).
func (dq *DrainableQueue) DrainInto(batch *Queue) uint64 {
	dq.mu.Lock()
	defer dq.mu.Unlock()

	idx := dq.nextDrainIndex.Add(1)

	batch.mu.Lock()
	movedCount := dq.count.Load()
	prevTail := batch.head.Prev()
	dq.head.SpliceAll(&batch.head)
	for n := prevTail.Next(); n != &batch.head; n = n.Next() {
		n.Owner.drainIndex = idx
	}
	batch.count.Add(movedCount)
	dq.count.Store(0)
	batch.mu.Unlock()

	return idx
}
