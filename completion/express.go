// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package completion

import (
	"sync/atomic"

	"github.com/mutexgear/go-mutexgear/dlist"
)

// DefaultExpressAttempts is the CAS retry bound for ExpressStack.TryPush,
// matching spec.md §9's note that the original source uses 8 and the
// exact count is an implementation constant, not a guarantee.
const DefaultExpressAttempts = 8

// ExpressStack is the lock-free single-linked stack of newcomer readers
// described in spec.md §3 ("express_reads"), built directly on dlist's
// atomic prev cell rather than taking a structural-mutex round trip. Items
// pushed here are later folded into an ordinary Queue in bulk by
// DrainInto, under that queue's access mutex.
type ExpressStack struct {
	top atomic.Pointer[dlist.Link[Item]]
}

// TryPush attempts, up to attempts times, to CAS item onto the stack. It
// returns false if every attempt lost the race to a concurrent pusher,
// in which case the caller falls back to the access-mutex path (spec.md
// §4.5.3 step 1).
func (s *ExpressStack) TryPush(item *Item, attempts int) bool {
	for i := 0; i < attempts; i++ {
		old := s.top.Load()
		item.link.StorePrev(old)
		if s.top.CompareAndSwap(old, &item.link) {
			item.state.Store(int32(stateExpress))
			return true
		}
	}
	return false
}

// DrainInto atomically detaches every item currently on the stack and
// links them, in LIFO pop order, before dest's sentinel. The caller must
// hold dest's access mutex, matching the "fold express_reads into
// acquired_reads" step of spec.md §4.5.3/§4.5.4.
func (s *ExpressStack) DrainInto(dest *Queue) {
	n := s.top.Swap(nil)
	for n != nil {
		next := n.LoadPrev()
		item := n.Owner
		item.state.Store(int32(stateQueued))
		n.LinkBefore(&dest.head)
		if !item.sentinel {
			dest.count.Add(1)
		}
		n = next
	}
}

// ExtractAndFold detaches every item currently on the stack; target (if
// found) is left unlinked with its state reset to free, while every other
// detached item is folded into dest, exactly as DrainInto would. The
// caller must hold dest's access mutex. It returns target's Worker and
// true if target was found on the stack, or (nil, false) if not — the
// latter meaning target must already be linked into an ordinary Queue
// instead (spec.md §4.5.4 step 2 vs. step 3).
func (s *ExpressStack) ExtractAndFold(target *Item, dest *Queue) (*Worker, bool) {
	n := s.top.Swap(nil)
	var worker *Worker
	var found bool
	for n != nil {
		next := n.LoadPrev()
		item := n.Owner
		if item == target {
			item.state.Store(int32(stateFree))
			n.StorePrev(nil)
			worker = item.worker
			item.worker = nil
			found = true
		} else {
			item.state.Store(int32(stateQueued))
			n.LinkBefore(&dest.head)
			if !item.sentinel {
				dest.count.Add(1)
			}
		}
		n = next
	}
	return worker, found
}

// Empty reports whether the stack currently holds no items. It is a
// best-effort, lock-free probe.
func (s *ExpressStack) Empty() bool {
	return s.top.Load() == nil
}
