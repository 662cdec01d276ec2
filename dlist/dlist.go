// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dlist implements the intrusive, circular, doubly-linked ring
// used as the ordered sequence underneath every primitive in this module
// (spec.md §4.1). The original library generates two flavors of this list
// from a preprocessor template, one using real pointers and one using
// offsets relative to a shared base, to support placing the list in shared
// memory. Go generics express the single flavor this port needs directly;
// see SPEC_FULL.md's supplemented-features note on why the relative-offset
// flavor has no counterpart here.
package dlist

import "sync/atomic"

// Link is an intrusive ring node, normally embedded (by pointer) inside the
// owning struct. Owner is set by the embedder to recover that struct from
// a *Link[T] obtained by walking the ring. A Link used as a ring's sentinel
// head is initialized with MakeEmpty and is never itself considered "an
// element of the ring" by Next/Prev iteration idioms built on top of it.
//
// prev is accessed both under a caller-held mutex (ordinary ring splicing)
// and lock-free via atomic loads and stores (the express-item fast path in
// package completion, which repurposes this single cell as a Treiber-stack
// link rather than a ring pointer, and compare-and-swaps its own stack top).
// next is only ever touched under a caller-held mutex.
type Link[T any] struct {
	next  *Link[T]
	prev  atomic.Pointer[Link[T]]
	Owner *T
}

// New returns a freshly unlinked node owned by owner.
func New[T any](owner *T) *Link[T] {
	return &Link[T]{Owner: owner}
}

// MakeEmpty initializes l as an empty ring's sentinel: a single node whose
// next and prev both point to itself.
func (l *Link[T]) MakeEmpty() {
	l.next = l
	l.prev.Store(l)
}

// IsEmpty reports whether l, used as a ring sentinel, currently has no
// other elements linked into its ring.
func (l *Link[T]) IsEmpty() bool {
	return l.next == l
}

// IsLinked reports whether l is currently part of some ring (including
// being its own sentinel).
func (l *Link[T]) IsLinked() bool {
	return l.next != nil
}

// Next returns the node following l in its ring.
func (l *Link[T]) Next() *Link[T] {
	return l.next
}

// Prev returns the node preceding l in its ring, as last set by a
// LinkBefore/Unlink under the caller's mutex. Use LoadPrev for the
// lock-free view used by the express-item path.
func (l *Link[T]) Prev() *Link[T] {
	return l.prev.Load()
}

// LinkBefore inserts l into mark's ring, immediately before mark. The
// caller must hold whatever mutex protects the ring mark belongs to.
func (l *Link[T]) LinkBefore(mark *Link[T]) {
	p := mark.prev.Load()
	l.next = mark
	l.prev.Store(p)
	p.next = l
	mark.prev.Store(l)
}

// LinkAfter inserts l into mark's ring, immediately after mark.
func (l *Link[T]) LinkAfter(mark *Link[T]) {
	n := mark.next
	l.prev.Store(mark)
	l.next = n
	mark.next = l
	n.prev.Store(l)
}

// Unlink removes l from whatever ring it is currently linked into and
// resets it to the unlinked state. Unlinking a sentinel whose ring is
// non-empty leaves the remaining elements pointing at a detached node and
// must not be done; callers only unlink ordinary elements.
func (l *Link[T]) Unlink() {
	p := l.prev.Load()
	n := l.next
	p.next = n
	n.prev.Store(p)
	l.next = nil
	l.prev.Store(nil)
}

// SpliceAll moves every element out of l's ring (l itself must be a
// sentinel) and appends them, in order, immediately before dst, leaving l
// empty. Used by the completion queue's drain operation to move an entire
// live queue into a drained batch in O(1).
func (l *Link[T]) SpliceAll(dst *Link[T]) {
	if l.IsEmpty() {
		return
	}
	first := l.next
	last := l.prev.Load()

	dstPrev := dst.prev.Load()
	dstPrev.next = first
	first.prev.Store(dstPrev)
	last.next = dst
	dst.prev.Store(last)

	l.MakeEmpty()
}

// LoadPrev atomically loads the prev cell. Used by the lock-free
// express-item stack to read the "next" link of a Treiber-stack node
// (the stack repurposes prev rather than next because next is reserved
// for ring use once an item is folded into the ordinary queue).
func (l *Link[T]) LoadPrev() *Link[T] {
	return l.prev.Load()
}

// StorePrev atomically stores the prev cell.
func (l *Link[T]) StorePrev(v *Link[T]) {
	l.prev.Store(v)
}

// CompareAndSwapPrev atomically compares-and-swaps the prev cell.
func (l *Link[T]) CompareAndSwapPrev(old, new *Link[T]) bool {
	return l.prev.CompareAndSwap(old, new)
}
