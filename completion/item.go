// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package completion

import (
	"sync/atomic"

	"github.com/mutexgear/go-mutexgear/dlist"
)

// state is Item's tri-state lifecycle, supplementing spec.md §4.4 with the
// "preinitialized but not yet submitted" distinction original_source's
// item objects carry (see SPEC_FULL.md's supplemented-features note): a
// fresh Item is Free, becomes Express or Queued on admission to a Queue or
// ExpressStack, and returns to Free once dequeued.
type state int32

const (
	stateFree state = iota
	stateExpress
	stateQueued
)

// Item is an intrusive completion-queue node (spec.md §3's "completion
// item C"). While Queued or Express, its Worker's mutex is held by the
// worker that submitted it; the item itself is otherwise inert caller
// memory, never heap-managed by this package.
type Item struct {
	link   dlist.Link[Item]
	worker *Worker
	state  atomic.Int32

	// drainIndex records which DrainableQueue generation carried this
	// item, stamped by DrainableQueue.DrainInto.
	drainIndex uint64

	// sentinel marks an Item used purely as a zone separator (the TRDL
	// variant's try-read/normal-read boundary) rather than a real
	// reader's wait point; Queue's emptiness/tail walks skip it.
	sentinel bool
}

// NewItem returns a fresh, unlinked Item ready for Enqueue.
func NewItem() *Item {
	it := &Item{}
	it.link.Owner = it
	return it
}

// NewSentinelItem returns an Item marked as a zone separator: it never
// represents a real worker's wait point and is skipped by Queue's
// emptiness/tail walks. Used by package rwlock to implement the TRDL
// variant's try-read zone boundary (spec.md §4.5.6).
func NewSentinelItem() *Item {
	it := NewItem()
	it.sentinel = true
	return it
}

// IsLinked reports whether the item currently belongs to some Queue or
// ExpressStack.
func (it *Item) IsLinked() bool {
	return it.link.IsLinked() || state(it.state.Load()) == stateExpress
}

// InQueue reports whether the item is currently linked into an ordinary
// Queue ring (as opposed to sitting on an ExpressStack awaiting a fold).
func (it *Item) InQueue() bool {
	return it.link.IsLinked()
}

// Worker returns the Worker currently associated with this item, valid
// while the item is linked (Queued or Express).
func (it *Item) Worker() *Worker {
	return it.worker
}

// DrainIndex returns the drain generation this item was carried by, valid
// only while the item is linked into a batch produced by DrainInto.
func (it *Item) DrainIndex() uint64 {
	return it.drainIndex
}
