// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package completion

import "sync"

// Worker is a per-thread mutex source: every Item a thread submits to a
// Queue carries a reference to that thread's Worker rather than an item-
// private mutex, matching spec.md §3's "Worker (W) — a per-thread object
// owning a mutex that will be embedded in every completion item that
// thread submits." Callers must Lock a Worker before Enqueue-ing an Item
// through it, and the queue's Dequeue releases that lock on the caller's
// behalf.
type Worker struct {
	mu sync.Mutex
}

// NewWorker returns a ready-to-use, unlocked Worker.
func NewWorker() *Worker {
	return &Worker{}
}

// Lock acquires the worker's mutex. Call this before Queue.Enqueue.
func (w *Worker) Lock() {
	w.mu.Lock()
}

// TryLock attempts to acquire the worker's mutex without blocking.
func (w *Worker) TryLock() bool {
	return w.mu.TryLock()
}

// Unlock releases the worker's mutex directly. Queue.Dequeue releases it
// as part of removing the worker's item from its queue; callers of
// Queue.DequeueLocked call Unlock on the returned Worker themselves, and a
// worker that locked itself but never enqueued anything uses it too.
func (w *Worker) Unlock() {
	w.mu.Unlock()
}
