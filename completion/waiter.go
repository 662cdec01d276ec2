// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package completion

import "sync"

// Waiter is a per-thread helper used when a thread wants to observe some
// other thread's completion item leave a queue (spec.md §3's "Waiter
// (R)"). It holds one transient mutex acquisition at a time and is
// reusable across independent WaitFor calls, but is not safe for
// concurrent use by more than one thread — "Wait is single-consumer per
// item" (spec.md §4.4).
type Waiter struct {
	mu sync.Mutex
}

// NewWaiter returns a ready-to-use Waiter.
func NewWaiter() *Waiter {
	return &Waiter{}
}
