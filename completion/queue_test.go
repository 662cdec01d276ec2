// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package completion_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mutexgear/go-mutexgear/completion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueLinksItemAtTail(t *testing.T) {
	q := completion.NewQueue()
	w := completion.NewWorker()

	i1, i2, i3 := completion.NewItem(), completion.NewItem(), completion.NewItem()
	w.Lock()
	q.Enqueue(w, i1)
	require.True(t, i1.IsLinked())

	q.Lock()
	tail := q.TailLocked()
	q.Unlock()
	assert.Same(t, i1, tail)

	_ = i2
	_ = i3
}

// TestWaitForMatchesDequeue is the S6 scenario from spec.md §8: wait_for
// on a specific item returns only after that item, specifically, is
// dequeued — never earlier, regardless of other items being dequeued
// around it.
func TestWaitForMatchesDequeue(t *testing.T) {
	q := completion.NewQueue()
	w := completion.NewWorker()
	waiter := completion.NewWaiter()

	i1 := completion.NewItem()
	i2 := completion.NewItem()
	i3 := completion.NewItem()

	w.Lock()
	q.Enqueue(w, i1)

	w2 := completion.NewWorker()
	w2.Lock()
	q.Enqueue(w2, i2)

	w3 := completion.NewWorker()
	w3.Lock()
	q.Enqueue(w3, i3)

	var returned atomic.Bool
	done := make(chan struct{})
	go func() {
		completion.WaitFor(waiter, i2)
		returned.Store(true)
		close(done)
	}()

	// Give the waiter goroutine a chance to block on i2's worker.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, returned.Load())

	q.Dequeue(i1)
	time.Sleep(10 * time.Millisecond)
	assert.False(t, returned.Load(), "wait_for(I2) must not return after I1 is dequeued")

	q.Dequeue(i3)
	time.Sleep(10 * time.Millisecond)
	assert.False(t, returned.Load(), "wait_for(I2) must not return after I3 is dequeued")

	q.Dequeue(i2)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait_for(I2) did not return after I2 was dequeued")
	}
	assert.True(t, returned.Load())
}

func TestExpressStackFoldsIntoQueue(t *testing.T) {
	q := completion.NewQueue()
	var stack completion.ExpressStack

	w1, w2 := completion.NewWorker(), completion.NewWorker()
	i1, i2 := completion.NewItem(), completion.NewItem()
	w1.Lock()
	w2.Lock()

	require.True(t, stack.TryPush(i1, completion.DefaultExpressAttempts))
	require.True(t, stack.TryPush(i2, completion.DefaultExpressAttempts))
	assert.False(t, stack.Empty())

	q.Lock()
	stack.DrainInto(q)
	q.Unlock()

	assert.True(t, stack.Empty())
	assert.True(t, i1.IsLinked())
	assert.True(t, i2.IsLinked())
	assert.Equal(t, int64(2), q.Len())
}

func TestDrainableQueueStampsIndex(t *testing.T) {
	dq := completion.NewDrainableQueue()
	w1, w2 := completion.NewWorker(), completion.NewWorker()
	i1, i2 := completion.NewItem(), completion.NewItem()
	w1.Lock()
	w2.Lock()
	dq.Enqueue(w1, i1)
	dq.Enqueue(w2, i2)

	batch := completion.NewQueue()
	idx := dq.DrainInto(batch)
	assert.Equal(t, uint64(1), idx)
	assert.Equal(t, int64(2), batch.Len())
	assert.Equal(t, int64(0), dq.Len())
	assert.Equal(t, idx, i1.DrainIndex())
	assert.Equal(t, idx, i2.DrainIndex())

	batch.Dequeue(i1)
	batch.Dequeue(i2)
}

func TestConcurrentWorkersDrainCleanly(t *testing.T) {
	q := completion.NewQueue()
	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			w := completion.NewWorker()
			it := completion.NewItem()
			w.Lock()
			q.Enqueue(w, it)
			q.Dequeue(it)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(0), q.Len())
}
