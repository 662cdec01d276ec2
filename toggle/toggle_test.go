// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package toggle_test

import (
	"sync"
	"testing"

	"github.com/mutexgear/go-mutexgear/mgerr"
	"github.com/mutexgear/go-mutexgear/toggle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPingPong is the S1 scenario from spec.md §8: a signaler flips 100
// times while a waiter pushes on 100 times, and no push_on may return
// before its matched flip.
func TestPingPong(t *testing.T) {
	const n = 100
	tg := toggle.New()

	var mu sync.Mutex
	flips := 0
	pushesAfter := make([]int, 0, n)

	var wg sync.WaitGroup
	wg.Add(2)

	tg.Engage()

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			tg.Flip()
			mu.Lock()
			flips++
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			tg.PushOn()
			mu.Lock()
			pushesAfter = append(pushesAfter, flips)
			mu.Unlock()
		}
	}()

	wg.Wait()
	tg.Disengage()

	require.Len(t, pushesAfter, n)
	assert.Equal(t, n, flips)
	// The i-th push_on (0-indexed) must observe at least i flips having
	// completed by the time it returns; push_on never runs ahead of its
	// matched flip.
	for i, seen := range pushesAfter {
		assert.GreaterOrEqualf(t, seen, i, "push_on #%d observed only %d flips", i, seen)
	}
}

func TestEngageDisengagePairing(t *testing.T) {
	tg := toggle.New()
	tg.Engage()
	err := tg.Close()
	assert.ErrorIs(t, err, mgerr.BUSY)
	tg.Disengage()
	assert.NoError(t, tg.Close())
}

func TestFlipWithoutEngagePanics(t *testing.T) {
	tg := toggle.New()
	assert.Panics(t, func() { tg.Flip() })
}
