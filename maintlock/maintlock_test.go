// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package maintlock_test

import (
	"testing"
	"time"

	"github.com/mutexgear/go-mutexgear/completion"
	"github.com/mutexgear/go-mutexgear/mgattr"
	"github.com/mutexgear/go-mutexgear/mgerr"
	"github.com/mutexgear/go-mutexgear/maintlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLock(t *testing.T) *maintlock.MaintLock {
	attr, err := mgattr.NewMaintLockAttr()
	require.NoError(t, err)
	return maintlock.New(attr)
}

// TestMaintenanceDrain is the S5 scenario from spec.md §8.
func TestMaintenanceDrain(t *testing.T) {
	ml := newLock(t)

	items := make([]*completion.Item, 3)
	tokens := make([]uint64, 3)
	for i := range items {
		it := completion.NewItem()
		tok, err := ml.TryRdLock(completion.NewWorker(), it)
		require.NoError(t, err)
		items[i] = it
		tokens[i] = tok
	}

	require.NoError(t, ml.SetMaintenance())

	_, err := ml.TryRdLock(completion.NewWorker(), completion.NewItem())
	assert.ErrorIs(t, err, mgerr.BUSY)

	waitDone := make(chan struct{})
	go func() {
		ml.WaitRdUnlock(completion.NewWaiter())
		close(waitDone)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-waitDone:
		t.Fatal("WaitRdUnlock returned before readers released")
	default:
	}

	for i, it := range items {
		ml.RdUnlock(it, tokens[i])
	}

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("WaitRdUnlock never returned")
	}

	ml.ClearMaintenance()

	fifthItem := completion.NewItem()
	_, err = ml.TryRdLock(completion.NewWorker(), fifthItem)
	require.NoError(t, err)
	ml.RdUnlock(fifthItem, 0)

	assert.NoError(t, ml.Close())
}

func TestSetMaintenanceTwiceFails(t *testing.T) {
	ml := newLock(t)
	require.NoError(t, ml.SetMaintenance())
	assert.ErrorIs(t, ml.SetMaintenance(), mgerr.BUSY)
	ml.ClearMaintenance()
}
