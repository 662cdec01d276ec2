// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlist_test

import (
	"testing"

	"github.com/mutexgear/go-mutexgear/dlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type elem struct {
	link dlist.Link[elem]
	val  int
}

func TestEmptyRing(t *testing.T) {
	var head dlist.Link[elem]
	head.MakeEmpty()
	assert.True(t, head.IsEmpty())
	assert.True(t, head.IsLinked())
}

func TestLinkBeforeOrder(t *testing.T) {
	var head dlist.Link[elem]
	head.MakeEmpty()

	a := &elem{val: 1}
	a.link.Owner = a
	b := &elem{val: 2}
	b.link.Owner = b
	c := &elem{val: 3}
	c.link.Owner = c

	a.link.LinkBefore(&head)
	b.link.LinkBefore(&head)
	c.link.LinkBefore(&head)

	require.False(t, head.IsEmpty())

	var order []int
	for n := head.Next(); n != &head; n = n.Next() {
		order = append(order, n.Owner.val)
	}
	assert.Equal(t, []int{1, 2, 3}, order)

	// prev chain must agree with next chain.
	var rev []int
	for n := head.Prev(); n != &head; n = n.Prev() {
		rev = append(rev, n.Owner.val)
	}
	assert.Equal(t, []int{3, 2, 1}, rev)
}

func TestUnlinkMiddle(t *testing.T) {
	var head dlist.Link[elem]
	head.MakeEmpty()

	a := &elem{val: 1}
	a.link.Owner = a
	b := &elem{val: 2}
	b.link.Owner = b
	c := &elem{val: 3}
	c.link.Owner = c
	a.link.LinkBefore(&head)
	b.link.LinkBefore(&head)
	c.link.LinkBefore(&head)

	b.link.Unlink()
	assert.False(t, b.link.IsLinked())

	var order []int
	for n := head.Next(); n != &head; n = n.Next() {
		order = append(order, n.Owner.val)
	}
	assert.Equal(t, []int{1, 3}, order)
}

func TestSpliceAll(t *testing.T) {
	var src, dst dlist.Link[elem]
	src.MakeEmpty()
	dst.MakeEmpty()

	a := &elem{val: 1}
	a.link.Owner = a
	b := &elem{val: 2}
	b.link.Owner = b
	a.link.LinkBefore(&src)
	b.link.LinkBefore(&src)

	d1 := &elem{val: 10}
	d1.link.Owner = d1
	d1.link.LinkBefore(&dst)

	src.SpliceAll(&dst)
	assert.True(t, src.IsEmpty())

	var order []int
	for n := dst.Next(); n != &dst; n = n.Next() {
		order = append(order, n.Owner.val)
	}
	assert.Equal(t, []int{10, 1, 2}, order)
}

func TestSpliceAllEmptySourceIsNoop(t *testing.T) {
	var src, dst dlist.Link[elem]
	src.MakeEmpty()
	dst.MakeEmpty()

	d1 := &elem{val: 10}
	d1.link.Owner = d1
	d1.link.LinkBefore(&dst)

	src.SpliceAll(&dst)
	assert.True(t, src.IsEmpty())

	var order []int
	for n := dst.Next(); n != &dst; n = n.Next() {
		order = append(order, n.Owner.val)
	}
	assert.Equal(t, []int{10}, order)
}

func TestCompareAndSwapPrevTreiberStack(t *testing.T) {
	var top dlist.Link[elem]

	a := &elem{val: 1}
	a.link.Owner = a
	b := &elem{val: 2}
	b.link.Owner = b

	// push a
	for {
		old := top.LoadPrev()
		a.link.StorePrev(old)
		if top.CompareAndSwapPrev(old, &a.link) {
			break
		}
	}
	// push b
	for {
		old := top.LoadPrev()
		b.link.StorePrev(old)
		if top.CompareAndSwapPrev(old, &b.link) {
			break
		}
	}

	// pop all, LIFO order.
	var order []int
	for n := top.LoadPrev(); n != nil; n = n.LoadPrev() {
		order = append(order, n.Owner.val)
	}
	assert.Equal(t, []int{2, 1}, order)
}
