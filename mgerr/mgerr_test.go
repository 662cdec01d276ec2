// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mgerr_test

import (
	"errors"
	"testing"

	"github.com/mutexgear/go-mutexgear/mgerr"
	"github.com/stretchr/testify/assert"
)

func TestCodeIsError(t *testing.T) {
	var err error = mgerr.BUSY
	assert.True(t, errors.Is(err, mgerr.BUSY))
	assert.False(t, errors.Is(err, mgerr.INVAL))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "BUSY", mgerr.BUSY.String())
	assert.Equal(t, "INVAL", mgerr.INVAL.String())
	assert.Equal(t, "NOMEM", mgerr.NOMEM.String())
}

func TestErrno(t *testing.T) {
	err := mgerr.Errno{Errno: 5}
	assert.Contains(t, err.Error(), "5")
}
