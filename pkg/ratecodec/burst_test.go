// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package ratecodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBurst(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"1", 1},
		{"5", 5},
		{"10000", 10000},
		{"20k", 20 * 1024},
		{"20kb", 20 * 1024},
		{"2m", 2 * 1024 * 1024},
		{"2mb", 2 * 1024 * 1024},
		{"128b", 128},
		{"10001k", 10001 * 1024},
		{"4095m", 4095 * 1024 * 1024},
	}

	for _, tt := range tests {
		v, err := ParseBurst(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, v, tt.in)
	}
}

func TestParseBurst_Errors(t *testing.T) {
	tests := []struct {
		in  string
		err error
	}{
		{"0", ErrBurstOutOfRange},
		{"0k", ErrBurstOutOfRange},
		{"10001", ErrBurstOutOfRange},
		{"", ErrBurstOutOfRange},
		{"abc", ErrBurstOutOfRange},
		{"-1", ErrBurstOutOfRange},
		{"5x", ErrBurstOutOfRange},
		{"5kbit", ErrBurstOutOfRange},
		{"4294967296", ErrBurstOutOfRange},
		{"4096m", ErrValueTooLarge},
	}

	for _, tt := range tests {
		_, err := ParseBurst(tt.in)
		require.Error(t, err, tt.in)
		assert.ErrorIs(t, err, tt.err, tt.in)
	}

	_, err := ParseBurst("4096m")
	assert.Contains(t, err.Error(), "max 4095mb")

	_, err = ParseBurst("10001")
	assert.Contains(t, err.Error(), "(1-10000)")
}
