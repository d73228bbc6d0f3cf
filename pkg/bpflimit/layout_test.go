// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package bpflimit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSize(t *testing.T) {
	sizes := map[Revision]int{
		RevisionLegacy:  48,
		RevisionMtInfo1: 48,
		RevisionMtInfo2: 296,
		RevisionMtInfo3: 304,
	}
	for rev, want := range sizes {
		n, err := RecordSize(rev)
		require.NoError(t, err)
		assert.Equal(t, want, n, "revision %d", rev)

		b, err := (&Config{Name: "x"}).Encode(rev)
		require.NoError(t, err)
		assert.Len(t, b, want, "revision %d", rev)
	}

	_, err := RecordSize(Revision(4))
	require.Error(t, err)
}

func TestEncode_RoundTrip(t *testing.T) {
	packet := &Config{
		Name:       "ssh",
		Mode:       ModeHashSrcIP | ModeInvert,
		Avg:        1000,
		Burst:      5,
		Size:       1024,
		Max:        4096,
		GCInterval: 1000,
		Expire:     1000,
		SrcMask:    24,
		DstMask:    32,
	}
	bytes := &Config{
		Name:       "web",
		Mode:       ModeBytes | ModeHashDstIP,
		Avg:        131068,
		Burst:      4,
		GCInterval: 1000,
		Expire:     60000,
		SrcMask:    32,
		DstMask:    16,
	}

	for _, rev := range []Revision{RevisionMtInfo1, RevisionMtInfo2, RevisionMtInfo3} {
		for _, cfg := range []*Config{packet, bytes} {
			b, err := cfg.Encode(rev)
			require.NoError(t, err)

			decoded, err := Decode(rev, b)
			require.NoError(t, err)
			assert.Equal(t, cfg, decoded, "revision %d", rev)
		}
	}

	withInterval := *packet
	withInterval.Interval = 250
	b, err := withInterval.Encode(RevisionMtInfo3)
	require.NoError(t, err)
	decoded, err := Decode(RevisionMtInfo3, b)
	require.NoError(t, err)
	assert.Equal(t, &withInterval, decoded)

	legacy := *packet
	legacy.SrcMask, legacy.DstMask = 0, 0
	b, err = legacy.Encode(RevisionLegacy)
	require.NoError(t, err)
	decoded, err = Decode(RevisionLegacy, b)
	require.NoError(t, err)
	assert.Equal(t, &legacy, decoded)
}

func TestEncode_Offsets(t *testing.T) {
	cfg := &Config{
		Name:       "ssh",
		Mode:       ModeHashSrcIP,
		Avg:        1000,
		Burst:      5,
		GCInterval: 1000,
		Expire:     1000,
		Interval:   7,
		SrcMask:    24,
		DstMask:    16,
	}
	order := nativeEndian()

	b, err := cfg.Encode(RevisionMtInfo1)
	require.NoError(t, err)
	assert.Equal(t, "ssh\x00", string(b[:4]))
	assert.Equal(t, uint32(ModeHashSrcIP), order.Uint32(b[16:]))
	assert.Equal(t, uint32(1000), order.Uint32(b[20:]))
	assert.Equal(t, uint32(5), order.Uint32(b[24:]))
	assert.Equal(t, uint32(1000), order.Uint32(b[40:]))
	assert.Equal(t, []byte{24, 16}, b[44:46])

	b, err = cfg.Encode(RevisionMtInfo2)
	require.NoError(t, err)
	assert.Equal(t, uint64(100000), order.Uint64(b[256:]))
	assert.Equal(t, uint64(5), order.Uint64(b[264:]))
	assert.Equal(t, uint32(ModeHashSrcIP), order.Uint32(b[272:]))
	assert.Equal(t, uint32(1000), order.Uint32(b[288:]))
	assert.Equal(t, []byte{24, 16}, b[292:294])

	b, err = cfg.Encode(RevisionMtInfo3)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), order.Uint32(b[292:]))
	assert.Equal(t, []byte{24, 16}, b[296:298])

	cfg.Mode |= ModeBytes
	b, err = cfg.Encode(RevisionMtInfo2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), order.Uint64(b[256:]))
}

func TestEncode_Errors(t *testing.T) {
	_, err := (&Config{Name: "x"}).Encode(Revision(-1))
	require.Error(t, err)

	long := &Config{Name: strings.Repeat("a", 16)}
	_, err = long.Encode(RevisionMtInfo1)
	require.Error(t, err)
	_, err = long.Encode(RevisionMtInfo2)
	require.NoError(t, err)
}

func TestDecode_Errors(t *testing.T) {
	b, err := (&Config{Name: "x", Avg: 1}).Encode(RevisionMtInfo1)
	require.NoError(t, err)

	_, err = Decode(RevisionMtInfo1, b[:40])
	require.Error(t, err)

	_, err = Decode(Revision(9), b)
	require.Error(t, err)

	unterminated := append([]byte(nil), b...)
	copy(unterminated, strings.Repeat("a", 16))
	_, err = Decode(RevisionMtInfo1, unterminated)
	require.Error(t, err)

	badMode := append([]byte(nil), b...)
	nativeEndian().PutUint32(badMode[16:], 1<<12)
	_, err = Decode(RevisionMtInfo1, badMode)
	require.Error(t, err)

	withTail := append(append([]byte(nil), b...), 1, 2, 3, 4, 5, 6, 7, 8)
	cfg, err := Decode(RevisionMtInfo1, withTail)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Name)
}
