// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package bpflimit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/vpnhouse/bpflimit/pkg/ratecodec"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
)

// Revision selects the kernel record layout.
type Revision int

const (
	RevisionLegacy Revision = iota
	RevisionMtInfo1
	RevisionMtInfo2
	RevisionMtInfo3
)

// Only the userspace part of the records is handled; the kernel-private
// hashtable pointer that follows it is left to the kernel.
type recordLayout struct {
	nameSize int
	// wide layouts store avg and burst in 64 bits and lead with them.
	wide     bool
	masks    bool
	interval bool
}

var layouts = map[Revision]recordLayout{
	RevisionLegacy:  {nameSize: ifNameSize},
	RevisionMtInfo1: {nameSize: ifNameSize, masks: true},
	RevisionMtInfo2: {nameSize: nameMax, wide: true, masks: true},
	RevisionMtInfo3: {nameSize: nameMax, wide: true, masks: true, interval: true},
}

const recordAlign = 8

// avgScaleV2 converts packet costs to the wide layouts.
const avgScaleV2 = ratecodec.ScaleV2 / ratecodec.Scale

func layoutFor(rev Revision) (recordLayout, error) {
	l, ok := layouts[rev]
	if !ok {
		return recordLayout{}, xerror.EInvalidArgument(fmt.Sprintf("unknown record revision %d", rev), nil)
	}
	return l, nil
}

// RecordSize returns the encoded length of the given revision.
func RecordSize(rev Revision) (int, error) {
	l, err := layoutFor(rev)
	if err != nil {
		return 0, err
	}

	n := l.nameSize
	if l.wide {
		n = align(n, recordAlign) + 2*8 + 5*4
	} else {
		n += 7 * 4
	}
	if l.interval {
		n += 4
	}
	if l.masks {
		n += 2
	}
	return align(n, recordAlign), nil
}

func align(n int, to int) int {
	return (n + to - 1) / to * to
}

type recordWriter struct {
	b     []byte
	order binary.ByteOrder
}

func (w *recordWriter) name(s string, size int) {
	buf := make([]byte, size)
	copy(buf, s)
	w.b = append(w.b, buf...)
}

func (w *recordWriter) u8(v uint8) {
	w.b = append(w.b, v)
}

func (w *recordWriter) u32(v uint32) {
	var buf [4]byte
	w.order.PutUint32(buf[:], v)
	w.b = append(w.b, buf[:]...)
}

func (w *recordWriter) u64(v uint64) {
	var buf [8]byte
	w.order.PutUint64(buf[:], v)
	w.b = append(w.b, buf[:]...)
}

func (w *recordWriter) align() {
	for len(w.b)%recordAlign != 0 {
		w.b = append(w.b, 0)
	}
}

// Encode packs the record into the given kernel layout
// using the native byte order.
func (c *Config) Encode(rev Revision) ([]byte, error) {
	l, err := layoutFor(rev)
	if err != nil {
		return nil, err
	}
	if len(c.Name) >= l.nameSize {
		return nil, xerror.EInvalidField(fmt.Sprintf("name %q is too long for revision %d", c.Name, rev), "name", nil)
	}

	w := &recordWriter{order: nativeEndian()}
	w.name(c.Name, l.nameSize)
	if l.wide {
		avg := uint64(c.Avg)
		if !c.ByteMode() {
			avg *= avgScaleV2
		}
		w.align()
		w.u64(avg)
		w.u64(uint64(c.Burst))
		w.u32(uint32(c.Mode))
	} else {
		w.u32(uint32(c.Mode))
		w.u32(c.Avg)
		w.u32(c.Burst)
	}
	w.u32(c.Size)
	w.u32(c.Max)
	w.u32(c.GCInterval)
	w.u32(c.Expire)
	if l.interval {
		w.u32(c.Interval)
	}
	if l.masks {
		w.u8(c.SrcMask)
		w.u8(c.DstMask)
	}
	w.align()
	return w.b, nil
}

type recordReader struct {
	b     []byte
	off   int
	order binary.ByteOrder
}

func (r *recordReader) name(size int) (string, error) {
	raw := r.b[r.off : r.off+size]
	r.off += size
	i := bytes.IndexByte(raw, 0)
	if i < 0 {
		return "", errors.New("name is not terminated")
	}
	return string(raw[:i]), nil
}

func (r *recordReader) u8() uint8 {
	v := r.b[r.off]
	r.off++
	return v
}

func (r *recordReader) u32() uint32 {
	v := r.order.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *recordReader) u64() uint64 {
	v := r.order.Uint64(r.b[r.off:])
	r.off += 8
	return v
}

func (r *recordReader) align() {
	r.off = align(r.off, recordAlign)
}

// Decode unpacks a record of the given layout. Trailing bytes,
// such as the kernel-private part of the structure, are ignored.
func Decode(rev Revision, b []byte) (*Config, error) {
	l, err := layoutFor(rev)
	if err != nil {
		return nil, err
	}
	size, err := RecordSize(rev)
	if err != nil {
		return nil, err
	}
	if len(b) < size {
		return nil, xerror.EInvalidArgument(fmt.Sprintf("record is too short for revision %d: %d bytes, want %d", rev, len(b), size), nil)
	}

	r := &recordReader{b: b, order: nativeEndian()}
	c := &Config{}
	if c.Name, err = r.name(l.nameSize); err != nil {
		return nil, xerror.EInvalidArgument("invalid record", err)
	}

	var avg, burst uint64
	if l.wide {
		r.align()
		avg = r.u64()
		burst = r.u64()
		c.Mode = Mode(r.u32())
	} else {
		c.Mode = Mode(r.u32())
		avg = uint64(r.u32())
		burst = uint64(r.u32())
	}
	c.Size = r.u32()
	c.Max = r.u32()
	c.GCInterval = r.u32()
	c.Expire = r.u32()
	if l.interval {
		c.Interval = r.u32()
	}
	if l.masks {
		c.SrcMask = r.u8()
		c.DstMask = r.u8()
	}

	if c.Mode&^modeAll != 0 {
		return nil, xerror.EInvalidArgument(fmt.Sprintf("invalid record: unknown mode bits 0x%x", uint32(c.Mode&^modeAll)), nil)
	}
	if l.wide && !c.ByteMode() {
		avg /= avgScaleV2
	}
	if avg > math.MaxUint32 || burst > math.MaxUint32 {
		return nil, xerror.EInvalidArgument("invalid record: avg or burst does not fit 32 bits", nil)
	}
	c.Avg = uint32(avg)
	c.Burst = uint32(burst)
	return c, nil
}
