// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package ratecodec

import (
	"fmt"
	"strings"
)

// byteUnits are ordered coarse to fine, the last one has no name.
var byteUnits = []struct {
	name   string
	thresh uint64
}{
	{"m", 1024 * 1024},
	{"k", 1024},
	{"", 1},
}

const byteRateSuffix = "b/s"

// BytesToCost packs a bytes per second value.
func BytesToCost(bytes uint32) uint32 {
	return maxUint32 / ((bytes >> ByteShift) + 1)
}

// CostToBytes returns the bytes per second a cost allows, rounded
// down to the 16-byte accounting step. It is exact for rates below
// one megabyte per second, coarser costs lose precision.
func CostToBytes(cost uint32) uint32 {
	r := uint32(maxUint32)
	if cost != 0 {
		r = maxUint32 / cost
	}
	return (r - 1) << ByteShift
}

// ParseByteRate parses a byte rate like "512b/s", "64kb/s" or "5mb/s".
// ok is false when text is not a byte rate at all, so the caller
// may try ParseRate; any error comes with ok set.
func ParseByteRate(text string) (r Rate, ok bool, err error) {
	num, found := strings.CutSuffix(text, byteRateSuffix)
	if !found || len(num) == 0 {
		return Rate{}, false, nil
	}

	digits, suffix := splitDigits(num)
	factor := uint64(1)
	switch len(suffix) {
	case 0:
	case 1:
		f, known := sizeFactor(suffix[0])
		if !known {
			return Rate{}, true, fmt.Errorf("invalid rate %q: %w", text, ErrUnknownUnit)
		}
		factor = f
	default:
		return Rate{}, true, fmt.Errorf("invalid rate %q: %w", text, ErrBadValue)
	}

	v, err := parseMagnitude(digits)
	if err == nil && v == 0 {
		err = ErrBadValue
	}
	if err != nil {
		return Rate{}, true, fmt.Errorf("invalid rate %q: %w", text, err)
	}

	if v > maxUint32 || v*factor > maxUint32 {
		tmp := v
		if v <= maxUint32 {
			tmp = v * factor
		}
		return Rate{}, true, fmt.Errorf("invalid rate %q: %w %d (max %d)", text, ErrValueTooLarge, tmp, uint32(maxUint32))
	}

	if (v*factor)>>ByteShift == 0 {
		return Rate{}, true, fmt.Errorf("invalid rate %q: %w (min %db/s)", text, ErrRateTooLow, MinByteRate)
	}

	cost := BytesToCost(uint32(v * factor))
	if cost == 0 {
		return Rate{}, true, fmt.Errorf("invalid rate %q: %w", text, ErrRateTooHigh)
	}

	return Rate{Cost: cost, Multiplier: ByteExpire}, true, nil
}

// ByteBurstMultiplier converts a burst size in bytes into the number
// of cost units stored in the burst field of byte-rate rules.
func ByteBurstMultiplier(burstBytes uint32, cost uint32) (uint32, error) {
	step := CostToBytes(cost)
	if step == 0 {
		return 0, fmt.Errorf("%w (min %db/s)", ErrRateTooLow, MinByteRate)
	}
	if burstBytes < step {
		return 0, fmt.Errorf("%w than %db", ErrBurstTooSmall, step)
	}

	m := burstBytes / step
	if burstBytes%step != 0 {
		m++
	}
	return m, nil
}

// RenderByteRate returns the text form of a byte rate cost, the burst
// size text (empty when burst is zero) and the default expire value
// in milliseconds.
//
// The unit is the coarsest one whose truncated value packs back
// into the very same cost, so saved rules load back unchanged.
func RenderByteRate(cost uint32, burst uint32) (rate string, burstText string, quantum uint32) {
	r := uint64(CostToBytes(cost))

	i := 0
	for ; i < len(byteUnits)-1; i++ {
		u := byteUnits[i]
		if r >= u.thresh && BytesToCost(uint32(r&^(u.thresh-1))) == cost {
			break
		}
	}
	rate = fmt.Sprintf("%d%sb/s", r/byteUnits[i].thresh, byteUnits[i].name)

	if burst == 0 {
		return rate, "", ByteExpire * 1000
	}

	return rate, renderByteBurst(cost, r*uint64(burst), burst), ByteExpireBurst * 1000
}

// renderByteBurst picks the coarsest unit whose truncated value
// still packs into the same burst multiplier.
func renderByteBurst(cost uint32, r uint64, burst uint32) string {
	i := 0
	for ; i < len(byteUnits)-1; i++ {
		u := byteUnits[i]
		if r < u.thresh {
			continue
		}
		v := r &^ (u.thresh - 1)
		if v > maxUint32 {
			continue
		}
		if m, err := ByteBurstMultiplier(uint32(v), cost); err == nil && m == burst {
			break
		}
	}
	return fmt.Sprintf("%d%sb", r/byteUnits[i].thresh, byteUnits[i].name)
}
