// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package ratecodec

import (
	"fmt"
)

// ParseBurst parses a burst value. A plain number is a packet count
// in [1, BurstMax]. With a k, kb, m, mb or b suffix it is a size in
// bytes for byte-rate rules, then only the 32-bit limit applies.
func ParseBurst(text string) (uint32, error) {
	digits, suffix := splitDigits(text)
	v, err := parseMagnitude(digits)
	if err == nil && (v == 0 || v > maxUint32) {
		err = ErrBurstOutOfRange
	}
	if err != nil {
		return 0, burstRangeError(text)
	}

	factor := uint64(1)
	switch suffix {
	case "":
		if v > BurstMax {
			return 0, burstRangeError(text)
		}
	case "b":
	case "k", "kb", "m", "mb":
		factor, _ = sizeFactor(suffix[0])
	default:
		return 0, burstRangeError(text)
	}

	v *= factor
	if v > maxUint32 {
		return 0, fmt.Errorf("invalid burst %q: %w (max %dmb)", text, ErrValueTooLarge, uint32(maxUint32)/1024/1024)
	}
	return uint32(v), nil
}

func burstRangeError(text string) error {
	return fmt.Errorf("invalid burst %q: %w (1-%d)", text, ErrBurstOutOfRange, BurstMax)
}
