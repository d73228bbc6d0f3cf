// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

// Package ratecodec converts between human rate expressions
// ("10/sec", "5mb/s", "burst 20k") and the fixed-point token bucket
// cost understood by the bpflimit kernel match.
//
// A cost is inversely proportional to the rate: the smaller the
// cost, the more packets (or bytes) are allowed per second.
// Packet rates use Scale units per second, byte rates use
// MaxUint32 divided by the number of 16-byte steps per second.
package ratecodec

import (
	"errors"
	"math"
	"strconv"
)

const (
	// Scale is the number of cost units in one second for packet rates.
	// It caps the rate at 10000/sec.
	Scale = 10000
	// ScaleV2 is the packet-rate scale of the 64-bit record revisions.
	ScaleV2 = 1000000

	// ByteShift makes byte accounting happen in 16-byte steps.
	ByteShift = 4
	// MinByteRate is the smallest byte rate, one accounting step per second.
	MinByteRate = 1 << ByteShift

	// BurstMax caps the burst of packet rates.
	BurstMax = 10000

	// ByteExpire and ByteExpireBurst are the default idle entry
	// lifetimes, in seconds, of byte-rate rules without and with a burst.
	ByteExpire      = 15
	ByteExpireBurst = 60
)

var (
	ErrBadValue        = errors.New("bad value")
	ErrEmptyPeriod     = errors.New("empty period")
	ErrUnknownPeriod   = errors.New("unknown period, want one of second, minute, hour, day")
	ErrUnknownUnit     = errors.New("unknown unit, want k or m")
	ErrRateTooFast     = errors.New("rate too fast")
	ErrRateTooHigh     = errors.New("rate too high")
	ErrRateTooLow      = errors.New("rate too low")
	ErrValueTooLarge   = errors.New("value too large")
	ErrBurstOutOfRange = errors.New("burst out of range")
	ErrBurstTooSmall   = errors.New("burst cannot be smaller")
)

// Rate is a parsed rate expression.
type Rate struct {
	// Cost is the packed rate stored in the record.
	Cost uint32
	// Multiplier is the length of the rate period in seconds, it sets
	// the default idle expiration of the rule. Byte rates always
	// report ByteExpire.
	Multiplier uint32
}

// Quantum returns the default expire value in milliseconds.
func (r Rate) Quantum() uint32 {
	return r.Multiplier * 1000
}

// unit is a textual multiplier, either a period or a byte size.
type unit struct {
	name string
	mult uint32
}

// parseMagnitude parses a string of decimal digits.
// Signs, spaces and empty strings are rejected.
func parseMagnitude(s string) (uint64, error) {
	if len(s) == 0 {
		return 0, ErrBadValue
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrBadValue
		}
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrValueTooLarge
	}
	return v, nil
}

// splitDigits splits s into the leading decimal digits and the rest.
func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

// sizeFactor returns the multiplier for a k/m size suffix.
func sizeFactor(c byte) (uint64, bool) {
	switch c {
	case 'k':
		return 1024, true
	case 'm':
		return 1024 * 1024, true
	}
	return 1, false
}

const maxUint32 = math.MaxUint32
