// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package ratecodec

import (
	"fmt"
	"strings"
)

// periods accepted after the slash, any case-insensitive prefix matches.
// Order matters: "m" is a minute, not a month or anything else.
var periods = []unit{
	{"second", 1},
	{"minute", 60},
	{"hour", 60 * 60},
	{"day", 24 * 60 * 60},
}

// renderUnits are scanned coarse to fine when rendering a cost.
var renderUnits = []unit{
	{"day", Scale * 24 * 60 * 60},
	{"hour", Scale * 60 * 60},
	{"min", Scale * 60},
	{"sec", Scale},
}

func lookupPeriod(s string) (uint32, error) {
	if len(s) == 0 {
		return 0, ErrEmptyPeriod
	}
	for _, p := range periods {
		if len(s) <= len(p.name) && strings.EqualFold(p.name[:len(s)], s) {
			return p.mult, nil
		}
	}
	return 0, ErrUnknownPeriod
}

// ParseRate parses a packet rate like "10", "10/sec" or "3/h".
func ParseRate(text string) (Rate, error) {
	num, period, hasPeriod := strings.Cut(text, "/")

	mult := uint32(1)
	if hasPeriod {
		v, err := lookupPeriod(period)
		if err != nil {
			return Rate{}, fmt.Errorf("invalid rate %q: %w", text, err)
		}
		mult = v
	}

	v, err := parseMagnitude(num)
	if err == nil && v == 0 {
		err = ErrBadValue
	}
	if err != nil {
		return Rate{}, fmt.Errorf("invalid rate %q: %w", text, err)
	}

	var cost uint32
	if v <= maxUint32 {
		cost = Scale * mult / uint32(v)
	}
	if cost == 0 {
		// the rate maps to infinity, 1/day is the slowest one
		// can ask for, so there is no such issue on the other end.
		return Rate{}, fmt.Errorf("invalid rate %q: %w", text, ErrRateTooFast)
	}

	return Rate{Cost: cost, Multiplier: mult}, nil
}

// unitFits reports whether u still describes cost: the unit is not
// shorter than one token and the integer rate it yields is not
// smaller than the remainder it drops.
func unitFits(u unit, cost uint32) bool {
	return cost <= u.mult && u.mult/cost >= u.mult%cost
}

// RenderRate returns the text form of a packet rate cost and the
// length of the chosen period in milliseconds. Day is the coarsest
// unit, finer ones are taken for as long as they fit.
// A zero cost renders as "inf" with a zero quantum.
func RenderRate(cost uint32) (string, uint32) {
	if cost == 0 {
		return "inf", 0
	}

	i := 1
	for i < len(renderUnits) && unitFits(renderUnits[i], cost) {
		i++
	}

	u := renderUnits[i-1]
	return fmt.Sprintf("%d/%s", u.mult/cost, u.name), u.mult / Scale * 1000
}
