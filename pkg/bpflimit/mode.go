// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package bpflimit

import (
	"fmt"
	"strings"
)

// Mode is the bitmask of hash keys and match flags.
type Mode uint32

const (
	ModeHashDstIP Mode = 1 << iota
	ModeHashDstPort
	ModeHashSrcIP
	ModeHashSrcPort
	ModeInvert
	ModeBytes
	ModeRateMatch
)

const (
	ModeHashKeys = ModeHashDstIP | ModeHashDstPort | ModeHashSrcIP | ModeHashSrcPort
	modeAll      = ModeHashKeys | ModeInvert | ModeBytes | ModeRateMatch
)

type modeName struct {
	mode Mode
	name string
}

// hashKeyNames are in display order.
var hashKeyNames = []modeName{
	{ModeHashSrcIP, "srcip"},
	{ModeHashSrcPort, "srcport"},
	{ModeHashDstIP, "dstip"},
	{ModeHashDstPort, "dstport"},
}

var flagNames = []modeName{
	{ModeInvert, "invert"},
	{ModeBytes, "bytes"},
	{ModeRateMatch, "rate-match"},
}

const modeNone = "none"

func splitModeList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '|'
	})
}

func lookupMode(names []modeName, tok string) (Mode, bool) {
	for _, n := range names {
		if n.name == tok {
			return n.mode, true
		}
	}
	return 0, false
}

// ParseMode parses a list of hash keys separated by ',' or '|',
// e.g. "srcip,dstport". "none" selects no key.
func ParseMode(s string) (Mode, error) {
	var m Mode
	for _, tok := range splitModeList(s) {
		if tok == modeNone {
			continue
		}
		k, ok := lookupMode(hashKeyNames, tok)
		if !ok {
			return 0, fmt.Errorf("unknown mode %q, want dstip, srcip, dstport or srcport", tok)
		}
		m |= k
	}
	return m, nil
}

// HasKeys reports whether any hash key is set.
func (m Mode) HasKeys() bool {
	return m&ModeHashKeys != 0
}

// Keys returns the hash key names joined with sep.
func (m Mode) Keys(sep string) string {
	var names []string
	for _, n := range hashKeyNames {
		if m&n.mode != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, sep)
}

func (m Mode) String() string {
	var names []string
	for _, set := range [][]modeName{hashKeyNames, flagNames} {
		for _, n := range set {
			if m&n.mode != 0 {
				names = append(names, n.name)
			}
		}
	}
	if unknown := m &^ modeAll; unknown != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(unknown)))
	}
	if len(names) == 0 {
		return modeNone
	}
	return strings.Join(names, ",")
}

func (m Mode) MarshalText() ([]byte, error) {
	if m&^modeAll != 0 {
		return nil, fmt.Errorf("unknown mode bits 0x%x", uint32(m&^modeAll))
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts hash keys and match flags.
func (m *Mode) UnmarshalText(raw []byte) error {
	var v Mode
	for _, tok := range splitModeList(string(raw)) {
		if tok == modeNone {
			continue
		}
		k, ok := lookupMode(hashKeyNames, tok)
		if !ok {
			k, ok = lookupMode(flagNames, tok)
		}
		if !ok {
			return fmt.Errorf("unknown mode %s", tok)
		}
		v |= k
	}

	*m = v
	return nil
}
