// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

// Package bpflimit builds, validates and renders the configuration
// record of the bpflimit match.
//
// A record is built once from rule options (Parse, ParseLegacy),
// then either encoded for the kernel (Encode) or rendered back as
// display text (Print) or rule options (Save). Rendering never
// changes the record.
package bpflimit

import (
	"github.com/vpnhouse/bpflimit/pkg/ratecodec"
)

const (
	DefaultBurst = 5
	// DefaultGCInterval is the hashtable gc interval in milliseconds.
	DefaultGCInterval = 1000
	// NameMaxLen is the longest name the IFNAMSIZ-sized field holds.
	NameMaxLen = ifNameSize - 1
)

// Config is the configuration record of a single rule.
// Avg holds a ratecodec cost: packet cost when Mode has no ModeBytes,
// byte cost otherwise. Burst is a packet count, or a multiplier of
// the byte cost in byte mode. Times are in milliseconds.
type Config struct {
	Name       string `yaml:"name"`
	Mode       Mode   `yaml:"mode"`
	Avg        uint32 `yaml:"avg"`
	Burst      uint32 `yaml:"burst"`
	Size       uint32 `yaml:"htable_size,omitempty"`
	Max        uint32 `yaml:"htable_max,omitempty"`
	GCInterval uint32 `yaml:"htable_gcinterval"`
	Expire     uint32 `yaml:"htable_expire"`
	Interval   uint32 `yaml:"interval,omitempty"`
	SrcMask    uint8  `yaml:"srcmask"`
	DstMask    uint8  `yaml:"dstmask"`
}

// NewConfig returns a record with the defaults of the given family.
func NewConfig(family Family) *Config {
	return &Config{
		Burst:      DefaultBurst,
		GCInterval: DefaultGCInterval,
		SrcMask:    family.MaskWidth(),
		DstMask:    family.MaskWidth(),
	}
}

// NewLegacyConfig returns a record with the defaults of revision 0,
// which has no prefix masks.
func NewLegacyConfig() *Config {
	return &Config{
		Burst:      DefaultBurst,
		GCInterval: DefaultGCInterval,
	}
}

// ByteMode reports whether Avg and Burst use the byte encoding.
func (c *Config) ByteMode() bool {
	return c.Mode&ModeBytes != 0
}

// BurstBytes returns the burst size in bytes of a byte-mode rule.
func (c *Config) BurstBytes() uint64 {
	if !c.ByteMode() {
		return 0
	}
	return uint64(ratecodec.CostToBytes(c.Avg)) * uint64(c.Burst)
}
