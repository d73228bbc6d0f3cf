// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package bpflimit

import (
	"fmt"
	"strings"
)

// Family is the address family a rule is built for,
// it sets the default and the maximum prefix lengths.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(s) {
	case "ipv4", "inet", "4":
		return FamilyIPv4, nil
	case "ipv6", "inet6", "6":
		return FamilyIPv6, nil
	default:
		return 0, fmt.Errorf("unknown family %s", s)
	}
}

// MaskWidth returns the address width in bits.
func (f Family) MaskWidth() uint8 {
	if f == FamilyIPv6 {
		return 128
	}
	return 32
}

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

func (f Family) MarshalText() ([]byte, error) {
	switch f {
	case FamilyIPv4, FamilyIPv6:
		return []byte(f.String()), nil
	default:
		return nil, fmt.Errorf("unknown family %d", int(f))
	}
}

func (f *Family) UnmarshalText(raw []byte) error {
	v, err := ParseFamily(string(raw))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
