// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

//go:build linux

package bpflimit

import (
	"encoding/binary"

	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"
)

const (
	ifNameSize = unix.IFNAMSIZ
	nameMax    = unix.NAME_MAX
)

func nativeEndian() binary.ByteOrder {
	return nl.NativeEndian()
}
