// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

//go:build !linux

package bpflimit

import (
	"encoding/binary"
)

// Same limits as on linux, records are only built for linux kernels.
const (
	ifNameSize = 16
	nameMax    = 255
)

func nativeEndian() binary.ByteOrder {
	return binary.NativeEndian
}
