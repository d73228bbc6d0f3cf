// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/vpnhouse/bpflimit/cmd/bpflimit/cmd"
)

func main() {
	cmd.Execute()
}
