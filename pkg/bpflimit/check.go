// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package bpflimit

import (
	"fmt"

	"github.com/vpnhouse/bpflimit/pkg/ratecodec"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
)

// checkConfig finishes a revision 1 record: it fills in the defaults
// that depend on the rate kind and validates the burst.
func checkConfig(st *parseState) error {
	cfg := st.cfg
	if !st.seen[optUpto] && !st.seen[optAbove] {
		return xerror.EInvalidArgument(
			fmt.Sprintf("must specify a rate, use %s-upto or %s-above", optionPrefix, optionPrefix), nil)
	}

	if !st.seen[optExpire] {
		cfg.Expire = st.multiplier * 1000
	}

	if cfg.ByteMode() {
		if !st.seen[optBurst] {
			cfg.Burst = 0
			return nil
		}

		m, err := ratecodec.ByteBurstMultiplier(st.burstBytes, cfg.Avg)
		if err != nil {
			flag := "--" + optNameBurst
			return xerror.EInvalidField("invalid burst", flag, err)
		}
		cfg.Burst = m
		if !st.seen[optExpire] {
			cfg.Expire = ratecodec.ByteExpireBurst * 1000
		}
		return nil
	}

	if cfg.Burst > ratecodec.BurstMax {
		flag := "--" + optNameBurst
		return xerror.EInvalidField(fmt.Sprintf("bad value for option %q", flag), flag,
			fmt.Errorf("%w (1-%d)", ratecodec.ErrBurstOutOfRange, ratecodec.BurstMax))
	}
	return nil
}

func checkLegacyConfig(st *parseState) error {
	if !st.seen[optUpto] {
		return xerror.EInvalidArgument(
			fmt.Sprintf("must specify a rate, use %s", optionPrefix), nil)
	}
	if !st.seen[optExpire] {
		st.cfg.Expire = st.multiplier * 1000
	}
	return nil
}
