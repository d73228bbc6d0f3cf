// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package cmd

import (
	"encoding/hex"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vpnhouse/bpflimit/pkg/bpflimit"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
)

var decodeOutput string

var decodeCmd = &cobra.Command{
	Use:   "decode [flags] <hex>",
	Short: "Decode a hex-encoded record",
	Long: `Decode a kernel record given as hex and print it.

The record layout is selected with --revision, the byte order is native.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		family, rev, err := recordTarget()
		if err != nil {
			return err
		}

		raw, err := hex.DecodeString(strings.TrimSpace(args[0]))
		if err != nil {
			return xerror.EInvalidArgument("invalid hex record", err)
		}

		cfg, err := bpflimit.Decode(rev, raw)
		if err != nil {
			return err
		}
		if decodeOutput == outputHex {
			return xerror.EInvalidField("hex output is not supported by decode", "--output", nil)
		}
		return writeConfig(cmd.OutOrStdout(), cfg, family, rev, decodeOutput)
	},
}

func init() {
	addRecordFlags(decodeCmd)
	decodeCmd.Flags().StringVarP(&decodeOutput, "output", "o", outputPrint, "output format: print, save or yaml")
	rootCmd.AddCommand(decodeCmd)
}
