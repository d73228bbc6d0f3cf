// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/vpnhouse/bpflimit/pkg/bpflimit"
	"go.uber.org/zap"
)

var parseOutput string

var parseCmd = &cobra.Command{
	Use:   "parse [flags] -- <rule options>",
	Short: "Parse rule options and print the record",
	Long: `Parse rule options and print the resulting record.

Rule options follow "--", for example:
  bpflimit parse -- --bpflimit-upto 10/sec --bpflimit-burst 20 --bpflimit-name ssh
  bpflimit parse --revision 0 -- --bpflimit 3/min --bpflimit-mode srcip --bpflimit-name old

Output formats:
  print   display text, e.g. "limit: up to 10/sec burst 20"
  save    canonical rule options
  hex     the encoded kernel record
  yaml    the record fields`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		family, rev, err := recordTarget()
		if err != nil {
			return err
		}

		var cfg *bpflimit.Config
		if rev == bpflimit.RevisionLegacy {
			cfg, err = bpflimit.ParseLegacy(args)
		} else {
			cfg, err = bpflimit.Parse(family, args)
		}
		if err != nil {
			return err
		}

		zap.L().Debug("rule parsed", zap.String("name", cfg.Name), zap.Stringer("mode", cfg.Mode))
		return writeConfig(cmd.OutOrStdout(), cfg, family, rev, parseOutput)
	},
}

func init() {
	addRecordFlags(parseCmd)
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", outputPrint, "output format: print, save, hex or yaml")
	rootCmd.AddCommand(parseCmd)
}
