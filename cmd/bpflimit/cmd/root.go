// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

// Package cmd provides the CLI commands for bpflimit.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vpnhouse/bpflimit/internal/settings"
	"github.com/vpnhouse/bpflimit/pkg/bpflimit"
	"github.com/vpnhouse/bpflimit/pkg/xap"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
	"go.uber.org/zap"
)

var (
	configDir string
	logLevel  string

	// familyName and revision override the settings when set.
	familyName string
	revision   int

	staticConfig *settings.Config
)

var rootCmd = &cobra.Command{
	Use:   "bpflimit",
	Short: "bpflimit - rate limit rule compiler",
	Long: `bpflimit turns rate limit rule options into the configuration record
of the bpflimit packet filter match, and renders records back as text.

Examples:
  bpflimit parse -- --bpflimit-upto 10/sec --bpflimit-name ssh
  bpflimit parse --output hex -- --bpflimit-above 5mb/s --bpflimit-name web
  bpflimit decode --revision 1 <hex>
  bpflimit compile --rules /etc/bpflimit/rules.yaml

Configuration:
  Settings are loaded from bpflimit.yaml in the --config directory
  (default: /etc/bpflimit/). A missing file means defaults.

Commands:
  parse       Parse rule options and print the record
  decode      Decode a hex-encoded record
  compile     Compile a rule file
  version     Print version information`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	_ = zap.L().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "settings directory (default: /etc/bpflimit/)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the settings file")
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := settings.LoadStatic(configDir)
	if err != nil {
		return err
	}

	level := c.LogLevel
	if len(logLevel) > 0 {
		level = logLevel
	}
	logger, err := xap.New(level)
	if err != nil {
		return xerror.EInvalidField("invalid log level", "--log-level", err)
	}
	zap.ReplaceGlobals(logger)

	staticConfig = c
	zap.L().Debug("settings loaded", zap.String("dir", c.ConfigDir()), zap.String("command", cmd.Name()))
	return nil
}

// addRecordFlags registers the --family and --revision overrides.
func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&familyName, "family", "", "address family: ipv4 or ipv6 (default from settings)")
	cmd.Flags().IntVar(&revision, "revision", -1, "record revision 0-3 (default from settings)")
}

func recordTarget() (bpflimit.Family, bpflimit.Revision, error) {
	family := staticConfig.Family
	if len(familyName) > 0 {
		f, err := bpflimit.ParseFamily(familyName)
		if err != nil {
			return 0, 0, xerror.EInvalidField("invalid family", "--family", err)
		}
		family = f
	}

	rev := staticConfig.RecordRevision()
	if revision >= 0 {
		rev = bpflimit.Revision(revision)
	}
	if _, err := bpflimit.RecordSize(rev); err != nil {
		return 0, 0, err
	}
	if rev == bpflimit.RevisionLegacy && family != bpflimit.FamilyIPv4 {
		return 0, 0, xerror.EInvalidArgument("revision 0 supports ipv4 only", nil)
	}
	return family, rev, nil
}
