// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/vpnhouse/bpflimit/internal/ruleset"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	rulesPath     string
	metricsPath   string
	compileOutput string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a rule file",
	Long: `Compile every rule of a YAML rule file and print the results.

A rule file is a list of rules:
  - name: ssh
    args: --bpflimit-upto 10/sec --bpflimit-mode srcip
  - name: web6
    family: ipv6
    args: [--bpflimit-above, 5mb/s]

All failing rules are reported. With --metrics-file the compilation
counters are written in the node-exporter textfile format.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if compileOutput != outputSave && compileOutput != outputHex {
			return xerror.EInvalidField(fmt.Sprintf("unknown output format %q", compileOutput), "--output", nil)
		}
		family, rev, err := recordTarget()
		if err != nil {
			return err
		}

		path := staticConfig.RulesPath
		if len(rulesPath) > 0 {
			path = rulesPath
		}
		rules, err := ruleset.Load(afero.OsFs{}, path)
		if err != nil {
			return err
		}

		c := &ruleset.Compiler{
			Family:     family,
			Revision:   rev,
			GCInterval: staticConfig.GCInterval.Milliseconds(),
		}
		compiled, compileErr := c.Compile(rules)
		for _, err := range multierr.Errors(compileErr) {
			zap.L().Error("rule failed", zap.Error(err))
		}

		w := cmd.OutOrStdout()
		for _, r := range compiled {
			text := r.Options
			if compileOutput == outputHex {
				text = hex.EncodeToString(r.Record)
			}
			fmt.Fprintf(w, "%s\t%s\n", r.Name, text)
		}

		if err := writeMetrics(); err != nil {
			return err
		}
		if compileErr != nil {
			return xerror.EInvalidConfiguration(
				fmt.Sprintf("%d of %d rules failed", len(multierr.Errors(compileErr)), len(rules)), path)
		}
		return nil
	},
}

func writeMetrics() error {
	path := staticConfig.MetricsPath
	if len(metricsPath) > 0 {
		path = metricsPath
	}
	if len(path) == 0 {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return xerror.EInternalError("failed to write metrics", err, zap.String("path", path))
	}
	return nil
}

func init() {
	addRecordFlags(compileCmd)
	compileCmd.Flags().StringVar(&rulesPath, "rules", "", "rule file (default from settings)")
	compileCmd.Flags().StringVar(&metricsPath, "metrics-file", "", "node-exporter textfile to write metrics to (default from settings)")
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", outputSave, "output format: save or hex")
	rootCmd.AddCommand(compileCmd)
}
