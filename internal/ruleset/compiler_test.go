// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package ruleset

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpnhouse/bpflimit/pkg/bpflimit"
	"go.uber.org/multierr"
)

const rulesYAML = `
- name: ssh
  args: --bpflimit-upto 10/sec --bpflimit-mode srcip
- name: web6
  family: ipv6
  args:
    - --bpflimit-above
    - 5mb/s
    - --bpflimit-srcmask
    - "64"
- name: custom
  args: --bpflimit-upto 1/min --bpflimit-name other --bpflimit-htable-gcinterval 250
`

func loadRules(t *testing.T, body string) []Rule {
	fs := &afero.MemMapFs{}
	require.NoError(t, afero.WriteFile(fs, "/etc/bpflimit/rules.yaml", []byte(body), 0600))

	rules, err := Load(fs, "/etc/bpflimit/rules.yaml")
	require.NoError(t, err)
	return rules
}

func TestLoad(t *testing.T) {
	rules := loadRules(t, rulesYAML)
	require.Len(t, rules, 3)

	assert.Equal(t, "ssh", rules[0].Name)
	assert.Nil(t, rules[0].Family)
	assert.Equal(t, Args{"--bpflimit-upto", "10/sec", "--bpflimit-mode", "srcip"}, rules[0].Args)

	require.NotNil(t, rules[1].Family)
	assert.Equal(t, bpflimit.FamilyIPv6, *rules[1].Family)
	assert.Equal(t, Args{"--bpflimit-above", "5mb/s", "--bpflimit-srcmask", "64"}, rules[1].Args)
}

func TestLoad_Errors(t *testing.T) {
	fs := &afero.MemMapFs{}
	_, err := Load(fs, "/missing.yaml")
	require.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("- name: a b\n  args: --bpflimit-upto 1\n"), 0600))
	_, err = Load(fs, "/bad.yaml")
	require.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/family.yaml", []byte("- name: a\n  family: ipx\n"), 0600))
	_, err = Load(fs, "/family.yaml")
	require.Error(t, err)
}

func TestCompile(t *testing.T) {
	c := &Compiler{Family: bpflimit.FamilyIPv4, Revision: bpflimit.RevisionMtInfo1, GCInterval: 2000}
	before := testutil.ToFloat64(rulesCompiledCounter.WithLabelValues(resultOK))

	out, err := c.Compile(loadRules(t, rulesYAML))
	require.NoError(t, err)
	require.Len(t, out, 3)

	ssh := out[0]
	assert.Equal(t, "ssh", ssh.Config.Name)
	assert.Equal(t, uint32(2000), ssh.Config.GCInterval)
	assert.Equal(t, "--bpflimit-upto 10/sec --bpflimit-burst 5 --bpflimit-mode srcip --bpflimit-name ssh --bpflimit-htable-gcinterval 2000",
		ssh.Options)
	assert.Len(t, ssh.Record, 48)

	web := out[1]
	assert.Equal(t, bpflimit.FamilyIPv6, web.Family)
	assert.Equal(t, bpflimit.ModeInvert|bpflimit.ModeBytes, web.Config.Mode)
	assert.Equal(t, uint8(64), web.Config.SrcMask)
	assert.Equal(t, uint8(128), web.Config.DstMask)

	custom := out[2]
	assert.Equal(t, "other", custom.Config.Name)
	assert.Equal(t, uint32(250), custom.Config.GCInterval)

	assert.Equal(t, before+3, testutil.ToFloat64(rulesCompiledCounter.WithLabelValues(resultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(rulesByModeGauge.WithLabelValues("bytes")))
	assert.Equal(t, float64(2), testutil.ToFloat64(rulesByModeGauge.WithLabelValues("packets")))
}

func TestCompile_ReportsEveryError(t *testing.T) {
	rules := loadRules(t, `
- name: ok
  args: --bpflimit-upto 10/sec
- name: fast
  args: --bpflimit-upto 20000/sec
- name: ok
  args: --bpflimit-upto 5/sec
- name: norate
  args: --bpflimit-mode srcip
`)

	c := &Compiler{Family: bpflimit.FamilyIPv4, Revision: bpflimit.RevisionMtInfo3}
	before := testutil.ToFloat64(rulesCompiledCounter.WithLabelValues(resultError))

	out, err := c.Compile(rules)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].Name)
	assert.Len(t, out[0].Record, 304)
	assert.Equal(t, before+3, testutil.ToFloat64(rulesCompiledCounter.WithLabelValues(resultError)))
}

func TestCompile_Legacy(t *testing.T) {
	rules := loadRules(t, `
- name: old
  args: --bpflimit 10/sec --bpflimit-mode dstip
- name: old6
  family: ipv6
  args: --bpflimit 10/sec --bpflimit-mode dstip
`)

	c := &Compiler{Family: bpflimit.FamilyIPv4, Revision: bpflimit.RevisionLegacy}
	out, err := c.Compile(rules)
	require.Error(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "--bpflimit 10/sec --bpflimit-burst 5 --bpflimit-mode dstip --bpflimit-name old", out[0].Options)
	assert.Len(t, out[0].Record, 48)
}
