// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package settings

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpnhouse/bpflimit/pkg/bpflimit"
)

func writeConfig(t *testing.T, fs afero.Fs, dir string, body string) {
	require.NoError(t, fs.MkdirAll(dir, 0700))
	require.NoError(t, afero.WriteFile(fs, dir+"/"+configFileName, []byte(body), 0600))
}

func TestEmptyFile(t *testing.T) {
	f := &afero.MemMapFs{}

	path := "/tmp/foo/bar/conf"
	err := f.MkdirAll(path, 0700)
	require.NoError(t, err)
	_, err = f.Create("/tmp/foo/bar/conf/" + configFileName)
	require.NoError(t, err)

	_, err = staticConfigFromFS(f, path)
	require.Error(t, err)
}

func TestNoFile(t *testing.T) {
	c, err := staticConfigFromFS(&afero.MemMapFs{}, "/etc/limits")
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, c.LogLevel)
	assert.Equal(t, bpflimit.FamilyIPv4, c.Family)
	assert.Equal(t, bpflimit.RevisionMtInfo1, c.RecordRevision())
	assert.Equal(t, "/etc/limits/rules.yaml", c.RulesPath)
	assert.Equal(t, time.Second, c.GCInterval.Value())
	assert.Equal(t, "/etc/limits", c.ConfigDir())
}

func TestLoadStatic(t *testing.T) {
	f := &afero.MemMapFs{}
	writeConfig(t, f, "/opt/bpflimit", `
log_level: debug
family: ipv6
revision: 3
metrics_path: /var/lib/node_exporter/bpflimit.prom
gc_interval: 500
`)

	c, err := staticConfigFromFS(f, "/opt/bpflimit")
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, bpflimit.FamilyIPv6, c.Family)
	assert.Equal(t, bpflimit.RevisionMtInfo3, c.RecordRevision())
	assert.Equal(t, "/opt/bpflimit/rules.yaml", c.RulesPath)
	assert.Equal(t, "/var/lib/node_exporter/bpflimit.prom", c.MetricsPath)
	assert.Equal(t, uint32(500), c.GCInterval.Milliseconds())
}

func TestLoadStatic_Invalid(t *testing.T) {
	tests := map[string]string{
		"log level": "log_level: loud\n",
		"revision":  "revision: 7\n",
		"family":    "family: ipx\n",
		"legacy v6": "revision: 0\nfamily: ipv6\n",
		"interval":  "gc_interval: soon\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			f := &afero.MemMapFs{}
			writeConfig(t, f, "/conf", body)

			_, err := staticConfigFromFS(f, "/conf")
			require.Error(t, err)
		})
	}
}
