// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package human

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInterval_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{`v: 1s`, time.Second},
		{`v: 250ms`, 250 * time.Millisecond},
		{`v: "2m"`, 2 * time.Minute},
		{`v: 1500`, 1500 * time.Millisecond},
	}

	for _, tt := range tests {
		var v struct {
			V Interval `yaml:"v"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(tt.in), &v), tt.in)
		assert.Equal(t, tt.want, v.V.Value(), tt.in)
	}

	var v struct {
		V Interval `yaml:"v"`
	}
	require.Error(t, yaml.Unmarshal([]byte(`v: soon`), &v))
}

func TestInterval_Milliseconds(t *testing.T) {
	assert.Equal(t, uint32(1000), MustParseInterval("1s").Milliseconds())
	assert.Equal(t, uint32(0), MustParseInterval("-1s").Milliseconds())
	assert.Equal(t, uint32(4294967295), MustParseInterval("2000h").Milliseconds())

	out, err := yaml.Marshal(struct {
		V Interval `yaml:"v"`
	}{MustParseInterval("1m30s")})
	require.NoError(t, err)
	assert.Equal(t, "v: 1m30s\n", string(out))
}
