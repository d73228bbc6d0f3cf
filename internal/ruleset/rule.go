// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package ruleset

import (
	"strings"

	"github.com/spf13/afero"
	"github.com/vpnhouse/bpflimit/pkg/bpflimit"
	"github.com/vpnhouse/bpflimit/pkg/validator"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Args are rule options, given either as a single string
// split on whitespace or as a list of words.
type Args []string

func (a *Args) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var line string
	if err := unmarshal(&line); err == nil {
		*a = strings.Fields(line)
		return nil
	}

	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	*a = list
	return nil
}

func (a Args) has(option string) bool {
	for _, arg := range a {
		name, _, _ := strings.Cut(arg, "=")
		if name == option {
			return true
		}
	}
	return false
}

type Rule struct {
	Name string `yaml:"name" valid:"rulename,required"`
	// Family overrides the default family of the rule set.
	Family *bpflimit.Family `yaml:"family,omitempty"`
	Args   Args             `yaml:"args"`
}

// Load reads a YAML list of rules.
func Load(fs afero.Fs, path string) ([]Rule, error) {
	fd, err := fs.Open(path)
	if err != nil {
		return nil, xerror.EInternalError("failed to open rule file "+path, err)
	}
	defer fd.Close()

	var rules []Rule
	if err := yaml.NewDecoder(fd).Decode(&rules); err != nil {
		return nil, xerror.EInvalidField("failed to unmarshal rule file", path, err)
	}

	for i := range rules {
		if err := validator.ValidateStruct(rules[i]); err != nil {
			return nil, xerror.EInvalidField("invalid rule "+rules[i].Name, path, err)
		}
	}

	zap.L().Debug("rule file loaded", zap.String("path", path), zap.Int("rules", len(rules)))
	return rules, nil
}
