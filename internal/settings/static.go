// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package settings

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/vpnhouse/bpflimit/pkg/bpflimit"
	"github.com/vpnhouse/bpflimit/pkg/human"
	"github.com/vpnhouse/bpflimit/pkg/validator"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir = "/etc/bpflimit/"
	configFileName   = "bpflimit.yaml"
	rulesFileName    = "rules.yaml"
)

type Config struct {
	LogLevel string          `yaml:"log_level" valid:"loglevel"`
	Family   bpflimit.Family `yaml:"family"`
	// Revision of the kernel record, 0 to 3.
	Revision  int    `yaml:"revision" valid:"revision"`
	RulesPath string `yaml:"rules_path" valid:"path"`
	// MetricsPath is a node-exporter textfile, metrics are not written if empty.
	MetricsPath string `yaml:"metrics_path,omitempty" valid:"path"`
	// GCInterval is the hashtable gc interval of rules that do not set one.
	// Interval must be defined in duration format or as integer in milliseconds.
	GCInterval human.Interval `yaml:"gc_interval" valid:"interval"`

	// path to the config file, or default path in case of safe defaults.
	path string
}

func (s *Config) ConfigDir() string {
	return filepath.Dir(s.path)
}

// RecordRevision returns the configured record layout.
func (s *Config) RecordRevision() bpflimit.Revision {
	return bpflimit.Revision(s.Revision)
}

func LoadStatic(configDir string) (*Config, error) {
	return staticConfigFromFS(afero.OsFs{}, configDir)
}

func staticConfigFromFS(fs afero.Fs, configDir string) (*Config, error) {
	if len(configDir) == 0 {
		configDir = defaultConfigDir
	}

	pathToStatic := filepath.Join(configDir, configFileName)
	_, err := fs.Stat(pathToStatic)
	switch {
	case os.IsNotExist(err):
		zap.L().Debug("no static config file, using safe defaults", zap.String("path", pathToStatic))
		return safeDefaults(configDir), nil
	case err == nil:
		return loadStaticConfig(fs, pathToStatic)
	default:
		return nil, xerror.EInternalError("failed to stat the static config path", err, zap.String("path", pathToStatic))
	}
}

func loadStaticConfig(fs afero.Fs, path string) (*Config, error) {
	fd, err := fs.Open(path)
	if err != nil {
		return nil, xerror.EInternalError("failed to open config file "+path, err)
	}

	defer fd.Close()

	c := safeDefaults(filepath.Dir(path))
	if err := yaml.NewDecoder(fd).Decode(c); err != nil {
		return nil, xerror.EInternalError("failed to unmarshal config", err)
	}

	if err := validator.ValidateStruct(c); err != nil {
		return nil, xerror.EInternalError("config validation failed", err)
	}

	c.path = path

	// do extra validation of cross-related fields.
	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// validate validates dependent fields, prevents from
// logical errors in configurations.
func (s *Config) validate() error {
	if s.Revision == int(bpflimit.RevisionLegacy) && s.Family != bpflimit.FamilyIPv4 {
		return xerror.EInvalidConfiguration("revision 0 supports ipv4 only", "family")
	}

	if len(s.RulesPath) == 0 {
		s.RulesPath = filepath.Join(s.ConfigDir(), rulesFileName)
	}
	if s.GCInterval.Value() <= 0 {
		s.GCInterval = human.MustParseInterval(DefaultGCInterval)
	}

	return nil
}

// safeDefaults provides safe static config with paths started with the rootDir
func safeDefaults(rootDir string) *Config {
	return &Config{
		path:       filepath.Join(rootDir, configFileName),
		LogLevel:   DefaultLogLevel,
		Family:     bpflimit.FamilyIPv4,
		Revision:   DefaultRevision,
		RulesPath:  filepath.Join(rootDir, rulesFileName),
		GCInterval: human.MustParseInterval(DefaultGCInterval),
	}
}
