// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package ruleset

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vpnhouse/bpflimit/pkg/bpflimit"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

var rulesCompiledCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bpflimit",
	Name:      "rules_compiled_total",
	Help:      "number of compiled rules partitioned by result",
}, []string{"result"})

var rulesByModeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "bpflimit",
	Name:      "rules",
	Help:      "number of rules in the last compiled set, partitioned by rate kind",
}, []string{"kind"})

func init() {
	prometheus.MustRegister(rulesCompiledCounter, rulesByModeGauge)
}

// Compiled is a rule turned into a kernel record.
type Compiled struct {
	Name   string           `yaml:"name"`
	Family bpflimit.Family  `yaml:"family"`
	Config *bpflimit.Config `yaml:"config"`
	// Options is the canonical form of the rule options.
	Options string `yaml:"options"`
	Record  []byte `yaml:"-"`
}

type Compiler struct {
	Family   bpflimit.Family
	Revision bpflimit.Revision
	// GCInterval is set on rules that do not give one, milliseconds.
	GCInterval uint32
}

// Compile compiles every rule and reports all failures at once.
// Rules that fail are left out of the result.
func (c *Compiler) Compile(rules []Rule) ([]Compiled, error) {
	var (
		out   []Compiled
		errs  error
		names = map[string]bool{}
		kinds = map[string]float64{"packets": 0, "bytes": 0}
	)

	for _, r := range rules {
		if names[r.Name] {
			rulesCompiledCounter.WithLabelValues(resultError).Inc()
			errs = multierr.Append(errs, xerror.EInvalidField("duplicate rule name "+r.Name, r.Name, nil))
			continue
		}
		names[r.Name] = true

		compiled, err := c.CompileRule(r)
		if err != nil {
			rulesCompiledCounter.WithLabelValues(resultError).Inc()
			errs = multierr.Append(errs, err)
			continue
		}

		rulesCompiledCounter.WithLabelValues(resultOK).Inc()
		if compiled.Config.ByteMode() {
			kinds["bytes"]++
		} else {
			kinds["packets"]++
		}
		out = append(out, compiled)
	}

	for kind, n := range kinds {
		rulesByModeGauge.WithLabelValues(kind).Set(n)
	}
	return out, errs
}

func (c *Compiler) CompileRule(r Rule) (Compiled, error) {
	family := c.Family
	if r.Family != nil {
		family = *r.Family
	}

	args := append(Args(nil), r.Args...)
	if !args.has("--bpflimit-name") {
		args = append(args, "--bpflimit-name", r.Name)
	}
	if c.GCInterval != 0 && !args.has("--bpflimit-htable-gcinterval") {
		args = append(args, "--bpflimit-htable-gcinterval", strconv.FormatUint(uint64(c.GCInterval), 10))
	}

	var (
		cfg *bpflimit.Config
		err error
	)
	if c.Revision == bpflimit.RevisionLegacy {
		if family != bpflimit.FamilyIPv4 {
			return Compiled{}, xerror.EInvalidField(fmt.Sprintf("invalid rule %s: revision 0 supports ipv4 only", r.Name), r.Name, nil)
		}
		cfg, err = bpflimit.ParseLegacy(args)
	} else {
		cfg, err = bpflimit.Parse(family, args)
	}
	if err != nil {
		return Compiled{}, xerror.EInvalidField("invalid rule "+r.Name, r.Name, err)
	}

	record, err := cfg.Encode(c.Revision)
	if err != nil {
		return Compiled{}, xerror.EInvalidField("invalid rule "+r.Name, r.Name, err)
	}

	options := cfg.Save(family)
	if c.Revision == bpflimit.RevisionLegacy {
		options = cfg.SaveLegacy()
	}

	zap.L().Debug("rule compiled", zap.String("name", r.Name), zap.String("options", options))
	return Compiled{
		Name:    r.Name,
		Family:  family,
		Config:  cfg,
		Options: options,
		Record:  record,
	}, nil
}
