// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package bpflimit

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/vpnhouse/bpflimit/pkg/ratecodec"
	"github.com/vpnhouse/bpflimit/pkg/validator"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
)

const optionPrefix = "--bpflimit"

const (
	optNameUpto       = "bpflimit-upto"
	optNameAbove      = "bpflimit-above"
	optNameLegacy     = "bpflimit"
	optNameMode       = "bpflimit-mode"
	optNameSrcMask    = "bpflimit-srcmask"
	optNameDstMask    = "bpflimit-dstmask"
	optNameName       = "bpflimit-name"
	optNameBurst      = "bpflimit-burst"
	optNameSize       = "bpflimit-htable-size"
	optNameMax        = "bpflimit-htable-max"
	optNameGCInterval = "bpflimit-htable-gcinterval"
	optNameExpire     = "bpflimit-htable-expire"
)

type optionID int

const (
	optUpto optionID = iota
	optAbove
	optMode
	optSrcMask
	optDstMask
	optName
	optBurst
	optSize
	optMax
	optGCInterval
	optExpire
)

// parseState is the scratch data of a single Parse call.
type parseState struct {
	cfg    *Config
	family Family
	// multiplier is the period of the parsed rate in seconds.
	multiplier uint32
	// burstBytes is the burst of a byte-rate rule, unscaled.
	burstBytes uint32
	seen       map[optionID]bool
	inverted   map[string]bool
	err        error
}

type option struct {
	name string
	id   optionID
	// excl is the option that cannot be combined with this one.
	excl      optionID
	hasExcl   bool
	invert    bool
	mandatory bool
	usage     string
	apply     func(st *parseState, flag string, arg string, inverted bool) error
}

var options = []option{
	{name: optNameUpto, id: optUpto, excl: optAbove, hasExcl: true, invert: true,
		usage: "match if the rate is below the given one", apply: applyUpto},
	{name: optNameAbove, id: optAbove, excl: optUpto, hasExcl: true, invert: true,
		usage: "match if the rate is above the given one", apply: applyAbove},
	{name: optNameLegacy, id: optUpto, excl: optAbove, hasExcl: true, invert: true,
		usage: "old name of --bpflimit-upto", apply: applyUpto},
	{name: optNameMode, id: optMode, usage: "hash keys: srcip, srcport, dstip, dstport", apply: applyMode},
	{name: optNameSrcMask, id: optSrcMask, usage: "source address prefix length", apply: applySrcMask},
	{name: optNameDstMask, id: optDstMask, usage: "destination address prefix length", apply: applyDstMask},
	{name: optNameName, id: optName, mandatory: true, usage: "name of the hashtable", apply: applyName},
	{name: optNameBurst, id: optBurst, usage: "number to match in a burst, or a size with b, kb or mb", apply: applyBurst},
	{name: optNameSize, id: optSize, usage: "number of hashtable buckets", apply: applyUint32(func(c *Config) *uint32 { return &c.Size })},
	{name: optNameMax, id: optMax, usage: "number of hashtable entries", apply: applyUint32(func(c *Config) *uint32 { return &c.Max })},
	{name: optNameGCInterval, id: optGCInterval, usage: "hashtable gc interval, milliseconds", apply: applyUint32(func(c *Config) *uint32 { return &c.GCInterval })},
	{name: optNameExpire, id: optExpire, usage: "idle entry expiration, milliseconds", apply: applyUint32(func(c *Config) *uint32 { return &c.Expire })},
}

var legacyOptions = []option{
	{name: optNameLegacy, id: optUpto, usage: "max average match rate", apply: applyLegacyRate},
	{name: optNameMode, id: optMode, mandatory: true, usage: "hash keys: srcip, srcport, dstip, dstport", apply: applyMode},
	{name: optNameName, id: optName, mandatory: true, usage: "name of the hashtable", apply: applyName},
	{name: optNameBurst, id: optBurst, usage: "number to match in a burst", apply: applyLegacyBurst},
	{name: optNameSize, id: optSize, usage: "number of hashtable buckets", apply: applyUint32(func(c *Config) *uint32 { return &c.Size })},
	{name: optNameMax, id: optMax, usage: "number of hashtable entries", apply: applyUint32(func(c *Config) *uint32 { return &c.Max })},
	{name: optNameGCInterval, id: optGCInterval, usage: "hashtable gc interval, milliseconds", apply: applyUint32(func(c *Config) *uint32 { return &c.GCInterval })},
	{name: optNameExpire, id: optExpire, usage: "idle entry expiration, milliseconds", apply: applyUint32(func(c *Config) *uint32 { return &c.Expire })},
}

// optionValue feeds a single option into the parse state.
// Errors are kept in the state since pflag flattens them into text.
type optionValue struct {
	opt *option
	st  *parseState
	val string
}

func (v *optionValue) String() string { return v.val }
func (v *optionValue) Type() string   { return "string" }

func (v *optionValue) Set(arg string) error {
	if err := v.st.apply(v.opt, arg); err != nil {
		v.st.err = err
		return err
	}
	v.val = arg
	return nil
}

func (st *parseState) apply(opt *option, arg string) error {
	flag := "--" + opt.name
	if st.seen[opt.id] {
		return xerror.EInvalidField(fmt.Sprintf("option %q can only be used once", flag), flag, nil)
	}
	if opt.hasExcl && st.seen[opt.excl] {
		return xerror.EInvalidField(fmt.Sprintf("option %q cannot be combined with another rate option", flag), flag, nil)
	}
	st.seen[opt.id] = true
	return opt.apply(st, flag, arg, st.inverted[opt.name])
}

// Parse builds a revision 1 record from rule options,
// e.g. "--bpflimit-upto 10/sec --bpflimit-name ssh".
func Parse(family Family, args []string) (*Config, error) {
	return parseOptions(NewConfig(family), family, options, args, checkConfig)
}

// ParseLegacy builds a revision 0 record. Only packet rates are
// accepted and the hash mode is mandatory.
func ParseLegacy(args []string) (*Config, error) {
	return parseOptions(NewLegacyConfig(), FamilyIPv4, legacyOptions, args, checkLegacyConfig)
}

func parseOptions(cfg *Config, family Family, table []option, args []string, check func(*parseState) error) (*Config, error) {
	st := &parseState{
		cfg:    cfg,
		family: family,
		seen:   map[optionID]bool{},
	}

	args, inverted, err := splitInversions(table, args)
	if err != nil {
		return nil, err
	}
	st.inverted = inverted

	fs := pflag.NewFlagSet("bpflimit", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	for i := range table {
		fs.Var(&optionValue{opt: &table[i], st: st}, table[i].name, table[i].usage)
	}

	if err := fs.Parse(args); err != nil {
		if st.err != nil {
			return nil, st.err
		}
		return nil, xerror.EInvalidArgument("invalid rule options", err)
	}
	if rest := fs.Args(); len(rest) > 0 {
		return nil, xerror.EInvalidArgument(fmt.Sprintf("unexpected argument %q", rest[0]), nil)
	}

	for _, opt := range table {
		if opt.mandatory && !st.seen[opt.id] {
			flag := "--" + opt.name
			return nil, xerror.EInvalidField(fmt.Sprintf("option %q is required", flag), flag, nil)
		}
	}

	if err := check(st); err != nil {
		return nil, err
	}
	return st.cfg, nil
}

// splitInversions strips "!" tokens in option position and reports
// which options they negate. A "!" that is the value of an option is kept.
func splitInversions(table []option, args []string) ([]string, map[string]bool, error) {
	out := make([]string, 0, len(args))
	inverted := map[string]bool{}
	valueNext := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if valueNext || arg != "!" {
			out = append(out, arg)
			valueNext = !valueNext && takesValue(table, arg)
			continue
		}
		if i+1 >= len(args) || !strings.HasPrefix(args[i+1], "--") {
			return nil, nil, xerror.EInvalidArgument(`"!" must be followed by an option`, nil)
		}

		name, _, _ := strings.Cut(strings.TrimPrefix(args[i+1], "--"), "=")
		if !invertible(table, name) {
			return nil, nil, xerror.EInvalidField(fmt.Sprintf("option %q cannot be inverted", "--"+name), "--"+name, nil)
		}
		inverted[name] = true
	}
	return out, inverted, nil
}

// takesValue reports whether arg is a known option whose value is the next token.
func takesValue(table []option, arg string) bool {
	name, found := strings.CutPrefix(arg, "--")
	if !found || strings.Contains(name, "=") {
		return false
	}
	for _, opt := range table {
		if opt.name == name {
			return true
		}
	}
	return false
}

func invertible(table []option, name string) bool {
	for _, opt := range table {
		if opt.name == name {
			return opt.invert
		}
	}
	return false
}

func invalidValue(flag string, arg string, err error) error {
	return xerror.EInvalidField(fmt.Sprintf("bad value %q for option %q", arg, flag), flag, err)
}

func applyUpto(st *parseState, flag string, arg string, inverted bool) error {
	if inverted {
		st.cfg.Mode |= ModeInvert
	}
	return st.parseRate(flag, arg)
}

func applyAbove(st *parseState, flag string, arg string, inverted bool) error {
	if !inverted {
		st.cfg.Mode |= ModeInvert
	}
	return st.parseRate(flag, arg)
}

func (st *parseState) parseRate(flag string, arg string) error {
	r, ok, err := ratecodec.ParseByteRate(arg)
	if err != nil {
		return invalidValue(flag, arg, err)
	}
	if ok {
		st.cfg.Mode |= ModeBytes
	} else {
		r, err = ratecodec.ParseRate(arg)
		if err != nil {
			return invalidValue(flag, arg, err)
		}
	}

	st.cfg.Avg = r.Cost
	st.multiplier = r.Multiplier
	return nil
}

func applyLegacyRate(st *parseState, flag string, arg string, _ bool) error {
	r, err := ratecodec.ParseRate(arg)
	if err != nil {
		return invalidValue(flag, arg, err)
	}
	st.cfg.Avg = r.Cost
	st.multiplier = r.Multiplier
	return nil
}

func applyMode(st *parseState, flag string, arg string, _ bool) error {
	m, err := ParseMode(arg)
	if err != nil {
		return invalidValue(flag, arg, err)
	}
	st.cfg.Mode |= m
	return nil
}

func (st *parseState) parseMask(flag string, arg string) (uint8, error) {
	width := st.family.MaskWidth()
	v, err := strconv.ParseUint(arg, 10, 8)
	if err != nil || uint8(v) > width {
		return 0, invalidValue(flag, arg, fmt.Errorf("%w, want a prefix length of 0-%d", ratecodec.ErrBadValue, width))
	}
	return uint8(v), nil
}

func applySrcMask(st *parseState, flag string, arg string, _ bool) error {
	v, err := st.parseMask(flag, arg)
	if err != nil {
		return err
	}
	st.cfg.SrcMask = v
	return nil
}

func applyDstMask(st *parseState, flag string, arg string, _ bool) error {
	v, err := st.parseMask(flag, arg)
	if err != nil {
		return err
	}
	st.cfg.DstMask = v
	return nil
}

// applyName accepts printable names without spaces or slashes,
// the name becomes a /proc entry.
func applyName(st *parseState, flag string, arg string, _ bool) error {
	if arg == "" || len(arg) > NameMaxLen {
		return invalidValue(flag, arg, fmt.Errorf("name must be 1-%d characters long", NameMaxLen))
	}
	if !validator.IsRuleName(arg) {
		return invalidValue(flag, arg, errors.New("name must be printable ASCII without spaces and slashes"))
	}
	st.cfg.Name = arg
	return nil
}

// applyBurst stores the raw value, it is interpreted by the check pass
// once the rate kind is known.
func applyBurst(st *parseState, flag string, arg string, _ bool) error {
	v, err := ratecodec.ParseBurst(arg)
	if err != nil {
		return invalidValue(flag, arg, err)
	}
	st.burstBytes = v
	st.cfg.Burst = v
	return nil
}

func applyLegacyBurst(st *parseState, flag string, arg string, _ bool) error {
	v, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || v < 1 || v > ratecodec.BurstMax {
		return invalidValue(flag, arg, fmt.Errorf("%w (1-%d)", ratecodec.ErrBurstOutOfRange, ratecodec.BurstMax))
	}
	st.cfg.Burst = uint32(v)
	return nil
}

func applyUint32(field func(*Config) *uint32) func(*parseState, string, string, bool) error {
	return func(st *parseState, flag string, arg string, _ bool) error {
		v, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return invalidValue(flag, arg, ratecodec.ErrBadValue)
		}
		*field(st.cfg) = uint32(v)
		return nil
	}
}
