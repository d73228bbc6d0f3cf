// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package bpflimit

import (
	"strconv"
	"strings"

	"github.com/vpnhouse/bpflimit/pkg/ratecodec"
)

type textStyle struct {
	save bool
	// prefix comes before option names.
	prefix string
	// keySep joins hash key names.
	keySep string
}

var (
	printStyle = textStyle{prefix: "", keySep: "-"}
	saveStyle  = textStyle{save: true, prefix: optionPrefix + "-", keySep: ","}
)

type ruleWriter struct {
	style textStyle
	words []string
}

func (w *ruleWriter) word(s string) {
	w.words = append(w.words, s)
}

func (w *ruleWriter) option(name string, value string) {
	w.words = append(w.words, w.style.prefix+name, value)
}

func (w *ruleWriter) number(name string, v uint32) {
	w.option(name, strconv.FormatUint(uint64(v), 10))
}

func (w *ruleWriter) String() string {
	return strings.Join(w.words, " ")
}

// Print renders the record for display, e.g. "limit: up to 10/sec burst 5".
func (c *Config) Print(family Family) string {
	return c.render(family, printStyle)
}

// Save renders the record as rule options accepted by Parse.
func (c *Config) Save(family Family) string {
	return c.render(family, saveStyle)
}

func (c *Config) render(family Family, style textStyle) string {
	w := &ruleWriter{style: style}
	inverted := c.Mode&ModeInvert != 0
	switch {
	case style.save && inverted:
		w.word(optionPrefix + "-above")
	case style.save:
		w.word(optionPrefix + "-upto")
	case inverted:
		w.word("limit: above")
	default:
		w.word("limit: up to")
	}

	var quantum uint32
	if c.ByteMode() {
		rate, burst, q := ratecodec.RenderByteRate(c.Avg, c.Burst)
		w.word(rate)
		if burst != "" {
			w.option("burst", burst)
		}
		quantum = q
	} else {
		rate, q := ratecodec.RenderRate(c.Avg)
		w.word(rate)
		w.number("burst", c.Burst)
		quantum = q
	}

	if c.Mode.HasKeys() {
		w.option("mode", c.Mode.Keys(style.keySep))
	}
	if style.save {
		w.option("name", c.Name)
	}
	c.renderHashtable(w, quantum)

	width := family.MaskWidth()
	if c.SrcMask != width {
		w.number("srcmask", uint32(c.SrcMask))
	}
	if c.DstMask != width {
		w.number("dstmask", uint32(c.DstMask))
	}
	return w.String()
}

func (c *Config) renderHashtable(w *ruleWriter, quantum uint32) {
	if c.Size != 0 {
		w.number("htable-size", c.Size)
	}
	if c.Max != 0 {
		w.number("htable-max", c.Max)
	}
	if c.GCInterval != DefaultGCInterval {
		w.number("htable-gcinterval", c.GCInterval)
	}
	if c.Expire != quantum {
		w.number("htable-expire", c.Expire)
	}
}

// PrintLegacy renders a revision 0 record for display.
func (c *Config) PrintLegacy() string {
	return c.renderLegacy(printStyle)
}

// SaveLegacy renders a revision 0 record as options accepted by ParseLegacy.
func (c *Config) SaveLegacy() string {
	return c.renderLegacy(saveStyle)
}

func (c *Config) renderLegacy(style textStyle) string {
	w := &ruleWriter{style: style}
	if style.save {
		w.word(optionPrefix)
	} else {
		w.word("limit: avg")
	}

	rate, quantum := ratecodec.RenderRate(c.Avg)
	w.word(rate)
	w.number("burst", c.Burst)

	keys := c.Mode.Keys(style.keySep)
	if keys == "" {
		keys = modeNone
	}
	w.option("mode", keys)
	if style.save {
		w.option("name", c.Name)
	}
	c.renderHashtable(w, quantum)
	return w.String()
}
