// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/vpnhouse/bpflimit/pkg/bpflimit"
	"github.com/vpnhouse/bpflimit/pkg/xerror"
	"gopkg.in/yaml.v3"
)

const (
	outputPrint = "print"
	outputSave  = "save"
	outputHex   = "hex"
	outputYAML  = "yaml"
)

func writeConfig(w io.Writer, cfg *bpflimit.Config, family bpflimit.Family, rev bpflimit.Revision, output string) error {
	legacy := rev == bpflimit.RevisionLegacy
	switch output {
	case outputPrint:
		if legacy {
			_, err := fmt.Fprintln(w, cfg.PrintLegacy())
			return err
		}
		_, err := fmt.Fprintln(w, cfg.Print(family))
		return err
	case outputSave:
		if legacy {
			_, err := fmt.Fprintln(w, cfg.SaveLegacy())
			return err
		}
		_, err := fmt.Fprintln(w, cfg.Save(family))
		return err
	case outputHex:
		b, err := cfg.Encode(rev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, hex.EncodeToString(b))
		return err
	case outputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(cfg)
	default:
		return xerror.EInvalidField(fmt.Sprintf("unknown output format %q", output), "--output", nil)
	}
}
