// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package validator

import (
	"errors"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/vpnhouse/bpflimit/pkg/human"
	"github.com/vpnhouse/bpflimit/pkg/xap"
)

// MaxRevision is the newest record revision.
const MaxRevision = 3

func init() {
	govalidator.TagMap["path"] = govalidator.IsUnixFilePath
	govalidator.TagMap["rulename"] = IsRuleName
	govalidator.TagMap["loglevel"] = xap.IsValidLevel

	govalidator.CustomTypeTagMap.Set("revision", isRevision)
	govalidator.CustomTypeTagMap.Set("interval", isInterval)
}

func ValidateStruct(s interface{}) error {
	ok, err := govalidator.ValidateStruct(s)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("validation failed")
	}
	return nil
}

// IsRuleName reports whether str can name a hashtable:
// printable ASCII without spaces and slashes.
func IsRuleName(str string) bool {
	if len(str) == 0 || !govalidator.IsPrintableASCII(str) {
		return false
	}

	return !strings.ContainsAny(str, " /")
}

func isRevision(value interface{}, _ interface{}) bool {
	switch v := value.(type) {
	case int:
		return v >= 0 && v <= MaxRevision
	default:
		return false
	}
}

func isInterval(value interface{}, _ interface{}) bool {
	switch v := value.(type) {
	case human.Interval:
		return v.Value() > 0
	default:
		return false
	}
}
