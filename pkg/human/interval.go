// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package human

import (
	"fmt"
	"math"
	"time"
)

// Interval is a duration given either in the time.ParseDuration
// format ("1s", "250ms") or as an integer number of milliseconds.
type Interval time.Duration

func (s *Interval) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v time.Duration
	var val int
	if err := unmarshal(&val); err == nil {
		v = time.Millisecond * time.Duration(val)
	} else {
		var vStr string
		if err := unmarshal(&vStr); err != nil {
			return err
		}
		v, err = time.ParseDuration(vStr)
		if err != nil {
			return err
		}
	}

	*s = Interval(v)
	return nil
}

func (s Interval) MarshalYAML() (interface{}, error) {
	return fmt.Sprint(time.Duration(s)), nil
}

func (s *Interval) Value() time.Duration {
	return time.Duration(*s)
}

// Milliseconds returns the interval in the unit of the record
// timers, clamped to the uint32 range.
func (s Interval) Milliseconds() uint32 {
	ms := time.Duration(s).Milliseconds()
	switch {
	case ms < 0:
		return 0
	case ms > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(ms)
	}
}

func MustParseInterval(s string) Interval {
	v, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return Interval(v)
}

func (s Interval) String() string {
	return fmt.Sprint(time.Duration(s))
}
