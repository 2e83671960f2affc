// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fuse

import (
	"fmt"
	"strings"
)

// mountOption describes one entry recognized in a -o option list: a name
// pattern to match against, and a parser that mutates cfg once matched.
// allow_other has no value of its own; it is carried straight through to
// the platform mount helper's option string via cfg.Options so that the
// kernel relaxes its single-user restriction.
type mountOption struct {
	name    string
	hasArg  bool
	applies func(cfg *MountConfig, arg string) error
}

var recognizedMountOptions = []mountOption{
	{
		name: "ro",
		applies: func(cfg *MountConfig, arg string) error {
			cfg.ReadOnly = true
			return nil
		},
	},
	{
		name: "allow_other",
		applies: func(cfg *MountConfig, arg string) error {
			if cfg.Options == nil {
				cfg.Options = map[string]string{}
			}
			cfg.Options["allow_other"] = ""
			return nil
		},
	},
	{
		name:   "fsname",
		hasArg: true,
		applies: func(cfg *MountConfig, arg string) error {
			if arg == "" {
				return fmt.Errorf("fsname requires a value")
			}
			cfg.FSName = arg
			return nil
		},
	},
}

// ParseOption validates and applies a single comma-separated -o entry (e.g.
// "ro" or "fsname=mymount") to cfg. It returns an error, naming the
// offending option, for anything not in the recognized set.
func ParseOption(entry string, cfg *MountConfig) error {
	name, arg, hasArg := strings.Cut(entry, "=")
	for _, opt := range recognizedMountOptions {
		if opt.name != name {
			continue
		}
		if opt.hasArg && !hasArg {
			return fmt.Errorf("option %q requires a value", name)
		}
		if !opt.hasArg && hasArg {
			return fmt.Errorf("option %q does not take a value", name)
		}
		return opt.applies(cfg, arg)
	}
	return fmt.Errorf("unrecognized mount option %q", name)
}

// ParseOptions validates and applies every comma-separated entry of csv
// (the value of a repeatable -o flag) to cfg, stopping at the first
// unrecognized or malformed option.
func ParseOptions(csv string, cfg *MountConfig) error {
	for _, entry := range strings.Split(csv, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if err := ParseOption(entry, cfg); err != nil {
			return err
		}
	}
	return nil
}
