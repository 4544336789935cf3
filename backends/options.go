// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
)

// Options of a backend, parsed from its configuration string by ParseOptions.
type Options map[string]string

// ParseOptions parses a comma-separated list of "key=value" pairs. A key without a value is set to "true".
// It panics on empty or repeated keys.
func ParseOptions(config string) Options {
	options := make(Options)
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !found {
			value = "true"
		}
		if key == "" {
			exceptions.Panicf("invalid backend option %q in configuration %q", part, config)
		}
		if _, repeated := options[key]; repeated {
			exceptions.Panicf("backend option %q given more than once in configuration %q", key, config)
		}
		options[key] = strings.TrimSpace(value)
	}
	return options
}

// CheckKnown panics if any option is not one of the known keys.
func (o Options) CheckKnown(backendName string, known ...string) {
	for _, key := range slices.Sorted(maps.Keys(o)) {
		if !slices.Contains(known, key) {
			exceptions.Panicf("unknown option %q for backend %q, known options are %q", key, backendName, known)
		}
	}
}

// Bool returns the option parsed as a boolean, or defaultValue if it's not set. It panics if it's not a boolean.
func (o Options) Bool(key string, defaultValue bool) bool {
	value, found := o[key]
	if !found {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		exceptions.Panicf("backend option %q=%q is not a boolean", key, value)
	}
	return b
}
