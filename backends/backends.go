// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface an accelerator backend implements to lower an ir.Model into the native
// operator graph of its SDK, and the machinery shared by the backends to do it: the TensorMap registry of native
// handles, the topological driver Apply with its per-backend Rules table, and the fusion epilogue FuseActivation.
//
// Contract violations (wrong arity, unsupported operations or fuse codes, operands rejected by the SDK) are
// panics with a stack trace, see package github.com/gomlx/exceptions. The only recoverable error is
// ErrInvalidParameter, returned by Backend.Build.
package backends

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
)

// Backend is the API implemented by an accelerator backend.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "ge" for the graph engine.
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// Capabilities lists the operations and precisions supported by the backend.
	Capabilities() Capabilities

	// Build lowers the model into a new Program.
	//
	// It panics on contract violations, and returns an error wrapping ErrInvalidParameter if an operation
	// can't be lowered with the given parameters. Each call is an independent conversion pass.
	Build(model *ir.Model, options ...BuildOption) (Program, error)
}

// Program is the result of lowering a model: it owns the native graph, exposed by each backend concrete type.
type Program interface {
	// ID uniquely identifies the program, and is used to correlate the logs of a conversion.
	ID() uuid.UUID

	// BackendName is the name of the backend that built the program.
	BackendName() string

	// Stats of the native graph.
	Stats() ProgramStats
}

// ProgramStats summarizes the native graph of a Program.
type ProgramStats struct {
	// NumOperators created, including the decompositions and fused activations.
	NumOperators int

	// NumTensors created, including constants.
	NumTensors int

	// ConstantBytes is the total size of the constants referenced by the native graph.
	ConstantBytes int
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) Backend

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List returns the names of the registered backends, sorted.
func List() []string {
	return slices.Sorted(maps.Keys(registeredConstructors))
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// ACCEL_BACKEND is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_options>".
// The "<backend_name>" is the name of a registered backend (e.g.: "npu") and
// "<backend_options>" is a comma-separated list of key=value pairs, see ParseOptions.
const ACCEL_BACKEND = "ACCEL_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment ACCEL_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
//
// It panics if no backend was registered.
func New() Backend {
	config, found := os.LookupEnv(ACCEL_BACKEND)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig creates the backend selected by config, formatted as "<backend_name>:<backend_options>".
// A config without ":" is taken as a backend name. An empty backend name selects the first registered backend.
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends -- maybe import the default ones with import _ "github.com/gomlx/accel/backends/default"?`)
	}
	backendName, backendConfig := config, ""
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	}
	if backendName == "" {
		backendName = firstRegistered
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given, registered backends: %q",
			backendName, config, List())
	}
	return constructor(backendConfig)
}
