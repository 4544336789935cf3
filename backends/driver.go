// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"slices"

	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Rule lowers one operation into the native graph held by the conversion context c.
//
// Rules panic on contract violations, and return an error wrapping ErrInvalidParameter if the operation
// can't be lowered with its parameters.
type Rule[C any] func(c C, op *ir.Operation) error

// Rules maps each supported operation type to its lowering rule.
// Backends build their table during package initialization and never change it afterward.
type Rules[C any] map[ir.OpType]Rule[C]

// OpTypes returns the operation types with a rule, sorted.
func (r Rules[C]) OpTypes() []ir.OpType {
	opTypes := make([]ir.OpType, 0, len(r))
	for opType := range r {
		opTypes = append(opTypes, opType)
	}
	slices.Sort(opTypes)
	return opTypes
}

// Operations returns the operation types with a rule, in the format of Capabilities.Operations.
func (r Rules[C]) Operations() map[ir.OpType]bool {
	operations := make(map[ir.OpType]bool, len(r))
	for opType := range r {
		operations[opType] = true
	}
	return operations
}

// BuildOption configures Backend.Build and Apply.
type BuildOption func(config *BuildConfig)

// BuildConfig holds the configuration set by the BuildOption values.
type BuildConfig struct {
	// Progress is called after each operation is lowered.
	Progress func(done, total int)
}

// WithProgress sets a function called after each operation is lowered, with the number of operations
// lowered so far and the total.
func WithProgress(progress func(done, total int)) BuildOption {
	return func(config *BuildConfig) {
		config.Progress = progress
	}
}

// NewBuildConfig applies the options.
func NewBuildConfig(options ...BuildOption) *BuildConfig {
	config := &BuildConfig{}
	for _, option := range options {
		option(config)
	}
	return config
}

// Apply lowers every operation of the model, in topological order, with its rule.
//
// It panics with ir.ErrArityMismatch if an operation has the wrong number of inputs or outputs, and with
// ir.ErrInvalidModel if the model fails ir.Model.Validate (e.g. an operand consumed but never produced), in both
// cases before any operation is lowered. It panics wrapping ErrUnsupportedOperation if an operation type has no
// rule, before the rule creates any native object. The first error returned by a rule stops the pass and is
// returned.
func Apply[C any](c C, model *ir.Model, rules Rules[C], options ...BuildOption) error {
	config := NewBuildConfig(options...)
	for _, op := range model.Operations() {
		ir.CheckArity(op)
	}
	if err := model.Validate(); err != nil {
		panic(errors.WithMessage(err, "cannot lower model"))
	}
	operations := ir.SortOperationsInTopologicalOrder(model)
	for ii, op := range operations {
		rule, found := rules[op.Type]
		if !found {
			panic(errors.Wrapf(ErrUnsupportedOperation, "no rule for operation %s", ir.OperationToString(op)))
		}
		if klog.V(5).Enabled() {
			klog.Infof("Converting %s", ir.OperationToString(op))
		}
		if err := rule(c, op); err != nil {
			return errors.WithMessagef(err, "failed to convert %s", ir.OperationToString(op))
		}
		if config.Progress != nil {
			config.Progress(ii+1, len(operations))
		}
	}
	klog.V(1).Infof("Converted %d operations", len(operations))
	return nil
}
