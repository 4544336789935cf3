// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"maps"

	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/pkg/errors"
)

// Capabilities holds mappings of what is supported by a backend.
type Capabilities struct {
	// Operations supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	Operations map[ir.OpType]bool

	// Precisions lists the operand precisions supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	Precisions map[ir.Precision]bool

	// FuseCodes lists the activations the backend can fuse. FuseNone is always supported.
	FuseCodes map[ir.FuseCode]bool
}

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	var c2 Capabilities
	c2.Operations = make(map[ir.OpType]bool, len(c.Operations))
	maps.Copy(c2.Operations, c.Operations)
	c2.Precisions = make(map[ir.Precision]bool, len(c.Precisions))
	maps.Copy(c2.Precisions, c.Precisions)
	c2.FuseCodes = make(map[ir.FuseCode]bool, len(c.FuseCodes))
	maps.Copy(c2.FuseCodes, c.FuseCodes)
	return c2
}

// Check returns an error wrapping ErrUnsupportedOperation for the first operation of the model not supported,
// or ErrInvalidOperand for the first operand with a precision not supported.
//
// Backend.Build panics on those, Check allows a friendlier validation beforehand.
func (c Capabilities) Check(model *ir.Model) error {
	for _, op := range model.Operations() {
		if !c.Operations[op.Type] {
			return errors.Wrapf(ErrUnsupportedOperation, "%s", ir.OperationToString(op))
		}
	}
	for _, operand := range model.Operands() {
		if !c.Precisions[operand.Type.Precision] {
			return errors.Wrapf(ErrInvalidOperand, "precision %s of %s", operand.Type.Precision, ir.OperandToString(operand))
		}
	}
	return nil
}
