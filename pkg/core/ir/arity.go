// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import "github.com/pkg/errors"

// Arity of an operation type.
type Arity struct {
	// Inputs is the exact number of inputs, or the minimum number if Variadic.
	Inputs int

	// Outputs is the exact number of outputs.
	Outputs int

	// Variadic operations (CONCAT) take a variable number of inputs.
	Variadic bool
}

// Positions of the inputs of each operation type, used by the operation parameter extraction and by the
// IR builder.
const (
	// ADD, SUB, MUL, DIV: input0, input1, fuse_code.
	ElementwiseFuseCodeIdx = 2

	// SOFTMAX: input, axis.
	SoftmaxAxisIdx = 1

	// CONV_2D: input, filter, bias, pad left, right, top, bottom, stride width, height, group, fuse_code,
	// dilation width, height.
	Conv2DFilterIdx   = 1
	Conv2DBiasIdx     = 2
	Conv2DPadLeftIdx  = 3
	Conv2DStrideIdx   = 7
	Conv2DGroupIdx    = 9
	Conv2DFuseCodeIdx = 10
	Conv2DDilationIdx = 11
	Conv2DNumInputs   = 13

	// DEFORMABLE_CONV_2D: input, offset, mask, filter, bias, pad left, right, top, bottom, stride width,
	// height, group, deformable_group, fuse_code, dilation width, height.
	DeformableConv2DOffsetIdx          = 1
	DeformableConv2DMaskIdx            = 2
	DeformableConv2DFilterIdx          = 3
	DeformableConv2DBiasIdx            = 4
	DeformableConv2DPadLeftIdx         = 5
	DeformableConv2DStrideIdx          = 9
	DeformableConv2DGroupIdx           = 11
	DeformableConv2DDeformableGroupIdx = 12
	DeformableConv2DFuseCodeIdx        = 13
	DeformableConv2DDilationIdx        = 14
	DeformableConv2DNumInputs          = 16

	// FULLY_CONNECTED: input, weight, bias, fuse_code.
	FullyConnectedFuseCodeIdx = 3

	// AVERAGE_POOL_2D and MAX_POOL_2D: input, pad left, right, top, bottom, stride width, height,
	// filter width, height, fuse_code, ceil_mode and, for the average pool only, count_include_pad.
	Pool2DPadLeftIdx         = 1
	Pool2DStrideIdx          = 5
	Pool2DFilterIdx          = 7
	Pool2DFuseCodeIdx        = 9
	Pool2DCeilModeIdx        = 10
	Pool2DCountIncludePadIdx = 11

	// RESIZE_NEAREST and RESIZE_LINEAR: input, shape (optional), scales (optional), align_corners and,
	// for the linear resize only, align_mode.
	ResizeShapeIdx        = 1
	ResizeScalesIdx       = 2
	ResizeAlignCornersIdx = 3
	ResizeAlignModeIdx    = 4
)

var arities = map[OpType]Arity{
	OpTypeAdd:              {Inputs: 3, Outputs: 1},
	OpTypeSub:              {Inputs: 3, Outputs: 1},
	OpTypeMul:              {Inputs: 3, Outputs: 1},
	OpTypeDiv:              {Inputs: 3, Outputs: 1},
	OpTypeRelu:             {Inputs: 1, Outputs: 1},
	OpTypeRelu6:            {Inputs: 1, Outputs: 1},
	OpTypeSigmoid:          {Inputs: 1, Outputs: 1},
	OpTypeTanh:             {Inputs: 1, Outputs: 1},
	OpTypeSoftmax:          {Inputs: 2, Outputs: 1},
	OpTypeConv2D:           {Inputs: Conv2DNumInputs, Outputs: 1},
	OpTypeDeformableConv2D: {Inputs: DeformableConv2DNumInputs, Outputs: 1},
	OpTypeFullyConnected:   {Inputs: 4, Outputs: 1},
	OpTypeAveragePool2D:    {Inputs: 12, Outputs: 1},
	OpTypeMaxPool2D:        {Inputs: 11, Outputs: 1},
	OpTypeConcat:           {Inputs: 2, Outputs: 1, Variadic: true},
	OpTypeReshape:          {Inputs: 2, Outputs: 1},
	OpTypeTranspose:        {Inputs: 2, Outputs: 1},
	OpTypeResizeNearest:    {Inputs: 4, Outputs: 1},
	OpTypeResizeLinear:     {Inputs: 5, Outputs: 1},
}

// ArityOf returns the arity of the operation type, and false if the type is unknown.
func ArityOf(opType OpType) (Arity, bool) {
	arity, found := arities[opType]
	return arity, found
}

// CheckArity panics with an error wrapping ErrArityMismatch if the operation doesn't have the number of
// inputs and outputs of its type.
func CheckArity(op *Operation) {
	arity, found := ArityOf(op.Type)
	if !found {
		panic(errors.Wrapf(ErrUnknownOpType, "%s", OperationToString(op)))
	}
	inputsOk := len(op.Inputs) == arity.Inputs
	if arity.Variadic {
		inputsOk = len(op.Inputs) >= arity.Inputs
	}
	if !inputsOk {
		qualifier := ""
		if arity.Variadic {
			qualifier = "at least "
		}
		panic(errors.Wrapf(ErrArityMismatch, "%s takes %s%d inputs, got %d",
			OperationToString(op), qualifier, arity.Inputs, len(op.Inputs)))
	}
	if len(op.Outputs) != arity.Outputs {
		panic(errors.Wrapf(ErrArityMismatch, "%s takes %d outputs, got %d",
			OperationToString(op), arity.Outputs, len(op.Outputs)))
	}
}
