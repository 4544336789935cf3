// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package operation

import (
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// FullyConnected parameters: output = input (flattened to [batch, K]) x weight^T + bias.
type FullyConnected struct {
	Input    *ir.Operand
	Weight   *ir.Operand // [units, K]
	Bias     *ir.Operand // [units]
	FuseCode ir.FuseCode
	Output   *ir.Operand

	NumUnits, InputSize int32

	// BatchSize is -1 if the input has unknown dimensions.
	BatchSize int32
}

// ExtractFullyConnected extracts the parameters of FULLY_CONNECTED.
func ExtractFullyConnected(op *ir.Operation) FullyConnected {
	checkOperation(op, ir.OpTypeFullyConnected)
	p := FullyConnected{
		Input:    op.Inputs[0],
		Weight:   op.Inputs[1],
		Bias:     op.Inputs[2],
		FuseCode: readFuseCode(op.Inputs, ir.FullyConnectedFuseCodeIdx),
		Output:   op.Outputs[0],
	}
	if p.Weight == nil || p.Weight.Type.Rank() != 2 {
		exceptions.Panicf("%s: weight must be rank-2", ir.OperationToString(op))
	}
	p.NumUnits, p.InputSize = p.Weight.Type.Dimensions[0], p.Weight.Type.Dimensions[1]
	p.BatchSize = -1
	if size := p.Input.Type.Size(); size >= 0 && p.InputSize > 0 {
		p.BatchSize = int32(size) / p.InputSize
	}
	logOperand("input", p.Input)
	logOperand("weight", p.Weight)
	logOperand("bias", p.Bias)
	klog.V(5).Infof("  units=%d input_size=%d batch_size=%d", p.NumUnits, p.InputSize, p.BatchSize)
	logOperand("output", p.Output)
	return p
}

// Pool2D parameters of AVERAGE_POOL_2D and MAX_POOL_2D.
type Pool2D struct {
	Type     ir.OpType
	Input    *ir.Operand
	Paddings Paddings
	Strides  HW
	Window   HW
	FuseCode ir.FuseCode
	CeilMode bool

	// CountIncludePad is always false for MAX_POOL_2D.
	CountIncludePad bool

	Output *ir.Operand
}

// ExtractPool2D extracts the parameters of AVERAGE_POOL_2D and MAX_POOL_2D.
func ExtractPool2D(op *ir.Operation) Pool2D {
	checkOperation(op, ir.OpTypeAveragePool2D, ir.OpTypeMaxPool2D)
	inputs := op.Inputs
	p := Pool2D{
		Type:     op.Type,
		Input:    inputs[0],
		Paddings: readPaddings(inputs, ir.Pool2DPadLeftIdx),
		Strides:  readWidthHeight(inputs, ir.Pool2DStrideIdx),
		Window:   readWidthHeight(inputs, ir.Pool2DFilterIdx),
		FuseCode: readFuseCode(inputs, ir.Pool2DFuseCodeIdx),
		CeilMode: inputs[ir.Pool2DCeilModeIdx].Bool(),
		Output:   op.Outputs[0],
	}
	if op.Type == ir.OpTypeAveragePool2D {
		p.CountIncludePad = inputs[ir.Pool2DCountIncludePadIdx].Bool()
	}
	logOperand("input", p.Input)
	klog.V(5).Infof("  paddings=%+v strides=%+v window=%+v ceil_mode=%v count_include_pad=%v",
		p.Paddings, p.Strides, p.Window, p.CeilMode, p.CountIncludePad)
	logOperand("output", p.Output)
	return p
}

// Concat parameters.
type Concat struct {
	Inputs []*ir.Operand

	// Axis is normalized to a non-negative value.
	Axis int32

	Output *ir.Operand
}

// ExtractConcat extracts the parameters of CONCAT: the last input is the axis.
func ExtractConcat(op *ir.Operation) Concat {
	checkOperation(op, ir.OpTypeConcat)
	numInputs := len(op.Inputs) - 1
	p := Concat{Inputs: op.Inputs[:numInputs], Output: op.Outputs[0]}
	for ii, input := range p.Inputs {
		if input == nil {
			exceptions.Panicf("%s: input #%d is nil", ir.OperationToString(op), ii)
		}
		logOperand("input", input)
	}
	p.Axis = normalizeAxis(op.Inputs[numInputs].Int32(), p.Inputs[0].Type.Rank(), op)
	klog.V(5).Infof("  axis=%d", p.Axis)
	logOperand("output", p.Output)
	return p
}

// Reshape parameters.
type Reshape struct {
	Input *ir.Operand

	// Shape is an int32 vector, usually constant.
	Shape *ir.Operand

	Output *ir.Operand
}

// ExtractReshape extracts the parameters of RESHAPE.
func ExtractReshape(op *ir.Operation) Reshape {
	checkOperation(op, ir.OpTypeReshape)
	p := Reshape{Input: op.Inputs[0], Shape: op.Inputs[1], Output: op.Outputs[0]}
	if p.Shape == nil || p.Shape.Type.Precision != ir.PrecisionInt32 {
		exceptions.Panicf("%s: shape must be an int32 vector", ir.OperationToString(op))
	}
	logOperand("input", p.Input)
	logOperand("shape", p.Shape)
	logOperand("output", p.Output)
	return p
}

// Transpose parameters.
type Transpose struct {
	Input  *ir.Operand
	Perm   []int32
	Output *ir.Operand
}

// ExtractTranspose extracts the parameters of TRANSPOSE. The permutation must be a constant.
func ExtractTranspose(op *ir.Operation) Transpose {
	checkOperation(op, ir.OpTypeTranspose)
	p := Transpose{Input: op.Inputs[0], Perm: op.Inputs[1].Int32s(), Output: op.Outputs[0]}
	if len(p.Perm) != p.Input.Type.Rank() {
		exceptions.Panicf("%s: permutation %v doesn't match the input rank %d",
			ir.OperationToString(op), p.Perm, p.Input.Type.Rank())
	}
	logOperand("input", p.Input)
	klog.V(5).Infof("  perm=%v", p.Perm)
	logOperand("output", p.Output)
	return p
}

// Resize parameters of RESIZE_NEAREST and RESIZE_LINEAR.
type Resize struct {
	Type  ir.OpType
	Input *ir.Operand

	// Shape of the output (height, width), an int32[2], or nil.
	Shape *ir.Operand

	// Scales of the output (height, width), a float32[2], or nil. Only used if Shape is nil.
	Scales *ir.Operand

	AlignCorners bool

	// AlignMode is only used by RESIZE_LINEAR.
	AlignMode int32

	Output *ir.Operand
}

// ExtractResize extracts the parameters of RESIZE_NEAREST and RESIZE_LINEAR.
//
// It doesn't check that either the shape or the scales are given: backends report it as an invalid parameter.
func ExtractResize(op *ir.Operation) Resize {
	checkOperation(op, ir.OpTypeResizeNearest, ir.OpTypeResizeLinear)
	inputs := op.Inputs
	p := Resize{
		Type:         op.Type,
		Input:        inputs[0],
		Shape:        inputs[ir.ResizeShapeIdx],
		Scales:       inputs[ir.ResizeScalesIdx],
		AlignCorners: inputs[ir.ResizeAlignCornersIdx].Bool(),
		Output:       op.Outputs[0],
	}
	if op.Type == ir.OpTypeResizeLinear {
		p.AlignMode = inputs[ir.ResizeAlignModeIdx].Int32()
	}
	logOperand("input", p.Input)
	logOperand("shape", p.Shape)
	logOperand("scales", p.Scales)
	klog.V(5).Infof("  align_corners=%v align_mode=%d", p.AlignCorners, p.AlignMode)
	logOperand("output", p.Output)
	return p
}
