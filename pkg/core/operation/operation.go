// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package operation decodes the positional inputs of an ir.Operation into typed parameter structs, one
// ExtractXxx function per operation type, shared by all backends.
//
// Each ExtractXxx checks the type and arity of the operation, and reads the attribute operands with the checked
// accessors of ir.Operand. Any violation is reported with a panic, since it's a malformed model.
package operation

import (
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// HW holds a pair of spatial values in (height, width) order.
type HW struct {
	Height, Width int32
}

// Paddings of the spatial axes.
type Paddings struct {
	Top, Bottom, Left, Right int32
}

// checkOperation panics if the operation is not one of the given types, or if it has the wrong arity.
func checkOperation(op *ir.Operation, opTypes ...ir.OpType) {
	for _, opType := range opTypes {
		if op.Type == opType {
			ir.CheckArity(op)
			return
		}
	}
	exceptions.Panicf("operation %s is not of the expected type %v", ir.OperationToString(op), opTypes)
}

// logOperand traces an operand of the operation being extracted.
func logOperand(name string, operand *ir.Operand) {
	if operand == nil || !klog.V(5).Enabled() {
		return
	}
	klog.V(5).Infof("  %s: %s", name, ir.OperandToString(operand))
}

// readPaddings reads 4 consecutive int32 scalars in the order left, right, top, bottom.
func readPaddings(inputs []*ir.Operand, idx int) Paddings {
	return Paddings{
		Left:   inputs[idx].Int32(),
		Right:  inputs[idx+1].Int32(),
		Top:    inputs[idx+2].Int32(),
		Bottom: inputs[idx+3].Int32(),
	}
}

// readWidthHeight reads 2 consecutive int32 scalars in the order width, height.
func readWidthHeight(inputs []*ir.Operand, idx int) HW {
	return HW{Width: inputs[idx].Int32(), Height: inputs[idx+1].Int32()}
}

func readFuseCode(inputs []*ir.Operand, idx int) ir.FuseCode {
	fuseCode := ir.FuseCode(inputs[idx].Int32())
	klog.V(5).Infof("  fuse_code=%s", fuseCode)
	return fuseCode
}

// Elementwise parameters of ADD, SUB, MUL and DIV.
type Elementwise struct {
	Type           ir.OpType
	Input0, Input1 *ir.Operand
	FuseCode       ir.FuseCode
	Output         *ir.Operand
}

// ExtractElementwise extracts the parameters of ADD, SUB, MUL and DIV.
func ExtractElementwise(op *ir.Operation) Elementwise {
	checkOperation(op, ir.OpTypeAdd, ir.OpTypeSub, ir.OpTypeMul, ir.OpTypeDiv)
	p := Elementwise{
		Type:     op.Type,
		Input0:   op.Inputs[0],
		Input1:   op.Inputs[1],
		FuseCode: readFuseCode(op.Inputs, ir.ElementwiseFuseCodeIdx),
		Output:   op.Outputs[0],
	}
	logOperand("input0", p.Input0)
	logOperand("input1", p.Input1)
	logOperand("output", p.Output)
	return p
}

// Unary parameters of the activations RELU, RELU6, SIGMOID and TANH.
type Unary struct {
	Type          ir.OpType
	Input, Output *ir.Operand
}

// ExtractUnary extracts the parameters of the activations RELU, RELU6, SIGMOID and TANH.
func ExtractUnary(op *ir.Operation) Unary {
	checkOperation(op, ir.OpTypeRelu, ir.OpTypeRelu6, ir.OpTypeSigmoid, ir.OpTypeTanh)
	p := Unary{Type: op.Type, Input: op.Inputs[0], Output: op.Outputs[0]}
	logOperand("input", p.Input)
	logOperand("output", p.Output)
	return p
}

// Softmax parameters.
type Softmax struct {
	Input *ir.Operand

	// Axis is normalized to a non-negative value.
	Axis int32

	Output *ir.Operand
}

// ExtractSoftmax extracts the parameters of SOFTMAX.
func ExtractSoftmax(op *ir.Operation) Softmax {
	checkOperation(op, ir.OpTypeSoftmax)
	p := Softmax{Input: op.Inputs[0], Output: op.Outputs[0]}
	p.Axis = normalizeAxis(op.Inputs[ir.SoftmaxAxisIdx].Int32(), p.Input.Type.Rank(), op)
	logOperand("input", p.Input)
	klog.V(5).Infof("  axis=%d", p.Axis)
	logOperand("output", p.Output)
	return p
}

func normalizeAxis(axis int32, rank int, op *ir.Operation) int32 {
	adjusted := axis
	if adjusted < 0 {
		adjusted += int32(rank)
	}
	if adjusted < 0 || adjusted >= int32(max(rank, 1)) {
		exceptions.Panicf("%s: axis %d out of range for rank %d", ir.OperationToString(op), axis, rank)
	}
	return adjusted
}
