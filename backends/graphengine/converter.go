// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphengine

import (
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/sdk/ge"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// operatorName returns the name of the next operator producing the operand.
func (p *Program) operatorName(operand *ir.Operand) string {
	return p.tensors.NextName(operand)
}

// tensorDesc converts the type of the operand. It panics wrapping backends.ErrInvalidOperand for quantized
// and other unsupported precisions.
func tensorDesc(operand *ir.Operand, dims ...int32) ge.TensorDesc {
	t := operand.Type
	if !supportedPrecisions[t.Precision] {
		panic(errors.Wrapf(backends.ErrInvalidOperand, "ge: precision %s of %s", t.Precision, ir.OperandToString(operand)))
	}
	if dims == nil {
		dims = t.Dimensions
	}
	desc := ge.TensorDesc{DType: t.Precision.DType(), Dims: make([]int64, len(dims)), Format: ge.FormatND}
	for ii, dim := range dims {
		desc.Dims[ii] = int64(dim)
	}
	if len(dims) == 4 {
		desc.Format = ge.FormatNCHW
		if t.Layout == ir.LayoutNHWC {
			desc.Format = ge.FormatNHWC
		}
	}
	return desc
}

// convertOperand creates a Const operator for constant operands, or a Data operator otherwise, and registers it.
// If dims is given the operand is re-materialized with those dimensions.
func (p *Program) convertOperand(operand *ir.Operand, dims ...int32) *ge.Output {
	desc := tensorDesc(operand, dims...)
	name := p.operatorName(operand)
	var out *ge.Output
	if operand.IsConstant() {
		if size := desc.Size(); size < 0 || size*desc.DType.Size() != len(operand.Buffer) {
			panic(errors.Wrapf(backends.ErrInvalidOperand, "ge: constant %s with %d bytes", ir.OperandToString(operand),
				len(operand.Buffer)))
		}
		out = p.graph.Const(name, ge.Tensor{Desc: desc, Data: operand.Buffer})
	} else {
		out = p.graph.Data(name, desc)
	}
	if klog.V(5).Enabled() {
		klog.Infof("  converted %s to %s %s", ir.OperandIDToString(operand), out.Op.Type(), out)
	}
	return p.tensors.Register(operand, out)
}

// tensorOf returns the most recent output mapped to the operand, converting the operand if it was not mapped yet.
func (p *Program) tensorOf(operand *ir.Operand) *ge.Output {
	if out, found := p.tensors.Lookup(operand); found {
		return out
	}
	return p.convertOperand(operand)
}

// mapOutput sets the descriptor of the output port "y" of the operator from the operand, and registers it.
func (p *Program) mapOutput(op *ge.Operator, operand *ir.Operand) *ge.Output {
	return p.tensors.Register(operand, op.UpdateOutputDesc("y", tensorDesc(operand)))
}

// addInt32Constant adds an unnamed INT32 constant. If no dims are given it's a vector.
func (p *Program) addInt32Constant(values []int32, dims ...int64) *ge.Output {
	return p.graph.Const("", ge.Tensor{Desc: constantDesc(ir.PrecisionInt32, len(values), dims), Data: backends.EncodeFlat(values)})
}

// addFloat32Constant adds an unnamed FLOAT32 constant. If no dims are given it's a vector.
func (p *Program) addFloat32Constant(values []float32, dims ...int64) *ge.Output {
	return p.graph.Const("", ge.Tensor{Desc: constantDesc(ir.PrecisionFloat32, len(values), dims), Data: backends.EncodeFlat(values)})
}

func constantDesc(precision ir.Precision, numValues int, dims []int64) ge.TensorDesc {
	if dims == nil {
		dims = []int64{int64(numValues)}
	}
	return ge.TensorDesc{DType: precision.DType(), Dims: dims, Format: ge.FormatND}
}

// fuseActivation appends the activation selected by code to the operand, and re-registers it.
func (p *Program) fuseActivation(operand *ir.Operand, code ir.FuseCode) {
	backends.FuseActivation(p.tensors, operand, code, fuseCodes, func(code ir.FuseCode, input *ge.Output) *ge.Output {
		opType := ge.TypeRelu
		if code == ir.FuseRelu6 {
			opType = ge.TypeRelu6
		}
		act := p.graph.AddOperator(opType, p.operatorName(operand)).SetInput("x", input)
		return act.UpdateOutputDesc("y", input.Desc)
	})
}

// int64s converts the values to the type of the list attributes.
func int64s[T ~int32 | ~int](values ...T) []int64 {
	result := make([]int64, len(values))
	for ii, v := range values {
		result[ii] = int64(v)
	}
	return result
}
