// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package npugraph

import (
	"slices"

	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/sdk/npu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// precisions maps the supported IR precisions to the NPU ones.
var precisions = map[ir.Precision]npu.PrecisionType{
	ir.PrecisionBool8:                    npu.PrecisionBool8,
	ir.PrecisionInt8:                     npu.PrecisionInt8,
	ir.PrecisionUint8:                    npu.PrecisionUint8,
	ir.PrecisionInt16:                    npu.PrecisionInt16,
	ir.PrecisionInt32:                    npu.PrecisionInt32,
	ir.PrecisionInt64:                    npu.PrecisionInt64,
	ir.PrecisionFloat16:                  npu.PrecisionFloat16,
	ir.PrecisionFloat32:                  npu.PrecisionFloat32,
	ir.PrecisionQuantInt8SymmPerLayer:    npu.PrecisionInt8,
	ir.PrecisionQuantInt8SymmPerChannel:  npu.PrecisionInt8,
	ir.PrecisionQuantUint8AsymmPerLayer:  npu.PrecisionUint8,
	ir.PrecisionQuantInt32SymmPerLayer:   npu.PrecisionInt32,
	ir.PrecisionQuantInt32SymmPerChannel: npu.PrecisionInt32,
}

// tensorAttr converts the type of the operand, including its quantization parameters.
// It panics wrapping backends.ErrInvalidOperand if the operand can't be represented.
func tensorAttr(name string, t ir.OperandType, dims []int32) npu.TensorAttr {
	precision, found := precisions[t.Precision]
	if !found {
		panic(errors.Wrapf(backends.ErrInvalidOperand, "npu: precision %s not supported", t.Precision))
	}
	if dims == nil {
		dims = t.Dimensions
	}
	attr := npu.TensorAttr{
		Name:      name,
		Precision: precision,
		Layout:    npu.LayoutNCHW,
		Dims:      slices.Clone(dims),
	}
	if t.Layout == ir.LayoutNHWC {
		attr.Layout = npu.LayoutNHWC
	}
	if !t.Precision.IsQuantized() {
		return attr
	}
	if t.Quant == nil || len(t.Quant.Scales) == 0 {
		panic(errors.Wrapf(backends.ErrInvalidOperand, "npu: quantized precision %s without quantization parameters", t.Precision))
	}
	attr.Scales = slices.Clone(t.Quant.Scales)
	switch t.Precision {
	case ir.PrecisionQuantUint8AsymmPerLayer:
		attr.QuantType = npu.QuantAsymmetric
		attr.ZeroPoints = []int32{t.Quant.ZeroPoint}
	case ir.PrecisionQuantInt8SymmPerChannel, ir.PrecisionQuantInt32SymmPerChannel:
		attr.QuantType = npu.QuantSymmetricPerChannel
		attr.ChannelDim = int32(t.Quant.ChannelDim)
	default:
		attr.QuantType = npu.QuantSymmetricPerLayer
	}
	return attr
}

// createTensor creates the NPU tensor, panicking wrapping backends.ErrInvalidOperand if the NPU rejects it.
func (p *Program) createTensor(attr npu.TensorAttr, data []byte) *npu.Tensor {
	tensor, err := p.graph.CreateTensor(attr, data)
	if err != nil {
		panic(errors.Wrapf(backends.ErrInvalidOperand, "npu: %v", err))
	}
	return tensor
}

// convertOperand creates a tensor for the operand and registers it. Constants reference the operand buffer.
// If dims is given the operand is re-materialized with those dimensions.
func (p *Program) convertOperand(operand *ir.Operand, dims ...int32) *npu.Tensor {
	var data []byte
	if operand.IsConstant() {
		data = operand.Buffer
	}
	tensor := p.createTensor(tensorAttr(p.tensors.NextName(operand), operand.Type, dims), data)
	if klog.V(5).Enabled() {
		klog.Infof("  converted %s to %s", ir.OperandIDToString(operand), tensor)
	}
	return p.tensors.Register(operand, tensor)
}

// tensorOf returns the most recent tensor mapped to the operand, converting the operand if it was not mapped yet.
func (p *Program) tensorOf(operand *ir.Operand) *npu.Tensor {
	if tensor, found := p.tensors.Lookup(operand); found {
		return tensor
	}
	return p.convertOperand(operand)
}

// addVariableTensor creates an unnamed intermediate tensor with the type of the operand. It's not registered.
func (p *Program) addVariableTensor(like *ir.Operand) *npu.Tensor {
	return p.createTensor(tensorAttr("", like.Type, nil), nil)
}

// addFloat32Constant creates an unnamed FLOAT32 constant.
func (p *Program) addFloat32Constant(values []float32, dims ...int32) *npu.Tensor {
	attr := npu.TensorAttr{Precision: npu.PrecisionFloat32, Layout: npu.LayoutNCHW, Dims: dims}
	return p.createTensor(attr, backends.EncodeFlat(values))
}

// addQuant32Constant creates an unnamed INT32 constant quantized symmetrically with the given scale.
func (p *Program) addQuant32Constant(values []int32, scale float32, dims ...int32) *npu.Tensor {
	attr := npu.TensorAttr{
		Precision: npu.PrecisionInt32,
		Layout:    npu.LayoutNCHW,
		Dims:      dims,
		QuantType: npu.QuantSymmetricPerLayer,
		Scales:    []float32{scale},
	}
	return p.createTensor(attr, backends.EncodeFlat(values))
}

// addPerChannelQuant32Constant creates an unnamed INT32 constant quantized symmetrically with one scale per
// element of the first axis.
func (p *Program) addPerChannelQuant32Constant(values []int32, scales []float32, dims ...int32) *npu.Tensor {
	attr := npu.TensorAttr{
		Precision: npu.PrecisionInt32,
		Layout:    npu.LayoutNCHW,
		Dims:      dims,
		QuantType: npu.QuantSymmetricPerChannel,
		Scales:    scales,
	}
	return p.createTensor(attr, backends.EncodeFlat(values))
}

// addOperator adds the operator to the graph, panicking if the NPU rejects it.
func (p *Program) addOperator(opType npu.OperatorType, inputs, outputs []*npu.Tensor, attr any) *npu.Operator {
	op, err := p.graph.AddOperator(opType, inputs, outputs, attr, "")
	if err != nil {
		panic(errors.WithMessagef(err, "npu: adding operator %s", opType))
	}
	return op
}

// fuseCodes the NPU can append to its operators.
var fuseCodes = []ir.FuseCode{ir.FuseRelu, ir.FuseRelu1, ir.FuseRelu6}

var activationTypes = map[ir.FuseCode]npu.OperatorType{
	ir.FuseRelu:  npu.OperatorRelu,
	ir.FuseRelu1: npu.OperatorRelu1,
	ir.FuseRelu6: npu.OperatorRelu6,
}

// addFusedOperator adds the operator writing into the output operand, followed by the activation selected by code.
//
// If fusedInAttr is true the operator applies the activation itself (has_relu), otherwise the operator writes
// into an unnamed intermediate tensor, and a separate activation operator writes the output.
func (p *Program) addFusedOperator(opType npu.OperatorType, inputs []*npu.Tensor, attr any, output *ir.Operand,
	code ir.FuseCode, fusedInAttr bool) {
	if code == ir.FuseNone || fusedInAttr {
		p.addOperator(opType, inputs, []*npu.Tensor{p.convertOperand(output)}, attr)
		return
	}
	intermediate := p.addVariableTensor(output)
	p.addOperator(opType, inputs, []*npu.Tensor{intermediate}, attr)
	p.addOperator(activationTypes[code], []*npu.Tensor{intermediate}, []*npu.Tensor{p.convertOperand(output)}, nil)
}
