// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package npugraph

import (
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/operation"
	"github.com/gomlx/accel/pkg/sdk/npu"
	"github.com/pkg/errors"
)

// rules maps each supported operation type to its lowering function.
// DEFORMABLE_CONV_2D and the resizes have no NPU operator.
var rules = backends.Rules[*Program]{
	ir.OpTypeAdd:            convertElementwise,
	ir.OpTypeSub:            convertElementwise,
	ir.OpTypeMul:            convertElementwise,
	ir.OpTypeDiv:            convertElementwise,
	ir.OpTypeRelu:           convertUnary,
	ir.OpTypeRelu6:          convertUnary,
	ir.OpTypeSigmoid:        convertUnary,
	ir.OpTypeTanh:           convertUnary,
	ir.OpTypeSoftmax:        convertSoftmax,
	ir.OpTypeConv2D:         convertConv2D,
	ir.OpTypeFullyConnected: convertFullyConnected,
	ir.OpTypeAveragePool2D:  convertPool2D,
	ir.OpTypeMaxPool2D:      convertPool2D,
	ir.OpTypeConcat:         convertConcat,
	ir.OpTypeReshape:        convertReshape,
	ir.OpTypeTranspose:      convertTranspose,
}

var elementwiseTypes = map[ir.OpType]npu.OperatorType{
	ir.OpTypeAdd: npu.OperatorAdd,
	ir.OpTypeSub: npu.OperatorSubtract,
	ir.OpTypeMul: npu.OperatorMultiply,
	ir.OpTypeDiv: npu.OperatorDivide,
}

func convertElementwise(p *Program, op *ir.Operation) error {
	params := operation.ExtractElementwise(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	inputs := []*npu.Tensor{p.tensorOf(params.Input0), p.tensorOf(params.Input1)}
	p.addFusedOperator(elementwiseTypes[params.Type], inputs, &npu.EltwiseAttr{Axis: -1}, params.Output, params.FuseCode, false)
	return nil
}

var unaryTypes = map[ir.OpType]npu.OperatorType{
	ir.OpTypeRelu:    npu.OperatorRelu,
	ir.OpTypeRelu6:   npu.OperatorRelu6,
	ir.OpTypeSigmoid: npu.OperatorSigmoid,
	ir.OpTypeTanh:    npu.OperatorTanh,
}

func convertUnary(p *Program, op *ir.Operation) error {
	params := operation.ExtractUnary(op)
	input := p.tensorOf(params.Input)
	p.addOperator(unaryTypes[params.Type], []*npu.Tensor{input}, []*npu.Tensor{p.convertOperand(params.Output)}, nil)
	return nil
}

func convertSoftmax(p *Program, op *ir.Operation) error {
	params := operation.ExtractSoftmax(op)
	input := p.tensorOf(params.Input)
	attr := &npu.SoftmaxAttr{Axis: params.Axis, Beta: 1.0}
	p.addOperator(npu.OperatorSoftmax, []*npu.Tensor{input}, []*npu.Tensor{p.convertOperand(params.Output)}, attr)
	return nil
}

func convertConv2D(p *Program, op *ir.Operation) error {
	params := operation.ExtractConv2D(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	input, filter := p.tensorOf(params.Input), p.tensorOf(params.Filter)
	bias := p.biasOf(params.Bias, params.Input, params.Filter, params.OutputChannels)
	hasRelu := p.reluInConv && params.FuseCode == ir.FuseRelu
	attr := &npu.Conv2DAttr{
		Ksize:      [2]int32{params.FilterSize.Height, params.FilterSize.Width},
		Stride:     [2]int32{params.Strides.Width, params.Strides.Height},
		Pad:        [4]int32{params.Paddings.Left, params.Paddings.Right, params.Paddings.Top, params.Paddings.Bottom},
		Group:      params.Group,
		Multiplier: params.Multiplier(),
		Weights:    params.OutputChannels,
		Dilation:   [2]int32{params.Dilations.Width, params.Dilations.Height},
		PadType:    npu.PadAuto,
		HasRelu:    hasRelu,
	}
	p.addFusedOperator(npu.OperatorConv2D, []*npu.Tensor{input, filter, bias}, attr, params.Output, params.FuseCode, hasRelu)
	return nil
}

// biasOf returns the tensor of the bias, or a zero bias with the given number of channels if it's nil. The zero
// bias of a quantized operation is an int32 with scale input_scale*filter_scale, one per channel if the filter is
// quantized per channel.
func (p *Program) biasOf(bias, input, filter *ir.Operand, channels int32) *npu.Tensor {
	if bias != nil {
		return p.tensorOf(bias)
	}
	if !filter.Type.Precision.IsQuantized() || input.Type.Quant == nil || filter.Type.Quant == nil {
		return p.addFloat32Constant(make([]float32, channels), channels)
	}
	inputScale := input.Type.Quant.Scales[0]
	if !filter.Type.Precision.IsPerChannel() {
		return p.addQuant32Constant(make([]int32, channels), inputScale*filter.Type.Quant.Scales[0], channels)
	}
	filterScales := filter.Type.Quant.Scales
	if len(filterScales) != int(channels) {
		panic(errors.Wrapf(backends.ErrInvalidOperand, "npu: filter %s quantized per channel has %d scales for %d output channels",
			ir.OperandIDToString(filter), len(filterScales), channels))
	}
	scales := make([]float32, channels)
	for ii, filterScale := range filterScales {
		scales[ii] = inputScale * filterScale
	}
	return p.addPerChannelQuant32Constant(make([]int32, channels), scales, channels)
}

func convertFullyConnected(p *Program, op *ir.Operation) error {
	params := operation.ExtractFullyConnected(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	input, found := p.tensors.Lookup(params.Input)
	if !found {
		// The NPU expects a rank-2 input: [batch, K].
		input = p.convertOperand(params.Input, params.BatchSize, params.InputSize)
	}
	weight := p.tensorOf(params.Weight)
	bias := p.biasOf(params.Bias, params.Input, params.Weight, params.NumUnits)
	hasRelu := p.reluInConv && params.FuseCode == ir.FuseRelu
	attr := &npu.FullyConnectedAttr{Weights: params.NumUnits, HasRelu: hasRelu}
	p.addFusedOperator(npu.OperatorFullyConnected, []*npu.Tensor{input, weight, bias}, attr, params.Output,
		params.FuseCode, hasRelu)
	return nil
}

func convertPool2D(p *Program, op *ir.Operation) error {
	params := operation.ExtractPool2D(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	input := p.tensorOf(params.Input)
	attr := &npu.PoolAttr{
		PoolType:        npu.PoolMax,
		Ksize:           [2]int32{params.Window.Width, params.Window.Height},
		Stride:          [2]int32{params.Strides.Width, params.Strides.Height},
		Pad:             [4]int32{params.Paddings.Left, params.Paddings.Right, params.Paddings.Top, params.Paddings.Bottom},
		PadType:         npu.PadAuto,
		RoundType:       npu.RoundFloor,
		CountIncludePad: params.CountIncludePad,
	}
	if params.Type == ir.OpTypeAveragePool2D {
		attr.PoolType = npu.PoolAverage
	}
	if params.CeilMode {
		attr.RoundType = npu.RoundCeil
	}
	p.addFusedOperator(npu.OperatorPool, []*npu.Tensor{input}, attr, params.Output, params.FuseCode, false)
	return nil
}

func convertConcat(p *Program, op *ir.Operation) error {
	params := operation.ExtractConcat(op)
	inputs := make([]*npu.Tensor, len(params.Inputs))
	for ii, input := range params.Inputs {
		inputs[ii] = p.tensorOf(input)
	}
	attr := &npu.ConcatAttr{Axis: params.Axis}
	p.addOperator(npu.OperatorConcat, inputs, []*npu.Tensor{p.convertOperand(params.Output)}, attr)
	return nil
}

func convertReshape(p *Program, op *ir.Operation) error {
	params := operation.ExtractReshape(op)
	input := p.tensorOf(params.Input)
	attr := &npu.ReshapeAttr{Shapes: params.Shape.Int32s()}
	p.addOperator(npu.OperatorReshape, []*npu.Tensor{input}, []*npu.Tensor{p.convertOperand(params.Output)}, attr)
	return nil
}

func convertTranspose(p *Program, op *ir.Operation) error {
	params := operation.ExtractTranspose(op)
	input := p.tensorOf(params.Input)
	attr := &npu.PermuteAttr{Perm: params.Perm}
	p.addOperator(npu.OperatorPermute, []*npu.Tensor{input}, []*npu.Tensor{p.convertOperand(params.Output)}, attr)
	return nil
}
