// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphengine

import (
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/operation"
	"github.com/gomlx/accel/pkg/sdk/ge"
)

// rules maps each supported operation type to its lowering function.
var rules = backends.Rules[*Program]{
	ir.OpTypeAdd:              convertElementwise,
	ir.OpTypeSub:              convertElementwise,
	ir.OpTypeMul:              convertElementwise,
	ir.OpTypeDiv:              convertElementwise,
	ir.OpTypeRelu:             convertUnary,
	ir.OpTypeRelu6:            convertUnary,
	ir.OpTypeSigmoid:          convertUnary,
	ir.OpTypeTanh:             convertUnary,
	ir.OpTypeSoftmax:          convertSoftmax,
	ir.OpTypeConv2D:           convertConv2D,
	ir.OpTypeDeformableConv2D: convertDeformableConv2D,
	ir.OpTypeFullyConnected:   convertFullyConnected,
	ir.OpTypeAveragePool2D:    convertPool2D,
	ir.OpTypeMaxPool2D:        convertPool2D,
	ir.OpTypeConcat:           convertConcat,
	ir.OpTypeReshape:          convertReshape,
	ir.OpTypeTranspose:        convertTranspose,
	ir.OpTypeResizeNearest:    convertResize,
	ir.OpTypeResizeLinear:     convertResize,
}

var elementwiseTypes = map[ir.OpType]string{
	ir.OpTypeAdd: ge.TypeAdd,
	ir.OpTypeSub: ge.TypeSub,
	ir.OpTypeMul: ge.TypeMul,
	ir.OpTypeDiv: ge.TypeRealDiv,
}

func convertElementwise(p *Program, op *ir.Operation) error {
	params := operation.ExtractElementwise(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	x1, x2 := p.tensorOf(params.Input0), p.tensorOf(params.Input1)
	eltwise := p.graph.AddOperator(elementwiseTypes[params.Type], p.operatorName(params.Output)).
		SetInput("x1", x1).
		SetInput("x2", x2)
	p.mapOutput(eltwise, params.Output)
	p.fuseActivation(params.Output, params.FuseCode)
	return nil
}

var unaryTypes = map[ir.OpType]string{
	ir.OpTypeRelu:    ge.TypeRelu,
	ir.OpTypeRelu6:   ge.TypeRelu6,
	ir.OpTypeSigmoid: ge.TypeSigmoid,
	ir.OpTypeTanh:    ge.TypeTanh,
}

func convertUnary(p *Program, op *ir.Operation) error {
	params := operation.ExtractUnary(op)
	x := p.tensorOf(params.Input)
	act := p.graph.AddOperator(unaryTypes[params.Type], p.operatorName(params.Output)).SetInput("x", x)
	p.mapOutput(act, params.Output)
	return nil
}

func convertSoftmax(p *Program, op *ir.Operation) error {
	params := operation.ExtractSoftmax(op)
	x := p.tensorOf(params.Input)
	softmax := p.graph.AddOperator(ge.TypeSoftmaxV2, p.operatorName(params.Output)).
		SetInput("x", x).
		SetAttr("axes", int64s(params.Axis))
	p.mapOutput(softmax, params.Output)
	return nil
}

func convertConcat(p *Program, op *ir.Operation) error {
	params := operation.ExtractConcat(op)
	sources := make([]*ge.Output, len(params.Inputs))
	for ii, input := range params.Inputs {
		sources[ii] = p.tensorOf(input)
	}
	concat := p.graph.AddOperator(ge.TypeConcatD, p.operatorName(params.Output)).
		CreateDynamicInput("x", len(sources)).
		SetAttr("concat_dim", int64(params.Axis)).
		SetAttr("N", int64(len(sources)))
	for ii, src := range sources {
		concat.SetDynamicInput("x", ii, src)
	}
	p.mapOutput(concat, params.Output)
	return nil
}

func convertReshape(p *Program, op *ir.Operation) error {
	params := operation.ExtractReshape(op)
	x, shape := p.tensorOf(params.Input), p.tensorOf(params.Shape)
	reshape := p.graph.AddOperator(ge.TypeReshape, p.operatorName(params.Output)).
		SetInput("x", x).
		SetInput("shape", shape)
	p.mapOutput(reshape, params.Output)
	return nil
}

func convertTranspose(p *Program, op *ir.Operation) error {
	params := operation.ExtractTranspose(op)
	x := p.tensorOf(params.Input)
	transpose := p.graph.AddOperator(ge.TypeTranspose, p.operatorName(params.Output)).
		SetInput("x", x).
		SetInput("perm", p.addInt32Constant(params.Perm))
	p.mapOutput(transpose, params.Output)
	return nil
}

func convertPool2D(p *Program, op *ir.Operation) error {
	params := operation.ExtractPool2D(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	x := p.tensorOf(params.Input)
	opType := ge.TypeMaxPoolV3
	if params.Type == ir.OpTypeAveragePool2D {
		opType = ge.TypeAvgPoolV2
	}
	pool := p.graph.AddOperator(opType, p.operatorName(params.Output)).
		SetInput("x", x).
		SetAttr("ksize", int64s(1, 1, params.Window.Height, params.Window.Width)).
		SetAttr("strides", int64s(1, 1, params.Strides.Height, params.Strides.Width)).
		SetAttr("padding_mode", "CALCULATED").
		SetAttr("pads", int64s(params.Paddings.Top, params.Paddings.Bottom, params.Paddings.Left, params.Paddings.Right)).
		SetAttr("ceil_mode", params.CeilMode).
		SetAttr("data_format", "NCHW")
	if params.Type == ir.OpTypeAveragePool2D {
		pool.SetAttr("exclusive", !params.CountIncludePad)
	}
	p.mapOutput(pool, params.Output)
	p.fuseActivation(params.Output, params.FuseCode)
	return nil
}
