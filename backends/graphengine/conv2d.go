// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphengine

import (
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/operation"
	"github.com/gomlx/accel/pkg/sdk/ge"
)

func convertConv2D(p *Program, op *ir.Operation) error {
	params := operation.ExtractConv2D(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	x, filter := p.tensorOf(params.Input), p.tensorOf(params.Filter)
	opType := ge.TypeConv2D
	if params.IsDepthwise() {
		opType = ge.TypeDepthwiseConv2D
	}
	conv := p.graph.AddOperator(opType, p.operatorName(params.Output)).
		SetInput("x", x).
		SetInput("filter", filter).
		SetAttr("strides", int64s(1, 1, params.Strides.Height, params.Strides.Width)).
		SetAttr("pads", int64s(params.Paddings.Top, params.Paddings.Bottom, params.Paddings.Left, params.Paddings.Right)).
		SetAttr("dilations", int64s(1, 1, params.Dilations.Height, params.Dilations.Width)).
		SetAttr("data_format", "NCHW")
	if !params.IsDepthwise() {
		conv.SetAttr("groups", int64(params.Group))
	}
	if params.Bias != nil {
		conv.SetInput("bias", p.tensorOf(params.Bias))
	}
	p.mapOutput(conv, params.Output)
	p.fuseActivation(params.Output, params.FuseCode)
	return nil
}

// convertDeformableConv2D decomposes a modulated deformable convolution.
//
// The offset interleaves (y, x) per kernel position, while DeformableOffsets takes all the x offsets, then all
// the y offsets, then the mask, concatenated along the channels. DeformableOffsets samples the input into
// a [N, C, H*kh, W*kw] tensor, and a Conv2D with strides equal to the kernel size finishes the convolution.
func convertDeformableConv2D(p *Program, op *ir.Operation) error {
	params := operation.ExtractDeformableConv2D(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	x, offset, mask := p.tensorOf(params.Input), p.tensorOf(params.Offset), p.tensorOf(params.Mask)
	filter := p.tensorOf(params.Filter)
	name := p.operatorName(params.Output)
	channels := params.OffsetChannels

	// Odd channels are the x offsets, even channels the y offsets.
	splitX := p.graph.AddOperator(ge.TypeStridedSliceV2, name+"/split_x").
		SetInput("x", offset).
		SetInput("begin", p.addInt32Constant([]int32{1})).
		SetInput("end", p.addInt32Constant([]int32{channels})).
		SetInput("axes", p.addInt32Constant([]int32{1}, []int64{}...)).
		SetInput("strides", p.addInt32Constant([]int32{2}, []int64{}...))
	splitY := p.graph.AddOperator(ge.TypeStridedSliceV2, name+"/split_y").
		SetInput("x", offset).
		SetInput("begin", p.addInt32Constant([]int32{0})).
		SetInput("end", p.addInt32Constant([]int32{channels - 1})).
		SetInput("axes", p.addInt32Constant([]int32{1}, []int64{}...)).
		SetInput("strides", p.addInt32Constant([]int32{2}, []int64{}...))
	concat := p.graph.AddOperator(ge.TypeConcatD, name+"/concat").
		CreateDynamicInput("x", 3).
		SetDynamicInput("x", 0, splitX.Output("y")).
		SetDynamicInput("x", 1, splitY.Output("y")).
		SetDynamicInput("x", 2, mask).
		SetAttr("concat_dim", int64(1)).
		SetAttr("N", int64(3))

	kernel := params.FilterSize
	deformableOffsets := p.graph.AddOperator(ge.TypeDeformableOffsets, name+"/deformable_offsets").
		SetInput("x", x).
		SetInput("offsets", concat.Output("y")).
		SetAttr("strides", int64s(1, 1, params.Strides.Height, params.Strides.Width)).
		SetAttr("pads", int64s(params.Paddings.Top, params.Paddings.Bottom, params.Paddings.Left, params.Paddings.Right)).
		SetAttr("ksize", int64s(kernel.Height, kernel.Width)).
		SetAttr("dilations", int64s(1, 1, params.Dilations.Height, params.Dilations.Width)).
		SetAttr("data_format", "NCHW").
		SetAttr("deformable_groups", int64(params.DeformableGroups)).
		SetAttr("modulated", true)

	conv := p.graph.AddOperator(ge.TypeConv2D, name).
		SetInput("x", deformableOffsets.Output("y")).
		SetInput("filter", filter).
		SetAttr("strides", int64s(1, 1, kernel.Height, kernel.Width)).
		SetAttr("pads", int64s(0, 0, 0, 0)).
		SetAttr("dilations", int64s(1, 1, 1, 1)).
		SetAttr("groups", int64(params.Group)).
		SetAttr("data_format", "NCHW")
	if params.Bias != nil {
		conv.SetInput("bias", p.tensorOf(params.Bias))
	}
	p.mapOutput(conv, params.Output)
	p.fuseActivation(params.Output, params.FuseCode)
	return nil
}
