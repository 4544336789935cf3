// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package operation

import (
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// Conv2D parameters. The input is NCHW, and the filter is [output_channels, input_channels/group, kh, kw].
type Conv2D struct {
	Input, Filter, Bias *ir.Operand
	Paddings            Paddings
	Strides             HW
	Group               int32
	FuseCode            ir.FuseCode
	Dilations           HW
	Output              *ir.Operand

	// Derived from the dimensions of the input and the filter.
	InputChannels, OutputChannels int32
	FilterSize                    HW
}

// IsDepthwise returns whether each input channel is convolved separately.
func (p Conv2D) IsDepthwise() bool {
	return p.Group != 1 && p.InputChannels == p.Group
}

// Multiplier returns the number of output channels per input channel of a depthwise convolution, or 0 otherwise.
func (p Conv2D) Multiplier() int32 {
	if !p.IsDepthwise() {
		return 0
	}
	return p.OutputChannels / p.Group
}

// ExtractConv2D extracts the parameters of CONV_2D.
func ExtractConv2D(op *ir.Operation) Conv2D {
	checkOperation(op, ir.OpTypeConv2D)
	inputs := op.Inputs
	p := Conv2D{
		Input:     inputs[0],
		Filter:    inputs[ir.Conv2DFilterIdx],
		Bias:      inputs[ir.Conv2DBiasIdx],
		Paddings:  readPaddings(inputs, ir.Conv2DPadLeftIdx),
		Strides:   readWidthHeight(inputs, ir.Conv2DStrideIdx),
		Group:     inputs[ir.Conv2DGroupIdx].Int32(),
		FuseCode:  readFuseCode(inputs, ir.Conv2DFuseCodeIdx),
		Dilations: readWidthHeight(inputs, ir.Conv2DDilationIdx),
		Output:    op.Outputs[0],
	}
	p.InputChannels, p.OutputChannels, p.FilterSize = convDims(op, p.Input, p.Filter)
	logOperand("input", p.Input)
	logOperand("filter", p.Filter)
	logOperand("bias", p.Bias)
	klog.V(5).Infof("  paddings=%+v strides=%+v group=%d dilations=%+v depthwise=%v",
		p.Paddings, p.Strides, p.Group, p.Dilations, p.IsDepthwise())
	logOperand("output", p.Output)
	return p
}

// DeformableConv2D parameters: a modulated deformable convolution.
//
// The offset is NCHW with 2*deformable_groups*kh*kw channels, interleaved as (y, x) per kernel position,
// and the mask has deformable_groups*kh*kw channels.
type DeformableConv2D struct {
	Conv2D
	Offset, Mask     *ir.Operand
	DeformableGroups int32

	// OffsetChannels is the number of channels of the offset.
	OffsetChannels int32
}

// ExtractDeformableConv2D extracts the parameters of DEFORMABLE_CONV_2D.
func ExtractDeformableConv2D(op *ir.Operation) DeformableConv2D {
	checkOperation(op, ir.OpTypeDeformableConv2D)
	inputs := op.Inputs
	p := DeformableConv2D{
		Conv2D: Conv2D{
			Input:     inputs[0],
			Filter:    inputs[ir.DeformableConv2DFilterIdx],
			Bias:      inputs[ir.DeformableConv2DBiasIdx],
			Paddings:  readPaddings(inputs, ir.DeformableConv2DPadLeftIdx),
			Strides:   readWidthHeight(inputs, ir.DeformableConv2DStrideIdx),
			Group:     inputs[ir.DeformableConv2DGroupIdx].Int32(),
			FuseCode:  readFuseCode(inputs, ir.DeformableConv2DFuseCodeIdx),
			Dilations: readWidthHeight(inputs, ir.DeformableConv2DDilationIdx),
			Output:    op.Outputs[0],
		},
		Offset:           inputs[ir.DeformableConv2DOffsetIdx],
		Mask:             inputs[ir.DeformableConv2DMaskIdx],
		DeformableGroups: inputs[ir.DeformableConv2DDeformableGroupIdx].Int32(),
	}
	p.InputChannels, p.OutputChannels, p.FilterSize = convDims(op, p.Input, p.Filter)
	if p.Offset == nil || p.Mask == nil || p.Offset.Type.Rank() != 4 {
		exceptions.Panicf("%s: offset and mask are required, and offset must be rank-4", ir.OperationToString(op))
	}
	p.OffsetChannels = p.Offset.Type.Dimensions[1]
	if p.OffsetChannels < 2 {
		exceptions.Panicf("%s: offset must have at least 2 known channels, got dimensions %s",
			ir.OperationToString(op), ir.DimensionsToString(p.Offset.Type.Dimensions))
	}
	logOperand("input", p.Input)
	logOperand("offset", p.Offset)
	logOperand("mask", p.Mask)
	logOperand("filter", p.Filter)
	logOperand("bias", p.Bias)
	klog.V(5).Infof("  paddings=%+v strides=%+v group=%d deformable_groups=%d dilations=%+v",
		p.Paddings, p.Strides, p.Group, p.DeformableGroups, p.Dilations)
	logOperand("output", p.Output)
	return p
}

// convDims returns the channels and filter spatial dimensions, panicking if they are not known.
func convDims(op *ir.Operation, input, filter *ir.Operand) (inputChannels, outputChannels int32, filterSize HW) {
	if input == nil || filter == nil || input.Type.Rank() != 4 || filter.Type.Rank() != 4 {
		exceptions.Panicf("%s: input and filter must be rank-4", ir.OperationToString(op))
	}
	filterDims := filter.Type.Dimensions
	for _, dim := range filterDims {
		if dim < 0 {
			exceptions.Panicf("%s: filter dimensions must be known, got %s",
				ir.OperationToString(op), ir.DimensionsToString(filterDims))
		}
	}
	return input.Type.Dimensions[1], filterDims[0], HW{Height: filterDims[2], Width: filterDims[3]}
}
