// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package irbuilder

import (
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/ir/shapeinference"
)

// ConvolutionBuilder configures a CONV_2D or a DEFORMABLE_CONV_2D.
// Create it with Builder.Conv2D or Builder.DeformableConv2D, and call Done to add the operation.
//
// The defaults are: no padding, stride 1, dilation 1, group 1, no fused activation.
type ConvolutionBuilder struct {
	b                                 *Builder
	input, offset, mask, filter, bias *ir.Operand
	deformable                        bool
	config                            shapeinference.ConvConfig
	group, deformableGroups           int32
	fuse                              ir.FuseCode
}

// Conv2D prepares a 2D convolution of the NCHW input with filter [out_channels, in_channels/group, kh, kw]
// and bias [out_channels].
func (b *Builder) Conv2D(input, filter, bias *ir.Operand) *ConvolutionBuilder {
	return &ConvolutionBuilder{
		b: b, input: input, filter: filter, bias: bias,
		config: shapeinference.ConvConfig{Strides: [2]int32{1, 1}, Dilations: [2]int32{1, 1}},
		group:  1, deformableGroups: 1,
	}
}

// DeformableConv2D prepares a modulated deformable 2D convolution.
// The offset has 2*deformable_groups*kh*kw channels ordered (y, x) per kernel position, and the mask has
// deformable_groups*kh*kw channels.
func (b *Builder) DeformableConv2D(input, offset, mask, filter, bias *ir.Operand) *ConvolutionBuilder {
	conv := b.Conv2D(input, filter, bias)
	conv.offset, conv.mask, conv.deformable = offset, mask, true
	return conv
}

// Paddings sets the paddings in the order top, bottom, left, right.
func (conv *ConvolutionBuilder) Paddings(top, bottom, left, right int32) *ConvolutionBuilder {
	conv.config.Paddings = [4]int32{top, bottom, left, right}
	return conv
}

// Strides sets the same stride for height and width.
func (conv *ConvolutionBuilder) Strides(stride int32) *ConvolutionBuilder {
	return conv.StridePerDim(stride, stride)
}

// StridePerDim sets the strides for height and width.
func (conv *ConvolutionBuilder) StridePerDim(height, width int32) *ConvolutionBuilder {
	conv.config.Strides = [2]int32{height, width}
	return conv
}

// Dilations sets the same dilation for height and width.
func (conv *ConvolutionBuilder) Dilations(dilation int32) *ConvolutionBuilder {
	return conv.DilationPerDim(dilation, dilation)
}

// DilationPerDim sets the dilations for height and width.
func (conv *ConvolutionBuilder) DilationPerDim(height, width int32) *ConvolutionBuilder {
	conv.config.Dilations = [2]int32{height, width}
	return conv
}

// Group sets the number of channel groups. If it equals the number of input channels, it's a depthwise convolution.
func (conv *ConvolutionBuilder) Group(group int32) *ConvolutionBuilder {
	conv.group = group
	return conv
}

// DeformableGroups sets the number of deformable groups, only used by DeformableConv2D.
func (conv *ConvolutionBuilder) DeformableGroups(groups int32) *ConvolutionBuilder {
	conv.deformableGroups = groups
	return conv
}

// Fuse sets the activation fused at the end of the convolution.
func (conv *ConvolutionBuilder) Fuse(fuse ir.FuseCode) *ConvolutionBuilder {
	conv.fuse = fuse
	return conv
}

// Done adds the operation to the model and returns its output.
func (conv *ConvolutionBuilder) Done() *ir.Operand {
	b, c := conv.b, conv.config
	pads := []*ir.Operand{
		b.Int32(c.Paddings[2]), b.Int32(c.Paddings[3]), // left, right
		b.Int32(c.Paddings[0]), b.Int32(c.Paddings[1]), // top, bottom
	}
	strides := []*ir.Operand{b.Int32(c.Strides[1]), b.Int32(c.Strides[0])}       // width, height
	dilations := []*ir.Operand{b.Int32(c.Dilations[1]), b.Int32(c.Dilations[0])} // width, height

	var inputs []*ir.Operand
	var dims []int32
	if conv.deformable {
		dims = must(shapeinference.DeformableConv2DOp(conv.input.Type.Dimensions, conv.offset.Type.Dimensions,
			conv.mask.Type.Dimensions, conv.filter.Type.Dimensions, conv.group, conv.deformableGroups, c))
		inputs = []*ir.Operand{conv.input, conv.offset, conv.mask, conv.filter, conv.bias}
		inputs = append(inputs, pads...)
		inputs = append(inputs, strides...)
		inputs = append(inputs, b.Int32(conv.group), b.Int32(conv.deformableGroups), b.Int32(int32(conv.fuse)))
		inputs = append(inputs, dilations...)
		return b.addOperation(ir.OpTypeDeformableConv2D, conv.input, dims, inputs...)
	}
	dims = must(shapeinference.Conv2DOp(conv.input.Type.Dimensions, conv.filter.Type.Dimensions, conv.group, c))
	inputs = []*ir.Operand{conv.input, conv.filter, conv.bias}
	inputs = append(inputs, pads...)
	inputs = append(inputs, strides...)
	inputs = append(inputs, b.Int32(conv.group), b.Int32(int32(conv.fuse)))
	inputs = append(inputs, dilations...)
	return b.addOperation(ir.OpTypeConv2D, conv.input, dims, inputs...)
}
