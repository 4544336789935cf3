// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package irbuilder

import (
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/ir/shapeinference"
)

// ResizeBuilder configures a RESIZE_NEAREST or a RESIZE_LINEAR.
// Create it with Builder.ResizeNearest or Builder.ResizeLinear, set either the output shape or the scales,
// and call Done to add the operation.
type ResizeBuilder struct {
	b            *Builder
	opType       ir.OpType
	input        *ir.Operand
	shape        *ir.Operand
	scales       *ir.Operand
	alignCorners bool
	alignMode    int32
}

// ResizeNearest prepares a nearest neighbor resize of the NCHW input.
func (b *Builder) ResizeNearest(input *ir.Operand) *ResizeBuilder {
	return &ResizeBuilder{b: b, opType: ir.OpTypeResizeNearest, input: input}
}

// ResizeLinear prepares a bilinear resize of the NCHW input.
func (b *Builder) ResizeLinear(input *ir.Operand) *ResizeBuilder {
	return &ResizeBuilder{b: b, opType: ir.OpTypeResizeLinear, input: input, alignMode: 1}
}

// Shape sets the output (height, width) from a constant.
func (r *ResizeBuilder) Shape(height, width int32) *ResizeBuilder {
	r.shape = r.b.Int32s(height, width)
	return r
}

// ShapeOperand sets the output (height, width) from an int32[2] operand, which may be computed at execution time.
func (r *ResizeBuilder) ShapeOperand(shape *ir.Operand) *ResizeBuilder {
	r.shape = shape
	return r
}

// Scales sets the output dimensions as trunc(height*heightScale) and trunc(width*widthScale).
func (r *ResizeBuilder) Scales(heightScale, widthScale float32) *ResizeBuilder {
	r.scales = r.b.Float32([]float32{heightScale, widthScale})
	return r
}

// AlignCorners aligns the corner pixels of the input and output.
func (r *ResizeBuilder) AlignCorners(align bool) *ResizeBuilder {
	r.alignCorners = align
	return r
}

// AlignMode sets the sampling mode of RESIZE_LINEAR when not aligning corners: 0 is half-pixel, 1 is asymmetric.
func (r *ResizeBuilder) AlignMode(mode int32) *ResizeBuilder {
	r.alignMode = mode
	return r
}

// Done adds the operation to the model and returns its output.
//
// Neither the shape nor the scales are required here: a resize without them is a valid IR operation, but the
// backends reject it at conversion time.
func (r *ResizeBuilder) Done() *ir.Operand {
	var shape []int32
	var scales []float32
	if r.shape != nil && r.shape.IsConstant() {
		shape = r.shape.Int32s()
	}
	if r.scales != nil {
		scales = r.scales.Float32s()
	}
	dims := must(shapeinference.ResizeOp(r.input.Type.Dimensions, shape, scales))
	inputs := []*ir.Operand{r.input, r.shape, r.scales, r.b.Bool(r.alignCorners)}
	if r.opType == ir.OpTypeResizeLinear {
		inputs = append(inputs, r.b.Int32(r.alignMode))
	}
	return r.b.addOperation(r.opType, r.input, dims, inputs...)
}
