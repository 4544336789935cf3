// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package irbuilder

import (
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/ir/shapeinference"
)

// PoolBuilder configures an AVERAGE_POOL_2D or a MAX_POOL_2D.
// Create it with Builder.AveragePool2D or Builder.MaxPool2D, and call Done to add the operation.
//
// The defaults are: no padding, strides equal to the window, floor rounding, no fused activation and,
// for the average pool, padding excluded from the count.
type PoolBuilder struct {
	b               *Builder
	opType          ir.OpType
	input           *ir.Operand
	window          [2]int32
	config          shapeinference.ConvConfig
	fuse            ir.FuseCode
	ceilMode        bool
	countIncludePad bool
}

// AveragePool2D prepares an average pooling of the NCHW input over windows of (height, width).
func (b *Builder) AveragePool2D(input *ir.Operand, height, width int32) *PoolBuilder {
	return b.newPool(ir.OpTypeAveragePool2D, input, height, width)
}

// MaxPool2D prepares a max pooling of the NCHW input over windows of (height, width).
func (b *Builder) MaxPool2D(input *ir.Operand, height, width int32) *PoolBuilder {
	return b.newPool(ir.OpTypeMaxPool2D, input, height, width)
}

func (b *Builder) newPool(opType ir.OpType, input *ir.Operand, height, width int32) *PoolBuilder {
	return &PoolBuilder{
		b: b, opType: opType, input: input,
		window: [2]int32{height, width},
		config: shapeinference.ConvConfig{Strides: [2]int32{height, width}, Dilations: [2]int32{1, 1}},
	}
}

// Paddings sets the paddings in the order top, bottom, left, right.
func (pool *PoolBuilder) Paddings(top, bottom, left, right int32) *PoolBuilder {
	pool.config.Paddings = [4]int32{top, bottom, left, right}
	return pool
}

// StridePerDim sets the strides for height and width.
func (pool *PoolBuilder) StridePerDim(height, width int32) *PoolBuilder {
	pool.config.Strides = [2]int32{height, width}
	return pool
}

// CeilMode rounds the output dimensions up instead of down.
func (pool *PoolBuilder) CeilMode(ceilMode bool) *PoolBuilder {
	pool.ceilMode = ceilMode
	return pool
}

// CountIncludePad includes the padding in the count of the average. Ignored by MaxPool2D.
func (pool *PoolBuilder) CountIncludePad(include bool) *PoolBuilder {
	pool.countIncludePad = include
	return pool
}

// Fuse sets the activation fused at the end of the pooling.
func (pool *PoolBuilder) Fuse(fuse ir.FuseCode) *PoolBuilder {
	pool.fuse = fuse
	return pool
}

// Done adds the operation to the model and returns its output.
func (pool *PoolBuilder) Done() *ir.Operand {
	b, c := pool.b, pool.config
	dims := must(shapeinference.Pool2DOp(pool.input.Type.Dimensions, pool.window, c, pool.ceilMode))
	inputs := []*ir.Operand{
		pool.input,
		b.Int32(c.Paddings[2]), b.Int32(c.Paddings[3]), b.Int32(c.Paddings[0]), b.Int32(c.Paddings[1]),
		b.Int32(c.Strides[1]), b.Int32(c.Strides[0]),
		b.Int32(pool.window[1]), b.Int32(pool.window[0]),
		b.Int32(int32(pool.fuse)),
		b.Bool(pool.ceilMode),
	}
	if pool.opType == ir.OpTypeAveragePool2D {
		inputs = append(inputs, b.Bool(pool.countIncludePad))
	}
	return b.addOperation(pool.opType, pool.input, dims, inputs...)
}
