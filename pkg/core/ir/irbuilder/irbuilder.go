// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package irbuilder provides a convenient way of building an ir.Model: one method per operation type, which
// creates the attribute constants in the positional order each operation expects, and declares the output operand
// with the dimensions given by shapeinference.
//
// Operations with many attributes (convolutions, poolings, resizes) return a builder that can be further
// configured, and return their output when Done() is called. E.g.:
//
//	b := irbuilder.New()
//	x := b.Input(ir.PrecisionFloat32, 1, 3, 224, 224)
//	y := b.Conv2D(x, filter, bias).Strides(2).Paddings(1, 1, 1, 1).Fuse(ir.FuseRelu).Done()
//	b.Outputs(y)
//	model := b.Model()
//
// Errors in the parameters are reported with a panic.
package irbuilder

import (
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/ir/shapeinference"
	"github.com/gomlx/exceptions"
)

// Builder of an ir.Model.
type Builder struct {
	model *ir.Model
}

// New creates a Builder for a new empty ir.Model.
func New() *Builder {
	return &Builder{model: ir.NewModel()}
}

// Model being built.
func (b *Builder) Model() *ir.Model {
	return b.model
}

// Input creates a new model input.
func (b *Builder) Input(precision ir.Precision, dims ...int32) *ir.Operand {
	return b.model.AddInput(precision, dims...)
}

// Outputs marks the operands as model outputs.
func (b *Builder) Outputs(outputs ...*ir.Operand) {
	b.model.MarkOutputs(outputs...)
}

// Float32 creates a float32 constant with the given dimensions.
func (b *Builder) Float32(values []float32, dims ...int32) *ir.Operand {
	return b.model.AddFloat32Constant(values, dims...)
}

// Int32 creates a scalar int32 constant.
func (b *Builder) Int32(value int32) *ir.Operand {
	return b.model.AddInt32Constant(value)
}

// Int32s creates a rank-1 int32 constant.
func (b *Builder) Int32s(values ...int32) *ir.Operand {
	return b.model.AddInt32VectorConstant(values)
}

// Bool creates a scalar bool constant.
func (b *Builder) Bool(value bool) *ir.Operand {
	return b.model.AddBoolConstant(value)
}

// newOutput declares a temporary operand with the type of like but with the given dimensions.
func (b *Builder) newOutput(like *ir.Operand, dims []int32) *ir.Operand {
	t := like.Type.Clone()
	t.Dimensions = dims
	t.Lifetime = ir.LifetimeTemporaryVariable
	return b.model.AddOperand(t)
}

// addOperation adds the operation with a newly created output with the type of like and the given dimensions.
func (b *Builder) addOperation(opType ir.OpType, like *ir.Operand, dims []int32, inputs ...*ir.Operand) *ir.Operand {
	output := b.newOutput(like, dims)
	b.model.AddOperation(opType, inputs, []*ir.Operand{output})
	return output
}

func must[T any](value T, err error) T {
	if err != nil {
		exceptions.Panicf("irbuilder: %+v", err)
	}
	return value
}

func (b *Builder) binaryOp(opType ir.OpType, x, y *ir.Operand, fuse ir.FuseCode) *ir.Operand {
	dims := must(shapeinference.BinaryOp(opType, x.Type.Dimensions, y.Type.Dimensions))
	return b.addOperation(opType, x, dims, x, y, b.Int32(int32(fuse)))
}

// Add returns x+y (broadcast), followed by the fused activation.
func (b *Builder) Add(x, y *ir.Operand, fuse ir.FuseCode) *ir.Operand {
	return b.binaryOp(ir.OpTypeAdd, x, y, fuse)
}

// Sub returns x-y (broadcast), followed by the fused activation.
func (b *Builder) Sub(x, y *ir.Operand, fuse ir.FuseCode) *ir.Operand {
	return b.binaryOp(ir.OpTypeSub, x, y, fuse)
}

// Mul returns x*y (broadcast), followed by the fused activation.
func (b *Builder) Mul(x, y *ir.Operand, fuse ir.FuseCode) *ir.Operand {
	return b.binaryOp(ir.OpTypeMul, x, y, fuse)
}

// Div returns x/y (broadcast), followed by the fused activation.
func (b *Builder) Div(x, y *ir.Operand, fuse ir.FuseCode) *ir.Operand {
	return b.binaryOp(ir.OpTypeDiv, x, y, fuse)
}

// Relu returns max(x, 0).
func (b *Builder) Relu(x *ir.Operand) *ir.Operand {
	return b.addOperation(ir.OpTypeRelu, x, x.Type.Dimensions, x)
}

// Relu6 returns min(max(x, 0), 6).
func (b *Builder) Relu6(x *ir.Operand) *ir.Operand {
	return b.addOperation(ir.OpTypeRelu6, x, x.Type.Dimensions, x)
}

// Sigmoid returns 1/(1+exp(-x)).
func (b *Builder) Sigmoid(x *ir.Operand) *ir.Operand {
	return b.addOperation(ir.OpTypeSigmoid, x, x.Type.Dimensions, x)
}

// Tanh returns the hyperbolic tangent of x.
func (b *Builder) Tanh(x *ir.Operand) *ir.Operand {
	return b.addOperation(ir.OpTypeTanh, x, x.Type.Dimensions, x)
}

// Softmax of x over the given axis. A negative axis counts from the end.
func (b *Builder) Softmax(x *ir.Operand, axis int32) *ir.Operand {
	return b.addOperation(ir.OpTypeSoftmax, x, x.Type.Dimensions, x, b.Int32(axis))
}

// FullyConnected returns input (flattened to [batch, K]) times the transposed weight [units, K] plus bias [units],
// followed by the fused activation.
func (b *Builder) FullyConnected(input, weight, bias *ir.Operand, fuse ir.FuseCode) *ir.Operand {
	dims := must(shapeinference.FullyConnectedOp(input.Type.Dimensions, weight.Type.Dimensions))
	return b.addOperation(ir.OpTypeFullyConnected, input, dims, input, weight, bias, b.Int32(int32(fuse)))
}

// Concat concatenates the inputs on the given axis. A negative axis counts from the end.
func (b *Builder) Concat(axis int32, inputs ...*ir.Operand) *ir.Operand {
	if len(inputs) == 0 {
		exceptions.Panicf("irbuilder: Concat requires at least one input")
	}
	allDims := make([][]int32, len(inputs))
	for ii, input := range inputs {
		allDims[ii] = input.Type.Dimensions
	}
	dims := must(shapeinference.ConcatOp(allDims, int(axis)))
	operands := append(append([]*ir.Operand{}, inputs...), b.Int32(axis))
	return b.addOperation(ir.OpTypeConcat, inputs[0], dims, operands...)
}

// Reshape x to the given shape: 0 copies the input dimension, and one -1 is inferred.
func (b *Builder) Reshape(x *ir.Operand, shape ...int32) *ir.Operand {
	dims := must(shapeinference.ReshapeOp(x.Type.Dimensions, shape))
	return b.addOperation(ir.OpTypeReshape, x, dims, x, b.Int32s(shape...))
}

// Transpose x axes: output axis ii is the input axis perm[ii].
func (b *Builder) Transpose(x *ir.Operand, perm ...int32) *ir.Operand {
	dims := must(shapeinference.TransposeOp(x.Type.Dimensions, perm))
	return b.addOperation(ir.OpTypeTranspose, x, dims, x, b.Int32s(perm...))
}
