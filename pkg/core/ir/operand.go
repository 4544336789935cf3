// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Quantization parameters of a quantized Operand.
type Quantization struct {
	// Scales holds one value for per-layer quantization, or one value per channel otherwise.
	Scales []float32

	// ZeroPoint is only used by the asymmetric precisions.
	ZeroPoint int32

	// ChannelDim is the axis of the per-channel scales.
	ChannelDim int
}

// OperandType describes the data held by an Operand.
type OperandType struct {
	Precision Precision
	Layout    Layout

	// Dimensions of the operand, -1 for an unknown dimension. Empty for scalars.
	Dimensions []int32

	Lifetime Lifetime

	// Quant is set for quantized precisions only.
	Quant *Quantization
}

// Clone returns a deep copy of the type.
func (t OperandType) Clone() OperandType {
	t2 := t
	t2.Dimensions = slices.Clone(t.Dimensions)
	if t.Quant != nil {
		q := *t.Quant
		q.Scales = slices.Clone(t.Quant.Scales)
		t2.Quant = &q
	}
	return t2
}

// Rank of the operand, 0 for scalars.
func (t OperandType) Rank() int {
	return len(t.Dimensions)
}

// Size returns the number of elements, or -1 if any of the dimensions is unknown.
func (t OperandType) Size() int {
	size := 1
	for _, dim := range t.Dimensions {
		if dim < 0 {
			return -1
		}
		size *= int(dim)
	}
	return size
}

// Memory returns the number of bytes used to store the operand, or -1 if any of the dimensions is unknown.
func (t OperandType) Memory() int {
	size := t.Size()
	if size < 0 {
		return -1
	}
	return size * int(t.Precision.DType().Size())
}

// Operand is a data node of a Model: an input, an output, a constant or a temporary variable produced by
// one Operation.
//
// Operands are created by the Model and identified by their pointer, ID() is only used for naming.
type Operand struct {
	id   int
	Type OperandType

	// Buffer holds the little-endian encoded values of constant operands.
	// For LifetimeConstantReference the buffer is owned by the caller and must not be changed during a conversion.
	Buffer []byte
}

// ID of the operand: its index within the Model.
func (o *Operand) ID() int {
	return o.id
}

// IsConstant returns whether the operand is a constant with a buffer.
func (o *Operand) IsConstant() bool {
	return o != nil && o.Type.Lifetime.IsConstant()
}

// checkConstant panics if the operand is not a constant with the given storage precision and at least
// one element.
func (o *Operand) checkConstant(accessor string, precisions ...Precision) {
	if o == nil {
		panic(errors.Wrapf(ErrNotConstant, "%s() called on a nil operand", accessor))
	}
	if !o.IsConstant() {
		panic(errors.Wrapf(ErrNotConstant, "%s() called on operand %s with lifetime %s",
			accessor, OperandIDToString(o), o.Type.Lifetime))
	}
	if !slices.Contains(precisions, o.Type.Precision) {
		panic(errors.Wrapf(ErrPrecisionMismatch, "%s() called on operand %s with precision %s, wanted one of %v",
			accessor, OperandIDToString(o), o.Type.Precision, precisions))
	}
	elementSize := int(o.Type.Precision.DType().Size())
	if len(o.Buffer) == 0 || len(o.Buffer)%elementSize != 0 {
		panic(errors.Wrapf(ErrBufferSize, "%s() called on operand %s with a buffer of %d bytes, element size is %d",
			accessor, OperandIDToString(o), len(o.Buffer), elementSize))
	}
	if size := o.Type.Size(); size >= 0 && size*elementSize != len(o.Buffer) {
		panic(errors.Wrapf(ErrBufferSize, "operand %s has dimensions %v (%d elements) but a buffer of %d bytes",
			OperandIDToString(o), o.Type.Dimensions, size, len(o.Buffer)))
	}
}

// Int32 returns the value of a scalar int32 constant.
//
// It panics if the operand is not a constant, or if it is not an int32, or if it holds more than one value.
func (o *Operand) Int32() int32 {
	values := o.Int32s()
	if len(values) != 1 {
		panic(errors.Wrapf(ErrBufferSize, "Int32() called on operand %s holding %d values", OperandIDToString(o), len(values)))
	}
	return values[0]
}

// Int32s returns the values of an int32 constant.
//
// It panics if the operand is not a constant or if it is not an int32.
func (o *Operand) Int32s() []int32 {
	o.checkConstant("Int32s", PrecisionInt32, PrecisionQuantInt32SymmPerLayer, PrecisionQuantInt32SymmPerChannel)
	values := make([]int32, len(o.Buffer)/4)
	for ii := range values {
		values[ii] = int32(binary.LittleEndian.Uint32(o.Buffer[ii*4:]))
	}
	return values
}

// Bool returns the value of a scalar bool constant.
//
// It panics if the operand is not a constant, or if it is not a BOOL8, or if it holds more than one value.
func (o *Operand) Bool() bool {
	o.checkConstant("Bool", PrecisionBool8)
	if len(o.Buffer) != 1 {
		panic(errors.Wrapf(ErrBufferSize, "Bool() called on operand %s holding %d values", OperandIDToString(o), len(o.Buffer)))
	}
	return o.Buffer[0] != 0
}

// Float32 returns the value of a scalar float constant.
func (o *Operand) Float32() float32 {
	values := o.Float32s()
	if len(values) != 1 {
		panic(errors.Wrapf(ErrBufferSize, "Float32() called on operand %s holding %d values", OperandIDToString(o), len(values)))
	}
	return values[0]
}

// Float32s returns the values of a float constant. FLOAT16 constants are converted.
//
// It panics if the operand is not a constant or if it is not a FLOAT32 or FLOAT16.
func (o *Operand) Float32s() []float32 {
	o.checkConstant("Float32s", PrecisionFloat32, PrecisionFloat16)
	if o.Type.Precision == PrecisionFloat16 {
		values := make([]float32, len(o.Buffer)/2)
		for ii := range values {
			values[ii] = float16.Frombits(binary.LittleEndian.Uint16(o.Buffer[ii*2:])).Float32()
		}
		return values
	}
	values := make([]float32, len(o.Buffer)/4)
	for ii := range values {
		values[ii] = math.Float32frombits(binary.LittleEndian.Uint32(o.Buffer[ii*4:]))
	}
	return values
}

// encodeValues returns the little-endian encoding of values.
func encodeValues[T bool | int32 | float32 | float16.Float16](values []T) []byte {
	var zero T
	buf := make([]byte, 0, len(values)*binary.Size(zero))
	for _, v := range values {
		buf, _ = binary.Append(buf, binary.LittleEndian, v)
	}
	return buf
}
