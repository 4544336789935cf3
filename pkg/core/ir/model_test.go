// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"math"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestEnums(t *testing.T) {
	require.Equal(t, "CONV_2D", OpTypeConv2D.String())
	require.Equal(t, "DEFORMABLE_CONV_2D", OpTypeDeformableConv2D.String())
	require.Equal(t, "OpType(1000)", OpType(1000).String())
	require.Equal(t, "FLOAT32", PrecisionFloat32.String())
	require.Equal(t, "RELU6", FuseRelu6.String())
	require.Equal(t, "FuseCode(7)", FuseCode(7).String())
	require.Equal(t, "MODEL_INPUT", LifetimeModelInput.String())
	require.Equal(t, "NHWC", LayoutNHWC.String())

	for _, opType := range OpTypeValues() {
		parsed, err := OpTypeString(opType.String())
		require.NoError(t, err)
		require.Equal(t, opType, parsed)
		_, found := ArityOf(opType)
		require.Equalf(t, opType.IsValid(), found, "arity for %s", opType)
	}
	require.False(t, OpTypeInvalid.IsValid())
	require.False(t, OpTypeLast.IsValid())
	_, err := OpTypeString("CONV_3D")
	require.Error(t, err)
	opType, err := OpTypeString("max_pool_2d")
	require.NoError(t, err)
	require.Equal(t, OpTypeMaxPool2D, opType)

	p, err := PrecisionString("quant_uint8_asymm_per_layer")
	require.NoError(t, err)
	require.Equal(t, PrecisionQuantUint8AsymmPerLayer, p)
	require.True(t, p.IsQuantized())
	require.False(t, PrecisionFloat32.IsQuantized())
	fuse, err := FuseCodeString("relu1")
	require.NoError(t, err)
	require.Equal(t, FuseRelu1, fuse)
	layout, err := LayoutString("nhwc")
	require.NoError(t, err)
	require.Equal(t, LayoutNHWC, layout)

	// Enums are serialized by name.
	text, err := PrecisionFloat16.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "FLOAT16", string(text))
	var lifetime Lifetime
	require.NoError(t, lifetime.UnmarshalJSON([]byte(`"CONSTANT_REFERENCE"`)))
	require.Equal(t, LifetimeConstantReference, lifetime)
	require.Error(t, lifetime.UnmarshalJSON([]byte(`3`)))
}

func TestAccessors(t *testing.T) {
	m := NewModel()
	i := m.AddInt32Constant(-7)
	require.Equal(t, int32(-7), i.Int32())
	require.Equal(t, []int32{-7}, i.Int32s())
	require.Equal(t, LifetimeConstantCopy, i.Type.Lifetime)

	v := m.AddInt32VectorConstant([]int32{1, 2, 3})
	require.Equal(t, []int32{1, 2, 3}, v.Int32s())
	require.Equal(t, []int32{3}, v.Type.Dimensions)

	b := m.AddBoolConstant(true)
	require.True(t, b.Bool())
	require.False(t, m.AddBoolConstant(false).Bool())

	f := m.AddFloat32Constant([]float32{1.5, 2})
	require.Equal(t, []float32{1.5, 2}, f.Float32s())
	require.Equal(t, float32(0.25), m.AddFloat32Constant([]float32{0.25}).Float32())

	h := m.AddFloat16Constant([]float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2)})
	require.Equal(t, []float32{1.5, -2}, h.Float32s())

	nan := m.AddFloat32Constant([]float32{float32(math.NaN())})
	require.True(t, math.IsNaN(float64(nan.Float32())))

	// Checked accessors refuse to reinterpret operands.
	input := m.AddInput(PrecisionInt32, 1)
	err := exceptions.TryCatch[error](func() { _ = input.Int32() })
	require.ErrorIs(t, err, ErrNotConstant)
	err = exceptions.TryCatch[error](func() { _ = f.Int32s() })
	require.ErrorIs(t, err, ErrPrecisionMismatch)
	err = exceptions.TryCatch[error](func() { _ = i.Bool() })
	require.ErrorIs(t, err, ErrPrecisionMismatch)
	err = exceptions.TryCatch[error](func() { _ = v.Int32() })
	require.ErrorIs(t, err, ErrBufferSize)
	var nilOperand *Operand
	err = exceptions.TryCatch[error](func() { _ = nilOperand.Int32() })
	require.ErrorIs(t, err, ErrNotConstant)
}

func TestAddConstant(t *testing.T) {
	m := NewModel()
	buf := encodeValues([]int32{1, 2})
	ref := m.AddConstant(OperandType{Precision: PrecisionInt32, Dimensions: []int32{2}}, buf, false)
	require.Equal(t, LifetimeConstantReference, ref.Type.Lifetime)
	require.Same(t, &buf[0], &ref.Buffer[0])

	cp := m.AddConstant(OperandType{Precision: PrecisionInt32, Dimensions: []int32{2}}, buf, true)
	require.Equal(t, LifetimeConstantCopy, cp.Type.Lifetime)
	require.NotSame(t, &buf[0], &cp.Buffer[0])

	err := exceptions.TryCatch[error](func() {
		m.AddConstant(OperandType{Precision: PrecisionInt32, Dimensions: []int32{3}}, buf, true)
	})
	require.ErrorIs(t, err, ErrBufferSize)
	err = exceptions.TryCatch[error](func() {
		m.AddConstant(OperandType{Precision: PrecisionInt32, Dimensions: []int32{-1}}, buf, true)
	})
	require.ErrorIs(t, err, ErrBufferSize)
}

func TestAddOperation(t *testing.T) {
	m := NewModel()
	x := m.AddInput(PrecisionFloat32, 2, 3)
	y := m.AddTemporary(PrecisionFloat32, 2, 3)
	op := m.AddOperation(OpTypeRelu, []*Operand{x}, []*Operand{y})
	require.Same(t, op, m.Producer(y))
	require.Nil(t, m.Producer(x))
	require.Equal(t, "#0 RELU(@0) -> (@1)", OperationToString(op))

	// Each operand has at most one producer.
	err := exceptions.TryCatch[error](func() { m.AddOperation(OpTypeTanh, []*Operand{x}, []*Operand{y}) })
	require.ErrorIs(t, err, ErrMultipleProducers)

	// Inputs can't be produced.
	err = exceptions.TryCatch[error](func() { m.AddOperation(OpTypeTanh, []*Operand{y}, []*Operand{x}) })
	require.Error(t, err)

	// Operands of other models are rejected.
	other := NewModel()
	foreign := other.AddInput(PrecisionFloat32, 2, 3)
	err = exceptions.TryCatch[error](func() {
		m.AddOperation(OpTypeTanh, []*Operand{foreign}, []*Operand{m.AddTemporary(PrecisionFloat32)})
	})
	require.Error(t, err)

	err = exceptions.TryCatch[error](func() { m.AddOperation(OpTypeInvalid, nil, nil) })
	require.ErrorIs(t, err, ErrUnknownOpType)

	m.MarkOutputs(y)
	require.Equal(t, LifetimeModelOutput, y.Type.Lifetime)
	require.Equal(t, []*Operand{y}, m.Outputs())
	require.NoError(t, m.Validate())
}

func TestCheckArity(t *testing.T) {
	m := NewModel()
	x := m.AddInput(PrecisionFloat32, 1, 3, 4, 4)
	out := m.AddTemporary(PrecisionFloat32, 1, 3, 4, 4)
	op := m.AddOperation(OpTypeAdd, []*Operand{x, x}, []*Operand{out})
	err := exceptions.TryCatch[error](func() { CheckArity(op) })
	require.ErrorIs(t, err, ErrArityMismatch)
	assert.Contains(t, err.Error(), "takes 3 inputs, got 2")

	m.MarkOutputs(out)
	require.ErrorIs(t, m.Validate(), ErrInvalidModel)

	// Concat is variadic with at least one tensor and the axis.
	m2 := NewModel()
	a := m2.AddInput(PrecisionFloat32, 2)
	concat := m2.AddOperation(OpTypeConcat, []*Operand{a, m2.AddInt32Constant(0)},
		[]*Operand{m2.AddTemporary(PrecisionFloat32, 2)})
	require.NotPanics(t, func() { CheckArity(concat) })
	concat.Inputs = concat.Inputs[1:]
	require.Panics(t, func() { CheckArity(concat) })
}

func TestCheckArityAllOpTypes(t *testing.T) {
	for opType, arity := range arities {
		t.Run(opType.String(), func(t *testing.T) {
			m := NewModel()
			x := m.AddInput(PrecisionFloat32, 4)
			inputsOf := func(n int) []*Operand {
				inputs := make([]*Operand, n)
				for ii := range inputs {
					inputs[ii] = x
				}
				return inputs
			}
			out := []*Operand{m.AddTemporary(PrecisionFloat32, 4)}

			op := m.AddOperation(opType, inputsOf(arity.Inputs), out)
			require.NotPanics(t, func() { CheckArity(op) })

			op.Inputs = inputsOf(arity.Inputs - 1)
			err := exceptions.TryCatch[error](func() { CheckArity(op) })
			require.ErrorIs(t, err, ErrArityMismatch)

			op.Inputs = inputsOf(arity.Inputs + 1)
			if arity.Variadic {
				require.NotPanics(t, func() { CheckArity(op) })
			} else {
				err = exceptions.TryCatch[error](func() { CheckArity(op) })
				require.ErrorIs(t, err, ErrArityMismatch)
			}

			op.Inputs = inputsOf(arity.Inputs)
			op.Outputs = nil
			err = exceptions.TryCatch[error](func() { CheckArity(op) })
			require.ErrorIs(t, err, ErrArityMismatch)
		})
	}
	require.Len(t, arities, int(OpTypeLast)-1)
}

func TestValidate(t *testing.T) {
	m := NewModel()
	x := m.AddInput(PrecisionFloat32, 4)
	dangling := m.AddTemporary(PrecisionFloat32, 4)
	out := m.AddTemporary(PrecisionFloat32, 4)
	m.AddOperation(OpTypeAdd, []*Operand{x, dangling, m.AddInt32Constant(0)}, []*Operand{out})
	m.MarkOutputs(out)
	err := m.Validate()
	require.ErrorIs(t, err, ErrInvalidModel)
	require.Contains(t, err.Error(), "never produced")

	m = NewModel()
	out = m.AddTemporary(PrecisionFloat32, 4)
	m.MarkOutputs(out)
	require.ErrorIs(t, m.Validate(), ErrInvalidModel)
}

func TestOperandToString(t *testing.T) {
	m := NewModel()
	x := m.AddInput(PrecisionFloat32, 1, -1, 4)
	require.Equal(t, "@0: FLOAT32[1, ?, 4] NCHW MODEL_INPUT", OperandToString(x))
	c := m.AddInt32VectorConstant([]int32{2, 3})
	require.Equal(t, "@1: INT32[2] NCHW CONSTANT_COPY (8 B) = [2 3]", OperandToString(c))
	q := m.AddOperand(OperandType{
		Precision:  PrecisionQuantUint8AsymmPerLayer,
		Dimensions: []int32{8},
		Lifetime:   LifetimeTemporaryVariable,
		Quant:      &Quantization{Scales: []float32{0.5}, ZeroPoint: 128},
	})
	require.Equal(t, "@2: QUANT_UINT8_ASYMM_PER_LAYER[8] NCHW TEMPORARY_VARIABLE scales=[0.5] zero_point=128",
		OperandToString(q))
	require.Equal(t, "<nil>", OperandToString(nil))
	require.NoError(t, m.Validate())
}
