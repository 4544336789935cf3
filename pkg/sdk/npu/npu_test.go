// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package npu

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTensor(t *testing.T) {
	g := NewGraph()
	x := must.M1(g.CreateTensor(TensorAttr{Name: "x", Precision: PrecisionFloat32, Dims: []int32{1, 3, 4, 4}}, nil))
	assert.Equal(t, RoleVariable, x.Role)
	assert.Equal(t, 0, x.Index())
	assert.Same(t, x, g.TensorByName("x"))
	assert.Equal(t, "x(FLOAT32[1 3 4 4])", x.String())

	c := must.M1(g.CreateTensor(TensorAttr{Precision: PrecisionInt32, Dims: []int32{2}}, make([]byte, 8)))
	assert.Equal(t, RoleConstant, c.Role)
	assert.Equal(t, "#1(INT32[2])", c.String())
	assert.Equal(t, 8, g.ConstantBytes())

	t.Run("errors", func(t *testing.T) {
		_, err := g.CreateTensor(TensorAttr{Name: "y", Precision: PrecisionInvalid, Dims: []int32{1}}, nil)
		require.ErrorIs(t, err, ErrUnsupported)
		_, err = g.CreateTensor(TensorAttr{Name: "y", Precision: PrecisionFloat32, Dims: []int32{-1, 3}}, nil)
		require.ErrorIs(t, err, ErrUnsupported)
		_, err = g.CreateTensor(TensorAttr{Name: "x", Precision: PrecisionFloat32, Dims: []int32{1}}, nil)
		require.ErrorContains(t, err, "duplicate")
		_, err = g.CreateTensor(TensorAttr{Precision: PrecisionFloat32, Dims: []int32{3}}, make([]byte, 8))
		require.ErrorContains(t, err, "requires 12 bytes")
		_, err = g.CreateTensor(TensorAttr{Precision: PrecisionUint8, Dims: []int32{3}, QuantType: QuantAsymmetric,
			Scales: []float32{0.5}}, nil)
		require.ErrorContains(t, err, "zero point")
		_, err = g.CreateTensor(TensorAttr{Precision: PrecisionInt8, Dims: []int32{4, 2}, QuantType: QuantSymmetricPerChannel,
			Scales: []float32{0.5, 0.25}}, nil)
		require.ErrorContains(t, err, "one scale per channel")
		assert.Len(t, g.Tensors(), 2)
	})

	q := must.M1(g.CreateTensor(TensorAttr{Precision: PrecisionUint8, Dims: []int32{3}, QuantType: QuantAsymmetric,
		Scales: []float32{0.5}, ZeroPoints: []int32{128}}, nil))
	assert.Equal(t, "ASYMMETRIC", q.Attr.QuantType.String())
}

func TestAddOperator(t *testing.T) {
	g := NewGraph()
	x := must.M1(g.CreateTensor(TensorAttr{Name: "x", Precision: PrecisionFloat32, Dims: []int32{1, 3, 4, 4}}, nil))
	y := must.M1(g.CreateTensor(TensorAttr{Name: "y", Precision: PrecisionFloat32, Dims: []int32{1, 3, 4, 4}}, nil))
	z := must.M1(g.CreateTensor(TensorAttr{Name: "z", Precision: PrecisionFloat32, Dims: []int32{1, 3, 4, 4}}, nil))

	op := must.M1(g.AddOperator(OperatorAdd, []*Tensor{x, y}, []*Tensor{z}, &EltwiseAttr{Axis: -1}, "add"))
	assert.Equal(t, 0, op.Index())
	assert.Equal(t, "ADD", op.Type.String())
	must.M1(g.AddOperator(OperatorRelu, []*Tensor{z}, []*Tensor{y}, nil, ""))
	assert.Len(t, g.OperatorsOfType(OperatorRelu), 1)

	_, err := g.AddOperator(OperatorSoftmax, []*Tensor{x}, []*Tensor{z}, &Conv2DAttr{}, "")
	require.ErrorContains(t, err, "requires its attribute struct")
	_, err = g.AddOperator(OperatorSoftmax, []*Tensor{x}, []*Tensor{z}, (*SoftmaxAttr)(nil), "")
	require.Error(t, err)
	_, err = g.AddOperator(OperatorSigmoid, []*Tensor{x}, []*Tensor{z}, &SoftmaxAttr{}, "")
	require.ErrorContains(t, err, "takes no attributes")
	_, err = g.AddOperator(OperatorInvalid, []*Tensor{x}, []*Tensor{z}, nil, "")
	require.ErrorIs(t, err, ErrUnsupported)

	other := NewGraph()
	foreign := must.M1(other.CreateTensor(TensorAttr{Precision: PrecisionFloat32, Dims: []int32{1}}, nil))
	_, err = g.AddOperator(OperatorTanh, []*Tensor{foreign}, []*Tensor{z}, nil, "")
	require.ErrorContains(t, err, "doesn't belong")
	assert.Len(t, g.Operators(), 2)

	g.SetInputsOutputs([]*Tensor{x}, []*Tensor{y})
	assert.Equal(t, []*Tensor{x}, g.Inputs())
	assert.Equal(t, []*Tensor{y}, g.Outputs())
}
