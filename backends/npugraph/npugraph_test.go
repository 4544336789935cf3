// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package npugraph

import (
	"fmt"
	"testing"

	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/ir/irbuilder"
	"github.com/gomlx/accel/pkg/sdk/npu"
	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convert(t *testing.T, config string, model *ir.Model) *Program {
	t.Helper()
	p := New(config).(*Backend).NewProgram(model)
	require.NoError(t, p.Convert())
	return p
}

func operatorTypes(g *npu.Graph) []npu.OperatorType {
	var types []npu.OperatorType
	for _, op := range g.Operators() {
		types = append(types, op.Type)
	}
	return types
}

func TestBackend(t *testing.T) {
	backend := backends.NewWithConfig(BackendName + ":relu_in_conv=false")
	require.Equal(t, BackendName, backend.Name())
	require.False(t, backend.(*Backend).reluInConv)
	require.True(t, New("").(*Backend).reluInConv)
	require.Panics(t, func() { New("relu_in_conv=maybe") })
	require.Panics(t, func() { New("fast=true") })

	caps := backend.Capabilities()
	assert.True(t, caps.Operations[ir.OpTypeConv2D])
	assert.False(t, caps.Operations[ir.OpTypeDeformableConv2D])
	assert.False(t, caps.Operations[ir.OpTypeResizeNearest])
	assert.True(t, caps.Precisions[ir.PrecisionQuantUint8AsymmPerLayer])
	assert.False(t, caps.Precisions[ir.PrecisionFloat64])
	assert.True(t, caps.FuseCodes[ir.FuseRelu1])

	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 1, 3, 4, 4)
	b.Outputs(b.Sigmoid(x))
	require.NoError(t, caps.Check(b.Model()))
	program, err := backend.Build(b.Model())
	require.NoError(t, err)
	stats := program.Stats()
	assert.Equal(t, 1, stats.NumOperators)
	assert.Equal(t, 2, stats.NumTensors)
	assert.Zero(t, stats.ConstantBytes)
}

func TestConv2D(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 1, 4, 8, 8)
	filter := b.Float32(make([]float32, 8*1*3*2), 8, 1, 3, 2)
	bias := b.Float32(make([]float32, 8), 8)
	y := b.Conv2D(x, filter, bias).Group(4).Paddings(1, 2, 3, 4).StridePerDim(2, 1).Fuse(ir.FuseRelu).Done()
	b.Outputs(y)
	p := convert(t, "", b.Model())
	g := p.Graph()

	require.Equal(t, []npu.OperatorType{npu.OperatorConv2D}, operatorTypes(g))
	conv := g.Operators()[0]
	attr := conv.Attr.(*npu.Conv2DAttr)
	assert.Equal(t, [2]int32{3, 2}, attr.Ksize)
	assert.Equal(t, [2]int32{1, 2}, attr.Stride)
	assert.Equal(t, [4]int32{3, 4, 1, 2}, attr.Pad)
	assert.Equal(t, int32(4), attr.Group)
	assert.Equal(t, int32(2), attr.Multiplier)
	assert.Equal(t, int32(8), attr.Weights)
	assert.Equal(t, [2]int32{1, 1}, attr.Dilation)
	assert.Equal(t, npu.PadAuto, attr.PadType)
	assert.True(t, attr.HasRelu)

	require.Len(t, p.Handles(y), 1)
	assert.Same(t, p.Handles(y)[0], conv.Outputs[0])
	assert.Equal(t, fmt.Sprintf("%d_0", y.ID()), conv.Outputs[0].Attr.Name)
	assert.Equal(t, []*npu.Tensor{p.Handles(x)[0], p.Handles(filter)[0], p.Handles(bias)[0]}, conv.Inputs)
	assert.Equal(t, npu.RoleConstant, conv.Inputs[1].Role)
	assert.Equal(t, []*npu.Tensor{p.Handles(x)[0]}, g.Inputs())
	assert.Equal(t, []*npu.Tensor{p.Handles(y)[0]}, g.Outputs())
}

func TestSeparateActivation(t *testing.T) {
	build := func(fuse ir.FuseCode) (*ir.Model, *ir.Operand) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat32, 1, 2, 4, 4)
		filter := b.Float32(make([]float32, 2*2*1*1), 2, 2, 1, 1)
		y := b.Conv2D(x, filter, nil).Fuse(fuse).Done()
		b.Outputs(y)
		return b.Model(), y
	}

	t.Run("relu_in_conv=false", func(t *testing.T) {
		model, y := build(ir.FuseRelu)
		p := convert(t, "relu_in_conv=false", model)
		g := p.Graph()
		require.Equal(t, []npu.OperatorType{npu.OperatorConv2D, npu.OperatorRelu}, operatorTypes(g))
		conv, relu := g.Operators()[0], g.Operators()[1]
		assert.False(t, conv.Attr.(*npu.Conv2DAttr).HasRelu)
		intermediate := conv.Outputs[0]
		assert.Empty(t, intermediate.Attr.Name)
		assert.Equal(t, []*npu.Tensor{intermediate}, relu.Inputs)
		require.Len(t, p.Handles(y), 1)
		assert.Same(t, p.Handles(y)[0], relu.Outputs[0])
	})

	t.Run("RELU6", func(t *testing.T) {
		model, y := build(ir.FuseRelu6)
		p := convert(t, "", model)
		require.Equal(t, []npu.OperatorType{npu.OperatorConv2D, npu.OperatorRelu6}, operatorTypes(p.Graph()))
		require.Len(t, p.Handles(y), 1)
	})

	t.Run("NONE", func(t *testing.T) {
		model, y := build(ir.FuseNone)
		p := convert(t, "", model)
		g := p.Graph()
		require.Equal(t, []npu.OperatorType{npu.OperatorConv2D}, operatorTypes(g))
		require.Len(t, p.Handles(y), 1)
		// A zero bias is created for the missing one.
		bias := g.Operators()[0].Inputs[2]
		assert.Equal(t, npu.RoleConstant, bias.Role)
		assert.Equal(t, []int32{2}, bias.Attr.Dims)
		assert.Equal(t, make([]byte, 8), bias.Data)
	})
}

func TestUnsupported(t *testing.T) {
	t.Run("deformable", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat32, 1, 1, 4, 4)
		offset := b.Input(ir.PrecisionFloat32, 1, 2, 4, 4)
		mask := b.Input(ir.PrecisionFloat32, 1, 1, 4, 4)
		filter := b.Float32(make([]float32, 1), 1, 1, 1, 1)
		b.Outputs(b.DeformableConv2D(x, offset, mask, filter, nil).Done())
		p := New("").(*Backend).NewProgram(b.Model())
		err := exceptions.TryCatch[error](func() { _ = p.Convert() })
		require.ErrorIs(t, err, backends.ErrUnsupportedOperation)
		require.ErrorContains(t, err, "DEFORMABLE_CONV_2D")
		require.Empty(t, p.Graph().Operators())
		require.Empty(t, p.Graph().Tensors())
	})

	t.Run("resize", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat32, 1, 1, 4, 4)
		b.Outputs(b.ResizeLinear(x).Shape(8, 8).Done())
		err := exceptions.TryCatch[error](func() { _, _ = New("").Build(b.Model()) })
		require.ErrorIs(t, err, backends.ErrUnsupportedOperation)
		require.Equal(t, backends.FeatureNotSupported, backends.ResultCodeOf(err))
	})

	t.Run("precision", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat64, 4)
		b.Outputs(b.Relu(x))
		err := exceptions.TryCatch[error](func() { _, _ = New("").Build(b.Model()) })
		require.ErrorIs(t, err, backends.ErrInvalidOperand)
	})

	t.Run("unknown dimensions", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat32, -1, 4)
		b.Outputs(b.Relu(x))
		err := exceptions.TryCatch[error](func() { _, _ = New("").Build(b.Model()) })
		require.ErrorIs(t, err, backends.ErrInvalidOperand)
	})
}

func TestQuantization(t *testing.T) {
	b := irbuilder.New()
	model := b.Model()
	x := b.Input(ir.PrecisionQuantUint8AsymmPerLayer, 1, 1, 4, 4)
	x.Type.Quant = &ir.Quantization{Scales: []float32{0.5}, ZeroPoint: 128}
	filter := model.AddConstant(ir.OperandType{
		Precision:  ir.PrecisionQuantUint8AsymmPerLayer,
		Dimensions: []int32{2, 1, 1, 1},
		Quant:      &ir.Quantization{Scales: []float32{0.25}, ZeroPoint: 127},
	}, []byte{1, 2}, true)
	bias := model.AddConstant(ir.OperandType{
		Precision:  ir.PrecisionQuantInt32SymmPerLayer,
		Dimensions: []int32{2},
		Quant:      &ir.Quantization{Scales: []float32{0.125}},
	}, make([]byte, 8), false)
	y := b.Conv2D(x, filter, bias).Done()
	b.Outputs(y)
	p := convert(t, "", model)

	input := p.Handles(x)[0].Attr
	assert.Equal(t, npu.PrecisionUint8, input.Precision)
	assert.Equal(t, npu.QuantAsymmetric, input.QuantType)
	assert.Equal(t, []float32{0.5}, input.Scales)
	assert.Equal(t, []int32{128}, input.ZeroPoints)

	biasTensor := p.Handles(bias)[0]
	assert.Equal(t, npu.PrecisionInt32, biasTensor.Attr.Precision)
	assert.Equal(t, npu.QuantSymmetricPerLayer, biasTensor.Attr.QuantType)
	assert.Equal(t, []float32{0.125}, biasTensor.Attr.Scales)
	// Constants reference the operand buffer.
	assert.Same(t, &bias.Buffer[0], &biasTensor.Data[0])

	output := p.Handles(y)[0].Attr
	assert.Equal(t, npu.QuantAsymmetric, output.QuantType)
	assert.Equal(t, []int32{128}, output.ZeroPoints)
	assert.Equal(t, 2+8, p.Graph().ConstantBytes())

	zeroBiasOf := func(t *testing.T, filterType ir.OperandType) (*npu.Tensor, error) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionQuantUint8AsymmPerLayer, 1, 1, 4, 4)
		x.Type.Quant = &ir.Quantization{Scales: []float32{0.5}, ZeroPoint: 128}
		filter := b.Model().AddConstant(filterType, []byte{1, 2}, true)
		b.Outputs(b.Conv2D(x, filter, nil).Done())
		p := New("").(*Backend).NewProgram(b.Model())
		var convertErr error
		err := exceptions.TryCatch[error](func() { convertErr = p.Convert() })
		if err != nil {
			return nil, err
		}
		require.NoError(t, convertErr)
		return p.Graph().Operators()[0].Inputs[2], nil
	}

	t.Run("zero bias per layer", func(t *testing.T) {
		bias, err := zeroBiasOf(t, ir.OperandType{
			Precision:  ir.PrecisionQuantUint8AsymmPerLayer,
			Dimensions: []int32{2, 1, 1, 1},
			Quant:      &ir.Quantization{Scales: []float32{0.25}, ZeroPoint: 127},
		})
		require.NoError(t, err)
		assert.Equal(t, npu.PrecisionInt32, bias.Attr.Precision)
		assert.Equal(t, npu.QuantSymmetricPerLayer, bias.Attr.QuantType)
		assert.Equal(t, []float32{0.125}, bias.Attr.Scales)
		assert.Equal(t, make([]byte, 8), bias.Data)
	})

	t.Run("zero bias per channel", func(t *testing.T) {
		bias, err := zeroBiasOf(t, ir.OperandType{
			Precision:  ir.PrecisionQuantInt8SymmPerChannel,
			Dimensions: []int32{2, 1, 1, 1},
			Quant:      &ir.Quantization{Scales: []float32{0.25, 0.5}, ChannelDim: 0},
		})
		require.NoError(t, err)
		assert.Equal(t, npu.PrecisionInt32, bias.Attr.Precision)
		assert.Equal(t, npu.QuantSymmetricPerChannel, bias.Attr.QuantType)
		assert.Equal(t, int32(0), bias.Attr.ChannelDim)
		assert.Equal(t, []float32{0.125, 0.25}, bias.Attr.Scales)
		assert.Equal(t, []int32{2}, bias.Attr.Dims)
		assert.Equal(t, make([]byte, 8), bias.Data)

		_, err = zeroBiasOf(t, ir.OperandType{
			Precision:  ir.PrecisionQuantInt8SymmPerChannel,
			Dimensions: []int32{2, 1, 1, 1},
			Quant:      &ir.Quantization{Scales: []float32{0.25}, ChannelDim: 1},
		})
		require.ErrorIs(t, err, backends.ErrInvalidOperand)
	})

	t.Run("missing parameters", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionQuantUint8AsymmPerLayer, 4)
		b.Outputs(b.Relu(x))
		err := exceptions.TryCatch[error](func() { _, _ = New("").Build(b.Model()) })
		require.ErrorIs(t, err, backends.ErrInvalidOperand)
	})
}

func TestFullyConnected(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 2, 1, 1, 3)
	weight := b.Float32(make([]float32, 4*3), 4, 3)
	bias := b.Float32(make([]float32, 4), 4)
	y := b.FullyConnected(x, weight, bias, ir.FuseRelu)
	b.Outputs(y)
	p := convert(t, "", b.Model())

	require.Len(t, p.Handles(x), 1)
	assert.Equal(t, []int32{2, 3}, p.Handles(x)[0].Attr.Dims)
	fc := p.Graph().Operators()[0]
	require.Equal(t, npu.OperatorFullyConnected, fc.Type)
	assert.Equal(t, &npu.FullyConnectedAttr{Weights: 4, HasRelu: true}, fc.Attr)
	assert.Equal(t, []int32{2, 4}, p.Handles(y)[0].Attr.Dims)

	t.Run("mapped input", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat32, 2, 3)
		h := b.Tanh(x)
		y := b.FullyConnected(h, b.Float32(make([]float32, 4*3), 4, 3), nil, ir.FuseNone)
		b.Outputs(y)
		p := convert(t, "", b.Model())
		require.Len(t, p.Handles(h), 1)
		fc := p.Graph().Operators()[1]
		assert.Same(t, p.Handles(h)[0], fc.Inputs[0])
		assert.Equal(t, []int32{4}, fc.Inputs[2].Attr.Dims)
		assert.Equal(t, npu.PrecisionFloat32, fc.Inputs[2].Attr.Precision)
	})
}

func TestOtherOperations(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 1, 2, 4, 4)
	y := b.Input(ir.PrecisionFloat32, 1, 2, 4, 4)
	sum := b.Add(x, y, ir.FuseRelu1)
	pooled := b.MaxPool2D(sum, 2, 2).CeilMode(true).Done()
	concat := b.Concat(-3, pooled, pooled)
	transposed := b.Transpose(concat, 0, 2, 3, 1)
	reshaped := b.Reshape(transposed, 1, -1)
	softmax := b.Softmax(reshaped, -1)
	b.Outputs(softmax)
	p := convert(t, "", b.Model())
	g := p.Graph()

	require.Equal(t, []npu.OperatorType{
		npu.OperatorAdd, npu.OperatorRelu1, npu.OperatorPool, npu.OperatorConcat, npu.OperatorPermute,
		npu.OperatorReshape, npu.OperatorSoftmax,
	}, operatorTypes(g))
	ops := g.Operators()
	assert.Equal(t, &npu.EltwiseAttr{Axis: -1}, ops[0].Attr)
	pool := ops[2].Attr.(*npu.PoolAttr)
	assert.Equal(t, npu.PoolMax, pool.PoolType)
	assert.Equal(t, npu.RoundCeil, pool.RoundType)
	assert.Equal(t, [2]int32{2, 2}, pool.Ksize)
	assert.Equal(t, &npu.ConcatAttr{Axis: 1}, ops[3].Attr)
	assert.Equal(t, []*npu.Tensor{p.Handles(pooled)[0], p.Handles(pooled)[0]}, ops[3].Inputs)
	assert.Equal(t, &npu.PermuteAttr{Perm: []int32{0, 2, 3, 1}}, ops[4].Attr)
	assert.Equal(t, &npu.ReshapeAttr{Shapes: []int32{1, -1}}, ops[5].Attr)
	assert.Equal(t, &npu.SoftmaxAttr{Axis: 1, Beta: 1}, ops[6].Attr)
	assert.Equal(t, []*npu.Tensor{p.Handles(x)[0], p.Handles(y)[0]}, g.Inputs())
	assert.Equal(t, []int32{1, 16}, g.Outputs()[0].Attr.Dims)
}
