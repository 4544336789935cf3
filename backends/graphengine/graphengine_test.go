// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphengine

import (
	"fmt"
	"math"
	"testing"

	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/ir/irbuilder"
	"github.com/gomlx/accel/pkg/sdk/ge"
	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convert(t *testing.T, model *ir.Model) *Program {
	t.Helper()
	p := NewProgram(model)
	require.NoError(t, p.Convert())
	return p
}

func iota32(n int) []float32 {
	values := make([]float32, n)
	for ii := range values {
		values[ii] = float32(ii)
	}
	return values
}

// dataName returns the name of the Data operator created for the model input.
func dataName(p *Program, input *ir.Operand) string {
	return p.Handles(input)[0].Op.Name()
}

func TestBackend(t *testing.T) {
	backend := backends.NewWithConfig(BackendName)
	require.Equal(t, BackendName, backend.Name())
	caps := backend.Capabilities()
	assert.True(t, caps.Operations[ir.OpTypeDeformableConv2D])
	assert.True(t, caps.Operations[ir.OpTypeResizeLinear])
	assert.False(t, caps.Precisions[ir.PrecisionQuantUint8AsymmPerLayer])
	assert.True(t, caps.FuseCodes[ir.FuseRelu6])
	assert.False(t, caps.FuseCodes[ir.FuseRelu1])
	require.Panics(t, func() { backends.NewWithConfig(BackendName + ":unknown_option=1") })

	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 2, 3)
	b.Outputs(b.Tanh(x))
	program, err := backend.Build(b.Model())
	require.NoError(t, err)
	require.Equal(t, BackendName, program.BackendName())
	stats := program.Stats()
	assert.Equal(t, 2, stats.NumOperators)
	assert.Equal(t, 2, stats.NumTensors)
	assert.Len(t, program.(*Program).Graph().Outputs(), 1)
}

func TestMemoization(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 2, 3)
	y := b.Add(x, x, ir.FuseNone)
	b.Outputs(b.Mul(y, x, ir.FuseNone))
	p := convert(t, b.Model())

	require.Len(t, p.Handles(x), 1)
	add := p.Graph().OperatorsOfType(ge.TypeAdd)[0]
	require.Same(t, add.Input("x1"), add.Input("x2"))
	mul := p.Graph().OperatorsOfType(ge.TypeMul)[0]
	require.Same(t, p.Handles(x)[0], mul.Input("x2"))
	require.Same(t, p.Handles(y)[0], mul.Input("x1"))
	require.Len(t, p.Graph().OperatorsOfType(ge.TypeData), 1)
}

func TestTopologicalOrder(t *testing.T) {
	// Operations declared in reverse order.
	model := ir.NewModel()
	x := model.AddInput(ir.PrecisionFloat32, 4)
	t0 := model.AddTemporary(ir.PrecisionFloat32, 4)
	t1 := model.AddTemporary(ir.PrecisionFloat32, 4)
	model.AddOperation(ir.OpTypeRelu, []*ir.Operand{t1}, []*ir.Operand{t0})
	model.AddOperation(ir.OpTypeSigmoid, []*ir.Operand{x}, []*ir.Operand{t1})
	model.MarkOutputs(t0)
	p := convert(t, model)

	sigmoid := p.Graph().OperatorsOfType(ge.TypeSigmoid)
	relu := p.Graph().OperatorsOfType(ge.TypeRelu)
	require.Len(t, sigmoid, 1)
	require.Len(t, relu, 1)
	require.Less(t, sigmoid[0].Index(), relu[0].Index())
	require.Same(t, sigmoid[0].Output("y"), relu[0].Input("x"))

	feeds := map[string]ge.Tensor{dataName(p, x): ge.Float32Tensor([]float32{-100, 0, 1, 100}, 4)}
	results := must.M1(ge.Execute(p.Graph(), feeds))
	got := must.M1(results[0].Float32s())
	assert.InDeltaSlice(t, []float32{0, 0.5, 0.7310586, 1}, got, 1e-5)
}

func TestArity(t *testing.T) {
	for _, opType := range ir.OpTypeValues() {
		arity, found := ir.ArityOf(opType)
		if !found {
			continue
		}
		for _, numInputs := range []int{arity.Inputs - 1, arity.Inputs + 1} {
			if arity.Variadic && numInputs > arity.Inputs {
				continue
			}
			t.Run(fmt.Sprintf("%s/%d", opType, numInputs), func(t *testing.T) {
				model := ir.NewModel()
				x := model.AddInput(ir.PrecisionFloat32, 4)
				inputs := make([]*ir.Operand, numInputs)
				for ii := range inputs {
					inputs[ii] = x
				}
				y := model.AddTemporary(ir.PrecisionFloat32, 4)
				model.AddOperation(opType, inputs, []*ir.Operand{y})
				p := NewProgram(model)
				err := exceptions.TryCatch[error](func() { _ = p.Convert() })
				require.ErrorIs(t, err, ir.ErrArityMismatch)
				// Only the Data operator of the model input.
				require.Equal(t, 1, p.Graph().NumOperators())
				require.Empty(t, p.Handles(y))
			})
		}
	}
}

func TestDanglingOperand(t *testing.T) {
	model := ir.NewModel()
	x := model.AddInput(ir.PrecisionFloat32, 4)
	dangling := model.AddTemporary(ir.PrecisionFloat32, 4)
	y := model.AddTemporary(ir.PrecisionFloat32, 4)
	model.AddOperation(ir.OpTypeAdd, []*ir.Operand{x, dangling, model.AddInt32Constant(0)}, []*ir.Operand{y})
	model.MarkOutputs(y)
	p := NewProgram(model)
	err := exceptions.TryCatch[error](func() { _ = p.Convert() })
	require.ErrorIs(t, err, ir.ErrInvalidModel)
	require.ErrorContains(t, err, "never produced")
	require.Len(t, p.Graph().OperatorsOfType(ge.TypeData), 1)
	require.Empty(t, p.Handles(dangling))
	require.Empty(t, p.Graph().OperatorsOfType(ge.TypeAdd))
}

func TestUnsupportedFuseCode(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 4)
	y := b.Add(x, x, ir.FuseRelu1)
	p := NewProgram(b.Model())
	err := exceptions.TryCatch[error](func() { _ = p.Convert() })
	require.ErrorIs(t, err, backends.ErrUnsupportedFuseCode)
	require.Equal(t, backends.FeatureNotSupported, backends.ResultCodeOf(err))
	require.Empty(t, p.Graph().OperatorsOfType(ge.TypeAdd))
	require.Empty(t, p.Handles(y))
}

func TestFuseActivation(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 4)
	plain := b.Add(x, x, ir.FuseNone)
	fused := b.Sub(plain, x, ir.FuseRelu)
	fused6 := b.Mul(fused, x, ir.FuseRelu6)
	b.Outputs(fused6)
	p := convert(t, b.Model())

	require.Len(t, p.Handles(plain), 1)
	require.Len(t, p.Handles(fused), 2)
	require.Len(t, p.Handles(fused6), 2)
	relu := p.Handles(fused)[1].Op
	require.Equal(t, ge.TypeRelu, relu.Type())
	require.Same(t, p.Handles(fused)[0], relu.Input("x"))
	require.Equal(t, fmt.Sprintf("%d_0", fused.ID()), p.Handles(fused)[0].Op.Name())
	require.Equal(t, fmt.Sprintf("%d_1", fused.ID()), relu.Name())
	require.Equal(t, ge.TypeRelu6, p.Handles(fused6)[1].Op.Type())

	// The consumer uses the activation, not the pre-activation.
	mul := p.Graph().OperatorsOfType(ge.TypeMul)[0]
	require.Same(t, p.Handles(fused)[1], mul.Input("x1"))
	require.Same(t, p.Handles(fused6)[1], p.Graph().Outputs()[0])

	// x=[-1, 2, 3, 10]: relu(2x-x)=[0, 2, 3, 10], relu6(that*x)=[0, 4, 6, 6].
	feeds := map[string]ge.Tensor{dataName(p, x): ge.Float32Tensor([]float32{-1, 2, 3, 10}, 4)}
	results := must.M1(ge.Execute(p.Graph(), feeds))
	require.Equal(t, []float32{0, 4, 6, 6}, must.M1(results[0].Float32s()))
}

func TestDeformableConv2D(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 1, 1, 4, 4)
	// Kernel 1x2: the offset has 2*1*2 channels, interleaved (y, x) per kernel position, and the mask 2 channels.
	offset := b.Input(ir.PrecisionFloat32, 1, 4, 4, 3)
	mask := b.Input(ir.PrecisionFloat32, 1, 2, 4, 3)
	filter := b.Float32(make([]float32, 2*1*1*2), 2, 1, 1, 2)
	bias := b.Float32(make([]float32, 2), 2)
	y := b.DeformableConv2D(x, offset, mask, filter, bias).StridePerDim(1, 1).Fuse(ir.FuseRelu).Done()
	b.Outputs(y)
	p := convert(t, b.Model())
	g := p.Graph()

	handles := p.Handles(y)
	require.Len(t, handles, 2)
	conv := handles[0].Op
	require.Equal(t, ge.TypeConv2D, conv.Type())
	require.Equal(t, ge.TypeRelu, handles[1].Op.Type())
	name := conv.Name()
	deformableOffsets := g.OperatorByName(name + "/deformable_offsets")
	require.NotNil(t, deformableOffsets)
	require.Equal(t, ge.TypeDeformableOffsets, deformableOffsets.Type())
	assert.Equal(t, []int64{1, 2}, deformableOffsets.Attr("ksize"))
	assert.Equal(t, []int64{1, 1, 1, 1}, deformableOffsets.Attr("strides"))
	assert.Equal(t, []int64{0, 0, 0, 0}, deformableOffsets.Attr("pads"))
	assert.Equal(t, true, deformableOffsets.Attr("modulated"))
	assert.Equal(t, "NCHW", deformableOffsets.Attr("data_format"))
	assert.Equal(t, []int64{1, 1, 1, 2}, conv.Attr("strides"))
	assert.Equal(t, []int64{0, 0, 0, 0}, conv.Attr("pads"))
	assert.Same(t, deformableOffsets.Output("y"), conv.Input("x"))
	// Intermediates are not mapped to any operand.
	require.Len(t, p.Handles(offset), 1)
	require.Len(t, p.Handles(mask), 1)

	// Evaluate the concatenation of the offsets: odd channels (x), then even channels (y), then the mask.
	const spatial = 4 * 3
	offsetValues := iota32(4 * spatial)
	maskValues := make([]float32, 2*spatial)
	for ii := range maskValues {
		maskValues[ii] = 1000 + float32(ii)
	}
	feeds := map[string]ge.Tensor{
		dataName(p, offset): ge.Float32Tensor(offsetValues, 1, 4, 4, 3),
		dataName(p, mask):   ge.Float32Tensor(maskValues, 1, 2, 4, 3),
	}
	concat := g.OperatorByName(name + "/concat")
	require.NotNil(t, concat)
	results := must.M1(ge.Execute(g, feeds, concat.Output("y")))
	require.Equal(t, []int64{1, 6, 4, 3}, results[0].Desc.Dims)
	var want []float32
	for _, channel := range []int{1, 3, 0, 2} {
		want = append(want, offsetValues[channel*spatial:(channel+1)*spatial]...)
	}
	want = append(want, maskValues...)
	require.Equal(t, want, must.M1(results[0].Float32s()))

	// The convolution itself can't be evaluated on the host.
	_, err := ge.Execute(g, feeds)
	require.ErrorIs(t, err, ge.ErrNotExecutable)
}

func TestResizeWithScales(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 1, 1, 7, 4)
	y := b.ResizeNearest(x).Scales(1.5, 2).Done()
	b.Outputs(y)
	require.Equal(t, []int32{1, 1, 10, 8}, y.Type.Dimensions)
	p := convert(t, b.Model())
	g := p.Graph()

	resize := p.Handles(y)[0].Op
	require.Equal(t, ge.TypeResizeNearestNeighborV2, resize.Type())
	for _, suffix := range []string{"/shape", "/slice", "/slice_cast", "/mul", "/mul_cast"} {
		require.NotNil(t, g.OperatorByName(resize.Name()+suffix), "missing operator %q", resize.Name()+suffix)
	}
	require.Same(t, g.OperatorByName(resize.Name()+"/mul_cast").Output("y"), resize.Input("size"))

	// 7*1.5 = 10.5 and 4*2 = 8: truncated after the multiplication.
	feeds := map[string]ge.Tensor{dataName(p, x): ge.Float32Tensor(iota32(28), 1, 1, 7, 4)}
	results := must.M1(ge.Execute(g, feeds, resize.Input("size"), g.Outputs()[0]))
	require.Equal(t, []int32{10, 8}, must.M1(results[0].Int32s()))
	require.Equal(t, []int64{1, 1, 10, 8}, results[1].Desc.Dims)
}

func TestResizeWithShape(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 1, 1, 2, 2)
	y := b.ResizeLinear(x).Shape(4, 4).AlignCorners(true).Done()
	b.Outputs(y)
	p := convert(t, b.Model())
	resize := p.Handles(y)[0].Op
	require.Equal(t, ge.TypeResizeBilinearV2, resize.Type())
	assert.Equal(t, true, resize.Attr("align_corners"))
	assert.Equal(t, false, resize.Attr("half_pixel_centers"))
	require.Empty(t, p.Graph().OperatorsOfType(ge.TypeShape))

	feeds := map[string]ge.Tensor{dataName(p, x): ge.Float32Tensor([]float32{0, 3, 6, 9}, 1, 1, 2, 2)}
	results := must.M1(ge.Execute(p.Graph(), feeds))
	got := must.M1(results[0].Float32s())
	require.Len(t, got, 16)
	assert.InDelta(t, 0, got[0], 1e-5)
	assert.InDelta(t, 1, got[1], 1e-5)
	assert.InDelta(t, 9, got[15], 1e-5)
}

func TestResizeWithoutShapeNorScales(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 1, 1, 7, 4)
	b.Outputs(b.ResizeNearest(x).Done())
	p := NewProgram(b.Model())
	err := p.Convert()
	require.ErrorIs(t, err, backends.ErrInvalidParameter)
	require.Equal(t, backends.InvalidParameter, backends.ResultCodeOf(err))
	g := p.Graph()
	for _, opType := range []string{ge.TypeResizeNearestNeighborV2, ge.TypeShape, ge.TypeSlice, ge.TypeCast, ge.TypeMul} {
		require.Empty(t, g.OperatorsOfType(opType), "unexpected operator of type %s", opType)
	}

	_, err = New("").Build(b.Model())
	require.ErrorIs(t, err, backends.ErrInvalidParameter)
}

func TestFullyConnected(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 2, 3)
	// weight[u] = [u, 0, 1].
	weight := b.Float32([]float32{0, 0, 1, 1, 0, 1, 2, 0, 1, 3, 0, 1}, 4, 3)
	bias := b.Float32([]float32{0, 0, 0, -100}, 4)
	y := b.FullyConnected(x, weight, bias, ir.FuseRelu)
	b.Outputs(y)
	p := convert(t, b.Model())
	g := p.Graph()
	require.Len(t, g.OperatorsOfType(ge.TypeMatMulV2), 1)
	require.Equal(t, true, g.OperatorsOfType(ge.TypeMatMulV2)[0].Attr("transpose_x2"))
	require.Len(t, g.OperatorsOfType(ge.TypeBiasAdd), 1)

	input := []float32{1, 2, 3, -4, 5, 6}
	feeds := map[string]ge.Tensor{dataName(p, x): ge.Float32Tensor(input, 2, 3)}
	results := must.M1(ge.Execute(g, feeds))
	want := make([]float32, 0, 8)
	for batch := range 2 {
		row := input[batch*3 : batch*3+3]
		for unit := range 4 {
			v := row[0]*float32(unit) + row[2] + []float32{0, 0, 0, -100}[unit]
			want = append(want, max(v, 0))
		}
	}
	require.Equal(t, want, must.M1(results[0].Float32s()))
}

func TestShapeOperations(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 2, 3)
	z := b.Input(ir.PrecisionFloat32, 2, 1)
	concat := b.Concat(1, x, z)
	transposed := b.Transpose(concat, 1, 0)
	reshaped := b.Reshape(transposed, 2, -1)
	softmax := b.Softmax(reshaped, -1)
	b.Outputs(concat, transposed, reshaped, softmax)
	p := convert(t, b.Model())
	g := p.Graph()
	assert.Equal(t, int64(1), g.OperatorsOfType(ge.TypeConcatD)[0].Attr("concat_dim"))
	assert.Equal(t, []int64{1}, g.OperatorsOfType(ge.TypeSoftmaxV2)[0].Attr("axes"))

	feeds := map[string]ge.Tensor{
		dataName(p, x): ge.Float32Tensor([]float32{0, 1, 2, 3, 4, 5}, 2, 3),
		dataName(p, z): ge.Float32Tensor([]float32{10, 20}, 2, 1),
	}
	results := must.M1(ge.Execute(g, feeds))
	require.Equal(t, []float32{0, 1, 2, 10, 3, 4, 5, 20}, must.M1(results[0].Float32s()))
	require.Equal(t, []float32{0, 3, 1, 4, 2, 5, 10, 20}, must.M1(results[1].Float32s()))
	require.Equal(t, []int64{2, 4}, results[2].Desc.Dims)
	probabilities := must.M1(results[3].Float32s())
	for row := range 2 {
		var sum float64
		for _, v := range probabilities[row*4 : row*4+4] {
			sum += float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
	assert.InDelta(t, 1/(1+math.Exp(-10)), float64(probabilities[7]), 1e-5)
}

func TestConvAndPoolAttributes(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 1, 4, 8, 8)
	filter := b.Float32(make([]float32, 8*1*3*3), 8, 1, 3, 3)
	depthwise := b.Conv2D(x, filter, nil).Group(4).Paddings(1, 1, 1, 1).StridePerDim(2, 1).Done()
	avg := b.AveragePool2D(depthwise, 2, 2).CountIncludePad(true).Fuse(ir.FuseRelu6).Done()
	b.Outputs(avg)
	p := convert(t, b.Model())
	g := p.Graph()

	conv := g.OperatorsOfType(ge.TypeDepthwiseConv2D)
	require.Len(t, conv, 1)
	assert.Equal(t, []int64{1, 1, 2, 1}, conv[0].Attr("strides"))
	assert.Equal(t, []int64{1, 1, 1, 1}, conv[0].Attr("pads"))
	assert.Nil(t, conv[0].Input("bias"))
	pool := g.OperatorsOfType(ge.TypeAvgPoolV2)
	require.Len(t, pool, 1)
	assert.Equal(t, []int64{1, 1, 2, 2}, pool[0].Attr("ksize"))
	assert.Equal(t, false, pool[0].Attr("exclusive"))
	require.Len(t, g.OperatorsOfType(ge.TypeRelu6), 1)
	require.Equal(t, []int64{1, 8, 2, 4}, g.Outputs()[0].Desc.Dims)
}

func TestQuantizedOperandsAreRejected(t *testing.T) {
	model := ir.NewModel()
	x := model.AddOperand(ir.OperandType{
		Precision:  ir.PrecisionQuantUint8AsymmPerLayer,
		Dimensions: []int32{4},
		Lifetime:   ir.LifetimeModelInput,
		Quant:      &ir.Quantization{Scales: []float32{0.5}, ZeroPoint: 128},
	})
	p := NewProgram(model)
	err := exceptions.TryCatch[error](func() { p.convertOperand(x) })
	require.ErrorIs(t, err, backends.ErrInvalidOperand)
}
