// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpupipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/ir/irbuilder"
	"github.com/gomlx/accel/pkg/sdk/gpu"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend(t *testing.T) {
	backend := backends.NewWithConfig(BackendName)
	require.Equal(t, BackendName, backend.Name())
	require.Panics(t, func() { New("fast") })

	caps := backend.Capabilities()
	assert.Equal(t, []ir.OpType{
		ir.OpTypeAdd, ir.OpTypeSub, ir.OpTypeMul, ir.OpTypeDiv, ir.OpTypeRelu, ir.OpTypeRelu6, ir.OpTypeSigmoid,
		ir.OpTypeTanh, ir.OpTypeSoftmax,
	}, rules.OpTypes())
	assert.Equal(t, map[ir.Precision]bool{ir.PrecisionFloat32: true}, caps.Precisions)
	assert.Len(t, caps.FuseCodes, 3)

	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 2, 3)
	b.Outputs(b.Softmax(b.Tanh(x), -1))
	var progress []int
	program, err := backend.Build(b.Model(), backends.WithProgress(func(done, total int) {
		require.Equal(t, 2, total)
		progress = append(progress, done)
	}))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, progress)
	assert.Equal(t, BackendName, program.BackendName())
	stats := program.Stats()
	assert.Equal(t, 2, stats.NumOperators)
	// x, tanh, softmax, and one parameters buffer per dispatch.
	assert.Equal(t, 5, stats.NumTensors)
	assert.Equal(t, 4+8, stats.ConstantBytes)
}

func TestElementwise(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 2, 1, 3)
	bias := b.Float32([]float32{1, 2, 3}, 3)
	y := b.Add(x, bias, ir.FuseRelu1)
	z := b.Mul(y, y, ir.FuseNone)
	b.Outputs(z)
	p := NewProgram(b.Model())
	require.NoError(t, p.Convert())
	pipeline := p.Pipeline()

	dispatches := pipeline.Dispatches()
	require.Len(t, dispatches, 2)
	add := dispatches[0]
	yBuffer := p.Handles(y)[0]
	assert.Equal(t, fmt.Sprintf("ADD:%d_0", y.ID()), add.Label)
	assert.Equal(t, entryPoint, add.EntryPoint)
	assert.Equal(t, [3]int{1, 1, 1}, add.Workgroups)
	assert.Contains(t, add.Shader, "clamp(v, -1.0, 1.0)")
	assert.Contains(t, add.Shader, "x[x_idx] + y[y_idx]")
	assert.Contains(t, add.Shader, fmt.Sprintf("@workgroup_size(%d)", gpu.WorkgroupSize))

	require.Len(t, add.Bindings, 4)
	assert.Equal(t, gpu.Binding{Slot: 0, Buffer: p.Handles(x)[0], ReadOnly: true}, add.Bindings[0])
	assert.Equal(t, gpu.Binding{Slot: 1, Buffer: p.Handles(bias)[0], ReadOnly: true}, add.Bindings[1])
	assert.Equal(t, gpu.Binding{Slot: 2, Buffer: yBuffer}, add.Bindings[2])
	params := add.Bindings[3].Buffer
	assert.True(t, add.Bindings[3].ReadOnly)
	assert.Equal(t, dtypes.Uint32, params.DType)
	// size, rank, dims, x strides, bias strides.
	assert.Equal(t, backends.EncodeFlat([]uint32{6, 3, 2, 1, 3, 3, 3, 1, 0, 0, 1}), params.Data)

	// Bias buffer is uploaded from the constant.
	assert.Equal(t, bias.Buffer, p.Handles(bias)[0].Data)
	assert.Nil(t, yBuffer.Data)

	mul := dispatches[1]
	assert.Same(t, yBuffer, mul.Bindings[0].Buffer)
	assert.Same(t, yBuffer, mul.Bindings[1].Buffer)
	assert.Contains(t, mul.Shader, "return v;")
	assert.Contains(t, mul.Shader, "x[x_idx] * y[y_idx]")

	assert.Equal(t, []*gpu.Buffer{p.Handles(x)[0]}, pipeline.Inputs())
	assert.Equal(t, []*gpu.Buffer{p.Handles(z)[0]}, pipeline.Outputs())
	for _, operand := range []*ir.Operand{x, bias, y, z} {
		require.Len(t, p.Handles(operand), 1, "operand #%d", operand.ID())
	}
}

func TestBroadcastStrides(t *testing.T) {
	assert.Equal(t, []uint32{3, 0, 1}, broadcastStrides([]int{2, 1, 3}, []int{2, 4, 3}))
	assert.Equal(t, []uint32{0, 0, 1}, broadcastStrides([]int{3}, []int{2, 4, 3}))
	assert.Equal(t, []uint32{0, 1, 0}, broadcastStrides([]int{4, 1}, []int{2, 4, 3}))
	assert.Equal(t, []uint32{0, 0}, broadcastStrides(nil, []int{2, 4}))
	assert.Equal(t, []uint32{1, 1}, broadcastStrides([]int{1, 1}, []int{1, 1}))
}

func TestShaders(t *testing.T) {
	for opType := range binaryOperators {
		for fuse := range activations {
			shader := binaryShaders[binaryShaderKey{opType, fuse}]
			require.NotEmpty(t, shader, "%s/%s", opType, fuse)
			assert.Contains(t, shader, "fn "+entryPoint+"(")
		}
	}
	require.Len(t, unaryShaders, 4)
	assert.Contains(t, unaryShaders[ir.OpTypeSigmoid], "output[idx] = 1.0 / (1.0 + exp(-v));")
	assert.Contains(t, softmaxShader, fmt.Sprintf("id.y * %du", gpu.WorkgroupSize*gpu.MaxWorkgroupsPerDimension))
	assert.False(t, strings.Contains(softmaxShader, "{{"))
}

func TestSoftmax(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 4, 5, 10)
	b.Outputs(b.Softmax(x, 2))
	p := NewProgram(b.Model())
	require.NoError(t, p.Convert())
	softmax := p.Pipeline().Dispatches()[0]
	assert.Equal(t, backends.EncodeFlat([]uint32{20, 10}), softmax.Bindings[2].Buffer.Data)
	assert.Equal(t, [3]int{1, 1, 1}, softmax.Workgroups)

	t.Run("not last axis", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat32, 4, 5)
		b.Outputs(b.Softmax(x, 0))
		p := NewProgram(b.Model())
		err := exceptions.TryCatch[error](func() { _ = p.Convert() })
		require.ErrorIs(t, err, backends.ErrUnsupportedOperation)
		require.Equal(t, backends.FeatureNotSupported, backends.ResultCodeOf(err))
		require.ErrorContains(t, err, "last axis")
		require.Empty(t, p.Pipeline().Buffers())
		require.Empty(t, p.Pipeline().Dispatches())

		err = exceptions.TryCatch[error](func() { _, _ = New("").Build(b.Model()) })
		require.ErrorIs(t, err, backends.ErrUnsupportedOperation)
	})
}

func TestWorkgroups(t *testing.T) {
	b := irbuilder.New()
	x := b.Input(ir.PrecisionFloat32, 1000, 100)
	b.Outputs(b.Relu6(x))
	p := NewProgram(b.Model())
	require.NoError(t, p.Convert())
	relu := p.Pipeline().Dispatches()[0]
	assert.Equal(t, gpu.WorkgroupsFor(100_000), relu.Workgroups)
	assert.Equal(t, [3]int{1563, 1, 1}, relu.Workgroups)
	assert.Contains(t, relu.Shader, "clamp(v, 0.0, 6.0)")
}

func TestUnsupported(t *testing.T) {
	t.Run("operation", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat32, 1, 4)
		b.Outputs(b.Reshape(x, 4))
		err := exceptions.TryCatch[error](func() { _, _ = New("").Build(b.Model()) })
		require.ErrorIs(t, err, backends.ErrUnsupportedOperation)
	})

	t.Run("precision", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat16, 4)
		b.Outputs(b.Relu(x))
		err := exceptions.TryCatch[error](func() { _, _ = New("").Build(b.Model()) })
		require.ErrorIs(t, err, backends.ErrInvalidOperand)
		require.ErrorContains(t, err, "FLOAT16")
	})

	t.Run("unknown dimensions", func(t *testing.T) {
		b := irbuilder.New()
		x := b.Input(ir.PrecisionFloat32, -1, 4)
		b.Outputs(b.Tanh(x))
		err := exceptions.TryCatch[error](func() { _, _ = New("").Build(b.Model()) })
		require.ErrorIs(t, err, backends.ErrInvalidOperand)
	})
}
