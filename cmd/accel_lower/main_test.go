// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadModelFile(t *testing.T) {
	model, name, err := loadModelFile(filepath.Join("testdata", "classifier.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tiny_classifier", name)
	require.Len(t, model.Operations(), 5)
	require.Len(t, model.Inputs(), 1)
	require.Len(t, model.Outputs(), 1)
	assert.Equal(t, []int32{1, 10}, model.Outputs()[0].Type.Dimensions)
	conv := model.Operations()[0]
	assert.Equal(t, ir.OpTypeConv2D, conv.Type)
	assert.Equal(t, []int32{1, 4, 8, 8}, conv.Outputs[0].Type.Dimensions)
	assert.Equal(t, ir.OpTypeSoftmax, model.Operations()[4].Type)

	_, _, err = loadModelFile(filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err)
}

func TestParseModelErrors(t *testing.T) {
	testCases := []struct {
		name, yaml, message string
	}{
		{"bad precision", `
inputs: [{name: x, precision: FLOAT99, dims: [2]}]
outputs: [x]`, "FLOAT99 does not belong to Precision values"},
		{"missing precision", `
inputs: [{name: x, dims: [2]}]
outputs: [x]`, "requires a valid precision"},
		{"duplicate", `
inputs: [{name: x, precision: FLOAT32, dims: [2]}, {name: x, precision: FLOAT32, dims: [2]}]
outputs: [x]`, "more than once"},
		{"unknown operand", `
inputs: [{name: x, precision: FLOAT32, dims: [2]}]
operations: [{type: RELU, inputs: [y], output: z}]
outputs: [z]`, `unknown operand "y"`},
		{"values", `
constants: [{name: c, precision: FLOAT32, dims: [3], values: [1, 2]}]
outputs: [c]`, "requires 3 values"},
		{"no outputs", `
inputs: [{name: x, precision: FLOAT32, dims: [2]}]`, "no outputs"},
		{"shape mismatch", `
inputs: [{name: x, precision: FLOAT32, dims: [2, 3]}, {name: y, precision: FLOAT32, dims: [4]}]
operations: [{type: ADD, inputs: [x, y], output: z}]
outputs: [z]`, "cannot be broadcast"},
		{"bad fuse code", `
inputs: [{name: x, precision: FLOAT32, dims: [2]}]
operations: [{type: ADD, inputs: [x, x], output: z, attrs: {fuse: RELU2}}]
outputs: [z]`, "RELU2 does not belong to FuseCode values"},
		{"bad operation type", `
inputs: [{name: x, precision: FLOAT32, dims: [2]}]
operations: [{type: CONV_3D, inputs: [x], output: z}]
outputs: [z]`, "CONV_3D does not belong to OpType values"},
		{"missing operation type", `
inputs: [{name: x, precision: FLOAT32, dims: [2]}]
operations: [{inputs: [x], output: z}]
outputs: [z]`, "invalid operation type INVALID"},
		{"too many inputs", `
inputs: [{name: x, precision: FLOAT32, dims: [2]}]
operations: [{type: TANH, inputs: [x, x], output: z}]
outputs: [z]`, "at most 1 inputs"},
		{"pool without window", `
inputs: [{name: x, precision: FLOAT32, dims: [1, 1, 4, 4]}]
operations: [{type: AVERAGE_POOL_2D, inputs: [x], output: z}]
outputs: [z]`, `"window" is required`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parseModel([]byte(tc.yaml))
			require.ErrorContains(t, err, tc.message)
		})
	}
}

func TestConstants(t *testing.T) {
	var spec modelFile
	require.NoError(t, yaml.Unmarshal([]byte(`
constants:
  - {name: h, precision: FLOAT16, dims: [2], values: [1, 0.5]}
  - {name: i, precision: INT32, dims: [2], fill: -1}
  - {name: b, precision: BOOL8, dims: [3], values: [0, 1, 2]}
  - name: q
    precision: QUANT_UINT8_ASYMM_PER_LAYER
    dims: [2]
    values: [3, 255]
    quant: {scales: [0.5], zero_point: 128}
  - {name: both, precision: FLOAT32, dims: [1], values: [1], fill: 1}
`), &spec))
	want := [][]byte{
		{0x00, 0x3c, 0x00, 0x38},
		backends.EncodeFlat([]int32{-1, -1}),
		{0, 1, 1},
		{3, 255},
	}
	for ii, constant := range spec.Constants[:4] {
		operandType := must.M1(constant.operandType())
		assert.Equal(t, want[ii], must.M1(constant.encode(operandType)), "constant %q", constant.Name)
	}
	assert.Equal(t, &ir.Quantization{Scales: []float32{0.5}, ZeroPoint: 128}, must.M1(spec.Constants[3].operandType()).Quant)
	_, err := spec.Constants[4].encode(must.M1(spec.Constants[4].operandType()))
	require.ErrorContains(t, err, "both values and fill")
}

func TestLowerAndDump(t *testing.T) {
	model, name, err := loadModelFile(filepath.Join("testdata", "classifier.yaml"))
	require.NoError(t, err)

	t.Run("npu", func(t *testing.T) {
		program, err := lower(backends.NewWithConfig("npu"), model, false)
		require.NoError(t, err)
		dump := dumpProgram(program)
		assert.Equal(t, "npu", dump.Backend)
		assert.Equal(t, program.ID().String(), dump.ProgramID)
		var types []string
		for _, op := range dump.Operators {
			types = append(types, op.Type)
		}
		assert.Equal(t, []string{"CONV2D", "POOL", "RESHAPE", "FULLCONNECT", "SOFTMAX"}, types)
		assert.Contains(t, summary(name, model, program), "tiny_classifier")
	})

	t.Run("ge", func(t *testing.T) {
		program, err := lower(backends.NewWithConfig("ge"), model, true)
		require.NoError(t, err)
		dump := dumpProgram(program)
		byType := make(map[string]nativeOperator)
		for _, op := range dump.Operators {
			byType[op.Type] = op
		}
		require.Contains(t, byType, "Conv2D")
		require.Contains(t, byType, "SoftmaxV2")
		require.Contains(t, byType, "Relu")
		assert.Contains(t, byType["Const"].Attributes.(map[string]any)["value"], "bytes")

		path := filepath.Join(t.TempDir(), "operators.json")
		require.NoError(t, writeJSON(path, program))
		var decoded nativeDump
		require.NoError(t, json.Unmarshal(must.M1(os.ReadFile(path)), &decoded))
		assert.Equal(t, len(dump.Operators), len(decoded.Operators))
		assert.Equal(t, program.Stats(), decoded.Stats)
	})

	t.Run("gpu", func(t *testing.T) {
		err := exceptions.TryCatch[error](func() { _, _ = lower(backends.NewWithConfig("gpu"), model, false) })
		require.ErrorIs(t, err, backends.ErrUnsupportedOperation)
	})
}

func TestGPUDump(t *testing.T) {
	model, _, err := parseModel([]byte(`
inputs: [{name: x, precision: FLOAT32, dims: [2, 3]}]
constants: [{name: c, precision: FLOAT32, dims: [3], values: [1, 2, 3]}]
operations:
  - {type: ADD, inputs: [x, c], output: y, attrs: {fuse: RELU6}}
  - {type: SOFTMAX, inputs: [y], output: z}
outputs: [z]
`))
	require.NoError(t, err)
	program, err := lower(backends.NewWithConfig("gpu"), model, false)
	require.NoError(t, err)
	dump := dumpProgram(program)
	require.Len(t, dump.Operators, 2)
	add := dump.Operators[0]
	assert.Equal(t, "DISPATCH", add.Type)
	assert.Len(t, add.Inputs, 3)
	assert.Len(t, add.Outputs, 1)
	assert.Equal(t, [3]int{1, 1, 1}, add.Attributes.(map[string]any)["workgroups"])
}
