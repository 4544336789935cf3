// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpupipeline

import (
	"strings"
	"text/template"

	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/sdk/gpu"
	"github.com/janpfeifer/must"
)

// entryPoint of all generated shaders.
const entryPoint = "main"

// invocationsPerRow is the number of invocations covered by one row (y) of the workgroup grid,
// see gpu.WorkgroupsFor.
const invocationsPerRow = gpu.WorkgroupSize * gpu.MaxWorkgroupsPerDimension

// activations maps the fuse codes to the WGSL expression applied to the value v before it's stored.
var activations = map[ir.FuseCode]string{
	ir.FuseNone:  "v",
	ir.FuseRelu:  "max(v, 0.0)",
	ir.FuseRelu1: "clamp(v, -1.0, 1.0)",
	ir.FuseRelu6: "clamp(v, 0.0, 6.0)",
}

var binaryOperators = map[ir.OpType]string{
	ir.OpTypeAdd: "+",
	ir.OpTypeSub: "-",
	ir.OpTypeMul: "*",
	ir.OpTypeDiv: "/",
}

var unaryExpressions = map[ir.OpType]string{
	ir.OpTypeRelu:    "max(v, 0.0)",
	ir.OpTypeRelu6:   "clamp(v, 0.0, 6.0)",
	ir.OpTypeSigmoid: "1.0 / (1.0 + exp(-v))",
	ir.OpTypeTanh:    "tanh(v)",
}

// Bindings: x and y are the inputs, output is written, and params holds the u32 parameters
// [size, rank, dims..., x_strides..., y_strides...]. A broadcast axis has stride 0.
var binaryTemplate = template.Must(template.New("binary").Parse(`
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read> y: array<f32>;
@group(0) @binding(2) var<storage, read_write> output: array<f32>;
@group(0) @binding(3) var<storage, read> params: array<u32>;

fn activation(v: f32) -> f32 {
    return {{.Activation}};
}

@compute @workgroup_size({{.WorkgroupSize}})
fn {{.EntryPoint}}(@builtin(global_invocation_id) id: vec3<u32>) {
    let idx = id.x + id.y * {{.InvocationsPerRow}}u;
    if (idx >= params[0]) {
        return;
    }
    let rank = params[1];
    var remaining = idx;
    var x_idx = 0u;
    var y_idx = 0u;
    for (var axis = rank; axis > 0u; axis = axis - 1u) {
        let dim = params[1u + axis];
        let coord = remaining % dim;
        remaining = remaining / dim;
        x_idx = x_idx + coord * params[1u + rank + axis];
        y_idx = y_idx + coord * params[1u + 2u * rank + axis];
    }
    output[idx] = activation(x[x_idx] {{.Operator}} y[y_idx]);
}
`))

// Bindings: input, output and params [size].
var unaryTemplate = template.Must(template.New("unary").Parse(`
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;
@group(0) @binding(2) var<storage, read> params: array<u32>;

@compute @workgroup_size({{.WorkgroupSize}})
fn {{.EntryPoint}}(@builtin(global_invocation_id) id: vec3<u32>) {
    let idx = id.x + id.y * {{.InvocationsPerRow}}u;
    if (idx >= params[0]) {
        return;
    }
    let v = input[idx];
    output[idx] = {{.Expression}};
}
`))

// Bindings: input, output and params [rows, cols]. One invocation per row.
var softmaxTemplate = template.Must(template.New("softmax").Parse(`
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;
@group(0) @binding(2) var<storage, read> params: array<u32>;

@compute @workgroup_size({{.WorkgroupSize}})
fn {{.EntryPoint}}(@builtin(global_invocation_id) id: vec3<u32>) {
    let row = id.x + id.y * {{.InvocationsPerRow}}u;
    if (row >= params[0]) {
        return;
    }
    let cols = params[1];
    let offset = row * cols;
    var max_value = input[offset];
    for (var ii = 1u; ii < cols; ii = ii + 1u) {
        max_value = max(max_value, input[offset + ii]);
    }
    var sum = 0.0;
    for (var ii = 0u; ii < cols; ii = ii + 1u) {
        let e = exp(input[offset + ii] - max_value);
        output[offset + ii] = e;
        sum = sum + e;
    }
    for (var ii = 0u; ii < cols; ii = ii + 1u) {
        output[offset + ii] = output[offset + ii] / sum;
    }
}
`))

type shaderParams struct {
	WorkgroupSize, InvocationsPerRow int
	EntryPoint                       string
	Activation, Operator, Expression string
}

func executeShader(tmpl *template.Template, params shaderParams) string {
	params.WorkgroupSize = gpu.WorkgroupSize
	params.InvocationsPerRow = invocationsPerRow
	params.EntryPoint = entryPoint
	var sb strings.Builder
	must.M(tmpl.Execute(&sb, params))
	return sb.String()
}

type binaryShaderKey struct {
	opType ir.OpType
	fuse   ir.FuseCode
}

// Shaders are generated once during initialization, and are read-only afterward.
var (
	binaryShaders = make(map[binaryShaderKey]string, len(binaryOperators)*len(activations))
	unaryShaders  = make(map[ir.OpType]string, len(unaryExpressions))
	softmaxShader = executeShader(softmaxTemplate, shaderParams{})
)

func init() {
	for opType, operator := range binaryOperators {
		for fuse, activation := range activations {
			binaryShaders[binaryShaderKey{opType, fuse}] = executeShader(binaryTemplate,
				shaderParams{Operator: operator, Activation: activation})
		}
	}
	for opType, expression := range unaryExpressions {
		unaryShaders[opType] = executeShader(unaryTemplate, shaderParams{Expression: expression})
	}
}
