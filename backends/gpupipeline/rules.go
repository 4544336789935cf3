// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gpupipeline

import (
	"fmt"

	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/operation"
	"github.com/gomlx/accel/pkg/sdk/gpu"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var rules = backends.Rules[*Program]{
	ir.OpTypeAdd:     convertElementwise,
	ir.OpTypeSub:     convertElementwise,
	ir.OpTypeMul:     convertElementwise,
	ir.OpTypeDiv:     convertElementwise,
	ir.OpTypeRelu:    convertUnary,
	ir.OpTypeRelu6:   convertUnary,
	ir.OpTypeSigmoid: convertUnary,
	ir.OpTypeTanh:    convertUnary,
	ir.OpTypeSoftmax: convertSoftmax,
}

// dims converts the operand dimensions, panicking wrapping backends.ErrInvalidOperand if the operand is not
// a float32 with known dimensions.
func dims(operand *ir.Operand) []int {
	if operand.Type.Precision != ir.PrecisionFloat32 {
		panic(errors.Wrapf(backends.ErrInvalidOperand, "gpu: operand %s has precision %s, only FLOAT32 is supported",
			ir.OperandIDToString(operand), operand.Type.Precision))
	}
	result := make([]int, len(operand.Type.Dimensions))
	for ii, dim := range operand.Type.Dimensions {
		if dim < 0 {
			panic(errors.Wrapf(backends.ErrInvalidOperand, "gpu: operand %s has unknown dimensions %v",
				ir.OperandIDToString(operand), operand.Type.Dimensions))
		}
		result[ii] = int(dim)
	}
	return result
}

// convertOperand creates a buffer for the operand and registers it. Constants are uploaded with their buffer.
func (p *Program) convertOperand(operand *ir.Operand) *gpu.Buffer {
	var data []byte
	if operand.IsConstant() {
		data = operand.Buffer
	}
	buffer, err := p.pipeline.CreateBuffer(p.buffers.NextName(operand), dtypes.Float32, dims(operand), data)
	if err != nil {
		panic(errors.Wrapf(backends.ErrInvalidOperand, "gpu: %v", err))
	}
	if klog.V(5).Enabled() {
		klog.Infof("  converted %s to %s", ir.OperandIDToString(operand), buffer)
	}
	return p.buffers.Register(operand, buffer)
}

// bufferOf returns the most recent buffer mapped to the operand, converting the operand if it was not mapped yet.
func (p *Program) bufferOf(operand *ir.Operand) *gpu.Buffer {
	if buffer, found := p.buffers.Lookup(operand); found {
		return buffer
	}
	return p.convertOperand(operand)
}

// addParams creates the read-only buffer with the u32 parameters of a dispatch.
func (p *Program) addParams(label string, params []uint32) *gpu.Buffer {
	buffer, err := p.pipeline.CreateBuffer(label+"/params", dtypes.Uint32, []int{len(params)}, backends.EncodeFlat(params))
	if err != nil {
		panic(errors.WithMessagef(err, "gpu: parameters of %s", label))
	}
	return buffer
}

// addDispatch binds the inputs (read-only), then the output, then the parameters, in consecutive slots.
func (p *Program) addDispatch(opType ir.OpType, shader string, numInvocations int, inputs []*gpu.Buffer,
	output *gpu.Buffer, params []uint32) *gpu.Dispatch {
	label := fmt.Sprintf("%s:%s", opType, output.Label)
	bindings := make([]gpu.Binding, 0, len(inputs)+2)
	for _, input := range inputs {
		bindings = append(bindings, gpu.Binding{Slot: len(bindings), Buffer: input, ReadOnly: true})
	}
	bindings = append(bindings, gpu.Binding{Slot: len(bindings), Buffer: output})
	bindings = append(bindings, gpu.Binding{Slot: len(bindings), Buffer: p.addParams(label, params), ReadOnly: true})
	dispatch, err := p.pipeline.AddDispatch(label, shader, entryPoint, gpu.WorkgroupsFor(numInvocations), bindings...)
	if err != nil {
		panic(errors.WithMessagef(err, "gpu: adding dispatch %s", label))
	}
	return dispatch
}

// broadcastStrides returns the row-major strides of an input with the given dimensions broadcast to the output
// dimensions: dimensions are aligned to the right, and broadcast axes have stride 0.
func broadcastStrides(input, output []int) []uint32 {
	strides := make([]uint32, len(output))
	stride := 1
	for axis := len(output) - 1; axis >= 0; axis-- {
		inputAxis := axis - (len(output) - len(input))
		if inputAxis < 0 {
			continue
		}
		if input[inputAxis] != 1 || output[axis] == 1 {
			strides[axis] = uint32(stride)
		}
		stride *= input[inputAxis]
	}
	return strides
}

func convertElementwise(p *Program, op *ir.Operation) error {
	params := operation.ExtractElementwise(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	x, y := p.bufferOf(params.Input0), p.bufferOf(params.Input1)
	output := p.convertOperand(params.Output)
	values := []uint32{uint32(output.Size()), uint32(len(output.Dims))}
	for _, dim := range output.Dims {
		values = append(values, uint32(dim))
	}
	values = append(values, broadcastStrides(x.Dims, output.Dims)...)
	values = append(values, broadcastStrides(y.Dims, output.Dims)...)
	shader := binaryShaders[binaryShaderKey{params.Type, params.FuseCode}]
	p.addDispatch(params.Type, shader, output.Size(), []*gpu.Buffer{x, y}, output, values)
	return nil
}

func convertUnary(p *Program, op *ir.Operation) error {
	params := operation.ExtractUnary(op)
	input := p.bufferOf(params.Input)
	output := p.convertOperand(params.Output)
	p.addDispatch(params.Type, unaryShaders[params.Type], output.Size(), []*gpu.Buffer{input}, output,
		[]uint32{uint32(output.Size())})
	return nil
}

func convertSoftmax(p *Program, op *ir.Operation) error {
	params := operation.ExtractSoftmax(op)
	if rank := params.Input.Type.Rank(); int(params.Axis) != rank-1 {
		panic(errors.Wrapf(backends.ErrUnsupportedOperation, "gpu: %s: softmax only supported over the last axis, "+
			"got axis %d for rank %d", ir.OperationToString(op), params.Axis, rank))
	}
	input := p.bufferOf(params.Input)
	output := p.convertOperand(params.Output)
	cols := 1
	if len(output.Dims) > 0 {
		cols = output.Dims[len(output.Dims)-1]
	}
	rows := 0
	if cols > 0 {
		rows = output.Size() / cols
	}
	p.addDispatch(ir.OpTypeSoftmax, softmaxShader, rows, []*gpu.Buffer{input}, output,
		[]uint32{uint32(rows), uint32(cols)})
	return nil
}
