// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gpupipeline implements the "gpu" backend, lowering an ir.Model into a pipeline of WGSL compute
// shaders (package github.com/gomlx/accel/pkg/sdk/gpu).
//
// Each operation becomes one dispatch over float32 storage buffers. The fused activations are applied in the
// epilogue of the elementwise shaders, so no extra dispatch is needed. SOFTMAX is only supported over the
// last axis.
//
// Simply import it with import _ "github.com/gomlx/accel/backends/gpupipeline" to make it available in your
// program. It will register itself as an available backend during initialization.
package gpupipeline

import (
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/sdk/gpu"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// BackendName to be used in ACCEL_BACKEND to select this backend.
const BackendName = "gpu"

// Backend implements backends.Backend for the compute-shader pipeline.
type Backend struct{}

// Compile time check.
var _ backends.Backend = (*Backend)(nil)

// New returns a new GPU Backend. It takes no options.
func New(config string) backends.Backend {
	backends.ParseOptions(config).CheckKnown(BackendName)
	return &Backend{}
}

// Registers New() as the default constructor for "gpu" backend.
func init() {
	backends.Register(BackendName, New)
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string { return "GPU compute shaders (WGSL)" }

// fuseCodes are all applied in the shader epilogue.
var fuseCodes = []ir.FuseCode{ir.FuseRelu, ir.FuseRelu1, ir.FuseRelu6}

// Capabilities implements backends.Backend.
func (b *Backend) Capabilities() backends.Capabilities {
	c := backends.Capabilities{
		Operations: rules.Operations(),
		Precisions: map[ir.Precision]bool{ir.PrecisionFloat32: true},
		FuseCodes:  map[ir.FuseCode]bool{},
	}
	for _, code := range fuseCodes {
		c.FuseCodes[code] = true
	}
	return c
}

// Build implements backends.Backend.
func (b *Backend) Build(model *ir.Model, options ...backends.BuildOption) (backends.Program, error) {
	p := NewProgram(model)
	if err := p.Convert(options...); err != nil {
		klog.Warningf("gpu: program %s failed: %v", p.id, err)
		return nil, err
	}
	return p, nil
}

// Program holds the pipeline built for a model, and the mapping of the model operands to its buffers.
type Program struct {
	id       uuid.UUID
	model    *ir.Model
	pipeline *gpu.Pipeline
	buffers  *backends.TensorMap[*gpu.Buffer]
}

// Compile time check.
var _ backends.Program = (*Program)(nil)

// NewProgram creates an empty program for the model. Use Program.Convert to lower it.
func NewProgram(model *ir.Model) *Program {
	id := uuid.New()
	return &Program{
		id:       id,
		model:    model,
		pipeline: gpu.NewPipeline(id.String()),
		buffers:  backends.NewTensorMap[*gpu.Buffer](),
	}
}

// Convert appends one dispatch per operation, in topological order, and sets the pipeline inputs and outputs.
//
// It panics on contract violations, and returns an error wrapping backends.ErrInvalidParameter if an operation
// can't be lowered.
func (p *Program) Convert(options ...backends.BuildOption) error {
	if err := backends.Apply(p, p.model, rules, options...); err != nil {
		return err
	}
	inputs := make([]*gpu.Buffer, 0, len(p.model.Inputs()))
	for _, operand := range p.model.Inputs() {
		inputs = append(inputs, p.bufferOf(operand))
	}
	outputs := make([]*gpu.Buffer, 0, len(p.model.Outputs()))
	for _, operand := range p.model.Outputs() {
		outputs = append(outputs, p.bufferOf(operand))
	}
	p.pipeline.SetInputsOutputs(inputs, outputs)
	stats := p.Stats()
	klog.V(1).Infof("gpu: program %s: %d dispatches, %d buffers, %d bytes of constants",
		p.id, stats.NumOperators, stats.NumTensors, stats.ConstantBytes)
	return nil
}

// ID implements backends.Program.
func (p *Program) ID() uuid.UUID { return p.id }

// BackendName implements backends.Program.
func (p *Program) BackendName() string { return BackendName }

// Stats implements backends.Program. The parameter buffers of the dispatches are counted as constants.
func (p *Program) Stats() backends.ProgramStats {
	return backends.ProgramStats{
		NumOperators:  len(p.pipeline.Dispatches()),
		NumTensors:    len(p.pipeline.Buffers()),
		ConstantBytes: p.pipeline.ConstantBytes(),
	}
}

// Pipeline returns the GPU pipeline.
func (p *Program) Pipeline() *gpu.Pipeline { return p.pipeline }

// Handles returns the buffers mapped to the operand, in order of creation.
func (p *Program) Handles(operand *ir.Operand) []*gpu.Buffer { return p.buffers.Handles(operand) }
