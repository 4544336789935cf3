// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package npugraph implements the "npu" backend, lowering an ir.Model into the graph of a vendor NPU SDK
// (package github.com/gomlx/accel/pkg/sdk/npu).
//
// Every operation maps to one NPU operator configured by its attribute struct. Convolutions and fully connected
// layers fuse RELU through their has_relu attribute, other activations are appended as separate operators.
// Quantized operands carry their scales and zero points to the NPU tensors.
//
// Options (see backends.ParseOptions):
//
//   - relu_in_conv: fuse RELU into convolutions and fully connected layers with has_relu. Default is true.
//     If false a separate RELU operator is appended instead.
//
// Simply import it with import _ "github.com/gomlx/accel/backends/npugraph" to make it available in your program.
// It will register itself as an available backend during initialization.
package npugraph

import (
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/sdk/npu"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// BackendName to be used in ACCEL_BACKEND to select this backend.
const BackendName = "npu"

// Backend implements backends.Backend for the vendor NPU.
type Backend struct {
	reluInConv bool
}

// Compile time check.
var _ backends.Backend = (*Backend)(nil)

// New returns a new NPU Backend configured with the given options.
func New(config string) backends.Backend {
	options := backends.ParseOptions(config)
	options.CheckKnown(BackendName, "relu_in_conv")
	return &Backend{reluInConv: options.Bool("relu_in_conv", true)}
}

// Registers New() as the default constructor for "npu" backend.
func init() {
	backends.Register(BackendName, New)
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string { return "vendor NPU graph builder" }

// Capabilities implements backends.Backend.
func (b *Backend) Capabilities() backends.Capabilities {
	c := backends.Capabilities{
		Operations: rules.Operations(),
		Precisions: make(map[ir.Precision]bool, len(precisions)),
		FuseCodes:  map[ir.FuseCode]bool{},
	}
	for precision := range precisions {
		c.Precisions[precision] = true
	}
	for _, code := range fuseCodes {
		c.FuseCodes[code] = true
	}
	return c
}

// Build implements backends.Backend.
func (b *Backend) Build(model *ir.Model, options ...backends.BuildOption) (backends.Program, error) {
	p := b.NewProgram(model)
	if err := p.Convert(options...); err != nil {
		klog.Warningf("npu: program %s failed: %v", p.id, err)
		return nil, err
	}
	return p, nil
}

// Program holds the NPU graph built for a model, and the mapping of the model operands to its tensors.
type Program struct {
	id         uuid.UUID
	model      *ir.Model
	graph      *npu.Graph
	tensors    *backends.TensorMap[*npu.Tensor]
	reluInConv bool
}

// Compile time check.
var _ backends.Program = (*Program)(nil)

// NewProgram creates an empty program for the model, with the options of the backend.
// Use Program.Convert to lower it.
func (b *Backend) NewProgram(model *ir.Model) *Program {
	return &Program{
		id:         uuid.New(),
		model:      model,
		graph:      npu.NewGraph(),
		tensors:    backends.NewTensorMap[*npu.Tensor](),
		reluInConv: b.reluInConv,
	}
}

// Convert lowers the operations of the model in topological order, and sets the graph inputs and outputs.
//
// It panics on contract violations, and returns an error wrapping backends.ErrInvalidParameter if an operation
// can't be lowered.
func (p *Program) Convert(options ...backends.BuildOption) error {
	if err := backends.Apply(p, p.model, rules, options...); err != nil {
		return err
	}
	// A model input keeps its first tensor: later ones are views of it.
	inputs := make([]*npu.Tensor, 0, len(p.model.Inputs()))
	for _, operand := range p.model.Inputs() {
		handles := p.tensors.Handles(operand)
		if len(handles) == 0 {
			inputs = append(inputs, p.convertOperand(operand))
			continue
		}
		inputs = append(inputs, handles[0])
	}
	outputs := make([]*npu.Tensor, 0, len(p.model.Outputs()))
	for _, operand := range p.model.Outputs() {
		outputs = append(outputs, p.tensorOf(operand))
	}
	p.graph.SetInputsOutputs(inputs, outputs)
	stats := p.Stats()
	klog.V(1).Infof("npu: program %s: %d operators, %d tensors, %d bytes of constants",
		p.id, stats.NumOperators, stats.NumTensors, stats.ConstantBytes)
	return nil
}

// ID implements backends.Program.
func (p *Program) ID() uuid.UUID { return p.id }

// BackendName implements backends.Program.
func (p *Program) BackendName() string { return BackendName }

// Stats implements backends.Program.
func (p *Program) Stats() backends.ProgramStats {
	return backends.ProgramStats{
		NumOperators:  len(p.graph.Operators()),
		NumTensors:    len(p.graph.Tensors()),
		ConstantBytes: p.graph.ConstantBytes(),
	}
}

// Graph returns the NPU graph.
func (p *Program) Graph() *npu.Graph { return p.graph }

// Handles returns the tensors mapped to the operand, in order of creation.
func (p *Program) Handles(operand *ir.Operand) []*npu.Tensor { return p.tensors.Handles(operand) }
