// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphengine implements the "ge" backend, lowering an ir.Model into the operator graph of an NPU graph
// engine (package github.com/gomlx/accel/pkg/sdk/ge).
//
// Operations without a native equivalent are decomposed into several operators: DEFORMABLE_CONV_2D becomes
// StridedSliceV2/ConcatD/DeformableOffsets/Conv2D, resizes with scales compute their output size in the graph,
// and FULLY_CONNECTED becomes Reshape/MatMulV2/BiasAdd.
//
// Simply import it with import _ "github.com/gomlx/accel/backends/graphengine" to make it available in your program.
// It will register itself as an available backend during initialization.
package graphengine

import (
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/sdk/ge"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// BackendName to be used in ACCEL_BACKEND to select this backend.
const BackendName = "ge"

// Backend implements backends.Backend for the graph engine.
type Backend struct{}

// Compile time check.
var _ backends.Backend = (*Backend)(nil)

// New returns a new graph engine Backend. It takes no options.
func New(config string) backends.Backend {
	backends.ParseOptions(config).CheckKnown(BackendName)
	return &Backend{}
}

// Registers New() as the default constructor for "ge" backend.
func init() {
	backends.Register(BackendName, New)
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string { return "NPU graph engine (ge operators)" }

// supportedPrecisions excludes the quantized precisions, the graph engine works on float models.
var supportedPrecisions = map[ir.Precision]bool{
	ir.PrecisionBool8:   true,
	ir.PrecisionInt8:    true,
	ir.PrecisionUint8:   true,
	ir.PrecisionInt16:   true,
	ir.PrecisionInt32:   true,
	ir.PrecisionInt64:   true,
	ir.PrecisionFloat16: true,
	ir.PrecisionFloat32: true,
}

// fuseCodes are the activations that can be appended to an operator.
var fuseCodes = []ir.FuseCode{ir.FuseRelu, ir.FuseRelu6}

// Capabilities implements backends.Backend.
func (b *Backend) Capabilities() backends.Capabilities {
	c := backends.Capabilities{
		Operations: rules.Operations(),
		Precisions: supportedPrecisions,
		FuseCodes:  map[ir.FuseCode]bool{},
	}
	for _, code := range fuseCodes {
		c.FuseCodes[code] = true
	}
	return c.Clone()
}

// Build implements backends.Backend.
func (b *Backend) Build(model *ir.Model, options ...backends.BuildOption) (backends.Program, error) {
	p := NewProgram(model)
	if err := p.Convert(options...); err != nil {
		klog.Warningf("ge: program %s failed: %v", p.id, err)
		return nil, err
	}
	return p, nil
}

// Program holds the graph engine graph built for a model, and the mapping of the model operands to
// the outputs of its operators.
type Program struct {
	id      uuid.UUID
	model   *ir.Model
	graph   *ge.Graph
	tensors *backends.TensorMap[*ge.Output]
}

// Compile time check.
var _ backends.Program = (*Program)(nil)

// NewProgram creates an empty program for the model. Use Program.Convert to lower it.
func NewProgram(model *ir.Model) *Program {
	id := uuid.New()
	return &Program{
		id:      id,
		model:   model,
		graph:   ge.NewGraph(id.String()),
		tensors: backends.NewTensorMap[*ge.Output](),
	}
}

// Convert lowers the model into the graph: the model inputs become Data operators, in order, and the
// operations are lowered in topological order.
//
// It panics on contract violations, and returns an error wrapping backends.ErrInvalidParameter if an operation
// can't be lowered.
func (p *Program) Convert(options ...backends.BuildOption) error {
	for _, input := range p.model.Inputs() {
		p.convertOperand(input)
	}
	if err := backends.Apply(p, p.model, rules, options...); err != nil {
		return err
	}
	outputs := make([]*ge.Output, 0, len(p.model.Outputs()))
	for _, operand := range p.model.Outputs() {
		outputs = append(outputs, p.tensorOf(operand))
	}
	p.graph.SetOutputs(outputs...)
	stats := p.Stats()
	klog.V(1).Infof("ge: program %s: %d operators, %d tensors, %d bytes of constants",
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
		NumOperators:  p.graph.NumOperators(),
		NumTensors:    p.graph.NumOutputs(),
		ConstantBytes: p.graph.ConstantBytes(),
	}
}

// Graph returns the graph engine graph.
func (p *Program) Graph() *ge.Graph { return p.graph }

// Handles returns the operator outputs mapped to the operand, in order of creation.
func (p *Program) Handles(operand *ir.Operand) []*ge.Output { return p.tensors.Handles(operand) }
