// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ge models the operator graph of an NPU "graph engine" SDK: named operators of a string type, connected
// through named input and output ports, with typed attributes.
//
// The graph is only a description, it's compiled and executed by the device toolchain. For testing it provides
// a reference executor, see Execute, that evaluates the shape manipulation and elementwise operators on the host.
package ge

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
)

// Graph of operators, in order of creation.
type Graph struct {
	name      string
	operators []*Operator
	byName    map[string]*Operator
	outputs   []*Output
	numConsts int
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{name: name, byName: make(map[string]*Operator)}
}

// Name of the graph.
func (g *Graph) Name() string { return g.name }

// Operator is a node of the graph.
type Operator struct {
	graph *Graph
	index int

	name, opType  string
	inputs        map[string]*Output
	inputOrder    []string
	dynamicInputs map[string][]*Output
	attrs         map[string]any
	attrOrder     []string
	outputs       map[string]*Output
}

// Output is an output port of an operator, used as the input of other operators.
type Output struct {
	Op   *Operator
	Port string
	Desc TensorDesc
}

// String implements fmt.Stringer.
func (o *Output) String() string {
	return fmt.Sprintf("%s:%s", o.Op.name, o.Port)
}

// AddOperator creates a new operator with the given type and name. Names must be unique within the graph.
func (g *Graph) AddOperator(opType, name string) *Operator {
	if name == "" {
		exceptions.Panicf("ge: operator of type %q requires a name", opType)
	}
	if _, found := g.byName[name]; found {
		exceptions.Panicf("ge: duplicate operator name %q (type %q)", name, opType)
	}
	op := &Operator{
		graph:         g,
		index:         len(g.operators),
		name:          name,
		opType:        opType,
		inputs:        make(map[string]*Output),
		dynamicInputs: make(map[string][]*Output),
		attrs:         make(map[string]any),
		outputs:       make(map[string]*Output),
	}
	g.operators = append(g.operators, op)
	g.byName[name] = op
	return op
}

// Const adds a constant operator holding the tensor, and returns its output. If name is empty a unique name
// is generated.
//
// The tensor data is referenced, not copied.
func (g *Graph) Const(name string, tensor Tensor) *Output {
	if name == "" {
		name = fmt.Sprintf("const_%d", g.numConsts)
	}
	g.numConsts++
	op := g.AddOperator(TypeConst, name)
	op.SetAttr(AttrValue, tensor)
	return op.UpdateOutputDesc("y", tensor.Desc)
}

// Data adds a placeholder for a graph input, fed at execution time by name.
func (g *Graph) Data(name string, desc TensorDesc) *Output {
	op := g.AddOperator(TypeData, name)
	op.SetAttr(AttrIndex, int64(g.countType(TypeData)-1))
	return op.UpdateOutputDesc("y", desc)
}

func (g *Graph) countType(opType string) int {
	count := 0
	for _, op := range g.operators {
		if op.opType == opType {
			count++
		}
	}
	return count
}

// SetOutputs sets the outputs of the graph, fetched after execution.
func (g *Graph) SetOutputs(outputs ...*Output) {
	g.outputs = slices.Clone(outputs)
}

// Outputs of the graph.
func (g *Graph) Outputs() []*Output { return g.outputs }

// Operators returns all operators in order of creation.
func (g *Graph) Operators() []*Operator { return g.operators }

// NumOperators in the graph.
func (g *Graph) NumOperators() int { return len(g.operators) }

// OperatorByName returns the operator with the given name, or nil.
func (g *Graph) OperatorByName(name string) *Operator { return g.byName[name] }

// OperatorsOfType returns all operators of the given type, in order of creation.
func (g *Graph) OperatorsOfType(opType string) []*Operator {
	var ops []*Operator
	for _, op := range g.operators {
		if op.opType == opType {
			ops = append(ops, op)
		}
	}
	return ops
}

// Name of the operator.
func (op *Operator) Name() string { return op.name }

// Type of the operator, e.g. "Conv2D".
func (op *Operator) Type() string { return op.opType }

// Index of creation in the graph.
func (op *Operator) Index() int { return op.index }

// SetInput connects the named input port to src. It returns the operator itself, so calls can be chained.
func (op *Operator) SetInput(port string, src *Output) *Operator {
	op.checkSource(port, src)
	if _, found := op.inputs[port]; !found {
		op.inputOrder = append(op.inputOrder, port)
	}
	op.inputs[port] = src
	return op
}

// CreateDynamicInput declares a variadic input port with n entries, to be set with SetDynamicInput.
func (op *Operator) CreateDynamicInput(port string, n int) *Operator {
	if _, found := op.dynamicInputs[port]; !found {
		op.inputOrder = append(op.inputOrder, port)
	}
	op.dynamicInputs[port] = make([]*Output, n)
	return op
}

// SetDynamicInput connects the entry index of the variadic input port to src.
func (op *Operator) SetDynamicInput(port string, index int, src *Output) *Operator {
	op.checkSource(port, src)
	entries, found := op.dynamicInputs[port]
	if !found || index < 0 || index >= len(entries) {
		exceptions.Panicf("ge: operator %q has no dynamic input %s[%d]", op.name, port, index)
	}
	entries[index] = src
	return op
}

func (op *Operator) checkSource(port string, src *Output) {
	if src == nil {
		exceptions.Panicf("ge: nil source for input %q of operator %q", port, op.name)
	}
	if src.Op.graph != op.graph {
		exceptions.Panicf("ge: source %s of input %q of operator %q belongs to another graph", src, port, op.name)
	}
}

// Input returns the source connected to the named input port, or nil.
func (op *Operator) Input(port string) *Output { return op.inputs[port] }

// DynamicInputs returns the sources of the variadic input port.
func (op *Operator) DynamicInputs(port string) []*Output { return op.dynamicInputs[port] }

// InputPorts returns the names of the connected input ports, in order of connection.
func (op *Operator) InputPorts() []string { return op.inputOrder }

// SetAttr sets an attribute. Supported value types are int64, []int64, float32, bool, string, dtypes.DType,
// Format and Tensor.
func (op *Operator) SetAttr(name string, value any) *Operator {
	if !isValidAttr(value) {
		exceptions.Panicf("ge: attribute %q of operator %q has unsupported type %T", name, op.name, value)
	}
	if _, found := op.attrs[name]; !found {
		op.attrOrder = append(op.attrOrder, name)
	}
	op.attrs[name] = value
	return op
}

// Attr returns the named attribute, or nil.
func (op *Operator) Attr(name string) any { return op.attrs[name] }

// AttrNames returns the names of the attributes, in order of creation.
func (op *Operator) AttrNames() []string { return op.attrOrder }

// Output returns the named output port, creating it with an unknown descriptor if needed.
func (op *Operator) Output(port string) *Output {
	out, found := op.outputs[port]
	if !found {
		out = &Output{Op: op, Port: port}
		op.outputs[port] = out
	}
	return out
}

// UpdateOutputDesc sets the descriptor of the named output port and returns it.
func (op *Operator) UpdateOutputDesc(port string, desc TensorDesc) *Output {
	out := op.Output(port)
	out.Desc = desc
	return out
}

// NumOutputs returns the number of output ports created, that is, the number of tensors of the graph.
func (g *Graph) NumOutputs() int {
	count := 0
	for _, op := range g.operators {
		count += len(op.outputs)
	}
	return count
}

// ConstantBytes returns the total size of the data of the Const operators.
func (g *Graph) ConstantBytes() int {
	total := 0
	for _, op := range g.OperatorsOfType(TypeConst) {
		if tensor, ok := op.attrs[AttrValue].(Tensor); ok {
			total += len(tensor.Data)
		}
	}
	return total
}
