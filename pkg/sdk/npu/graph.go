// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package npu

import (
	"slices"

	"github.com/pkg/errors"
)

// Graph of tensors and operators.
type Graph struct {
	tensors       []*Tensor
	tensorsByName map[string]*Tensor
	operators     []*Operator
	inputs        []*Tensor
	outputs       []*Tensor
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{tensorsByName: make(map[string]*Tensor)}
}

// CreateTensor adds a tensor to the graph. If data is not nil it's a constant, and data is referenced.
//
// It returns an error wrapping ErrUnsupported if the precision or the dimensions are not supported,
// or if the quantization parameters are inconsistent.
func (g *Graph) CreateTensor(attr TensorAttr, data []byte) (*Tensor, error) {
	if attr.Precision.Size() == 0 {
		return nil, errors.Wrapf(ErrUnsupported, "tensor %q precision %s", attr.Name, attr.Precision)
	}
	size := 1
	for _, dim := range attr.Dims {
		if dim < 0 {
			return nil, errors.Wrapf(ErrUnsupported, "tensor %q with unknown dimensions %v", attr.Name, attr.Dims)
		}
		size *= int(dim)
	}
	switch attr.QuantType {
	case QuantNone:
	case QuantAsymmetric, QuantSymmetricPerLayer:
		if len(attr.Scales) != 1 {
			return nil, errors.Errorf("tensor %q quantized as %s requires one scale, got %v", attr.Name, attr.QuantType, attr.Scales)
		}
		if attr.QuantType == QuantAsymmetric && len(attr.ZeroPoints) != 1 {
			return nil, errors.Errorf("tensor %q quantized as %s requires one zero point, got %v",
				attr.Name, attr.QuantType, attr.ZeroPoints)
		}
	case QuantSymmetricPerChannel:
		if attr.ChannelDim < 0 || int(attr.ChannelDim) >= len(attr.Dims) || len(attr.Scales) != int(attr.Dims[attr.ChannelDim]) {
			return nil, errors.Errorf("tensor %q quantized per channel requires one scale per channel, got %d scales for dims %v",
				attr.Name, len(attr.Scales), attr.Dims)
		}
	default:
		return nil, errors.Wrapf(ErrUnsupported, "tensor %q quantization %s", attr.Name, attr.QuantType)
	}
	role := RoleVariable
	if data != nil {
		role = RoleConstant
		if want := size * attr.Precision.Size(); len(data) != want {
			return nil, errors.Errorf("tensor %q %s%v requires %d bytes of data, got %d",
				attr.Name, attr.Precision, attr.Dims, want, len(data))
		}
	}
	if attr.Name != "" {
		if _, found := g.tensorsByName[attr.Name]; found {
			return nil, errors.Errorf("duplicate tensor name %q", attr.Name)
		}
	}
	attr.Dims = slices.Clone(attr.Dims)
	t := &Tensor{index: len(g.tensors), Attr: attr, Role: role, Data: data}
	g.tensors = append(g.tensors, t)
	if attr.Name != "" {
		g.tensorsByName[attr.Name] = t
	}
	return t, nil
}

// AddOperator adds an operator to the graph.
//
// The attribute must be a non-nil pointer to the attribute struct of the operator type (e.g. *Conv2DAttr for
// OperatorConv2D), or nil for operators without attributes.
func (g *Graph) AddOperator(opType OperatorType, inputs, outputs []*Tensor, attr any, name string) (*Operator, error) {
	if opType <= OperatorInvalid || int(opType) >= len(operatorNames) {
		return nil, errors.Wrapf(ErrUnsupported, "operator type %s", opType)
	}
	if check, found := attrTypeChecks[opType]; found {
		if !check(attr) {
			return nil, errors.Errorf("operator %s requires its attribute struct, got %T", opType, attr)
		}
	} else if attr != nil {
		return nil, errors.Errorf("operator %s takes no attributes, got %T", opType, attr)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.Errorf("operator %s requires inputs and outputs", opType)
	}
	for _, t := range slices.Concat(inputs, outputs) {
		if t == nil || t.index >= len(g.tensors) || g.tensors[t.index] != t {
			return nil, errors.Errorf("operator %s uses a tensor that doesn't belong to the graph", opType)
		}
	}
	op := &Operator{
		index:   len(g.operators),
		Type:    opType,
		Name:    name,
		Inputs:  slices.Clone(inputs),
		Outputs: slices.Clone(outputs),
		Attr:    attr,
	}
	g.operators = append(g.operators, op)
	return op, nil
}

// SetInputsOutputs sets the graph inputs and outputs.
func (g *Graph) SetInputsOutputs(inputs, outputs []*Tensor) {
	g.inputs = slices.Clone(inputs)
	g.outputs = slices.Clone(outputs)
}

// Inputs of the graph.
func (g *Graph) Inputs() []*Tensor { return g.inputs }

// Outputs of the graph.
func (g *Graph) Outputs() []*Tensor { return g.outputs }

// Tensors returns all tensors, in order of creation.
func (g *Graph) Tensors() []*Tensor { return g.tensors }

// TensorByName returns the named tensor, or nil.
func (g *Graph) TensorByName(name string) *Tensor { return g.tensorsByName[name] }

// Operators returns all operators, in order of creation.
func (g *Graph) Operators() []*Operator { return g.operators }

// OperatorsOfType returns the operators of the given type, in order of creation.
func (g *Graph) OperatorsOfType(opType OperatorType) []*Operator {
	var ops []*Operator
	for _, op := range g.operators {
		if op.Type == opType {
			ops = append(ops, op)
		}
	}
	return ops
}

// ConstantBytes returns the total size of the data of the constant tensors.
func (g *Graph) ConstantBytes() int {
	total := 0
	for _, t := range g.tensors {
		total += len(t.Data)
	}
	return total
}
