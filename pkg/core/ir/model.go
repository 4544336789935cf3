// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Operation is a computation node of a Model.
//
// Inputs and Outputs are positional: the position is the parameter name (see ArityOf).
// Optional inputs (e.g. the shape or scales of a resize) are nil.
type Operation struct {
	id      int
	Type    OpType
	Inputs  []*Operand
	Outputs []*Operand
}

// ID of the operation: its index of declaration within the Model.
func (op *Operation) ID() int {
	return op.id
}

// Model owns the operands and operations of a network, forming a DAG.
type Model struct {
	operands   []*Operand
	operations []*Operation
	inputs     []*Operand
	outputs    []*Operand
	producers  map[*Operand]*Operation
}

// NewModel creates an empty Model.
func NewModel() *Model {
	return &Model{producers: make(map[*Operand]*Operation)}
}

// Operands returns all operands, in order of creation. The returned slice must not be changed.
func (m *Model) Operands() []*Operand { return m.operands }

// Operations returns all operations, in order of declaration. The returned slice must not be changed.
func (m *Model) Operations() []*Operation { return m.operations }

// Inputs returns the model inputs, in order.
func (m *Model) Inputs() []*Operand { return m.inputs }

// Outputs returns the model outputs, in order.
func (m *Model) Outputs() []*Operand { return m.outputs }

// Producer returns the operation that produces the operand, or nil if it is a model input or a constant.
func (m *Model) Producer(operand *Operand) *Operation {
	return m.producers[operand]
}

// Owns returns whether the operand was created by this model.
func (m *Model) Owns(operand *Operand) bool {
	return operand != nil && operand.id >= 0 && operand.id < len(m.operands) && m.operands[operand.id] == operand
}

// AddOperand creates a new operand with the given type. The type is cloned.
func (m *Model) AddOperand(operandType OperandType) *Operand {
	o := &Operand{id: len(m.operands), Type: operandType.Clone()}
	m.operands = append(m.operands, o)
	return o
}

// AddTemporary creates a temporary variable, to be used as the output of an operation.
func (m *Model) AddTemporary(precision Precision, dims ...int32) *Operand {
	return m.AddOperand(OperandType{Precision: precision, Dimensions: dims, Lifetime: LifetimeTemporaryVariable})
}

// AddInput creates a model input with the given precision and dimensions, in NCHW layout.
func (m *Model) AddInput(precision Precision, dims ...int32) *Operand {
	o := m.AddOperand(OperandType{Precision: precision, Dimensions: dims, Lifetime: LifetimeModelInput})
	m.inputs = append(m.inputs, o)
	return o
}

// AddConstant creates a constant operand with the given type and little-endian encoded buffer.
//
// If copyBuffer is true the buffer is copied and the lifetime is set to LifetimeConstantCopy, otherwise the
// buffer is referenced (LifetimeConstantReference) and must be kept unchanged by the caller.
//
// It panics if the buffer size doesn't match the dimensions and precision.
func (m *Model) AddConstant(operandType OperandType, buffer []byte, copyBuffer bool) *Operand {
	operandType.Lifetime = LifetimeConstantReference
	if copyBuffer {
		operandType.Lifetime = LifetimeConstantCopy
		buffer = slices.Clone(buffer)
	}
	if memory := operandType.Memory(); memory < 0 || memory != len(buffer) {
		panic(errors.Wrapf(ErrBufferSize, "AddConstant(%v): dimensions %v of %s require %d bytes, got %d",
			operandType.Precision, operandType.Dimensions, operandType.Precision, memory, len(buffer)))
	}
	o := m.AddOperand(operandType)
	o.Buffer = buffer
	return o
}

// AddInt32Constant creates a scalar int32 constant.
func (m *Model) AddInt32Constant(value int32) *Operand {
	return m.AddConstant(OperandType{Precision: PrecisionInt32}, encodeValues([]int32{value}), true)
}

// AddInt32VectorConstant creates a rank-1 int32 constant.
func (m *Model) AddInt32VectorConstant(values []int32) *Operand {
	return m.AddConstant(OperandType{Precision: PrecisionInt32, Dimensions: []int32{int32(len(values))}},
		encodeValues(values), true)
}

// AddBoolConstant creates a scalar BOOL8 constant.
func (m *Model) AddBoolConstant(value bool) *Operand {
	return m.AddConstant(OperandType{Precision: PrecisionBool8}, encodeValues([]bool{value}), true)
}

// AddFloat32Constant creates a float32 constant with the given dimensions.
// If no dimensions are given, it's a vector with len(values) elements, or a scalar if there is only one value.
func (m *Model) AddFloat32Constant(values []float32, dims ...int32) *Operand {
	return m.AddConstant(OperandType{Precision: PrecisionFloat32, Dimensions: defaultDims(len(values), dims)},
		encodeValues(values), true)
}

// AddFloat16Constant creates a float16 constant, see AddFloat32Constant for the dimensions.
func (m *Model) AddFloat16Constant(values []float16.Float16, dims ...int32) *Operand {
	return m.AddConstant(OperandType{Precision: PrecisionFloat16, Dimensions: defaultDims(len(values), dims)},
		encodeValues(values), true)
}

func defaultDims(numValues int, dims []int32) []int32 {
	if len(dims) > 0 {
		return dims
	}
	if numValues == 1 {
		return nil
	}
	return []int32{int32(numValues)}
}

// AddOperation declares a new operation.
//
// The arity is not checked here (see CheckArity and Validate), but all operands must belong to the model
// and each output must not already have a producer, otherwise it panics.
func (m *Model) AddOperation(opType OpType, inputs, outputs []*Operand) *Operation {
	if opType <= OpTypeInvalid || opType >= OpTypeLast {
		panic(errors.Wrapf(ErrUnknownOpType, "AddOperation(%s)", opType))
	}
	for ii, input := range inputs {
		if input != nil && !m.Owns(input) {
			exceptions.Panicf("AddOperation(%s): input #%d doesn't belong to the model", opType, ii)
		}
	}
	op := &Operation{id: len(m.operations), Type: opType, Inputs: slices.Clone(inputs), Outputs: slices.Clone(outputs)}
	for ii, output := range outputs {
		if !m.Owns(output) {
			exceptions.Panicf("AddOperation(%s): output #%d is nil or doesn't belong to the model", opType, ii)
		}
		if output.IsConstant() || output.Type.Lifetime == LifetimeModelInput {
			exceptions.Panicf("AddOperation(%s): output #%d (%s) has lifetime %s, it can't be produced by an operation",
				opType, ii, OperandIDToString(output), output.Type.Lifetime)
		}
		if prev, found := m.producers[output]; found {
			panic(errors.Wrapf(ErrMultipleProducers, "AddOperation(%s): output #%d (%s) is already produced by %s",
				opType, ii, OperandIDToString(output), OperationToString(prev)))
		}
	}
	for _, output := range outputs {
		m.producers[output] = op
	}
	m.operations = append(m.operations, op)
	return op
}

// MarkOutputs marks the given operands as model outputs, in order.
func (m *Model) MarkOutputs(outputs ...*Operand) {
	for _, o := range outputs {
		if !m.Owns(o) {
			exceptions.Panicf("MarkOutputs(): operand doesn't belong to the model")
		}
		if o.Type.Lifetime == LifetimeTemporaryVariable {
			o.Type.Lifetime = LifetimeModelOutput
		}
		m.outputs = append(m.outputs, o)
	}
}

// Validate checks that the model is well-formed:
//
//   - Every operation has the arity of its type.
//   - Every temporary variable or model output consumed by an operation is produced by some operation.
//   - Every model output is either produced by an operation or is a model input.
//   - There are no cycles.
//
// It returns an error wrapping ErrInvalidModel otherwise.
func (m *Model) Validate() error {
	for _, op := range m.operations {
		if err := exceptions.TryCatch[error](func() { CheckArity(op) }); err != nil {
			return errors.Wrapf(ErrInvalidModel, "%v", err)
		}
		for ii, input := range op.Inputs {
			if input == nil {
				continue
			}
			lifetime := input.Type.Lifetime
			if (lifetime == LifetimeTemporaryVariable || lifetime == LifetimeModelOutput) && m.producers[input] == nil {
				return errors.Wrapf(ErrInvalidModel, "%s: input #%d (%s) is never produced",
					OperationToString(op), ii, OperandIDToString(input))
			}
		}
	}
	for ii, output := range m.outputs {
		if output.Type.Lifetime != LifetimeModelInput && m.producers[output] == nil {
			return errors.Wrapf(ErrInvalidModel, "model output #%d (%s) is never produced", ii, OperandIDToString(output))
		}
	}
	if err := exceptions.TryCatch[error](func() { _ = SortOperationsInTopologicalOrder(m) }); err != nil {
		return errors.Wrapf(ErrInvalidModel, "%v", err)
	}
	return nil
}
