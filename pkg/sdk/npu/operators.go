// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package npu

import "fmt"

// OperatorType enumerates the operators of the NPU.
type OperatorType int

const (
	OperatorInvalid OperatorType = iota
	OperatorConv2D
	OperatorSoftmax
	OperatorRelu
	OperatorRelu1
	OperatorRelu6
	OperatorSigmoid
	OperatorTanh
	OperatorAdd
	OperatorSubtract
	OperatorMultiply
	OperatorDivide
	OperatorFullyConnected
	OperatorPool
	OperatorConcat
	OperatorReshape
	OperatorPermute
)

var operatorNames = [...]string{
	"INVALID", "CONV2D", "SOFTMAX", "RELU", "RELU1", "RELU6", "SIGMOID", "TANH",
	"ADD", "SUBTRACT", "MULTIPLY", "DIVIDE", "FULLCONNECT", "POOL", "CONCAT", "RESHAPE", "PERMUTE",
}

// String implements fmt.Stringer.
func (t OperatorType) String() string {
	if t < 0 || int(t) >= len(operatorNames) {
		return fmt.Sprintf("OperatorType(%d)", int(t))
	}
	return operatorNames[t]
}

// PadType of convolutions and poolings.
type PadType int

const (
	// PadAuto uses the explicit paddings.
	PadAuto PadType = iota
	PadValid
	PadSame
)

// Conv2DAttr configures OperatorConv2D. Pairs are (width, height), and Pad is (left, right, top, bottom).
type Conv2DAttr struct {
	Ksize  [2]int32 // (height, width)
	Stride [2]int32
	Pad    [4]int32
	Group  int32

	// Multiplier of depthwise convolutions, 0 otherwise.
	Multiplier int32

	// Weights is the number of output channels.
	Weights  int32
	Dilation [2]int32
	PadType  PadType
	HasRelu  bool
}

// SoftmaxAttr configures OperatorSoftmax.
type SoftmaxAttr struct {
	Axis int32
	Beta float32
}

// PoolType selects the reduction of OperatorPool.
type PoolType int

const (
	PoolMax PoolType = iota
	PoolAverage
)

// RoundType of the output dimensions of OperatorPool.
type RoundType int

const (
	RoundFloor RoundType = iota
	RoundCeil
)

// PoolAttr configures OperatorPool. Pairs are (width, height), and Pad is (left, right, top, bottom).
type PoolAttr struct {
	PoolType        PoolType
	Ksize           [2]int32
	Stride          [2]int32
	Pad             [4]int32
	PadType         PadType
	RoundType       RoundType
	CountIncludePad bool
}

// FullyConnectedAttr configures OperatorFullyConnected.
type FullyConnectedAttr struct {
	// Weights is the number of output units.
	Weights int32
	HasRelu bool
}

// ConcatAttr configures OperatorConcat.
type ConcatAttr struct {
	Axis int32
}

// ReshapeAttr configures OperatorReshape.
type ReshapeAttr struct {
	Shapes []int32
}

// PermuteAttr configures OperatorPermute.
type PermuteAttr struct {
	Perm []int32
}

// EltwiseAttr configures OperatorAdd, OperatorSubtract, OperatorMultiply and OperatorDivide.
type EltwiseAttr struct {
	// Axis of the first input where the second input is aligned, or -1 for right-aligned broadcasting.
	Axis int32
}

// attrTypeChecks returns whether the attribute has the type required by the operator.
// Operators without attributes require nil.
var attrTypeChecks = map[OperatorType]func(attr any) bool{
	OperatorConv2D:         isType[*Conv2DAttr],
	OperatorSoftmax:        isType[*SoftmaxAttr],
	OperatorFullyConnected: isType[*FullyConnectedAttr],
	OperatorPool:           isType[*PoolAttr],
	OperatorConcat:         isType[*ConcatAttr],
	OperatorReshape:        isType[*ReshapeAttr],
	OperatorPermute:        isType[*PermuteAttr],
	OperatorAdd:            isType[*EltwiseAttr],
	OperatorSubtract:       isType[*EltwiseAttr],
	OperatorMultiply:       isType[*EltwiseAttr],
	OperatorDivide:         isType[*EltwiseAttr],
}

func isType[T any](attr any) bool {
	v, ok := attr.(T)
	if !ok {
		return false
	}
	var zero T
	return any(v) != any(zero)
}

// Operator of the graph.
type Operator struct {
	index   int
	Type    OperatorType
	Name    string
	Inputs  []*Tensor
	Outputs []*Tensor
	Attr    any
}

// Index of creation in the graph.
func (op *Operator) Index() int { return op.index }
