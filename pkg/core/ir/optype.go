// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

// OpType enumerates the kinds of Operation supported by the IR.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -linecomment -values -text -json -yaml -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid          OpType = iota // INVALID
	OpTypeAdd                            // ADD
	OpTypeSub                            // SUB
	OpTypeMul                            // MUL
	OpTypeDiv                            // DIV
	OpTypeRelu                           // RELU
	OpTypeRelu6                          // RELU6
	OpTypeSigmoid                        // SIGMOID
	OpTypeTanh                           // TANH
	OpTypeSoftmax                        // SOFTMAX
	OpTypeConv2D                         // CONV_2D
	OpTypeDeformableConv2D               // DEFORMABLE_CONV_2D
	OpTypeFullyConnected                 // FULLY_CONNECTED
	OpTypeAveragePool2D                  // AVERAGE_POOL_2D
	OpTypeMaxPool2D                      // MAX_POOL_2D
	OpTypeConcat                         // CONCAT
	OpTypeReshape                        // RESHAPE
	OpTypeTranspose                      // TRANSPOSE
	OpTypeResizeNearest                  // RESIZE_NEAREST
	OpTypeResizeLinear                   // RESIZE_LINEAR

	// OpTypeLast is kept as the last, it's used as a counter/marker for OpType.
	OpTypeLast
)

// IsValid returns whether the operation type is one of the operations of the IR, excluding OpTypeInvalid and
// OpTypeLast.
func (t OpType) IsValid() bool {
	return t > OpTypeInvalid && t < OpTypeLast
}

// IsElementwiseBinary returns whether the operation type is one of ADD, SUB, MUL or DIV.
func (t OpType) IsElementwiseBinary() bool {
	return t >= OpTypeAdd && t <= OpTypeDiv
}

// IsActivation returns whether the operation type is a unary activation.
func (t OpType) IsActivation() bool {
	return t >= OpTypeRelu && t <= OpTypeTanh
}
