// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// OperandIDToString returns a short identifier of the operand, e.g. "@3".
func OperandIDToString(operand *Operand) string {
	if operand == nil {
		return "<nil>"
	}
	return fmt.Sprintf("@%d", operand.id)
}

// DimensionsToString formats dimensions as "[1, 3, ?, 7]", with "?" for unknown dimensions.
func DimensionsToString(dims []int32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for ii, dim := range dims {
		if ii > 0 {
			sb.WriteString(", ")
		}
		if dim < 0 {
			sb.WriteByte('?')
		} else {
			fmt.Fprintf(&sb, "%d", dim)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// OperandToString returns a one-line description of the operand, including its type and, for constants,
// the size of its buffer and its values if they are few.
func OperandToString(operand *Operand) string {
	if operand == nil {
		return "<nil>"
	}
	var sb strings.Builder
	t := operand.Type
	fmt.Fprintf(&sb, "%s: %s%s %s %s", OperandIDToString(operand), t.Precision, DimensionsToString(t.Dimensions),
		t.Layout, t.Lifetime)
	if t.Quant != nil {
		fmt.Fprintf(&sb, " scales=%v zero_point=%d", t.Quant.Scales, t.Quant.ZeroPoint)
		if t.Precision.IsPerChannel() {
			fmt.Fprintf(&sb, " channel_dim=%d", t.Quant.ChannelDim)
		}
	}
	if operand.IsConstant() {
		fmt.Fprintf(&sb, " (%s)", humanize.Bytes(uint64(len(operand.Buffer))))
		if values := constantValuesToString(operand); values != "" {
			sb.WriteString(" = ")
			sb.WriteString(values)
		}
	}
	return sb.String()
}

// maxPrintedValues is the maximum number of constant values included by OperandToString.
const maxPrintedValues = 8

func constantValuesToString(operand *Operand) string {
	t := operand.Type
	if t.Size() < 0 || t.Size() > maxPrintedValues {
		return ""
	}
	scalar := t.Rank() == 0
	switch t.Precision {
	case PrecisionInt32:
		if scalar {
			return fmt.Sprintf("%d", operand.Int32())
		}
		return fmt.Sprintf("%v", operand.Int32s())
	case PrecisionFloat32, PrecisionFloat16:
		if scalar {
			return fmt.Sprintf("%g", operand.Float32())
		}
		return fmt.Sprintf("%v", operand.Float32s())
	case PrecisionBool8:
		if scalar {
			return fmt.Sprintf("%v", operand.Bool())
		}
	}
	return ""
}

// OperationToString returns a one-line description of the operation, e.g. "#2 CONV_2D(@0, @1, ...) -> (@16)".
func OperationToString(op *Operation) string {
	if op == nil {
		return "<nil>"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s(", op.id, op.Type)
	for ii, input := range op.Inputs {
		if ii > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(OperandIDToString(input))
	}
	sb.WriteString(") -> (")
	for ii, output := range op.Outputs {
		if ii > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(OperandIDToString(output))
	}
	sb.WriteByte(')')
	return sb.String()
}

// String implements fmt.Stringer. It lists all operands and operations of the model.
func (m *Model) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Model: %d operands, %d operations\n", len(m.operands), len(m.operations))
	for _, operand := range m.operands {
		fmt.Fprintf(&sb, "  %s\n", OperandToString(operand))
	}
	for _, op := range m.operations {
		fmt.Fprintf(&sb, "  %s\n", OperationToString(op))
	}
	return sb.String()
}
