// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"strings"
)

// Visualize returns the model as a graphviz DOT graph.
//
// Operations are boxes, labeled with their type. Operands are ellipses labeled with their id, precision and
// dimensions: model inputs and outputs are filled, constants are dashed.
// Edges into an operation are labeled with the input position.
//
// The output only depends on the model, so it can be compared across runs.
func Visualize(model *Model) string {
	var sb strings.Builder
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&sb, format, args...) }
	w("digraph model {\n")
	w("  rankdir=TB;\n")
	for _, operand := range model.Operands() {
		t := operand.Type
		attrs := ""
		switch {
		case t.Lifetime == LifetimeModelInput:
			attrs = ", style=filled, fillcolor=lightblue"
		case t.Lifetime == LifetimeModelOutput:
			attrs = ", style=filled, fillcolor=lightgreen"
		case t.Lifetime.IsConstant():
			attrs = ", style=dashed"
		}
		label := fmt.Sprintf("%s\\n%s%s", OperandIDToString(operand), t.Precision, DimensionsToString(t.Dimensions))
		if operand.IsConstant() {
			if values := constantValuesToString(operand); values != "" {
				label += "\\n= " + values
			}
		}
		w("  operand_%d [shape=ellipse, label=\"%s\"%s];\n", operand.id, label, attrs)
	}
	for _, op := range model.Operations() {
		w("  operation_%d [shape=box, label=\"#%d %s\"];\n", op.id, op.id, op.Type)
		for ii, input := range op.Inputs {
			if input == nil {
				continue
			}
			w("  operand_%d -> operation_%d [label=\"%d\"];\n", input.id, op.id, ii)
		}
		for _, output := range op.Outputs {
			w("  operation_%d -> operand_%d;\n", op.id, output.id)
		}
	}
	w("}\n")
	return sb.String()
}
