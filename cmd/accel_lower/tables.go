// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

// newPlainTable creates a table with alternating row styles. The last alignment is used for the remaining columns.
func newPlainTable(withHeader bool, alignments ...lipgloss.Position) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 0 {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				// Even row style.
				s = oddRowStyle
			default:
				// Odd row style
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			s = s.Align(alignment)
			return
		})
}

// summary of the model and of the native graph of the program.
func summary(name string, model *ir.Model, program backends.Program) string {
	var constantBytes int
	for _, operand := range model.Operands() {
		if operand.IsConstant() {
			constantBytes += len(operand.Buffer)
		}
	}
	stats := program.Stats()
	table := newPlainTable(false, lipgloss.Right, lipgloss.Left)
	table.Row("model", name)
	table.Row("backend", program.BackendName())
	table.Row("program", program.ID().String())
	table.Row("# operations", humanize.Comma(int64(len(model.Operations()))))
	table.Row("# operands", humanize.Comma(int64(len(model.Operands()))))
	table.Row("model constants", humanize.Bytes(uint64(constantBytes)))
	table.Row("# native operators", humanize.Comma(int64(stats.NumOperators)))
	table.Row("# native tensors", humanize.Comma(int64(stats.NumTensors)))
	table.Row("native constants", humanize.Bytes(uint64(stats.ConstantBytes)))
	return titleStyle.Render("Summary") + "\n" + table.Render()
}
