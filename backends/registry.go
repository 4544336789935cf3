// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"

	"github.com/gomlx/accel/pkg/core/ir"
)

// TensorMap maps the IR operands to the native handles created for them during one conversion pass.
//
// An operand may map to several handles: a fused activation or a reshaped view re-registers the operand, and
// later lookups return the most recent handle. Handles are never overwritten.
type TensorMap[H any] struct {
	handles map[*ir.Operand][]H
}

// NewTensorMap creates an empty TensorMap.
func NewTensorMap[H any]() *TensorMap[H] {
	return &TensorMap[H]{handles: make(map[*ir.Operand][]H)}
}

// Lookup returns the most recent handle of the operand. It returns false if the operand wasn't registered.
func (m *TensorMap[H]) Lookup(operand *ir.Operand) (handle H, found bool) {
	handles := m.handles[operand]
	if len(handles) == 0 {
		return
	}
	return handles[len(handles)-1], true
}

// Register appends the handle to the operand, and returns it.
func (m *TensorMap[H]) Register(operand *ir.Operand, handle H) H {
	m.handles[operand] = append(m.handles[operand], handle)
	return handle
}

// Handles returns the handles of the operand, in order of registration.
func (m *TensorMap[H]) Handles(operand *ir.Operand) []H {
	return m.handles[operand]
}

// NumOperands returns the number of operands registered.
func (m *TensorMap[H]) NumOperands() int {
	return len(m.handles)
}

// NextName returns the name of the next handle of the operand: "<operand id>_<number of handles>".
func (m *TensorMap[H]) NextName(operand *ir.Operand) string {
	return fmt.Sprintf("%d_%d", operand.ID(), len(m.handles[operand]))
}
