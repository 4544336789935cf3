// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"slices"

	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/pkg/errors"
)

// CheckFuseCode panics wrapping ErrUnsupportedFuseCode if code is neither ir.FuseNone nor one of supported.
//
// Rules call it before creating any native object.
func CheckFuseCode(code ir.FuseCode, supported ...ir.FuseCode) {
	if code == ir.FuseNone || slices.Contains(supported, code) {
		return
	}
	panic(errors.Wrapf(ErrUnsupportedFuseCode, "fuse code %s (%d), supported fuse codes are %v",
		code, int(code), supported))
}

// FuseActivation appends the activation selected by code to the most recent handle of output, and re-registers
// output with the handle returned by build.
//
// It's a no-op for ir.FuseNone, and panics wrapping ErrUnsupportedFuseCode if code is not in supported.
func FuseActivation[H any](tensors *TensorMap[H], output *ir.Operand, code ir.FuseCode, supported []ir.FuseCode,
	build func(code ir.FuseCode, input H) H) {
	if code == ir.FuseNone {
		return
	}
	CheckFuseCode(code, supported...)
	input, found := tensors.Lookup(output)
	if !found {
		panic(errors.Errorf("fusing %s into operand %s that was not converted", code, ir.OperandIDToString(output)))
	}
	tensors.Register(output, build(code, input))
}
