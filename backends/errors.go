// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidParameter is returned (not panicked) when an operation can't be lowered with the given parameters,
	// e.g. a resize without shape nor scales.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidOperand is panicked when the native SDK rejects the descriptor of an operand.
	ErrInvalidOperand = errors.New("invalid operand")

	// ErrUnsupportedOperation is panicked when a backend has no lowering rule for an operation type.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrUnsupportedFuseCode is panicked when a backend can't fuse the requested activation.
	ErrUnsupportedFuseCode = errors.New("unsupported fuse code")
)

// ResultCode of a conversion, as reported to the callers of the accelerator layer.
type ResultCode int

const (
	NoError ResultCode = iota
	OutOfMemory
	InvalidParameter
	FeatureNotSupported
	UnknownError
)

var resultCodeNames = [...]string{"NO_ERROR", "OUT_OF_MEMORY", "INVALID_PARAMETER", "FEATURE_NOT_SUPPORTED", "UNKNOWN_ERROR"}

// String implements fmt.Stringer.
func (c ResultCode) String() string {
	if c < 0 || int(c) >= len(resultCodeNames) {
		return fmt.Sprintf("ResultCode(%d)", int(c))
	}
	return resultCodeNames[c]
}

// ResultCodeOf maps an error returned (or recovered) from Backend.Build to its ResultCode.
func ResultCodeOf(err error) ResultCode {
	switch {
	case err == nil:
		return NoError
	case errors.Is(err, ErrInvalidParameter), errors.Is(err, ErrInvalidOperand):
		return InvalidParameter
	case errors.Is(err, ErrUnsupportedOperation), errors.Is(err, ErrUnsupportedFuseCode):
		return FeatureNotSupported
	default:
		return UnknownError
	}
}
