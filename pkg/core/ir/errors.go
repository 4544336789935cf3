// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import "github.com/pkg/errors"

// Sentinel errors wrapped by the panics and errors of this package. Test for them with errors.Is.
var (
	ErrNotConstant       = errors.New("operand is not a constant")
	ErrPrecisionMismatch = errors.New("operand precision mismatch")
	ErrBufferSize        = errors.New("operand buffer size mismatch")
	ErrArityMismatch     = errors.New("operation arity mismatch")
	ErrCycle             = errors.New("model has a cycle")
	ErrMultipleProducers = errors.New("operand has more than one producer")
	ErrInvalidModel      = errors.New("invalid model")
	ErrUnknownOpType     = errors.New("unknown operation type")
)
