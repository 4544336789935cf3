// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ir defines the backend-agnostic intermediate representation consumed by the accelerator backends:
// a Model owns a DAG of Operand (typed data nodes, optionally constant) and Operation (typed computation
// nodes with fixed-arity, positional inputs and outputs).
//
// The IR is built once per conversion request (see Model.AddInput, Model.AddConstant, Model.AddOperation, or
// the more convenient package github.com/gomlx/accel/pkg/core/ir/irbuilder) and is read-only while a backend
// lowers it.
//
// Attribute operands (paddings, strides, axis, fuse codes, ...) are constants, and should be read with the
// checked accessors Operand.Int32, Operand.Bool, Operand.Int32s and Operand.Float32s, which validate the
// lifetime and precision of the operand instead of reinterpreting its buffer.
package ir
